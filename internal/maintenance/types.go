// Package maintenance parses the line stream of a planned-maintenance report
// into task rows and spare-part rows.
package maintenance

// Task is one row of the Tasks sheet.
type Task struct {
	TaskCode        string
	Trade           string
	TaskAction      string
	TaskDescription string
	DocRef          string
	Interval        string
	Location1       string
	Location2       string
	SetTypeCode     string
	ComponentPath   string
	AssetType       string
	AssetTypeCode   string
	Active          string

	// Planning columns the report does not carry; exported blank.
	TypeOfWork         string
	MotionType         string
	Duration           string
	DurationCalc       string
	DurationUOM        string
	MTBMPredicted      string
	CostCode           string
	IncludeInME        string
	TaskDependency     string
	FollowUpTasks      string
	LocationDependency string
	Section            string
}

// SparePart is one row of the SpareParts sheet.
type SparePart struct {
	TaskCode        string
	PartNo          string
	PartDescription string
	MUTL            string
	QtyRequired     string
	UOM             string
	ItemDependency  string
	Location1       string
	Location2       string
	AssetType       string
	AssetTypeCode   string
}

// Document is the result of the task pass over a report.
type Document struct {
	Tasks     []*Task
	ByCode    map[string]*Task
	AssetType string
	AssetCode string
	Lines     []string
}

// Lookup returns the task with the given normalized code.
func (d *Document) Lookup(code string) (*Task, bool) {
	if d == nil || d.ByCode == nil {
		return nil, false
	}
	t, ok := d.ByCode[code]
	return t, ok
}

// component is the grey-row context that tasks and parts inherit.
type component struct {
	Location1   string
	Location2   string
	SetTypeCode string
	Path        string
}

// partBlock is a parsed spare part record before context is applied.
type partBlock struct {
	TaskCode        string
	TaskAction      string
	PartNo          string
	PartDescription string
	QtyRequired     string
	UOM             string
	ComponentPath   string
}
