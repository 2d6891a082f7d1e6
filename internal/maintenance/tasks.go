package maintenance

import "unicode/utf8"

// ExtractTasks walks the report lines and collects one Task per task code.
// Tasks inherit the most recent asset and component context. A task code
// seen again is merged into its first row.
func ExtractTasks(lines []string) *Document {
	doc := &Document{
		ByCode: make(map[string]*Task),
		Lines:  lines,
	}
	var ctx component

	for i := 0; i < len(lines); {
		ln := lines[i]
		switch {
		case isAssetLine(ln):
			doc.AssetCode, doc.AssetType = parseAsset(ln)
			i++
		case IsTaskHeader(ln), IsMetadata(ln):
			i++
		case IsComponentLine(ln):
			ctx = parseComponent(ln)
			i++
		case IsTaskRow(ln):
			block, next := gatherTaskBlock(lines, i)
			doc.add(parseTaskRow(block), ctx)
			i = next
		default:
			i++
		}
	}
	return doc
}

func (d *Document) add(f taskFields, ctx component) {
	code := NormalizeTaskCode(f.Code)

	if existing, ok := d.ByCode[code]; ok {
		if utf8.RuneCountInString(f.Description) > utf8.RuneCountInString(existing.TaskDescription) {
			existing.TaskDescription = f.Description
		}
		fill(&existing.DocRef, f.DocRef)
		fill(&existing.Interval, f.Interval)
		fill(&existing.Location1, ctx.Location1)
		fill(&existing.Location2, ctx.Location2)
		return
	}

	t := &Task{
		TaskCode:        code,
		Trade:           f.Trade,
		TaskAction:      f.Action,
		TaskDescription: f.Description,
		DocRef:          f.DocRef,
		Interval:        f.Interval,
		Location1:       ctx.Location1,
		Location2:       ctx.Location2,
		SetTypeCode:     ctx.SetTypeCode,
		ComponentPath:   ctx.Path,
		Active:          "Y",
		AssetType:       d.AssetType,
		AssetTypeCode:   firstNonEmpty(ctx.SetTypeCode, d.AssetCode),
	}
	d.Tasks = append(d.Tasks, t)
	d.ByCode[code] = t
}

func fill(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
