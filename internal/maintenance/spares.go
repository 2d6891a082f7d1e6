package maintenance

// sparesKey identifies a spare part row for de-duplication.
type sparesKey struct {
	TaskCode        string
	PartNo          string
	PartDescription string
}

// ExtractSpares collects spare part rows from the report lines. Each part is
// attached to its own task code, or to the last task row seen. Locations and
// the set type code come from the current component, then from the owning
// task, then from the part's component path.
func ExtractSpares(lines []string, doc *Document) []SparePart {
	var (
		out      []SparePart
		ctx      component
		lastTask string
		seen     = make(map[sparesKey]struct{})
	)

	for i := 0; i < len(lines); {
		ln := lines[i]
		switch {
		case IsMetadata(ln), isAssetLine(ln), IsSparesHeader(ln):
			i++
		case IsComponentLine(ln):
			ctx = parseComponent(ln)
			i++
		case IsTaskRow(ln):
			lastTask = NormalizeTaskCode(firstField(stripStatusPrefix(ln)))
			i++
		case IsPartLine(ln):
			p, next := parsePartBlock(lines, i)
			i = next
			if p == nil {
				continue
			}
			code := firstNonEmpty(p.TaskCode, lastTask)
			if code == "" {
				continue
			}
			key := sparesKey{TaskCode: code, PartNo: p.PartNo, PartDescription: p.PartDescription}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			var owner Task
			if t, ok := doc.Lookup(code); ok {
				owner = *t
			}
			setCode := firstNonEmpty(ctx.SetTypeCode, owner.SetTypeCode)
			if setCode == "" {
				setCode = lastSetTypeCode(p.ComponentPath)
			}
			out = append(out, SparePart{
				TaskCode:        code,
				PartNo:          p.PartNo,
				PartDescription: p.PartDescription,
				QtyRequired:     p.QtyRequired,
				UOM:             p.UOM,
				Location1:       firstNonEmpty(ctx.Location1, owner.Location1),
				Location2:       firstNonEmpty(ctx.Location2, owner.Location2),
				AssetTypeCode:   setCode,
			})
		default:
			i++
		}
	}
	return out
}

func firstField(s string) string {
	for i, r := range s {
		if isSpace(r) {
			return s[:i]
		}
	}
	return s
}

// Parse runs both passes over page texts.
func Parse(pages []string) (*Document, []SparePart) {
	doc := ExtractTasks(Lines(pages))
	return doc, ExtractSpares(doc.Lines, doc)
}
