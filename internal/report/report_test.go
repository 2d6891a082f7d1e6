package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/local/taskspares/internal/maintenance"
)

func TestRender(t *testing.T) {
	tasks := []*maintenance.Task{
		{TaskCode: "9465150", Trade: "ENGR", TaskAction: "Check", TaskDescription: "Check coupling alignment", Interval: "1000 Hours"},
		{TaskCode: "9465160", Trade: "TECH", TaskAction: "Clean", TaskDescription: "Clean filter"},
		{TaskCode: "9465170", Trade: "TECH", TaskAction: "Lubricate"},
	}
	spares := []maintenance.SparePart{
		{TaskCode: "9465150", PartNo: "1234567-0001", PartDescription: "O-Ring seal kit", QtyRequired: "2", UOM: "EA"},
	}

	var buf bytes.Buffer
	Render(&buf, tasks, spares, Options{Limit: 2})
	out := buf.String()

	for _, want := range []string{"Tasks", "Spare Parts", "9465150", "9465160", "1234567-0001", "showing 2 of 3 rows", "1 rows"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "9465170") {
		t.Errorf("limit not applied:\n%s", out)
	}
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, []*maintenance.Task{{TaskCode: "9465150"}}, nil, Options{Markdown: true})
	if !strings.Contains(buf.String(), "| 9465150 |") {
		t.Fatalf("markdown output:\n%s", buf.String())
	}
}
