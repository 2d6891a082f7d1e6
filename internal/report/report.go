// Package report prints extracted rows as terminal tables.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/local/taskspares/internal/maintenance"
)

// Options tune the preview.
type Options struct {
	// Limit caps rows per table; 0 shows everything.
	Limit int
	// DescWidth wraps description columns; 0 means 48.
	DescWidth int
	// Markdown renders GitHub-flavoured tables instead of box drawing.
	Markdown bool
}

// Render writes the Tasks table followed by the SpareParts table.
func Render(w io.Writer, tasks []*maintenance.Task, spares []maintenance.SparePart, o Options) {
	if o.DescWidth <= 0 {
		o.DescWidth = 48
	}

	t := newTable(w, o, "Tasks")
	t.AppendHeader(table.Row{"#", "Task Code", "Trade", "Action", "Description", "Doc Ref", "Interval", "Set Code"})
	for i, tk := range tasks {
		if o.Limit > 0 && i >= o.Limit {
			break
		}
		t.AppendRow(table.Row{i + 1, tk.TaskCode, tk.Trade, tk.TaskAction, tk.TaskDescription, tk.DocRef, tk.Interval, tk.AssetTypeCode})
	}
	t.AppendFooter(table.Row{"", "", "", "", footer(len(tasks), o.Limit)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, WidthMax: o.DescWidth},
	})
	render(t, o)
	fmt.Fprintln(w)

	s := newTable(w, o, "Spare Parts")
	s.AppendHeader(table.Row{"Task Code", "Part No", "Description", "Qty", "UOM", "Location", "Set Code"})
	for i, sp := range spares {
		if o.Limit > 0 && i >= o.Limit {
			break
		}
		s.AppendRow(table.Row{sp.TaskCode, sp.PartNo, sp.PartDescription, sp.QtyRequired, sp.UOM, sp.Location2, sp.AssetTypeCode})
	}
	s.AppendFooter(table.Row{"", "", footer(len(spares), o.Limit)})
	s.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: o.DescWidth},
		{Number: 4, Align: text.AlignRight},
		{Number: 6, WidthMax: o.DescWidth / 2},
	})
	render(s, o)
}

func newTable(w io.Writer, o Options, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if !o.Markdown {
		t.SetTitle(title)
		t.SetStyle(table.StyleLight)
	}
	return t
}

func render(t table.Writer, o Options) {
	if o.Markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

func footer(total, limit int) string {
	if limit > 0 && total > limit {
		return fmt.Sprintf("showing %d of %d rows", limit, total)
	}
	return fmt.Sprintf("%d rows", total)
}
