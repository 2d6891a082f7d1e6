// Package workbook writes extracted tasks and spare parts to an XLSX file.
package workbook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/local/taskspares/internal/maintenance"
)

const (
	TasksSheet  = "Tasks"
	SparesSheet = "SpareParts"

	headerHeight = 22
)

// TaskHeaders is the column order of the Tasks sheet.
var TaskHeaders = []string{
	"Sort",
	"TaskCode",
	"TaskAction",
	"TaskDescription",
	"TypeOfWork",
	"MotionType",
	"Duration",
	"DurationCalc",
	"DurationUOM",
	"Interval",
	"MTBMPredicted",
	"CostCode",
	"IncludeInME",
	"TaskDependency",
	"FollowUpTasks",
	"LocationDependency",
	"Active",
	"Trade",
	"Section",
	"DocRef",
	"Location1",
	"Location2",
	"ComponentPath",
	"AssetType",
	"AssetTypeCode",
}

// SpareHeaders is the column order of the SpareParts sheet.
var SpareHeaders = []string{
	"TaskCode",
	"PartNo",
	"PartDescription",
	"MU_TL",
	"QtyRequired",
	"UOM",
	"ItemDependency",
	"Location1",
	"Location2",
	"AssetType",
	"AssetTypeCode",
}

// Build creates the two-sheet workbook. Tasks are numbered in the Sort column
// in the order given.
func Build(tasks []*maintenance.Task, spares []maintenance.SparePart) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), TasksSheet); err != nil {
		return nil, fmt.Errorf("rename default sheet: %w", err)
	}
	if _, err := f.NewSheet(SparesSheet); err != nil {
		return nil, fmt.Errorf("create %s sheet: %w", SparesSheet, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeHeader(f, TasksSheet, TaskHeaders, bold); err != nil {
		return nil, err
	}
	for i, t := range tasks {
		if err := writeRow(f, TasksSheet, i+2, taskRow(i+1, t)); err != nil {
			return nil, err
		}
	}

	if err := writeHeader(f, SparesSheet, SpareHeaders, bold); err != nil {
		return nil, err
	}
	for i, sp := range spares {
		if err := writeRow(f, SparesSheet, i+2, spareRow(sp)); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Save builds the workbook and writes it to path, creating parent directories.
func Save(path string, tasks []*maintenance.Task, spares []maintenance.SparePart) error {
	f, err := Build(tasks, spares)
	if err != nil {
		return err
	}
	defer f.Close()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	log.Debug().Str("path", path).Int("tasks", len(tasks)).Int("spares", len(spares)).Msg("workbook saved")
	return nil
}

// Write builds the workbook and streams it to w.
func Write(w io.Writer, tasks []*maintenance.Task, spares []maintenance.SparePart) error {
	f, err := Build(tasks, spares)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := writeRow(f, sheet, 1, row); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	if err := f.SetRowHeight(sheet, 1, headerHeight); err != nil {
		return fmt.Errorf("size %s header: %w", sheet, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func taskRow(sort int, t *maintenance.Task) []interface{} {
	return []interface{}{
		sort,
		t.TaskCode,
		t.TaskAction,
		t.TaskDescription,
		t.TypeOfWork,
		t.MotionType,
		t.Duration,
		t.DurationCalc,
		t.DurationUOM,
		t.Interval,
		t.MTBMPredicted,
		t.CostCode,
		t.IncludeInME,
		t.TaskDependency,
		t.FollowUpTasks,
		t.LocationDependency,
		t.Active,
		t.Trade,
		t.Section,
		t.DocRef,
		t.Location1,
		t.Location2,
		t.ComponentPath,
		t.AssetType,
		t.AssetTypeCode,
	}
}

func spareRow(sp maintenance.SparePart) []interface{} {
	return []interface{}{
		sp.TaskCode,
		sp.PartNo,
		sp.PartDescription,
		sp.MUTL,
		sp.QtyRequired,
		sp.UOM,
		sp.ItemDependency,
		sp.Location1,
		sp.Location2,
		sp.AssetType,
		sp.AssetTypeCode,
	}
}
