// Package export writes the tabular parts of a dashboard to a spreadsheet.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"fleet-analytics-service/internal/model"
)

const (
	EntitySheet    = "Entities"
	EventTypeSheet = "Event Types"

	// ContentType is the media type of the written workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// FileName names the workbook of a dashboard after its kind and date range.
func FileName(d *model.Dashboard) string {
	return fmt.Sprintf("%s-dashboard_%s_%s.xlsx", d.Kind, d.Filter.StartDate, d.Filter.EndDate)
}

// Dashboard writes the entity table and the event type totals of d as two
// sheets. The entity sheet has one column per event type seen in any
// breakdown.
func Dashboard(w io.Writer, d *model.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", EntitySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeEntities(f, d); err != nil {
		return err
	}
	if _, err := f.NewSheet(EventTypeSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeEventTypes(f, d.EventTypeTotals); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeEntities(f *excelize.File, d *model.Dashboard) error {
	entityLabel := "Asset"
	if d.Kind == model.ReportVehicle {
		entityLabel = "Driver"
	}

	types := breakdownTypes(d.EntityTable)
	header := []interface{}{entityLabel, "Total"}
	for _, t := range types {
		header = append(header, t)
	}
	if err := setRow(f, EntitySheet, 1, header); err != nil {
		return err
	}

	for i, entity := range d.EntityTable {
		counts := make(map[string]int, len(entity.Breakdown))
		for _, kc := range entity.Breakdown {
			counts[kc.Key] = kc.Count
		}
		row := []interface{}{entity.Entity.Name, entity.Total}
		for _, t := range types {
			row = append(row, counts[t])
		}
		if err := setRow(f, EntitySheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeEventTypes(f *excelize.File, totals []model.EventTypeTotal) error {
	if err := setRow(f, EventTypeSheet, 1, []interface{}{"Event Type", "Count", "Entity", "Entity Count"}); err != nil {
		return err
	}

	row := 2
	for _, total := range totals {
		if len(total.Entities) == 0 {
			if err := setRow(f, EventTypeSheet, row, []interface{}{total.EventType, total.Count}); err != nil {
				return err
			}
			row++
			continue
		}
		for _, entity := range total.Entities {
			values := []interface{}{total.EventType, total.Count, entity.Entity.Name, entity.Count}
			if err := setRow(f, EventTypeSheet, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func breakdownTypes(table []model.EntityBreakdown) []string {
	seen := make(map[string]struct{})
	var types []string
	for _, entity := range table {
		for _, kc := range entity.Breakdown {
			if _, ok := seen[kc.Key]; ok {
				continue
			}
			seen[kc.Key] = struct{}{}
			types = append(types, kc.Key)
		}
	}
	sort.Strings(types)
	return types
}
