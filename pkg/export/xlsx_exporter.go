package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	gridSheet    = "Timetable"
	lessonsSheet = "Lessons"
)

var lessonHeaders = []string{"Day", "Start", "End", "Teacher", "Subject", "Room", "Department", "Lab", "Priority"}

// XLSXExporter renders a workbook with the week grid and a flat lesson list.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render builds the workbook in memory.
func (e *XLSXExporter) Render(t Timetable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", gridSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return nil, fmt.Errorf("create cell style: %w", err)
	}

	if err := writeGrid(f, t, bold, wrap); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(lessonsSheet); err != nil {
		return nil, fmt.Errorf("create lessons sheet: %w", err)
	}
	if err := writeLessons(f, t, bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeGrid(f *excelize.File, t Timetable, header, body int) error {
	if err := f.SetCellStr(gridSheet, cell(1, 1), "Time"); err != nil {
		return err
	}
	for i, day := range t.Days {
		if err := f.SetCellStr(gridSheet, cell(i+2, 1), day); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(gridSheet, cell(1, 1), cell(len(t.Days)+1, 1), header); err != nil {
		return err
	}

	grid := t.Grid()
	hours := t.Hours()
	for r, h := range hours {
		row := r + 2
		if err := f.SetCellStr(gridSheet, cell(1, row), HourLabel(h, h+1)); err != nil {
			return err
		}
		for i, day := range t.Days {
			if labels := grid[day][h]; len(labels) > 0 {
				if err := f.SetCellStr(gridSheet, cell(i+2, row), cellText(labels)); err != nil {
					return err
				}
			}
		}
	}
	if len(hours) > 0 && len(t.Days) > 0 {
		if err := f.SetCellStyle(gridSheet, cell(2, 2), cell(len(t.Days)+1, len(hours)+1), body); err != nil {
			return err
		}
		last, _ := excelize.ColumnNumberToName(len(t.Days) + 1)
		if err := f.SetColWidth(gridSheet, "B", last, 32); err != nil {
			return err
		}
	}
	return f.SetColWidth(gridSheet, "A", "A", 14)
}

func writeLessons(f *excelize.File, t Timetable, header int) error {
	for i, h := range lessonHeaders {
		if err := f.SetCellStr(lessonsSheet, cell(i+1, 1), h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(lessonsSheet, cell(1, 1), cell(len(lessonHeaders), 1), header); err != nil {
		return err
	}
	for i, r := range t.Sorted() {
		values := []interface{}{r.Day, r.Start, r.End, r.Teacher, r.Subject, r.Room, r.Department, r.Lab, r.Priority}
		if err := f.SetSheetRow(lessonsSheet, cell(1, i+2), &values); err != nil {
			return fmt.Errorf("write lesson row: %w", err)
		}
	}
	for i, line := range t.Footer {
		if err := f.SetCellStr(lessonsSheet, cell(len(lessonHeaders)+2, i+1), line); err != nil {
			return err
		}
	}
	return nil
}

func cell(col, row int) string {
	ref, _ := excelize.CoordinatesToCellName(col, row)
	return ref
}
