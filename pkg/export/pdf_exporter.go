package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders the week grid into a landscape PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render draws one column per day and one row per hour.
func (e *PDFExporter) Render(t Timetable) ([]byte, error) {
	if len(t.Days) == 0 {
		return nil, fmt.Errorf("pdf requires at least one day")
	}
	hours := t.Hours()
	if len(hours) == 0 {
		return nil, fmt.Errorf("pdf requires a non-empty hour range")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	if t.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(t.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	const hourWidth = 25.0
	dayWidth := (277.0 - hourWidth) / float64(len(t.Days))

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(hourWidth, 8, "Time", "1", 0, "C", false, 0, "")
	for _, day := range t.Days {
		pdf.CellFormat(dayWidth, 8, day, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	grid := t.Grid()
	pdf.SetFont("Arial", "", 7)
	for _, h := range hours {
		lines := 1
		for _, day := range t.Days {
			if n := len(grid[day][h]); n > lines {
				lines = n
			}
		}
		height := 5.0 * float64(lines)
		x, y := pdf.GetXY()
		pdf.CellFormat(hourWidth, height, HourLabel(h, h+1), "1", 0, "C", false, 0, "")
		for i, day := range t.Days {
			pdf.SetXY(x+hourWidth+float64(i)*dayWidth, y)
			pdf.Rect(pdf.GetX(), y, dayWidth, height, "D")
			pdf.MultiCell(dayWidth, 5, cellText(grid[day][h]), "", "L", false)
		}
		pdf.SetXY(x, y+height)
	}

	if len(t.Footer) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 8)
		for _, line := range t.Footer {
			pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
