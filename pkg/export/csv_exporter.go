package export

import (
	"fmt"

	"github.com/gocarina/gocsv"
)

// CSVExporter renders timetable rows as CSV with a header line.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the timetable. An empty timetable
// yields the header line only.
func (e *CSVExporter) Render(t Timetable) ([]byte, error) {
	rows := t.Sorted()
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return out, nil
}
