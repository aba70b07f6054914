package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTimetable() Timetable {
	return Timetable{
		Title:     "Science timetable",
		Days:      []string{"Saturday", "Sunday"},
		StartHour: 8,
		EndHour:   11,
		Rows: []Row{
			{Day: "Sunday", Start: 8, End: 9, Teacher: "Dr. Reem", Subject: "Biology", Room: "r2"},
			{Day: "Saturday", Start: 9, End: 11, Teacher: "Dr. Omar", Subject: "Chemistry", Room: "lab-1", Lab: true, Priority: true},
			{Day: "Saturday", Start: 8, End: 9, Teacher: "Dr. Reem", Subject: "Biology", Room: "r1"},
		},
		Footer: []string{"Score: 70"},
	}
}

func TestTimetableSortedAndGrid(t *testing.T) {
	tt := sampleTimetable()

	sorted := tt.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, "Saturday", sorted[0].Day)
	assert.Equal(t, 8, sorted[0].Start)
	assert.Equal(t, "Sunday", sorted[2].Day)

	grid := tt.Grid()
	assert.Equal(t, []string{"Chemistry (Dr. Omar) @ lab-1"}, grid["Saturday"][9])
	assert.Equal(t, []string{"Chemistry (Dr. Omar) @ lab-1"}, grid["Saturday"][10])
	assert.Empty(t, grid["Sunday"][9])
	assert.Equal(t, []int{8, 9, 10}, tt.Hours())
	assert.Equal(t, "08:00-09:00", HourLabel(8, 9))
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTimetable())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "day,start_hour,end_hour,teacher,subject,room,department,lab,priority", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Saturday,8,9,Dr. Reem,Biology,r1"))
	assert.True(t, strings.HasPrefix(lines[2], "Saturday,9,11,Dr. Omar,Chemistry,lab-1,,true,true"))
}

func TestCSVExporterEmptyTimetable(t *testing.T) {
	out, err := NewCSVExporter().Render(Timetable{})
	require.NoError(t, err)
	assert.Equal(t, "day,start_hour,end_hour,teacher,subject,room,department,lab,priority", strings.TrimSpace(string(out)))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleTimetable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().Render(Timetable{Days: []string{"Saturday"}, StartHour: 9, EndHour: 9})
	assert.Error(t, err)
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleTimetable())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	assert.Equal(t, []string{gridSheet, lessonsSheet}, f.GetSheetList())

	day, err := f.GetCellValue(gridSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Saturday", day)

	slot, err := f.GetCellValue(gridSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Chemistry (Dr. Omar) @ lab-1", slot)

	rows, err := f.GetRows(lessonsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, lessonHeaders, rows[0][:len(lessonHeaders)])
	assert.Equal(t, "r1", rows[1][5])
}
