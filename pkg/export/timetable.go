package export

import (
	"fmt"
	"sort"
	"strings"
)

// Row is one lesson line of an exported timetable.
type Row struct {
	Day        string `csv:"day"`
	Start      int    `csv:"start_hour"`
	End        int    `csv:"end_hour"`
	Teacher    string `csv:"teacher"`
	Subject    string `csv:"subject"`
	Room       string `csv:"room"`
	Department string `csv:"department"`
	Lab        bool   `csv:"lab"`
	Priority   bool   `csv:"priority"`
}

// Label is the text shown for the row inside a grid cell.
func (r Row) Label() string {
	subject := r.Subject
	if subject == "" {
		subject = "-"
	}
	return fmt.Sprintf("%s (%s) @ %s", subject, r.Teacher, r.Room)
}

// Timetable is the renderer input: the lessons plus the week they live in.
type Timetable struct {
	Title     string
	Days      []string
	StartHour int
	EndHour   int
	Rows      []Row
	// Footer is printed under the table, e.g. score and unscheduled counts.
	Footer []string
}

// Sorted returns the rows ordered by day position, start hour then room.
func (t Timetable) Sorted() []Row {
	pos := make(map[string]int, len(t.Days))
	for i, d := range t.Days {
		pos[d] = i
	}
	rows := append([]Row(nil), t.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if pos[a.Day] != pos[b.Day] {
			return pos[a.Day] < pos[b.Day]
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Room < b.Room
	})
	return rows
}

// Hours lists the hour rows of the week grid.
func (t Timetable) Hours() []int {
	if t.EndHour <= t.StartHour {
		return nil
	}
	out := make([]int, 0, t.EndHour-t.StartHour)
	for h := t.StartHour; h < t.EndHour; h++ {
		out = append(out, h)
	}
	return out
}

// Grid maps day -> hour -> labels of every lesson covering that hour.
func (t Timetable) Grid() map[string]map[int][]string {
	grid := make(map[string]map[int][]string, len(t.Days))
	for _, r := range t.Sorted() {
		if grid[r.Day] == nil {
			grid[r.Day] = make(map[int][]string)
		}
		for h := r.Start; h < r.End; h++ {
			grid[r.Day][h] = append(grid[r.Day][h], r.Label())
		}
	}
	return grid
}

// HourLabel formats an hour range as 08:00-09:00.
func HourLabel(start, end int) string {
	return fmt.Sprintf("%02d:00-%02d:00", start, end)
}

func cellText(labels []string) string {
	return strings.Join(labels, "\n")
}
