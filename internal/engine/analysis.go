package engine

import (
	"fmt"
	"math"
	"sort"
)

// TeacherLoad compares assigned and required lessons of one teacher.
type TeacherLoad struct {
	TeacherID  string `json:"teacherId"`
	Name       string `json:"name,omitempty"`
	Department string `json:"department,omitempty"`
	Required   int    `json:"required"`
	Assigned   int    `json:"assigned"`
	Percentage int    `json:"percentage"`
}

// Analysis audits a finished schedule against the roster it was built from.
type Analysis struct {
	TeacherConflicts int           `json:"teacherConflicts"`
	RoomConflicts    int           `json:"roomConflicts"`
	LabIssues        int           `json:"labIssues"`
	Completion       int           `json:"completion"`
	HealthScore      int           `json:"healthScore"`
	TeacherLoad      []TeacherLoad `json:"teacherLoad"`
}

// Analyze counts double-booked teacher and room hours, lab lessons outside a
// lab, and per-teacher load over the teachers left by the department filter.
// With ExclusivePriorityRooms a cell may hold one priority lesson over one
// non-priority lesson, matching what Run allows. A schedule produced by Run
// reports zero of each conflict kind.
func Analyze(in Input, lessons []Lesson) Analysis {
	in = in.filtered()
	a := auditConflicts(lessons, in.Rooms, in.ExclusivePriorityRooms)

	assigned := make(map[string]int, len(in.Teachers))
	for _, l := range lessons {
		assigned[l.TeacherID]++
	}
	required := 0
	placed := 0
	a.TeacherLoad = make([]TeacherLoad, 0, len(in.Teachers))
	for _, t := range in.Teachers {
		load := TeacherLoad{
			TeacherID:  t.ID,
			Name:       t.Name,
			Department: t.Department,
			Required:   t.required(),
			Assigned:   assigned[t.ID],
		}
		if load.Required > 0 {
			load.Percentage = int(math.Round(float64(load.Assigned) / float64(load.Required) * 100))
		}
		required += load.Required
		placed += minInt(load.Assigned, load.Required)
		a.TeacherLoad = append(a.TeacherLoad, load)
	}
	sortLoad(a.TeacherLoad)
	if required > 0 {
		a.Completion = int(math.Round(float64(placed) / float64(required) * 100))
	}
	a.HealthScore = healthScore(a, len(lessons))
	return a
}

// AnalyzeLessons audits a stored schedule whose roster is gone. Per-teacher
// demand is unknown, so each load reports its assigned lessons as required
// and completion comes from the recorded unscheduled count. Lab placement is
// checked only when rooms are given.
func AnalyzeLessons(lessons []Lesson, rooms []Room, unscheduled int, exclusivePriorityRooms bool) Analysis {
	var a Analysis
	if len(rooms) > 0 {
		a = auditConflicts(lessons, rooms, exclusivePriorityRooms)
	} else {
		stripped := make([]Lesson, len(lessons))
		for i, l := range lessons {
			l.RequiresLab = false
			stripped[i] = l
		}
		a = auditConflicts(stripped, nil, exclusivePriorityRooms)
	}

	index := make(map[string]int)
	a.TeacherLoad = make([]TeacherLoad, 0)
	for _, l := range lessons {
		i, ok := index[l.TeacherID]
		if !ok {
			i = len(a.TeacherLoad)
			index[l.TeacherID] = i
			a.TeacherLoad = append(a.TeacherLoad, TeacherLoad{TeacherID: l.TeacherID, Department: l.Department, Percentage: 100})
		}
		a.TeacherLoad[i].Assigned++
		a.TeacherLoad[i].Required++
	}
	sortLoad(a.TeacherLoad)
	if unscheduled < 0 {
		unscheduled = 0
	}
	if total := len(lessons) + unscheduled; total > 0 {
		a.Completion = int(math.Round(float64(len(lessons)) / float64(total) * 100))
	}
	a.HealthScore = healthScore(a, len(lessons))
	return a
}

func auditConflicts(lessons []Lesson, roomList []Room, exclusive bool) Analysis {
	rooms := make(map[string]Room, len(roomList))
	for _, r := range roomList {
		rooms[r.ID] = r
	}

	type roomCell struct{ priority, regular int }
	teacherSlots := make(map[string]struct{})
	roomCells := make(map[string]*roomCell)
	teacherClashes := make(map[string]struct{})
	roomClashes := make(map[string]struct{})
	var a Analysis

	for _, l := range lessons {
		d := l.Duration
		if d < 1 {
			d = 1
		}
		for h := l.Hour; h < l.Hour+d; h++ {
			tk := fmt.Sprintf("%s|%s|%d", l.TeacherID, l.Day, h)
			if _, ok := teacherSlots[tk]; ok {
				teacherClashes[tk] = struct{}{}
			}
			teacherSlots[tk] = struct{}{}

			rk := fmt.Sprintf("%s|%s|%d", l.RoomID, l.Day, h)
			cell := roomCells[rk]
			if cell == nil {
				cell = &roomCell{}
				roomCells[rk] = cell
			}
			if l.IsPriority {
				cell.priority++
			} else {
				cell.regular++
			}
			overlay := exclusive && cell.priority == 1 && cell.regular == 1
			if cell.priority+cell.regular > 1 && !overlay {
				roomClashes[rk] = struct{}{}
			}
		}
		if l.RequiresLab {
			if r, ok := rooms[l.RoomID]; !ok || !r.IsLab() {
				a.LabIssues++
			}
		}
	}
	a.TeacherConflicts = len(teacherClashes)
	a.RoomConflicts = len(roomClashes)
	return a
}

func sortLoad(loads []TeacherLoad) {
	sort.SliceStable(loads, func(i, j int) bool {
		return loads[i].Percentage > loads[j].Percentage
	})
}

// healthScore is zero for an empty schedule.
func healthScore(a Analysis, lessons int) int {
	if lessons == 0 {
		return 0
	}
	return clampInt(80-5*a.TeacherConflicts-3*a.RoomConflicts-2*a.LabIssues, 0, 100)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
