package engine

import (
	"math/rand"
	"sort"
)

// Attempt is the outcome of one greedy pass over the teacher queue.
type Attempt struct {
	Lessons   []Lesson
	Conflicts int
	Assigned  map[string]int
}

// Scheduled returns the number of placed lessons.
func (a Attempt) Scheduled() int {
	return len(a.Lessons)
}

type builder struct {
	in    Input
	rnd   *rand.Rand
	newID func() string
}

// build runs one attempt with fresh room and teacher state. Attempt numbers
// start at 1; the first attempt keeps roster order for equally ranked teachers.
func (b *builder) build(number int) Attempt {
	occ := NewOccupancy(b.in.Rooms, b.in.Days, b.in.StartHour, b.in.EndHour, b.in.ExclusivePriorityRooms)
	sel := newSelector(b.in, occ, b.rnd)

	states := make(map[string]*teacherState, len(b.in.Teachers))
	for _, t := range b.in.Teachers {
		states[t.ID] = newTeacherState(t)
	}

	queue := append([]TeacherDemand(nil), b.in.Teachers...)
	if number > 1 && !b.in.DeterministicRooms && b.rnd != nil {
		b.rnd.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })
	}
	b.sortQueue(queue, nil)

	result := Attempt{Assigned: make(map[string]int, len(states))}
	for len(queue) > 0 {
		teacher := queue[0]
		queue = queue[1:]
		st := states[teacher.ID]

		pending := st.remaining()
		for i := 0; i < pending; i++ {
			p := sel.choose(teacher, st)
			if p == nil {
				result.Conflicts++
				continue
			}
			lesson := Lesson{
				ID:          b.newID(),
				TeacherID:   teacher.ID,
				Subject:     teacher.Subject,
				Day:         p.Day,
				Hour:        p.Hour,
				Duration:    teacher.duration(),
				RoomID:      p.Room.ID,
				Department:  teacher.Department,
				RequiresLab: teacher.RequiresLab,
				IsPriority:  teacher.Priority,
			}
			occ.Reserve(lesson.RoomID, lesson.Day, lesson.Hour, lesson.Duration, lesson.ID, lesson.IsPriority)
			st.place(lesson.Day, lesson.Hour, lesson.Duration)
			result.Lessons = append(result.Lessons, lesson)

			if b.in.ResortQueue && len(queue) > 1 {
				b.sortQueue(queue, states)
			}
		}
	}

	for id, st := range states {
		result.Assigned[id] = st.assigned
	}
	return result
}

func (b *builder) sortQueue(queue []TeacherDemand, states map[string]*teacherState) {
	sort.SliceStable(queue, func(i, j int) bool {
		return b.before(queue[i], queue[j], states)
	})
}

// before orders teachers: priority courses (optional), labs (optional), scarcer
// availability, then larger remaining demand.
func (b *builder) before(x, y TeacherDemand, states map[string]*teacherState) bool {
	if b.in.PrioritizeRequiredCourses && x.Priority != y.Priority {
		return x.Priority
	}
	if b.in.PrioritizeLabs && x.RequiresLab != y.RequiresLab {
		return x.RequiresLab
	}
	xs := remainingSlots(x, b.in.Days, b.in.StartHour, b.in.EndHour, states[x.ID])
	ys := remainingSlots(y, b.in.Days, b.in.StartHour, b.in.EndHour, states[y.ID])
	if xs != ys {
		return xs < ys
	}
	xr, yr := x.required(), y.required()
	if st := states[x.ID]; st != nil {
		xr = st.remaining()
	}
	if st := states[y.ID]; st != nil {
		yr = st.remaining()
	}
	return xr > yr
}
