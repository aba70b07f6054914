package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("lesson-%d", n)
	}
}

func newTestBuilder(in Input) *builder {
	return &builder{in: in, rnd: rand.New(rand.NewSource(7)), newID: sequentialIDs()}
}

func saturdayAt(hours ...int) map[string][]int {
	return map[string][]int{"Saturday": hours}
}

func TestBuildSingleSlotContention(t *testing.T) {
	in := baseInput([]TeacherDemand{
		{ID: "t1", RequiredLessons: 1, LessonDuration: 1, Availability: saturdayAt(8)},
		{ID: "t2", RequiredLessons: 1, LessonDuration: 1, Availability: saturdayAt(8)},
	}, []Room{{ID: "r1"}})

	attempt := newTestBuilder(in).build(1)

	require.Len(t, attempt.Lessons, 1)
	assert.Equal(t, 1, Unscheduled(in.Teachers, attempt.Lessons))
	assert.Equal(t, 1, attempt.Conflicts)
	assert.Equal(t, 1, attempt.Assigned["t1"]+attempt.Assigned["t2"])
}

func TestBuildPrefersScarceTeachers(t *testing.T) {
	in := baseInput([]TeacherDemand{
		{ID: "flexible", RequiredLessons: 1, LessonDuration: 1, Availability: saturdayAt(8, 9)},
		{ID: "scarce", RequiredLessons: 1, LessonDuration: 1, Availability: saturdayAt(8)},
	}, []Room{{ID: "r1"}})

	attempt := newTestBuilder(in).build(1)

	require.Len(t, attempt.Lessons, 2)
	byTeacher := map[string]Lesson{}
	for _, l := range attempt.Lessons {
		byTeacher[l.TeacherID] = l
	}
	assert.Equal(t, 8, byTeacher["scarce"].Hour)
	assert.Equal(t, 9, byTeacher["flexible"].Hour)
	assert.Zero(t, attempt.Conflicts)
}

func TestBuildQueueOrdering(t *testing.T) {
	elective := TeacherDemand{ID: "elective", RequiredLessons: 1, LessonDuration: 1, Availability: saturdayAt(8)}
	required := TeacherDemand{ID: "required", RequiredLessons: 1, LessonDuration: 1, Priority: true, Availability: saturdayAt(8, 9, 10)}
	lab := TeacherDemand{ID: "lab", RequiredLessons: 1, LessonDuration: 1, RequiresLab: true, Availability: saturdayAt(8, 9, 10, 11)}

	cases := []struct {
		name  string
		setup func(*Input)
		want  []string
	}{
		{name: "scarcity only", setup: func(*Input) {}, want: []string{"elective", "required", "lab"}},
		{name: "labs first", setup: func(in *Input) { in.PrioritizeLabs = true }, want: []string{"lab", "elective", "required"}},
		{name: "required courses first", setup: func(in *Input) { in.PrioritizeRequiredCourses = true }, want: []string{"required", "elective", "lab"}},
		{name: "required before labs", setup: func(in *Input) {
			in.PrioritizeRequiredCourses = true
			in.PrioritizeLabs = true
		}, want: []string{"required", "lab", "elective"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput([]TeacherDemand{lab, elective, required}, []Room{{ID: "r1"}})
			tc.setup(&in)
			b := newTestBuilder(in)
			queue := append([]TeacherDemand(nil), in.Teachers...)
			b.sortQueue(queue, nil)

			got := make([]string, 0, len(queue))
			for _, teacher := range queue {
				got = append(got, teacher.ID)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildLargerDemandBreaksTies(t *testing.T) {
	in := baseInput([]TeacherDemand{
		{ID: "small", RequiredLessons: 1, LessonDuration: 1, Availability: saturdayAt(8, 9)},
		{ID: "large", RequiredLessons: 2, LessonDuration: 1, Availability: saturdayAt(8, 9)},
	}, []Room{{ID: "r1"}})
	b := newTestBuilder(in)
	queue := append([]TeacherDemand(nil), in.Teachers...)
	b.sortQueue(queue, nil)

	assert.Equal(t, "large", queue[0].ID)
}

func TestBuildLabLessonsUseLabs(t *testing.T) {
	in := baseInput([]TeacherDemand{
		{ID: "chem", RequiredLessons: 2, LessonDuration: 2, RequiresLab: true, Availability: saturdayAt(8, 10, 12)},
	}, []Room{{ID: "r1"}, {ID: "lab-1", Type: "chemistry"}})

	attempt := newTestBuilder(in).build(1)

	require.Len(t, attempt.Lessons, 2)
	for _, l := range attempt.Lessons {
		assert.Equal(t, "lab-1", l.RoomID)
		assert.Equal(t, 2, l.Duration)
		assert.True(t, l.RequiresLab)
	}
}

func TestBuildZeroDemandPlacesNothing(t *testing.T) {
	in := baseInput([]TeacherDemand{{ID: "t1", Availability: saturdayAt(8)}}, []Room{{ID: "r1"}})

	attempt := newTestBuilder(in).build(1)

	assert.Empty(t, attempt.Lessons)
	assert.Zero(t, attempt.Conflicts)
	assert.Equal(t, 0, attempt.Assigned["t1"])
}

func TestBuildResortQueueKeepsInvariants(t *testing.T) {
	in := invariantRoster()
	in.ResortQueue = true

	attempt := newTestBuilder(in).build(1)
	assertScheduleInvariants(t, in, attempt)
}

func TestBuildInvariantsAcrossShuffledAttempts(t *testing.T) {
	for _, opts := range []func(*Input){
		func(*Input) {},
		func(in *Input) { in.BalanceLoad = true },
		func(in *Input) { in.MinimizeGaps = true; in.ExemptFirstLessonFromGapFilter = true },
		func(in *Input) { in.PrioritizeLabs = true; in.PrioritizeRequiredCourses = true },
	} {
		in := invariantRoster()
		in.DeterministicRooms = false
		opts(&in)
		b := newTestBuilder(in)
		for attempt := 1; attempt <= 5; attempt++ {
			assertScheduleInvariants(t, in, b.build(attempt))
		}
	}
}

func invariantRoster() Input {
	full := map[string][]int{}
	for _, day := range weekDays[:3] {
		full[day] = []int{8, 9, 10, 11, 12, 13, 14, 15, 16}
	}
	return baseInput([]TeacherDemand{
		{ID: "math", Department: "science", RequiredLessons: 4, LessonDuration: 2, Priority: true, Availability: full},
		{ID: "physics", Department: "science", RequiredLessons: 3, LessonDuration: 1, RequiresLab: true, Availability: full},
		{ID: "history", Department: "arts", RequiredLessons: 5, LessonDuration: 1, Availability: map[string][]int{"Saturday": {8, 9, 10}, "Sunday": {8}}},
		{ID: "art", Department: "arts", RequiredLessons: 2, LessonDuration: 3, Availability: map[string][]int{"Monday": {14, 15}}},
		{ID: "music", Department: "arts", RequiredLessons: 6, LessonDuration: 1, Availability: full},
	}, []Room{{ID: "r1"}, {ID: "r2", Type: PlainRoomType}, {ID: "lab-1", Type: "physics"}})
}

func assertScheduleInvariants(t *testing.T, in Input, attempt Attempt) {
	t.Helper()
	required := 0
	for _, teacher := range in.Teachers {
		required += teacher.required()
	}
	assert.Equal(t, required, attempt.Scheduled()+Unscheduled(in.Teachers, attempt.Lessons))

	rooms := map[string]Room{}
	for _, r := range in.Rooms {
		rooms[r.ID] = r
	}
	teachers := map[string]TeacherDemand{}
	for _, teacher := range in.Teachers {
		teachers[teacher.ID] = teacher
	}

	perTeacher := map[string]int{}
	for i, l := range attempt.Lessons {
		perTeacher[l.TeacherID]++
		assert.GreaterOrEqual(t, l.Hour, in.StartHour)
		assert.LessOrEqual(t, l.End(), in.EndHour)
		assert.Contains(t, teachers[l.TeacherID].Availability[l.Day], l.Hour)
		if l.RequiresLab {
			assert.True(t, rooms[l.RoomID].IsLab(), "lab lesson %s in %s", l.ID, l.RoomID)
		}
		for _, other := range attempt.Lessons[i+1:] {
			if !l.Overlaps(other) {
				continue
			}
			assert.NotEqual(t, l.RoomID, other.RoomID, "room double booked: %s and %s", l.ID, other.ID)
			assert.NotEqual(t, l.TeacherID, other.TeacherID, "teacher double booked: %s and %s", l.ID, other.ID)
		}
	}
	for id, count := range perTeacher {
		assert.LessOrEqual(t, count, teachers[id].required())
		assert.Equal(t, count, attempt.Assigned[id])
	}
}
