package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeCleanSchedule(t *testing.T) {
	in := baseInput(
		[]TeacherDemand{
			{ID: "t1", Name: "Ali", RequiredLessons: 2, Availability: map[string][]int{"Saturday": {8, 9}}},
			{ID: "t2", Name: "Sara", RequiredLessons: 2, Availability: map[string][]int{"Saturday": {8}}},
		},
		[]Room{{ID: "r1"}, {ID: "r2"}},
	)
	lessons := []Lesson{
		{TeacherID: "t1", Day: "Saturday", Hour: 8, Duration: 1, RoomID: "r1"},
		{TeacherID: "t1", Day: "Saturday", Hour: 9, Duration: 1, RoomID: "r1"},
		{TeacherID: "t2", Day: "Saturday", Hour: 8, Duration: 1, RoomID: "r2"},
	}

	a := Analyze(in, lessons)

	assert.Zero(t, a.TeacherConflicts)
	assert.Zero(t, a.RoomConflicts)
	assert.Zero(t, a.LabIssues)
	assert.Equal(t, 75, a.Completion)
	assert.Equal(t, 80, a.HealthScore)
	assert.Equal(t, []TeacherLoad{
		{TeacherID: "t1", Name: "Ali", Required: 2, Assigned: 2, Percentage: 100},
		{TeacherID: "t2", Name: "Sara", Required: 2, Assigned: 1, Percentage: 50},
	}, a.TeacherLoad)
}

func TestAnalyzeDetectsClashes(t *testing.T) {
	in := baseInput(
		[]TeacherDemand{{ID: "t1", RequiredLessons: 3}, {ID: "t2", RequiredLessons: 1}},
		[]Room{{ID: "r1"}, {ID: "lab", Type: "lab"}},
	)
	lessons := []Lesson{
		{TeacherID: "t1", Day: "Saturday", Hour: 8, Duration: 2, RoomID: "r1"},
		{TeacherID: "t1", Day: "Saturday", Hour: 9, Duration: 1, RoomID: "lab"},
		{TeacherID: "t2", Day: "Saturday", Hour: 9, Duration: 1, RoomID: "r1", RequiresLab: true},
		{TeacherID: "t1", Day: "Sunday", Hour: 8, Duration: 1, RoomID: "gone", RequiresLab: true},
	}

	a := Analyze(in, lessons)

	assert.Equal(t, 1, a.TeacherConflicts)
	assert.Equal(t, 1, a.RoomConflicts)
	assert.Equal(t, 2, a.LabIssues)
	assert.Equal(t, 80-5-3-4, a.HealthScore)
}

func TestAnalyzeEmptySchedule(t *testing.T) {
	in := baseInput([]TeacherDemand{{ID: "t1", RequiredLessons: 0}}, []Room{{ID: "r1"}})

	a := Analyze(in, nil)

	assert.Zero(t, a.HealthScore)
	assert.Zero(t, a.Completion)
	assert.Equal(t, 0, a.TeacherLoad[0].Percentage)
}

func TestAnalyzeAllowsPriorityOverlay(t *testing.T) {
	in := baseInput(
		[]TeacherDemand{{ID: "a", RequiredLessons: 1}, {ID: "b", RequiredLessons: 1}, {ID: "c", RequiredLessons: 1}},
		[]Room{{ID: "r1"}},
	)
	lessons := []Lesson{
		{TeacherID: "a", Day: "Saturday", Hour: 8, Duration: 1, RoomID: "r1"},
		{TeacherID: "b", Day: "Saturday", Hour: 8, Duration: 1, RoomID: "r1", IsPriority: true},
	}

	in.ExclusivePriorityRooms = true
	a := Analyze(in, lessons)
	assert.Zero(t, a.RoomConflicts)
	assert.Equal(t, 80, a.HealthScore)

	in.ExclusivePriorityRooms = false
	assert.Equal(t, 1, Analyze(in, lessons).RoomConflicts)

	in.ExclusivePriorityRooms = true
	withSecondPriority := append(lessons, Lesson{TeacherID: "c", Day: "Saturday", Hour: 8, Duration: 1, RoomID: "r1", IsPriority: true})
	assert.Equal(t, 1, Analyze(in, withSecondPriority).RoomConflicts)
}

func TestAnalyzeAppliesDepartmentFilter(t *testing.T) {
	in := baseInput(
		[]TeacherDemand{
			{ID: "t1", Department: "sci", RequiredLessons: 1},
			{ID: "t9", Department: "arts", RequiredLessons: 5},
		},
		[]Room{{ID: "r1"}},
	)
	in.DepartmentFilter = "sci"

	a := Analyze(in, []Lesson{{TeacherID: "t1", Day: "Saturday", Hour: 8, Duration: 1, RoomID: "r1"}})

	assert.Equal(t, 100, a.Completion)
	require.Len(t, a.TeacherLoad, 1)
	assert.Equal(t, "t1", a.TeacherLoad[0].TeacherID)
}

func TestAnalyzeLessonsWithoutRoster(t *testing.T) {
	lessons := []Lesson{
		{TeacherID: "t1", Department: "sci", Day: "Saturday", Hour: 8, Duration: 1, RoomID: "r1", RequiresLab: true},
		{TeacherID: "t1", Department: "sci", Day: "Saturday", Hour: 9, Duration: 1, RoomID: "r1"},
		{TeacherID: "t2", Department: "sci", Day: "Saturday", Hour: 9, Duration: 1, RoomID: "r1"},
	}

	a := AnalyzeLessons(lessons, nil, 1, false)

	assert.Zero(t, a.TeacherConflicts)
	assert.Equal(t, 1, a.RoomConflicts)
	assert.Zero(t, a.LabIssues)
	assert.Equal(t, 75, a.Completion)
	assert.Equal(t, 77, a.HealthScore)
	assert.Equal(t, []TeacherLoad{
		{TeacherID: "t1", Department: "sci", Required: 2, Assigned: 2, Percentage: 100},
		{TeacherID: "t2", Department: "sci", Required: 1, Assigned: 1, Percentage: 100},
	}, a.TeacherLoad)

	withRooms := AnalyzeLessons(lessons, []Room{{ID: "r1"}}, 0, false)
	assert.Equal(t, 1, withRooms.LabIssues)
	assert.Equal(t, 100, withRooms.Completion)
}
