package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectorFixture(in Input) (*selector, *Occupancy) {
	occ := NewOccupancy(in.Rooms, in.Days, in.StartHour, in.EndHour, in.ExclusivePriorityRooms)
	return newSelector(in, occ, rand.New(rand.NewSource(1))), occ
}

func baseInput(teachers []TeacherDemand, rooms []Room) Input {
	return Input{
		Teachers:           teachers,
		Rooms:              rooms,
		Days:               weekDays,
		StartHour:          8,
		EndHour:            17,
		DeterministicRooms: true,
	}
}

func TestSelectorPicksEarliestSlot(t *testing.T) {
	teacher := TeacherDemand{ID: "t1", RequiredLessons: 1, LessonDuration: 1, Availability: map[string][]int{
		"Monday":   {8},
		"Saturday": {10, 9},
	}}
	sel, _ := selectorFixture(baseInput([]TeacherDemand{teacher}, []Room{{ID: "r1"}}))

	p := sel.choose(teacher, newTeacherState(teacher))
	require.NotNil(t, p)
	assert.Equal(t, "Saturday", p.Day)
	assert.Equal(t, 9, p.Hour)
	assert.Equal(t, "r1", p.Room.ID)
}

func TestSelectorSpreadsDaysWithoutGapMinimization(t *testing.T) {
	teacher := TeacherDemand{ID: "t1", RequiredLessons: 2, LessonDuration: 1, Availability: map[string][]int{
		"Saturday": {8, 9},
		"Sunday":   {8},
	}}
	sel, _ := selectorFixture(baseInput([]TeacherDemand{teacher}, []Room{{ID: "r1"}}))
	st := newTeacherState(teacher)
	st.place("Saturday", 8, 1)

	p := sel.choose(teacher, st)
	require.NotNil(t, p)
	assert.Equal(t, "Sunday", p.Day)
}

func TestSelectorConcentratesDaysWhenMinimizingGaps(t *testing.T) {
	teacher := TeacherDemand{ID: "t1", RequiredLessons: 2, LessonDuration: 1, Availability: map[string][]int{
		"Saturday": {8, 9},
		"Sunday":   {8},
	}}
	in := baseInput([]TeacherDemand{teacher}, []Room{{ID: "r1"}})
	in.MinimizeGaps = true
	sel, _ := selectorFixture(in)
	st := newTeacherState(teacher)
	st.place("Saturday", 8, 1)

	p := sel.choose(teacher, st)
	require.NotNil(t, p)
	assert.Equal(t, "Saturday", p.Day)
	assert.Equal(t, 9, p.Hour)
}

func TestSelectorGapMinimizationStarvesFirstLesson(t *testing.T) {
	teacher := TeacherDemand{ID: "t1", RequiredLessons: 1, LessonDuration: 1, Availability: map[string][]int{"Saturday": {8}}}
	in := baseInput([]TeacherDemand{teacher}, []Room{{ID: "r1"}})
	in.MinimizeGaps = true

	sel, _ := selectorFixture(in)
	assert.Nil(t, sel.choose(teacher, newTeacherState(teacher)), "no day has been used yet")

	in.ExemptFirstLessonFromGapFilter = true
	sel, _ = selectorFixture(in)
	p := sel.choose(teacher, newTeacherState(teacher))
	require.NotNil(t, p)
	assert.Equal(t, "Saturday", p.Day)
}

func TestSelectorSkipsTeacherBusyHours(t *testing.T) {
	teacher := TeacherDemand{ID: "t1", RequiredLessons: 2, LessonDuration: 2, Availability: map[string][]int{"Saturday": {8, 9, 10}}}
	sel, _ := selectorFixture(baseInput([]TeacherDemand{teacher}, []Room{{ID: "r1"}, {ID: "r2"}}))
	st := newTeacherState(teacher)
	st.place("Saturday", 8, 2)

	p := sel.choose(teacher, st)
	require.NotNil(t, p)
	assert.Equal(t, 10, p.Hour)
}

func TestSelectorRejectsMissingLab(t *testing.T) {
	teacher := TeacherDemand{ID: "t1", RequiredLessons: 1, LessonDuration: 1, RequiresLab: true, Availability: map[string][]int{"Saturday": {8}}}
	sel, _ := selectorFixture(baseInput([]TeacherDemand{teacher}, []Room{{ID: "r1", Type: PlainRoomType}}))

	assert.Nil(t, sel.choose(teacher, newTeacherState(teacher)))
}

func TestSelectorBalancesRoomUsage(t *testing.T) {
	teacher := TeacherDemand{ID: "t1", RequiredLessons: 1, LessonDuration: 1, Availability: map[string][]int{"Sunday": {8}}}
	in := baseInput([]TeacherDemand{teacher}, []Room{{ID: "a"}, {ID: "b"}})
	in.BalanceLoad = true
	sel, occ := selectorFixture(in)
	occ.Reserve("a", "Saturday", 8, 3, "other", false)

	p := sel.choose(teacher, newTeacherState(teacher))
	require.NotNil(t, p)
	assert.Equal(t, "b", p.Room.ID)
}

func TestSelectorPrefersLessLoadedRoomPools(t *testing.T) {
	teacher := TeacherDemand{ID: "t1", RequiredLessons: 1, LessonDuration: 1, Availability: map[string][]int{"Saturday": {8, 9}}}
	in := baseInput([]TeacherDemand{teacher}, []Room{{ID: "a"}, {ID: "b"}})
	in.Optimize = true
	sel, occ := selectorFixture(in)
	// At 8 only "a" (usage 2) is free; at 9 "b" (usage 1) is free too.
	occ.Reserve("a", "Sunday", 8, 2, "x", false)
	occ.Reserve("b", "Saturday", 8, 1, "y", false)

	p := sel.choose(teacher, newTeacherState(teacher))
	require.NotNil(t, p)
	assert.Equal(t, 9, p.Hour)
	assert.Equal(t, "b", p.Room.ID)
}

func TestSelectorDeterministicRoomIsLowestID(t *testing.T) {
	teacher := TeacherDemand{ID: "t1", RequiredLessons: 1, LessonDuration: 1, Availability: map[string][]int{"Saturday": {8}}}
	sel, _ := selectorFixture(baseInput([]TeacherDemand{teacher}, []Room{{ID: "r3"}, {ID: "r1"}, {ID: "r2"}}))

	p := sel.choose(teacher, newTeacherState(teacher))
	require.NotNil(t, p)
	assert.Equal(t, "r1", p.Room.ID)
}

func TestSelectorRandomRoomStaysWithinCandidates(t *testing.T) {
	teacher := TeacherDemand{ID: "t1", RequiredLessons: 1, LessonDuration: 1, Availability: map[string][]int{"Saturday": {8}}}
	in := baseInput([]TeacherDemand{teacher}, []Room{{ID: "r1"}, {ID: "r2"}, {ID: "lab", Type: "physics"}})
	in.DeterministicRooms = false
	sel, occ := selectorFixture(in)
	occ.Reserve("r2", "Saturday", 8, 1, "x", false)

	for i := 0; i < 20; i++ {
		p := sel.choose(teacher, newTeacherState(teacher))
		require.NotNil(t, p)
		assert.Contains(t, []string{"r1", "lab"}, p.Room.ID)
	}
}
