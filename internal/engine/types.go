package engine

import (
	"math/rand"
	"sort"
	"time"
)

// Algorithm selects an attempt budget and pacing preset for the generation loop.
type Algorithm string

const (
	AlgorithmFast      Algorithm = "fast"
	AlgorithmOptimized Algorithm = "optimized"
	AlgorithmThorough  Algorithm = "thorough"
)

// Preset couples the attempt budget with the delay between attempts.
type Preset struct {
	MaxAttempts int
	Interval    time.Duration
}

var presets = map[Algorithm]Preset{
	AlgorithmFast:      {MaxAttempts: 10, Interval: 100 * time.Millisecond},
	AlgorithmOptimized: {MaxAttempts: 100, Interval: 100 * time.Millisecond},
	AlgorithmThorough:  {MaxAttempts: 500, Interval: 50 * time.Millisecond},
}

// PresetFor resolves the preset of an algorithm, falling back to fast.
func PresetFor(a Algorithm) Preset {
	if p, ok := presets[a]; ok {
		return p
	}
	return presets[AlgorithmFast]
}

// ValidAlgorithm reports whether a is one of the known presets.
func ValidAlgorithm(a Algorithm) bool {
	_, ok := presets[a]
	return ok
}

// PlainRoomType marks lecture rooms that cannot host lab lessons.
const PlainRoomType = "room"

// TeacherDemand is the lesson demand derived from one teacher of the roster.
type TeacherDemand struct {
	ID              string           `json:"id"`
	Name            string           `json:"name,omitempty"`
	Subject         string           `json:"subject,omitempty"`
	Department      string           `json:"department,omitempty"`
	RequiredLessons int              `json:"requiredLessons"`
	LessonDuration  int              `json:"lessonDuration"`
	RequiresLab     bool             `json:"requiresLab"`
	Availability    map[string][]int `json:"availability"`
	Priority        bool             `json:"priority"`
}

func (t TeacherDemand) duration() int {
	if t.LessonDuration < 1 {
		return 1
	}
	return t.LessonDuration
}

func (t TeacherDemand) required() int {
	if t.RequiredLessons < 0 {
		return 0
	}
	return t.RequiredLessons
}

// HasAvailability reports whether at least one day lists an hour.
func (t TeacherDemand) HasAvailability() bool {
	for _, hours := range t.Availability {
		if len(hours) > 0 {
			return true
		}
	}
	return false
}

// Room is a bookable teaching space.
type Room struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Type       string `json:"type,omitempty"`
	Capacity   int    `json:"capacity,omitempty"`
	Department string `json:"department,omitempty"`
}

// IsLab reports whether the room satisfies lab-requiring lessons.
func (r Room) IsLab() bool {
	return r.Type != "" && r.Type != PlainRoomType
}

// Lesson is one placed entry of a generated timetable.
type Lesson struct {
	ID          string `json:"id"`
	TeacherID   string `json:"teacherId"`
	Subject     string `json:"subject,omitempty"`
	Day         string `json:"day"`
	Hour        int    `json:"hour"`
	Duration    int    `json:"duration"`
	RoomID      string `json:"roomId"`
	Department  string `json:"department,omitempty"`
	RequiresLab bool   `json:"requiresLab"`
	IsPriority  bool   `json:"isPriority"`
}

// End returns the exclusive end hour of the lesson.
func (l Lesson) End() int {
	return l.Hour + l.Duration
}

// Overlaps reports whether both lessons share a day and intersecting hour ranges.
func (l Lesson) Overlaps(o Lesson) bool {
	return l.Day == o.Day && l.Hour < o.End() && o.Hour < l.End()
}

// Input is the full configuration of one generation run.
type Input struct {
	Teachers         []TeacherDemand
	Rooms            []Room
	Days             []string
	StartHour        int
	EndHour          int
	DepartmentFilter string

	BalanceLoad    bool
	Optimize       bool
	MinimizeGaps   bool
	PrioritizeLabs bool

	PrioritizeRequiredCourses      bool
	ExclusivePriorityRooms         bool
	PenalizeConflicts              bool
	ResortQueue                    bool
	ExemptFirstLessonFromGapFilter bool

	Algorithm   Algorithm
	MaxAttempts int
	MaxTime     time.Duration

	// Seed feeds the random source; zero picks a time based seed.
	Seed int64
	// DeterministicRooms picks the first free room by id instead of a random one
	// and disables queue shuffling.
	DeterministicRooms bool
}

func (in Input) balanceRooms() bool {
	return in.Optimize || in.BalanceLoad
}

func (in Input) dayIndex() map[string]int {
	idx := make(map[string]int, len(in.Days))
	for i, day := range in.Days {
		if _, ok := idx[day]; !ok {
			idx[day] = i
		}
	}
	return idx
}

// filtered applies the department filter to teachers and rooms.
func (in Input) filtered() Input {
	if in.DepartmentFilter == "" {
		return in
	}
	out := in
	out.Teachers = make([]TeacherDemand, 0, len(in.Teachers))
	for _, t := range in.Teachers {
		if t.Department == in.DepartmentFilter {
			out.Teachers = append(out.Teachers, t)
		}
	}
	out.Rooms = make([]Room, 0, len(in.Rooms))
	for _, r := range in.Rooms {
		if r.Department == "" || r.Department == in.DepartmentFilter {
			out.Rooms = append(out.Rooms, r)
		}
	}
	return out
}

func (in Input) newRand() *rand.Rand {
	seed := in.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// normalizeHours returns the sorted distinct hours of a day.
func normalizeHours(hours []int) []int {
	seen := make(map[int]struct{}, len(hours))
	out := make([]int, 0, len(hours))
	for _, h := range hours {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}
