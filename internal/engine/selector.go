package engine

import (
	"math/rand"
	"sort"
)

// teacherState tracks what one teacher holds within a single attempt.
type teacherState struct {
	assigned int
	required int
	daysUsed map[string]int
	hours    map[string]map[int]bool
}

func newTeacherState(t TeacherDemand) *teacherState {
	return &teacherState{
		required: t.required(),
		daysUsed: make(map[string]int),
		hours:    make(map[string]map[int]bool),
	}
}

func (s *teacherState) busy(day string, hour, duration int) bool {
	taken := s.hours[day]
	if taken == nil {
		return false
	}
	for h := hour; h < hour+duration; h++ {
		if taken[h] {
			return true
		}
	}
	return false
}

func (s *teacherState) place(day string, hour, duration int) {
	if s.hours[day] == nil {
		s.hours[day] = make(map[int]bool)
	}
	for h := hour; h < hour+duration; h++ {
		s.hours[day][h] = true
	}
	s.assigned++
	s.daysUsed[day]++
}

func (s *teacherState) remaining() int {
	if s.assigned >= s.required {
		return 0
	}
	return s.required - s.assigned
}

type placement struct {
	Day  string
	Hour int
	Room Room
}

type candidate struct {
	day             string
	dayIdx          int
	hour            int
	rooms           []Room
	teacherDayUsage int
	roomUsageScore  int
}

// selector finds the best (day, hour, room) for one lesson of a teacher.
type selector struct {
	in     Input
	occ    *Occupancy
	rnd    *rand.Rand
	dayIdx map[string]int
}

func newSelector(in Input, occ *Occupancy, rnd *rand.Rand) *selector {
	return &selector{in: in, occ: occ, rnd: rnd, dayIdx: in.dayIndex()}
}

func (s *selector) candidates(t TeacherDemand, st *teacherState) []candidate {
	duration := t.duration()
	var out []candidate
	for _, day := range s.in.Days {
		hours := t.Availability[day]
		if len(hours) == 0 {
			continue
		}
		if s.in.MinimizeGaps && st.daysUsed[day] == 0 {
			if !(s.in.ExemptFirstLessonFromGapFilter && st.assigned == 0) {
				continue
			}
		}
		for _, hour := range normalizeHours(hours) {
			if hour < s.in.StartHour || hour+duration > s.in.EndHour {
				continue
			}
			if st.busy(day, hour, duration) {
				continue
			}
			rooms := FindAvailableRooms(s.in.Rooms, s.occ, day, hour, duration, t.RequiresLab, t.Priority)
			if len(rooms) == 0 {
				continue
			}
			out = append(out, candidate{
				day:             day,
				dayIdx:          s.dayIdx[day],
				hour:            hour,
				rooms:           rooms,
				teacherDayUsage: st.daysUsed[day],
				roomUsageScore:  UsageScore(rooms, s.occ),
			})
		}
	}
	return out
}

func (s *selector) rank(list []candidate) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.teacherDayUsage != b.teacherDayUsage {
			if s.in.MinimizeGaps {
				return a.teacherDayUsage > b.teacherDayUsage
			}
			return a.teacherDayUsage < b.teacherDayUsage
		}
		if s.in.balanceRooms() && a.roomUsageScore != b.roomUsageScore {
			return a.roomUsageScore < b.roomUsageScore
		}
		if a.dayIdx != b.dayIdx {
			return a.dayIdx < b.dayIdx
		}
		return a.hour < b.hour
	})
}

// choose returns nil when no day/hour has a compatible free room.
func (s *selector) choose(t TeacherDemand, st *teacherState) *placement {
	list := s.candidates(t, st)
	if len(list) == 0 {
		return nil
	}
	s.rank(list)
	top := list[0]
	return &placement{Day: top.day, Hour: top.hour, Room: s.selectBestRoom(top.rooms)}
}

func (s *selector) selectBestRoom(rooms []Room) Room {
	if !s.in.balanceRooms() || len(rooms) == 1 {
		if s.in.DeterministicRooms || s.rnd == nil {
			return lowestID(rooms)
		}
		return rooms[s.rnd.Intn(len(rooms))]
	}
	best := rooms[0]
	bestUsage := s.occ.Usage(best.ID)
	for _, room := range rooms[1:] {
		usage := s.occ.Usage(room.ID)
		if usage < bestUsage || (usage == bestUsage && s.in.DeterministicRooms && room.ID < best.ID) {
			best, bestUsage = room, usage
		}
	}
	return best
}

func lowestID(rooms []Room) Room {
	best := rooms[0]
	for _, room := range rooms[1:] {
		if room.ID < best.ID {
			best = room
		}
	}
	return best
}
