package engine

type cell struct {
	lessons  []string
	priority bool
}

func (c cell) empty() bool {
	return len(c.lessons) == 0
}

// Occupancy is the per-attempt room grid: room -> day -> hour offset from the
// start of the day.
type Occupancy struct {
	startHour int
	endHour   int
	exclusive bool
	grid      map[string]map[string][]cell
	usage     map[string]int
}

// NewOccupancy allocates an empty grid for the rooms and days of a run. With
// exclusivePriority set, a priority lesson may share a cell held by a
// non-priority lesson but never one held by another priority lesson.
func NewOccupancy(rooms []Room, days []string, startHour, endHour int, exclusivePriority bool) *Occupancy {
	o := &Occupancy{
		startHour: startHour,
		endHour:   endHour,
		exclusive: exclusivePriority,
		grid:      make(map[string]map[string][]cell, len(rooms)),
		usage:     make(map[string]int, len(rooms)),
	}
	for _, room := range rooms {
		byDay := make(map[string][]cell, len(days))
		for _, day := range days {
			byDay[day] = o.newDay()
		}
		o.grid[room.ID] = byDay
	}
	return o
}

func (o *Occupancy) newDay() []cell {
	width := o.endHour - o.startHour
	if width < 0 {
		width = 0
	}
	return make([]cell, width)
}

func (o *Occupancy) day(roomID, day string) []cell {
	byDay, ok := o.grid[roomID]
	if !ok {
		byDay = make(map[string][]cell)
		o.grid[roomID] = byDay
	}
	cells, ok := byDay[day]
	if !ok {
		cells = o.newDay()
		byDay[day] = cells
	}
	return cells
}

// Free reports whether every hour of [hour, hour+duration) is usable in the room.
func (o *Occupancy) Free(roomID, day string, hour, duration int, priority bool) bool {
	if duration < 1 || hour < o.startHour || hour+duration > o.endHour {
		return false
	}
	byDay := o.grid[roomID]
	if byDay == nil {
		return true
	}
	cells := byDay[day]
	if cells == nil {
		return true
	}
	for offset := hour - o.startHour; offset < hour-o.startHour+duration; offset++ {
		c := cells[offset]
		if c.empty() {
			continue
		}
		if o.exclusive && priority && !c.priority {
			continue
		}
		return false
	}
	return true
}

// Reserve marks every hour of the interval as held by lessonID. Callers must
// check Free first.
func (o *Occupancy) Reserve(roomID, day string, hour, duration int, lessonID string, priority bool) {
	cells := o.day(roomID, day)
	for offset := hour - o.startHour; offset < hour-o.startHour+duration; offset++ {
		if offset < 0 || offset >= len(cells) {
			continue
		}
		if cells[offset].empty() {
			o.usage[roomID]++
		}
		cells[offset].lessons = append(cells[offset].lessons, lessonID)
		if priority {
			cells[offset].priority = true
		}
	}
}

// Usage returns the number of occupied hour cells of a room.
func (o *Occupancy) Usage(roomID string) int {
	return o.usage[roomID]
}

// Occupants lists the lessons holding a room at the given hour.
func (o *Occupancy) Occupants(roomID, day string, hour int) []string {
	byDay := o.grid[roomID]
	if byDay == nil {
		return nil
	}
	cells := byDay[day]
	offset := hour - o.startHour
	if offset < 0 || offset >= len(cells) {
		return nil
	}
	return append([]string(nil), cells[offset].lessons...)
}

// FindAvailableRooms returns the rooms compatible with the lab requirement that
// are free for the whole interval. It never mutates the grid.
func FindAvailableRooms(rooms []Room, occ *Occupancy, day string, hour, duration int, requiresLab, priority bool) []Room {
	var result []Room
	for _, room := range rooms {
		if requiresLab && !room.IsLab() {
			continue
		}
		if !occ.Free(room.ID, day, hour, duration, priority) {
			continue
		}
		result = append(result, room)
	}
	return result
}

// UsageScore is the lowest occupied-hour count across the rooms.
func UsageScore(rooms []Room, occ *Occupancy) int {
	if len(rooms) == 0 {
		return 0
	}
	best := occ.Usage(rooms[0].ID)
	for _, room := range rooms[1:] {
		if u := occ.Usage(room.ID); u < best {
			best = u
		}
	}
	return best
}
