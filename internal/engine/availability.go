package engine

// CountAvailableSlots counts the starting hours at which a teacher could begin a
// lesson of their duration, ignoring rooms. Used only to rank scarce teachers first.
func CountAvailableSlots(t TeacherDemand, days []string, startHour, endHour int) int {
	duration := t.duration()
	count := 0
	for _, day := range days {
		for _, hour := range t.Availability[day] {
			if hour+duration <= endHour {
				count++
			}
		}
	}
	return count
}

// remainingSlots is CountAvailableSlots minus the starting hours the teacher
// already blocked with placed lessons in the current attempt.
func remainingSlots(t TeacherDemand, days []string, startHour, endHour int, st *teacherState) int {
	count := CountAvailableSlots(t, days, startHour, endHour)
	if st == nil {
		return count
	}
	duration := t.duration()
	for _, day := range days {
		for _, hour := range t.Availability[day] {
			if hour+duration <= endHour && st.busy(day, hour, duration) {
				count--
			}
		}
	}
	return count
}
