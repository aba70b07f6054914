package models

import "time"

// ScheduleStatus marks whether a stored timetable is final.
type ScheduleStatus string

const (
	ScheduleProvisional ScheduleStatus = "provisional"
	ScheduleFinal       ScheduleStatus = "final"
)

// ScheduleRun is a persisted generation result.
type ScheduleRun struct {
	ID           string         `db:"id" json:"id"`
	Status       ScheduleStatus `db:"status" json:"status"`
	DepartmentID *string        `db:"department_id" json:"department_id,omitempty"`
	Algorithm    string         `db:"algorithm" json:"algorithm"`
	Score        int            `db:"score" json:"score"`
	Attempts     int            `db:"attempts" json:"attempts"`
	Unscheduled  int            `db:"unscheduled" json:"unscheduled"`
	Conflicts    int            `db:"conflicts" json:"conflicts"`
	StopReason   *string        `db:"stop_reason" json:"stop_reason,omitempty"`
	CreatedBy    *string        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduleLesson is one persisted lesson of a run.
type ScheduleLesson struct {
	ID          string  `db:"id" json:"id"`
	RunID       string  `db:"run_id" json:"run_id"`
	TeacherID   string  `db:"teacher_id" json:"teacher_id"`
	Subject     *string `db:"subject" json:"subject,omitempty"`
	DayOfWeek   string  `db:"day_of_week" json:"day_of_week"`
	StartHour   int     `db:"start_hour" json:"start_hour"`
	Duration    int     `db:"duration" json:"duration"`
	RoomID      string  `db:"room_id" json:"room_id"`
	Department  *string `db:"department" json:"department,omitempty"`
	RequiresLab bool    `db:"requires_lab" json:"requires_lab"`
	IsPriority  bool    `db:"is_priority" json:"is_priority"`
}
