package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// CourseType classifies a course. Required and general courses take priority
// over electives.
type CourseType string

const (
	CourseRequired CourseType = "required"
	CourseGeneral  CourseType = "general"
	CourseElective CourseType = "elective"
)

// IsPriority reports whether lessons of this course type are priority lessons.
func (t CourseType) IsPriority() bool {
	return t == CourseRequired || t == CourseGeneral
}

// RosterTeacher is a teacher joined with the course they teach.
type RosterTeacher struct {
	ID              string         `db:"id" json:"id"`
	FullName        string         `db:"full_name" json:"full_name"`
	DepartmentID    *string        `db:"department_id" json:"department_id,omitempty"`
	CourseID        *string        `db:"course_id" json:"course_id,omitempty"`
	CourseName      *string        `db:"course_name" json:"course_name,omitempty"`
	CourseType      *string        `db:"course_type" json:"course_type,omitempty"`
	CourseNeedsLab  bool           `db:"course_needs_lab" json:"course_needs_lab"`
	RequiredLessons int            `db:"required_lessons" json:"required_lessons"`
	LessonDuration  int            `db:"lesson_duration" json:"lesson_duration"`
	RequiresLab     bool           `db:"requires_lab" json:"requires_lab"`
	Availability    types.JSONText `db:"availability" json:"availability"`
	Active          bool           `db:"active" json:"active"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// AvailabilityHours decodes the availability column (day -> start hours).
func (t RosterTeacher) AvailabilityHours() (map[string][]int, error) {
	out := map[string][]int{}
	if len(t.Availability) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(t.Availability, &out); err != nil {
		return nil, fmt.Errorf("decode availability for teacher %s: %w", t.ID, err)
	}
	return out, nil
}

// RosterRoom is a bookable room row.
type RosterRoom struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Type         *string   `db:"type" json:"type,omitempty"`
	Capacity     int       `db:"capacity" json:"capacity"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Roster is the scheduling input stored in Postgres.
type Roster struct {
	Teachers []RosterTeacher `json:"teachers"`
	Rooms    []RosterRoom    `json:"rooms"`
}
