package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// RosterRepository reads the teachers and rooms a generation run schedules.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

const rosterTeacherColumns = `t.id, t.full_name, t.department_id, c.id AS course_id, c.name AS course_name, c.type AS course_type,
COALESCE(c.needs_lab, FALSE) AS course_needs_lab, t.required_lessons, t.lesson_duration, t.requires_lab, t.availability, t.active, t.updated_at`

// ListTeachers returns active teachers joined with their course. An empty
// department returns every department.
func (r *RosterRepository) ListTeachers(ctx context.Context, departmentID string) ([]models.RosterTeacher, error) {
	query := `SELECT ` + rosterTeacherColumns + `
FROM teachers t LEFT JOIN courses c ON c.id = t.course_id
WHERE t.active = TRUE`
	args := []interface{}{}
	if departmentID != "" {
		query += ` AND t.department_id = $1`
		args = append(args, departmentID)
	}
	query += ` ORDER BY t.full_name ASC, t.id ASC`

	var teachers []models.RosterTeacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, fmt.Errorf("list roster teachers: %w", err)
	}
	return teachers, nil
}

// ListRooms returns rooms of the department plus rooms shared by every department.
func (r *RosterRepository) ListRooms(ctx context.Context, departmentID string) ([]models.RosterRoom, error) {
	query := `SELECT id, name, type, capacity, department_id, updated_at FROM rooms`
	args := []interface{}{}
	if departmentID != "" {
		query += ` WHERE department_id = $1 OR department_id IS NULL`
		args = append(args, departmentID)
	}
	query += ` ORDER BY name ASC, id ASC`

	var rooms []models.RosterRoom
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("list roster rooms: %w", err)
	}
	return rooms, nil
}

// Load reads the full roster of a department.
func (r *RosterRepository) Load(ctx context.Context, departmentID string) (*models.Roster, error) {
	teachers, err := r.ListTeachers(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	rooms, err := r.ListRooms(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	return &models.Roster{Teachers: teachers, Rooms: rooms}, nil
}
