package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements creates the roster and schedule tables when missing. Column
// sets match the repository queries.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS courses (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT 'elective',
    needs_lab BOOLEAN NOT NULL DEFAULT FALSE
)`,
	`CREATE TABLE IF NOT EXISTS teachers (
    id TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    department_id TEXT,
    course_id TEXT REFERENCES courses(id) ON DELETE SET NULL,
    required_lessons INT NOT NULL DEFAULT 0,
    lesson_duration INT NOT NULL DEFAULT 1,
    requires_lab BOOLEAN NOT NULL DEFAULT FALSE,
    availability JSONB NOT NULL DEFAULT '{}'::jsonb,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS rooms (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT,
    capacity INT NOT NULL DEFAULT 0,
    department_id TEXT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS schedule_runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    department_id TEXT,
    algorithm TEXT NOT NULL,
    score INT NOT NULL DEFAULT 0,
    attempts INT NOT NULL DEFAULT 0,
    unscheduled INT NOT NULL DEFAULT 0,
    conflicts INT NOT NULL DEFAULT 0,
    stop_reason TEXT,
    created_by TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS schedule_lessons (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES schedule_runs(id) ON DELETE CASCADE,
    teacher_id TEXT NOT NULL,
    subject TEXT,
    day_of_week TEXT NOT NULL,
    start_hour INT NOT NULL,
    duration INT NOT NULL,
    room_id TEXT NOT NULL,
    department TEXT,
    requires_lab BOOLEAN NOT NULL DEFAULT FALSE,
    is_priority BOOLEAN NOT NULL DEFAULT FALSE
)`,
	`CREATE INDEX IF NOT EXISTS idx_teachers_department ON teachers (department_id) WHERE active`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_lessons_run ON schedule_lessons (run_id, day_of_week, start_hour)`,
}

// EnsureSchema applies the table definitions in one transaction.
func EnsureSchema(ctx context.Context, db *sqlx.DB) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range schemaStatements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
