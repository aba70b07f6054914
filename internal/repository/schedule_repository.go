package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ScheduleRepository persists generated timetables.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// SaveRun upserts the run row and replaces its lessons in one transaction.
// Saving a provisional best and later the final result of the same run leaves
// only the final lessons.
func (r *ScheduleRepository) SaveRun(ctx context.Context, run *models.ScheduleRun, lessons []models.ScheduleLesson) (err error) {
	if run == nil {
		return fmt.Errorf("schedule run payload is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.ScheduleProvisional
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsertRun = `
INSERT INTO schedule_runs (id, status, department_id, algorithm, score, attempts, unscheduled, conflicts, stop_reason, created_by, created_at, updated_at)
VALUES (:id, :status, :department_id, :algorithm, :score, :attempts, :unscheduled, :conflicts, :stop_reason, :created_by, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status,
    score = EXCLUDED.score,
    attempts = EXCLUDED.attempts,
    unscheduled = EXCLUDED.unscheduled,
    conflicts = EXCLUDED.conflicts,
    stop_reason = EXCLUDED.stop_reason,
    updated_at = EXCLUDED.updated_at`
	if _, err = sqlx.NamedExecContext(ctx, tx, upsertRun, run); err != nil {
		return fmt.Errorf("upsert schedule run: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedule_lessons WHERE run_id = $1`, run.ID); err != nil {
		return fmt.Errorf("clear schedule lessons: %w", err)
	}

	const insertLesson = `
INSERT INTO schedule_lessons (id, run_id, teacher_id, subject, day_of_week, start_hour, duration, room_id, department, requires_lab, is_priority)
VALUES (:id, :run_id, :teacher_id, :subject, :day_of_week, :start_hour, :duration, :room_id, :department, :requires_lab, :is_priority)`
	for i := range lessons {
		lesson := &lessons[i]
		if lesson.ID == "" {
			lesson.ID = uuid.NewString()
		}
		lesson.RunID = run.ID
		if _, err = sqlx.NamedExecContext(ctx, tx, insertLesson, lesson); err != nil {
			return fmt.Errorf("insert schedule lesson: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule tx: %w", err)
	}
	return nil
}

// FindRun returns a persisted run or nil when it does not exist.
func (r *ScheduleRepository) FindRun(ctx context.Context, id string) (*models.ScheduleRun, error) {
	const query = `SELECT id, status, department_id, algorithm, score, attempts, unscheduled, conflicts, stop_reason, created_by, created_at, updated_at
FROM schedule_runs WHERE id = $1`
	var run models.ScheduleRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find schedule run: %w", err)
	}
	return &run, nil
}

// ListLessons returns the lessons of a run ordered by day and hour.
func (r *ScheduleRepository) ListLessons(ctx context.Context, runID string) ([]models.ScheduleLesson, error) {
	const query = `SELECT id, run_id, teacher_id, subject, day_of_week, start_hour, duration, room_id, department, requires_lab, is_priority
FROM schedule_lessons WHERE run_id = $1 ORDER BY day_of_week ASC, start_hour ASC`
	var lessons []models.ScheduleLesson
	if err := r.db.SelectContext(ctx, &lessons, query, runID); err != nil {
		return nil, fmt.Errorf("list schedule lessons: %w", err)
	}
	return lessons, nil
}
