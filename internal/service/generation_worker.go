package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/engine"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

// GenerationWorkerConfig tunes run execution.
type GenerationWorkerConfig struct {
	RunTTL             time.Duration
	QualityThreshold   int
	PersistProvisional bool
	// DisablePacing runs attempts back to back; used by tests and the CLI.
	DisablePacing bool
}

// GenerationWorker executes queued runs with one Generator per run.
type GenerationWorker struct {
	store     *RunStore
	schedules ScheduleStore
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       GenerationWorkerConfig
}

// NewGenerationWorker constructs a worker. schedules may be nil to skip persistence.
func NewGenerationWorker(store *RunStore, schedules ScheduleStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg GenerationWorkerConfig) *GenerationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = time.Hour
	}
	return &GenerationWorker{store: store, schedules: schedules, cache: cache, metrics: metrics, logger: logger, cfg: cfg}
}

// Handle processes a queue job. Generation itself is never retried; a
// returned error means the final save failed and the retry only repeats the save.
func (w *GenerationWorker) Handle(ctx context.Context, job jobs.Job) error {
	in, run, ok := w.store.input(job.ID)
	if !ok {
		w.logger.Warn("generation run vanished before execution", zap.String("run_id", job.ID))
		return nil
	}
	if RunStatus(run.Status).Finished() {
		if run.Result == nil || run.Persisted || w.schedules == nil {
			return nil
		}
		if err := w.persist(ctx, run, models.ScheduleFinal); err != nil {
			return err
		}
		run.Persisted = true
		w.cache.Set(ctx, RunCacheKey(job.ID), run, w.cfg.RunTTL)
		return nil
	}

	gen := engine.NewGenerator(engine.GeneratorConfig{
		Logger:        w.logger.With(zap.String("run_id", job.ID)),
		DisablePacing: w.cfg.DisablePacing,
	})
	if !w.store.start(job.ID, gen) {
		w.logger.Info("generation run stopped before start", zap.String("run_id", job.ID))
		return nil
	}
	defer w.store.detach(job.ID)
	w.metrics.RunStarted()

	obs := &engine.Observer{
		OnAttempt: func(p engine.Progress) {
			w.store.Update(job.ID, func(r *dto.RunResponse) {
				progress := p
				r.Progress = &progress
			})
		},
		OnBest: func(res engine.Result) {
			best := res
			var snapshot dto.RunResponse
			w.store.Update(job.ID, func(r *dto.RunResponse) {
				r.Result = &best
				snapshot = *r
			})
			if w.cfg.PersistProvisional && w.schedules != nil && best.Score > w.cfg.QualityThreshold {
				if err := w.persist(ctx, snapshot, models.ScheduleProvisional); err != nil {
					w.logger.Warn("provisional save failed", zap.String("run_id", job.ID), zap.Error(err))
				}
			}
		},
	}

	start := time.Now()
	result, err := gen.Run(ctx, in, obs)
	if err != nil {
		now := time.Now().UTC()
		w.store.Update(job.ID, func(r *dto.RunResponse) {
			r.Status = string(RunFailed)
			r.Error = err.Error()
			r.CompletedAt = &now
		})
		w.metrics.RunFinished(string(RunFailed), 0, 0, 0, time.Since(start))
		w.logger.Error("generation run failed", zap.String("run_id", job.ID), zap.Error(err))
		return nil
	}

	status := RunCompleted
	if result.StopReason == engine.StateStoppedByUser {
		status = RunStopped
	}
	analysis := engine.Analyze(in, result.Schedule)
	now := time.Now().UTC()
	var final dto.RunResponse
	w.store.Update(job.ID, func(r *dto.RunResponse) {
		r.Status = string(status)
		r.Result = result
		r.Analysis = &analysis
		r.CompletedAt = &now
		final = *r
	})
	w.metrics.RunFinished(string(status), result.Score, result.Attempts, result.Unscheduled, result.Elapsed)

	if w.schedules != nil {
		if err := w.persist(ctx, final, models.ScheduleFinal); err != nil {
			w.store.Update(job.ID, func(r *dto.RunResponse) { r.Error = "final save failed, retrying" })
			w.cache.Set(ctx, RunCacheKey(job.ID), final, w.cfg.RunTTL)
			return err
		}
		final.Persisted = true
	}
	w.cache.Set(ctx, RunCacheKey(job.ID), final, w.cfg.RunTTL)
	return nil
}

func (w *GenerationWorker) persist(ctx context.Context, run dto.RunResponse, status models.ScheduleStatus) error {
	if run.Result == nil {
		return nil
	}
	record := &models.ScheduleRun{
		ID:           run.RunID,
		Status:       status,
		DepartmentID: optional(run.Department),
		Algorithm:    run.Algorithm,
		Score:        run.Result.Score,
		Attempts:     run.Result.Attempts,
		Unscheduled:  run.Result.Unscheduled,
		Conflicts:    run.Result.Conflicts,
		StopReason:   optional(string(run.Result.StopReason)),
		CreatedBy:    optional(run.CreatedBy),
		CreatedAt:    run.CreatedAt,
	}
	lessons := make([]models.ScheduleLesson, 0, len(run.Result.Schedule))
	for _, l := range run.Result.Schedule {
		lessons = append(lessons, models.ScheduleLesson{
			ID:          l.ID,
			TeacherID:   l.TeacherID,
			Subject:     optional(l.Subject),
			DayOfWeek:   l.Day,
			StartHour:   l.Hour,
			Duration:    l.Duration,
			RoomID:      l.RoomID,
			Department:  optional(l.Department),
			RequiresLab: l.RequiresLab,
			IsPriority:  l.IsPriority,
		})
	}

	start := time.Now()
	err := w.schedules.SaveRun(ctx, record, lessons)
	w.metrics.ObserveDBQuery("schedule_save", time.Since(start))
	if err != nil {
		return err
	}
	if status == models.ScheduleFinal {
		w.store.Update(run.RunID, func(r *dto.RunResponse) {
			r.Persisted = true
			r.Error = ""
		})
	}
	w.logger.Info("schedule saved", zap.String("run_id", run.RunID), zap.String("status", string(status)), zap.Int("lessons", len(lessons)), zap.Int("score", record.Score))
	return nil
}
