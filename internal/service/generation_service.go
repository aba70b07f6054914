package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/engine"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

const (
	defaultRequiredLessons = 2
	generationJobType      = "timetable.generate"
)

// RosterLoader reads the stored roster of a department.
type RosterLoader interface {
	Load(ctx context.Context, departmentID string) (*models.Roster, error)
}

// ScheduleStore persists finished runs and their lessons.
type ScheduleStore interface {
	SaveRun(ctx context.Context, run *models.ScheduleRun, lessons []models.ScheduleLesson) error
	FindRun(ctx context.Context, id string) (*models.ScheduleRun, error)
	ListLessons(ctx context.Context, runID string) ([]models.ScheduleLesson, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// GenerationConfig carries the generator defaults applied to every request.
type GenerationConfig struct {
	StoredRoster           bool
	DefaultAlgorithm       engine.Algorithm
	MaxTime                time.Duration
	RunTTL                 time.Duration
	RosterTTL              time.Duration
	ExclusivePriorityRooms bool
	StartHour              int
	EndHour                int
	Days                   []string
}

// GenerationService validates generation requests, queues runs and serves
// their state.
type GenerationService struct {
	store     *RunStore
	queue     jobDispatcher
	rosters   RosterLoader
	schedules ScheduleStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       GenerationConfig
}

// NewGenerationService wires generation dependencies. rosters and schedules
// may be nil when Postgres is not configured.
func NewGenerationService(
	store *RunStore,
	queue jobDispatcher,
	rosters RosterLoader,
	schedules ScheduleStore,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg GenerationConfig,
) *GenerationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !engine.ValidAlgorithm(cfg.DefaultAlgorithm) {
		cfg.DefaultAlgorithm = engine.AlgorithmOptimized
	}
	if cfg.MaxTime <= 0 {
		cfg.MaxTime = engine.DefaultMaxTime
	}
	if cfg.RosterTTL <= 0 {
		cfg.RosterTTL = 10 * time.Minute
	}
	if store == nil {
		store = NewRunStore(cfg.RunTTL)
	}
	return &GenerationService{
		store:     store,
		queue:     queue,
		rosters:   rosters,
		schedules: schedules,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Readiness reports whether the roster of req can be scheduled.
func (s *GenerationService) Readiness(ctx context.Context, req dto.GenerateRequest) (*engine.Readiness, error) {
	in, err := s.buildInput(ctx, req)
	if err != nil {
		return nil, err
	}
	readiness := engine.CheckReadiness(in)
	return &readiness, nil
}

// Start validates req, registers a queued run and hands it to the worker queue.
func (s *GenerationService) Start(ctx context.Context, req dto.GenerateRequest, actorID string) (*dto.RunAccepted, error) {
	in, err := s.buildInput(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := engine.Validate(in); err != nil {
		return nil, err
	}

	run := dto.RunResponse{
		RunID:      uuid.NewString(),
		Status:     string(RunQueued),
		Algorithm:  string(in.Algorithm),
		Department: in.DepartmentFilter,
		Window:     dto.RunWindow{Days: in.Days, StartHour: in.StartHour, EndHour: in.EndHour},
		CreatedBy:  actorID,
		CreatedAt:  time.Now().UTC(),
	}
	s.store.Save(run, in)

	if err := s.queue.Enqueue(jobs.Job{ID: run.RunID, Type: generationJobType}); err != nil {
		s.store.Delete(run.RunID)
		if errors.Is(err, jobs.ErrQueueFull) {
			s.metrics.QueueRejected()
			return nil, appErrors.WrapAs(err, appErrors.ErrUnavailable, "generation queue is full, retry later")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to enqueue generation run")
	}

	s.logger.Info("generation run queued",
		zap.String("run_id", run.RunID),
		zap.String("algorithm", run.Algorithm),
		zap.String("department", run.Department),
		zap.Int("teachers", len(in.Teachers)),
		zap.Int("rooms", len(in.Rooms)),
	)
	return &dto.RunAccepted{RunID: run.RunID, Status: run.Status}, nil
}

// Get returns a run from memory, then the cache, then Postgres.
func (s *GenerationService) Get(ctx context.Context, id string) (*dto.RunResponse, error) {
	if run, ok := s.store.Get(id); ok {
		return &run, nil
	}

	var cached dto.RunResponse
	if s.cache.Get(ctx, RunCacheKey(id), &cached) {
		return &cached, nil
	}

	if s.schedules != nil {
		run, err := s.loadPersisted(ctx, id)
		if err != nil {
			return nil, err
		}
		if run != nil {
			return run, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "generation run not found")
}

// Stop requests a cooperative stop. Stopping a finished run is a conflict.
func (s *GenerationService) Stop(ctx context.Context, id string) (*dto.RunResponse, error) {
	current, ok := s.store.Get(id)
	if !ok {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "generation run already finished")
	}
	if RunStatus(current.Status).Finished() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "generation run already finished")
	}

	run, ok := s.store.requestStop(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation run not found")
	}
	s.logger.Info("generation stop requested", zap.String("run_id", id), zap.String("status", run.Status))
	return &run, nil
}

// RefreshRoster drops the cached stored roster of a department, or of every
// department when departmentID is empty.
func (s *GenerationService) RefreshRoster(ctx context.Context, departmentID string) error {
	pattern := RosterCacheKey(departmentID)
	if departmentID == "" {
		pattern = rosterCachePrefix + "*"
	}
	return s.cache.Invalidate(ctx, pattern)
}

func (s *GenerationService) buildInput(ctx context.Context, req dto.GenerateRequest) (engine.Input, error) {
	if err := s.validator.Struct(req); err != nil {
		return engine.Input{}, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid generation payload")
	}

	in := engine.Input{
		Days:                           req.Days,
		StartHour:                      s.cfg.StartHour,
		EndHour:                        s.cfg.EndHour,
		DepartmentFilter:               req.DepartmentID,
		BalanceLoad:                    req.BalanceLoad,
		Optimize:                       req.Optimize,
		MinimizeGaps:                   req.MinimizeGaps,
		PrioritizeLabs:                 req.PrioritizeLabs,
		PrioritizeRequiredCourses:      req.PrioritizeRequiredCourses,
		ExclusivePriorityRooms:         s.cfg.ExclusivePriorityRooms,
		PenalizeConflicts:              req.PenalizeConflicts,
		ResortQueue:                    req.ResortQueue,
		ExemptFirstLessonFromGapFilter: req.ExemptFirstLessonFromGapFilter,
		Algorithm:                      engine.Algorithm(req.Algorithm),
		MaxAttempts:                    req.MaxAttempts,
		MaxTime:                        s.cfg.MaxTime,
		Seed:                           req.Seed,
	}
	if len(in.Days) == 0 {
		in.Days = append([]string(nil), s.cfg.Days...)
	}
	if req.StartHour != nil {
		in.StartHour = *req.StartHour
	}
	if req.EndHour != nil {
		in.EndHour = *req.EndHour
	}
	if req.ExclusivePriorityRooms != nil {
		in.ExclusivePriorityRooms = *req.ExclusivePriorityRooms
	}
	if in.Algorithm == "" {
		in.Algorithm = s.cfg.DefaultAlgorithm
	}
	if req.MaxTimeSeconds > 0 {
		in.MaxTime = time.Duration(req.MaxTimeSeconds) * time.Second
	}

	if req.UseStoredRoster {
		roster, err := s.storedRoster(ctx, req.DepartmentID)
		if err != nil {
			return engine.Input{}, err
		}
		in.Teachers, in.Rooms, err = rosterToEngine(*roster)
		if err != nil {
			return engine.Input{}, err
		}
		return in, nil
	}

	in.Teachers = make([]engine.TeacherDemand, 0, len(req.Teachers))
	for _, t := range req.Teachers {
		in.Teachers = append(in.Teachers, teacherDemand(t.ID, t.Name, t.Subject, t.Department, models.CourseType(t.CourseType),
			t.RequiredLessons, t.LessonDuration, t.RequiresLab || t.CourseNeedsLab, t.Availability))
	}
	in.Rooms = make([]engine.Room, 0, len(req.Rooms))
	for _, r := range req.Rooms {
		in.Rooms = append(in.Rooms, engine.Room{ID: r.ID, Name: r.Name, Type: r.Type, Capacity: r.Capacity, Department: r.Department})
	}
	return in, nil
}

func (s *GenerationService) storedRoster(ctx context.Context, departmentID string) (*models.Roster, error) {
	if !s.cfg.StoredRoster || s.rosters == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "stored roster is not enabled")
	}
	key := RosterCacheKey(departmentID)
	var cached models.Roster
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	roster, err := s.rosters.Load(ctx, departmentID)
	s.metrics.ObserveDBQuery("roster_load", time.Since(start))
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load stored roster")
	}
	s.cache.Set(ctx, key, roster, s.cfg.RosterTTL)
	return roster, nil
}

func (s *GenerationService) loadPersisted(ctx context.Context, id string) (*dto.RunResponse, error) {
	start := time.Now()
	stored, err := s.schedules.FindRun(ctx, id)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load generation run")
	}
	if stored == nil {
		return nil, nil
	}
	lessons, err := s.schedules.ListLessons(ctx, id)
	s.metrics.ObserveDBQuery("schedule_load", time.Since(start))
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load generation lessons")
	}

	run := runFromModels(*stored, lessons, dto.RunWindow{Days: s.cfg.Days, StartHour: s.cfg.StartHour, EndHour: s.cfg.EndHour})
	analysis := engine.AnalyzeLessons(run.Result.Schedule, s.persistedRooms(ctx, run.Department), run.Result.Unscheduled, s.cfg.ExclusivePriorityRooms)
	run.Analysis = &analysis
	return &run, nil
}

// persistedRooms returns the stored rooms for lab checks on a persisted run,
// or nil when the stored roster is off or fails to load.
func (s *GenerationService) persistedRooms(ctx context.Context, departmentID string) []engine.Room {
	if !s.cfg.StoredRoster || s.rosters == nil {
		return nil
	}
	roster, err := s.storedRoster(ctx, departmentID)
	if err != nil || roster == nil {
		s.logger.Debug("persisted run analysed without rooms", zap.String("department", departmentID), zap.Error(err))
		return nil
	}
	_, rooms, err := rosterToEngine(models.Roster{Rooms: roster.Rooms})
	if err != nil {
		return nil
	}
	return rooms
}

// teacherDemand applies roster defaults: two lessons of one hour, priority
// derived from the course type.
func teacherDemand(id, name, subject, department string, courseType models.CourseType, required, duration int, requiresLab bool, availability map[string][]int) engine.TeacherDemand {
	if required <= 0 {
		required = defaultRequiredLessons
	}
	if duration <= 0 {
		duration = 1
	}
	return engine.TeacherDemand{
		ID:              id,
		Name:            name,
		Subject:         subject,
		Department:      department,
		RequiredLessons: required,
		LessonDuration:  duration,
		RequiresLab:     requiresLab,
		Availability:    availability,
		Priority:        courseType.IsPriority(),
	}
}

func rosterToEngine(roster models.Roster) ([]engine.TeacherDemand, []engine.Room, error) {
	teachers := make([]engine.TeacherDemand, 0, len(roster.Teachers))
	for _, t := range roster.Teachers {
		hours, err := t.AvailabilityHours()
		if err != nil {
			return nil, nil, appErrors.WrapAs(err, appErrors.ErrValidation, fmt.Sprintf("invalid availability for teacher %s", t.ID))
		}
		teachers = append(teachers, teacherDemand(t.ID, t.FullName, deref(t.CourseName), deref(t.DepartmentID), models.CourseType(deref(t.CourseType)),
			t.RequiredLessons, t.LessonDuration, t.RequiresLab || t.CourseNeedsLab, hours))
	}
	rooms := make([]engine.Room, 0, len(roster.Rooms))
	for _, r := range roster.Rooms {
		rooms = append(rooms, engine.Room{ID: r.ID, Name: r.Name, Type: deref(r.Type), Capacity: r.Capacity, Department: deref(r.DepartmentID)})
	}
	return teachers, rooms, nil
}

// runFromModels rebuilds a run response from its persisted rows. A provisional
// row without a live run means the run ended before its final save.
func runFromModels(stored models.ScheduleRun, lessons []models.ScheduleLesson, window dto.RunWindow) dto.RunResponse {
	status := RunCompleted
	if stored.Status != models.ScheduleFinal {
		status = RunStopped
	}
	schedule := make([]engine.Lesson, 0, len(lessons))
	for _, l := range lessons {
		schedule = append(schedule, engine.Lesson{
			ID:          l.ID,
			TeacherID:   l.TeacherID,
			Subject:     deref(l.Subject),
			Day:         l.DayOfWeek,
			Hour:        l.StartHour,
			Duration:    l.Duration,
			RoomID:      l.RoomID,
			Department:  deref(l.Department),
			RequiresLab: l.RequiresLab,
			IsPriority:  l.IsPriority,
		})
	}
	window = coverLessons(window, schedule)
	completed := stored.UpdatedAt
	return dto.RunResponse{
		RunID:      stored.ID,
		Status:     string(status),
		Algorithm:  stored.Algorithm,
		Department: deref(stored.DepartmentID),
		Window:     window,
		Result: &engine.Result{
			Schedule:    schedule,
			Score:       stored.Score,
			Attempts:    stored.Attempts,
			Unscheduled: stored.Unscheduled,
			Conflicts:   stored.Conflicts,
			StopReason:  engine.State(deref(stored.StopReason)),
		},
		Persisted:   true,
		CreatedBy:   deref(stored.CreatedBy),
		CreatedAt:   stored.CreatedAt,
		CompletedAt: &completed,
	}
}

// coverLessons widens window so every lesson falls inside it.
func coverLessons(window dto.RunWindow, lessons []engine.Lesson) dto.RunWindow {
	out := dto.RunWindow{Days: append([]string(nil), window.Days...), StartHour: window.StartHour, EndHour: window.EndHour}
	known := make(map[string]struct{}, len(out.Days))
	for _, d := range out.Days {
		known[d] = struct{}{}
	}
	var extra []string
	for _, l := range lessons {
		if _, ok := known[l.Day]; !ok {
			known[l.Day] = struct{}{}
			extra = append(extra, l.Day)
		}
		if l.Hour < out.StartHour {
			out.StartHour = l.Hour
		}
		if l.End() > out.EndHour {
			out.EndHour = l.End()
		}
	}
	sort.Strings(extra)
	out.Days = append(out.Days, extra...)
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
