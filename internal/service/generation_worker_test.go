package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/engine"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

func jobFor(runID string) jobs.Job {
	return jobs.Job{ID: runID, Type: generationJobType}
}

func startRun(t *testing.T, f *generationFixture, req dto.GenerateRequest) string {
	t.Helper()
	accepted, err := f.svc.Start(context.Background(), req, "admin-1")
	require.NoError(t, err)
	return accepted.RunID
}

func TestGenerationWorkerCompletesRun(t *testing.T) {
	f := newGenerationFixture(testGenerationConfig())
	runID := startRun(t, f, sampleRequest())

	require.NoError(t, f.worker.Handle(context.Background(), f.queue.jobs[0]))

	run, err := f.svc.Get(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, string(RunCompleted), run.Status)
	assert.True(t, run.Persisted)
	assert.NotNil(t, run.StartedAt)
	assert.NotNil(t, run.CompletedAt)
	require.NotNil(t, run.Result)
	assert.Equal(t, 3, run.Result.Attempts)
	assert.Equal(t, engine.StateStoppedByLimit, run.Result.StopReason)
	require.NotNil(t, run.Progress)
	assert.Equal(t, 3, run.Progress.Attempt)
	require.NotNil(t, run.Analysis)
	assert.Zero(t, run.Analysis.TeacherConflicts)
	assert.Zero(t, run.Analysis.RoomConflicts)

	require.Len(t, f.schedules.saves, 1)
	assert.Equal(t, models.ScheduleFinal, f.schedules.saves[0].Status)
	assert.Len(t, f.schedules.lessons[runID], len(run.Result.Schedule))
	assert.Contains(t, f.cacheRepo.items, RunCacheKey(runID))

	snap := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.RunsStarted)
	assert.Equal(t, uint64(1), snap.RunsCompleted)
	assert.Equal(t, int64(0), snap.ActiveRuns)
	assert.Equal(t, run.Result.Score, snap.LastRunScore)
}

func TestGenerationWorkerPersistsProvisionalBest(t *testing.T) {
	f := newGenerationFixture(testGenerationConfig())
	f.worker.cfg.PersistProvisional = true
	f.worker.cfg.QualityThreshold = 0
	runID := startRun(t, f, sampleRequest())

	require.NoError(t, f.worker.Handle(context.Background(), f.queue.jobs[0]))

	require.GreaterOrEqual(t, len(f.schedules.saves), 2)
	assert.Equal(t, models.ScheduleProvisional, f.schedules.saves[0].Status)
	last := f.schedules.saves[len(f.schedules.saves)-1]
	assert.Equal(t, models.ScheduleFinal, last.Status)
	assert.Equal(t, runID, last.ID)
}

func TestGenerationWorkerSkipsProvisionalBelowThreshold(t *testing.T) {
	f := newGenerationFixture(testGenerationConfig())
	f.worker.cfg.PersistProvisional = true
	f.worker.cfg.QualityThreshold = 100
	startRun(t, f, sampleRequest())

	require.NoError(t, f.worker.Handle(context.Background(), f.queue.jobs[0]))

	require.Len(t, f.schedules.saves, 1)
	assert.Equal(t, models.ScheduleFinal, f.schedules.saves[0].Status)
}

func TestGenerationWorkerRetriesOnlyTheFinalSave(t *testing.T) {
	f := newGenerationFixture(testGenerationConfig())
	f.schedules.failures = 1
	runID := startRun(t, f, sampleRequest())
	job := f.queue.jobs[0]

	require.Error(t, f.worker.Handle(context.Background(), job))
	run, err := f.svc.Get(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, string(RunCompleted), run.Status)
	assert.False(t, run.Persisted)
	assert.NotEmpty(t, run.Error)
	firstScore := run.Result.Score

	job.Attempt = 1
	require.NoError(t, f.worker.Handle(context.Background(), job))
	run, err = f.svc.Get(context.Background(), runID)
	require.NoError(t, err)
	assert.True(t, run.Persisted)
	assert.Empty(t, run.Error)
	assert.Equal(t, firstScore, run.Result.Score)
	assert.Equal(t, 1, int(f.metrics.Snapshot().RunsStarted))
	require.Len(t, f.schedules.saves, 1)
}

func TestGenerationWorkerMarksInvalidRunFailed(t *testing.T) {
	f := newGenerationFixture(testGenerationConfig())
	f.store.Save(dto.RunResponse{RunID: "bad", Status: string(RunQueued), CreatedAt: time.Now()}, engine.Input{})

	require.NoError(t, f.worker.Handle(context.Background(), jobFor("bad")))

	run, ok := f.store.Get("bad")
	require.True(t, ok)
	assert.Equal(t, string(RunFailed), run.Status)
	assert.NotEmpty(t, run.Error)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().RunsFailed)
}

func TestGenerationWorkerIgnoresUnknownRun(t *testing.T) {
	f := newGenerationFixture(testGenerationConfig())

	assert.NoError(t, f.worker.Handle(context.Background(), jobFor("ghost")))
}

func TestGenerationWorkerStopsRunningRun(t *testing.T) {
	f := newGenerationFixture(testGenerationConfig())
	f.worker.cfg.DisablePacing = false
	req := sampleRequest()
	req.Algorithm = "thorough"
	req.MaxAttempts = 0
	runID := startRun(t, f, req)

	done := make(chan error, 1)
	go func() { done <- f.worker.Handle(context.Background(), f.queue.jobs[0]) }()

	require.Eventually(t, func() bool {
		run, ok := f.store.Get(runID)
		return ok && run.Progress != nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err := f.svc.Stop(context.Background(), runID)
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop")
	}

	run, ok := f.store.Get(runID)
	require.True(t, ok)
	assert.Equal(t, string(RunStopped), run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, engine.StateStoppedByUser, run.Result.StopReason)
	assert.Less(t, run.Result.Attempts, 500)
}

func TestGenerationWorkerAnalysisFollowsDepartmentFilter(t *testing.T) {
	f := newGenerationFixture(testGenerationConfig())
	req := sampleRequest()
	req.Teachers = append(req.Teachers, dto.TeacherPayload{
		ID: "t9", Name: "Ms. Lina", Subject: "Drawing", Department: "arts", CourseType: "elective", RequiredLessons: 5, LessonDuration: 1,
		Availability: map[string][]int{"Sunday": {9, 10, 11, 12, 13}},
	})
	req.DepartmentID = "sci"
	runID := startRun(t, f, req)

	require.NoError(t, f.worker.Handle(context.Background(), f.queue.jobs[0]))

	run, err := f.svc.Get(context.Background(), runID)
	require.NoError(t, err)
	require.NotNil(t, run.Result)
	assert.Zero(t, run.Result.Unscheduled)
	require.NotNil(t, run.Analysis)
	assert.Equal(t, 100, run.Analysis.Completion)
	require.Len(t, run.Analysis.TeacherLoad, 2)
	for _, load := range run.Analysis.TeacherLoad {
		assert.Equal(t, "sci", load.Department)
	}
}
