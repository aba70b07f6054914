package service

import (
	"sync"
	"time"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/engine"
)

// RunStatus is the lifecycle status of a generation run as seen by clients.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

// Finished reports whether the run reached a terminal status.
func (s RunStatus) Finished() bool {
	return s == RunCompleted || s == RunStopped || s == RunFailed
}

type runEntry struct {
	run           dto.RunResponse
	input         engine.Input
	generator     *engine.Generator
	stopRequested bool
}

// RunStore keeps runs in memory while they execute and for ttl after they
// finish. It is shared by GenerationService and GenerationWorker.
type RunStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]*runEntry
}

// NewRunStore constructs an empty store.
func NewRunStore(ttl time.Duration) *RunStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunStore{ttl: ttl, now: time.Now, items: make(map[string]*runEntry)}
}

// Save registers a new run with the input it will be generated from.
func (s *RunStore) Save(run dto.RunResponse, in engine.Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[run.RunID] = &runEntry{run: run, input: in}
}

// Get returns a copy of the run. Runs that finished more than ttl ago are evicted.
func (s *RunStore) Get(id string) (dto.RunResponse, bool) {
	s.mu.RLock()
	entry, ok := s.items[id]
	var run dto.RunResponse
	if ok {
		run = entry.run
	}
	s.mu.RUnlock()
	if !ok {
		return dto.RunResponse{}, false
	}
	if s.expired(run) {
		s.Delete(id)
		return dto.RunResponse{}, false
	}
	return run, true
}

// Delete removes a run.
func (s *RunStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Update applies fn to the stored run under the write lock.
func (s *RunStore) Update(id string, fn func(*dto.RunResponse)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return false
	}
	fn(&entry.run)
	return true
}

// Sweep evicts expired runs and returns how many were removed.
func (s *RunStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.items {
		if s.expired(entry.run) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

func (s *RunStore) expired(run dto.RunResponse) bool {
	if run.CompletedAt == nil {
		return false
	}
	return s.now().Sub(*run.CompletedAt) > s.ttl
}

func (s *RunStore) input(id string) (engine.Input, dto.RunResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.items[id]
	if !ok {
		return engine.Input{}, dto.RunResponse{}, false
	}
	return entry.input, entry.run, true
}

// start marks a queued run running and attaches its generator. It returns
// false when the run was stopped or removed before a worker picked it up.
func (s *RunStore) start(id string, g *engine.Generator) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok || entry.stopRequested {
		return false
	}
	now := s.now().UTC()
	entry.generator = g
	entry.run.Status = string(RunRunning)
	entry.run.StartedAt = &now
	return true
}

func (s *RunStore) detach(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.items[id]; ok {
		entry.generator = nil
	}
}

// requestStop stops a running generator or cancels a queued run. It reports
// whether the run existed.
func (s *RunStore) requestStop(id string) (dto.RunResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return dto.RunResponse{}, false
	}
	if RunStatus(entry.run.Status).Finished() {
		return entry.run, true
	}
	entry.stopRequested = true
	if entry.generator != nil {
		entry.generator.Stop()
	} else {
		now := s.now().UTC()
		entry.run.Status = string(RunStopped)
		entry.run.CompletedAt = &now
	}
	return entry.run, true
}
