package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// State is the lifecycle state of a Generator.
type State string

const (
	StateIdle           State = "IDLE"
	StateRunning        State = "RUNNING"
	StateStoppedByLimit State = "STOPPED_BY_LIMIT"
	StateStoppedByUser  State = "STOPPED_BY_USER"
)

// DefaultMaxTime bounds a run when the input leaves MaxTime unset.
const DefaultMaxTime = 30 * time.Second

// Progress is reported after every attempt.
type Progress struct {
	Attempt     int           `json:"attempt"`
	MaxAttempts int           `json:"maxAttempts"`
	Score       int           `json:"score"`
	BestScore   int           `json:"bestScore"`
	Scheduled   int           `json:"scheduled"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Observer receives loop events. Nil callbacks are skipped.
type Observer struct {
	OnAttempt func(Progress)
	OnBest    func(Result)
}

func (o *Observer) attempt(p Progress) {
	if o != nil && o.OnAttempt != nil {
		o.OnAttempt(p)
	}
}

func (o *Observer) best(r Result) {
	if o != nil && o.OnBest != nil {
		o.OnBest(r)
	}
}

// Result is the best schedule a run produced.
type Result struct {
	Schedule       []Lesson       `json:"schedule"`
	Score          int            `json:"score"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
	Attempts       int            `json:"attempts"`
	Elapsed        time.Duration  `json:"-"`
	ElapsedSeconds float64        `json:"elapsedSeconds"`
	Unscheduled    int            `json:"unscheduledCount"`
	Conflicts      int            `json:"conflicts"`
	StopReason     State          `json:"stopReason,omitempty"`
}

// GeneratorConfig wires optional collaborators of a Generator.
type GeneratorConfig struct {
	Logger *zap.Logger
	// DisablePacing runs attempts back to back instead of one per tick.
	DisablePacing bool
	NewID         func() string
}

// Generator runs the iterate-and-keep-best loop. One Generator runs at most one
// loop at a time.
type Generator struct {
	logger        *zap.Logger
	disablePacing bool
	newID         func() string

	state atomic.Value
	// stopped is set by Stop and consumed by the next or current Run, so a
	// stop issued before the loop starts is not lost.
	stopped atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// NewGenerator constructs an idle generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	g := &Generator{
		logger:        cfg.Logger,
		disablePacing: cfg.DisablePacing,
		newID:         cfg.NewID,
	}
	g.state.Store(StateIdle)
	return g
}

// State returns the current lifecycle state.
func (g *Generator) State() State {
	return g.state.Load().(State)
}

// Stop requests a cooperative stop; the loop halts at the next tick boundary.
// A stop issued before Run makes that Run return without attempts.
func (g *Generator) Stop() {
	g.stopped.Store(true)
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Validate checks the input shape and the run preconditions after the
// department filter is applied.
func Validate(in Input) error {
	if len(in.Days) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "days must contain at least one entry")
	}
	if in.EndHour <= in.StartHour {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("endHour (%d) must be greater than startHour (%d)", in.EndHour, in.StartHour))
	}
	if in.Algorithm != "" && !ValidAlgorithm(in.Algorithm) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown algorithm %q", in.Algorithm))
	}
	seen := make(map[string]struct{}, len(in.Teachers))
	for _, t := range in.Teachers {
		if t.ID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
		}
		if _, ok := seen[t.ID]; ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate teacher id %s", t.ID))
		}
		seen[t.ID] = struct{}{}
	}

	scoped := in.filtered()
	if len(scoped.Teachers) == 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "at least one teacher is required")
	}
	if len(scoped.Rooms) == 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "at least one room is required")
	}
	for _, t := range scoped.Teachers {
		if t.HasAvailability() {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrPreconditionFailed, "no teacher has any available hours")
}

// Run executes attempts until the attempt budget, MaxTime, Stop or ctx ends the
// loop, and returns the best attempt. Precondition failures are returned before
// the generator leaves IDLE.
func (g *Generator) Run(ctx context.Context, in Input, obs *Observer) (*Result, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if !g.state.CompareAndSwap(StateIdle, StateRunning) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "generation already running")
	}
	defer g.state.Store(StateIdle)

	in = in.filtered()
	if in.MaxTime <= 0 {
		in.MaxTime = DefaultMaxTime
	}
	preset := PresetFor(in.Algorithm)
	maxAttempts := preset.MaxAttempts
	if in.MaxAttempts > 0 {
		maxAttempts = in.MaxAttempts
	}

	runCtx, cancel := context.WithCancel(ctx)
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()
	defer func() {
		cancel()
		g.mu.Lock()
		g.cancel = nil
		g.mu.Unlock()
		g.stopped.Store(false)
	}()

	var ticker *time.Ticker
	if !g.disablePacing && preset.Interval > 0 {
		ticker = time.NewTicker(preset.Interval)
		defer ticker.Stop()
	}

	b := &builder{in: in, rnd: in.newRand(), newID: g.newID}
	start := time.Now()
	g.logger.Info("schedule generation started",
		zap.Int("teachers", len(in.Teachers)),
		zap.Int("rooms", len(in.Rooms)),
		zap.String("algorithm", string(in.Algorithm)),
		zap.Int("max_attempts", maxAttempts),
		zap.Duration("max_time", in.MaxTime),
	)

	var (
		best      *Attempt
		bestScore int
		attempts  int
		reason    State
	)

loop:
	for {
		if runCtx.Err() != nil || g.stopped.Load() {
			reason = StateStoppedByUser
			break
		}

		attempts++
		current := b.build(attempts)
		score := Score(in, current)
		if best == nil || score > bestScore {
			best = &current
			bestScore = score
			g.logger.Debug("best schedule improved", zap.Int("attempt", attempts), zap.Int("score", score), zap.Int("scheduled", current.Scheduled()))
			obs.best(g.result(in, best, attempts, time.Since(start), ""))
		}
		obs.attempt(Progress{
			Attempt:     attempts,
			MaxAttempts: maxAttempts,
			Score:       score,
			BestScore:   bestScore,
			Scheduled:   current.Scheduled(),
			Elapsed:     time.Since(start),
		})

		if attempts >= maxAttempts || time.Since(start) >= in.MaxTime {
			reason = StateStoppedByLimit
			break
		}
		if ticker != nil {
			select {
			case <-runCtx.Done():
				reason = StateStoppedByUser
				break loop
			case <-ticker.C:
			}
		}
	}

	g.state.Store(reason)
	result := g.result(in, best, attempts, time.Since(start), reason)
	g.logger.Info("schedule generation finished",
		zap.String("reason", string(reason)),
		zap.Int("attempts", result.Attempts),
		zap.Int("score", result.Score),
		zap.Int("scheduled", len(result.Schedule)),
		zap.Int("unscheduled", result.Unscheduled),
		zap.Duration("elapsed", result.Elapsed),
	)
	return &result, nil
}

func (g *Generator) result(in Input, best *Attempt, attempts int, elapsed time.Duration, reason State) Result {
	r := Result{
		Attempts:       attempts,
		Elapsed:        elapsed,
		ElapsedSeconds: elapsed.Seconds(),
		StopReason:     reason,
	}
	if best == nil {
		r.Unscheduled = Unscheduled(in.Teachers, nil)
		return r
	}
	r.Schedule = append([]Lesson(nil), best.Lessons...)
	r.Breakdown = Breakdown(in, *best)
	r.Score = r.Breakdown.Total
	r.Conflicts = best.Conflicts
	r.Unscheduled = Unscheduled(in.Teachers, best.Lessons)
	return r
}
