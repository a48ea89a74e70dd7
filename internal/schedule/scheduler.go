package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/nudge/internal/clock"
	"github.com/phrazzld/nudge/internal/platform/logger"
)

// Errors returned by the Scheduler.
var (
	ErrJobRunning   = errors.New("job is already running")
	ErrUnknownJob   = errors.New("unknown job")
	ErrDuplicateJob = errors.New("job already registered")
	ErrStarted      = errors.New("scheduler already started")
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) error
}

type entry struct {
	job     Job
	running sync.Mutex
}

// Scheduler runs registered jobs on their schedules until stopped.
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	order   []*entry
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an empty scheduler that reads the time from clk.
func New(clk clock.Clock, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		clock:   clk,
		logger:  log.With(slog.String("component", "scheduler")),
		entries: make(map[string]*entry),
	}
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Schedule == nil || job.Run == nil {
		return fmt.Errorf("invalid job %q: name, schedule and run are required", job.Name)
	}
	if every, ok := job.Schedule.(Every); ok && every <= 0 {
		return fmt.Errorf("invalid job %q: interval must be positive", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrStarted
	}
	if _, ok := s.entries[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	e := &entry{job: job}
	s.entries[job.Name] = e
	s.order = append(s.order, e)
	return nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.order))
	for _, e := range s.order {
		names = append(names, e.job.Name)
	}
	return names
}

// Start launches one goroutine per job. The jobs stop when ctx is cancelled
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.order {
		s.wg.Add(1)
		go s.loop(ctx, e)
		s.logger.Info("job scheduled",
			"job", e.job.Name,
			"schedule", fmt.Sprint(e.job.Schedule),
			"next_run", e.job.Schedule.Next(s.clock.Now()))
	}
	return nil
}

// Stop cancels the job loops and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Trigger runs the named job now on the caller's goroutine. It returns
// ErrJobRunning if a scheduled or triggered run is in progress.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, e)
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	next := e.job.Schedule.Next(s.clock.Now())
	for {
		timer := time.NewTimer(next.Sub(s.clock.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}

		if err := s.run(ctx, e); err != nil {
			if errors.Is(err, ErrJobRunning) {
				s.logger.Warn("skipping run, previous run still in progress", "job", e.job.Name)
			} else {
				s.logger.Error("job run failed", "job", e.job.Name, "error", err)
			}
		}

		var missed int
		next, missed = catchUp(e.job.Schedule, next, s.clock.Now())
		if missed > 0 {
			s.logger.Warn("run overran its schedule, skipping missed ticks",
				"job", e.job.Name,
				"missed", missed,
				"next", next)
		}
	}
}

// catchUp returns the tick to wait for after the one at scheduled. Ticks that
// passed while a run was in progress collapse into the latest of them, which
// then fires immediately; the count of dropped ticks is returned alongside.
func catchUp(sched Schedule, scheduled, now time.Time) (time.Time, int) {
	next := sched.Next(scheduled)
	if next.After(now) {
		return next, 0
	}
	if every, ok := sched.(Every); ok {
		step := time.Duration(every)
		missed := int(now.Sub(next) / step)
		return next.Add(time.Duration(missed) * step), missed
	}
	missed := 0
	for {
		following := sched.Next(next)
		if following.After(now) {
			return next, missed
		}
		next = following
		missed++
	}
}

// run executes one job invocation under the job's guard. A panic in the job
// is recovered and returned as an error.
func (s *Scheduler) run(ctx context.Context, e *entry) (err error) {
	if !e.running.TryLock() {
		return fmt.Errorf("%w: %s", ErrJobRunning, e.job.Name)
	}
	defer e.running.Unlock()

	log := s.logger.With("job", e.job.Name)
	ctx = logger.WithLogger(ctx, log)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", e.job.Name, r)
		}
		log.Debug("job run finished",
			"duration_ms", time.Since(start).Milliseconds(),
			"failed", err != nil)
	}()

	log.Debug("job run started")
	return e.job.Run(ctx)
}
