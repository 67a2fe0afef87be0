package flush

import (
	"context"
	"sync"
	"time"

	"media-watcher/internal/logging"
	"media-watcher/internal/metrics"
)

// State is the scheduler state.
type State int

const (
	// StateIdle means no flush is pending or running.
	StateIdle State = iota
	// StateArmed means a flush is pending on the timer.
	StateArmed
	// StateRunning means the callback is executing and nothing new is pending.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Func is the flush callback.
type Func func(ctx context.Context) error

// Scheduler coalesces flush requests: every Schedule restarts the delay, and
// the callback runs once the requests stop for that long. Runs never overlap.
type Scheduler struct {
	delay time.Duration
	fn    Func

	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	armed    bool
	active   int // runs fired or started but not finished
	idle     chan struct{}
	stopped  bool
	lastRun  time.Time
	lastErr  error
	runCount int

	// runMu serializes callback executions.
	runMu sync.Mutex
}

// New creates a scheduler that calls fn delay after the last Schedule.
func New(delay time.Duration, fn Func) *Scheduler {
	return &Scheduler{delay: delay, fn: fn}
}

// Schedule arms the timer, replacing any pending one. It never blocks on a
// running callback.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		logging.Debug("Flush requested after stop, ignoring")
		return
	}

	metrics.FlushScheduledTotal.Inc()
	if s.timer != nil && s.timer.Stop() {
		metrics.FlushCoalescedTotal.Inc()
	}

	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
	s.armed = true
	metrics.FlushPending.Set(1)
	logging.Debug("Flush scheduled in %v", s.delay)
}

// fire is the timer callback. A timer superseded by a later Schedule or by
// Stop does nothing. The run is counted as active before s.mu is released so
// that Stop waits for it.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.stopped {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.armed = false
	s.active++
	metrics.FlushPending.Set(0)
	s.mu.Unlock()

	s.run(context.Background())
}

// run executes the callback. The caller must have counted it in s.active.
func (s *Scheduler) run(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	err := s.fn(ctx)
	metrics.FlushDuration.Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
		logging.Error("Flush failed: %v", err)
	}
	metrics.FlushRunsTotal.WithLabelValues(status).Inc()

	s.mu.Lock()
	s.active--
	if s.active == 0 && s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
	s.lastRun = time.Now()
	s.lastErr = err
	s.runCount++
	s.mu.Unlock()
}

// Stop cancels the pending timer. If a flush was armed it runs now, on the
// caller's goroutine, after any in-progress run; Stop then reports true.
// Later Schedule calls are ignored.
func (s *Scheduler) Stop(ctx context.Context) bool {
	s.mu.Lock()
	wasArmed := s.armed
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.armed = false
	s.stopped = true
	metrics.FlushPending.Set(0)

	if wasArmed {
		s.active++
		s.mu.Unlock()
		logging.Info("Running pending flush before shutdown")
		s.run(ctx)
		return true
	}

	if s.active == 0 {
		s.mu.Unlock()
		return false
	}
	// A timer already fired; wait for that run even if it has not started.
	if s.idle == nil {
		s.idle = make(chan struct{})
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		logging.Warn("Timed out waiting for the running flush to finish")
	}
	return false
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.armed:
		return StateArmed
	case s.active > 0:
		return StateRunning
	default:
		return StateIdle
	}
}

// LastRun returns the end time and result of the most recent run.
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

// Runs returns how many times the callback has run.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCount
}
