package spatial

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codeflow/pkg/observability"
)

// Status is the lifecycle state of a supervised renderer.
type Status string

// Supervisor states.
const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusDegraded Status = "degraded"
	StatusStopped  Status = "stopped"
)

// DegradedMessage is shown in place of the 3D view after a fault.
const DegradedMessage = "3D view unavailable"

const hookMode = "3d"

// SupervisorOption configures a [Supervisor].
type SupervisorOption func(*Supervisor)

// WithFrameInterval sets the frame loop period.
func WithFrameInterval(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithFrameHandler is called after every drawn frame, outside the lock.
func WithFrameHandler(fn func()) SupervisorOption {
	return func(s *Supervisor) { s.onFrame = fn }
}

// WithStatusHandler is called after every status change, outside the lock.
func WithStatusHandler(fn func(Status, error)) SupervisorOption {
	return func(s *Supervisor) { s.onStatus = fn }
}

// WithSupervisorLogger sets the debug logger.
func WithSupervisorLogger(l *log.Logger) SupervisorOption {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// Supervisor isolates renderer faults from the host. Initialization, frames
// and renderer operations run under recovery; a fault releases all device
// resources and leaves the supervisor degraded until [Supervisor.Retry].
type Supervisor struct {
	mu     sync.Mutex
	r      *Renderer
	loop   *FrameLoop
	status Status
	cause  error

	interval time.Duration
	logger   *log.Logger
	onFrame  func()
	onStatus func(Status, error)
}

// NewSupervisor wraps r. Nothing runs until [Supervisor.Start].
func NewSupervisor(r *Renderer, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		r:        r,
		status:   StatusIdle,
		interval: DefaultFrameInterval,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loop = NewFrameLoop(s.interval, s.tick)
	return s
}

// Status returns the current state and, when degraded, the fault.
func (s *Supervisor) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.cause
}

// Message returns the user-facing status line; empty unless degraded.
func (s *Supervisor) Message() string {
	st, _ := s.Status()
	if st == StatusDegraded {
		return DegradedMessage
	}
	return ""
}

// Init acquires renderer resources without starting the frame loop.
func (s *Supervisor) Init(ctx context.Context) Status {
	s.mu.Lock()
	st, cause := s.initLocked(ctx)
	s.mu.Unlock()
	s.notify(st, cause)
	return st
}

func (s *Supervisor) initLocked(ctx context.Context) (Status, error) {
	if s.r.Ready() {
		return s.status, s.cause
	}
	if err := guard(s.r.Init); err != nil {
		s.degradeLocked(ctx, fmt.Errorf("init: %w", err))
		return s.status, s.cause
	}
	s.status, s.cause = StatusRunning, nil
	return s.status, nil
}

// Start initializes the renderer and launches the frame loop. A degraded
// supervisor stays degraded; use Retry.
func (s *Supervisor) Start(ctx context.Context) Status {
	s.mu.Lock()
	if s.status == StatusDegraded {
		s.mu.Unlock()
		return StatusDegraded
	}
	st, cause := s.initLocked(ctx)
	s.mu.Unlock()
	s.notify(st, cause)
	if st == StatusRunning {
		s.loop.Start(ctx)
	}
	return st
}

// RenderOnce draws a single frame outside the loop, initializing first if
// needed. It reports whether a frame was drawn. A degraded supervisor returns
// its fault.
func (s *Supervisor) RenderOnce(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.status == StatusIdle || s.status == StatusStopped {
		if st, cause := s.initLocked(ctx); st != StatusRunning {
			s.mu.Unlock()
			s.notify(st, cause)
			return false, cause
		}
	}
	if s.status == StatusDegraded {
		cause := s.cause
		s.mu.Unlock()
		return false, cause
	}
	drawn, err := s.frameLocked(ctx)
	st, cause := s.status, s.cause
	s.mu.Unlock()
	if err != nil {
		s.notify(st, cause)
		return false, err
	}
	if drawn && s.onFrame != nil {
		s.onFrame()
	}
	return drawn, nil
}

func (s *Supervisor) tick(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return nil
	}
	drawn, err := s.frameLocked(ctx)
	st, cause := s.status, s.cause
	s.mu.Unlock()
	if err != nil {
		// The loop ends on this error; resources are already released and
		// no further tick runs.
		s.notify(st, cause)
		return err
	}
	if drawn && s.onFrame != nil {
		s.onFrame()
	}
	return nil
}

func (s *Supervisor) frameLocked(ctx context.Context) (bool, error) {
	start := time.Now()
	var drawn bool
	err := guard(func() error {
		var err error
		drawn, err = s.r.Render()
		return err
	})
	if err != nil {
		s.degradeLocked(ctx, fmt.Errorf("frame: %w", err))
		return false, err
	}
	if drawn {
		observability.Render().OnFrame(ctx, hookMode, time.Since(start))
	}
	return drawn, nil
}

// Do runs fn against the renderer under the fault barrier. A fault stops the
// loop, releases resources and degrades the supervisor.
func (s *Supervisor) Do(ctx context.Context, fn func(*Renderer) error) error {
	s.mu.Lock()
	if s.status == StatusDegraded {
		cause := s.cause
		s.mu.Unlock()
		return cause
	}
	err := guard(func() error { return fn(s.r) })
	s.mu.Unlock()
	if err == nil {
		return nil
	}

	s.loop.Stop()
	s.mu.Lock()
	s.degradeLocked(ctx, err)
	st, cause := s.status, s.cause
	s.mu.Unlock()
	s.notify(st, cause)
	return err
}

// Resize forwards a viewport change to the renderer.
func (s *Supervisor) Resize(ctx context.Context, w, h float64) error {
	return s.Do(ctx, func(r *Renderer) error { return r.Resize(w, h) })
}

// Retry stops the loop, releases whatever is still held and starts again
// from scratch.
func (s *Supervisor) Retry(ctx context.Context) Status {
	s.loop.Stop()
	s.mu.Lock()
	s.releaseLocked(ctx)
	s.status, s.cause = StatusIdle, nil
	s.mu.Unlock()
	s.logger.Debug("retrying 3D view")
	return s.Start(ctx)
}

// Stop ends the frame loop, then releases every device resource.
func (s *Supervisor) Stop(ctx context.Context) {
	s.loop.Stop()
	s.mu.Lock()
	s.releaseLocked(ctx)
	s.status, s.cause = StatusStopped, nil
	s.mu.Unlock()
	s.notify(StatusStopped, nil)
}

// Running reports whether the frame loop is alive.
func (s *Supervisor) Running() bool { return s.loop.Running() }

func (s *Supervisor) degradeLocked(ctx context.Context, err error) {
	s.logger.Debug("3D view degraded", "err", err)
	observability.Render().OnDegraded(ctx, hookMode, err)
	s.releaseLocked(ctx)
	s.status, s.cause = StatusDegraded, err
}

func (s *Supervisor) releaseLocked(ctx context.Context) {
	if s.r.Resources().Len() == 0 && !s.r.Ready() {
		return
	}
	n, err := s.r.Release()
	observability.Render().OnRelease(ctx, hookMode, n)
	if err != nil {
		s.logger.Debug("release failed", "released", n, "err", err)
		return
	}
	s.logger.Debug("released device resources", "count", n)
}

func (s *Supervisor) notify(st Status, cause error) {
	if s.onStatus != nil {
		s.onStatus(st, cause)
	}
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
