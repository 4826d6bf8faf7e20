package spatial

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval is roughly 30 frames per second.
const DefaultFrameInterval = 33 * time.Millisecond

// FrameLoop calls a tick function on a fixed interval in its own goroutine.
// The loop ends when it is stopped, its context is cancelled or a tick
// returns an error.
type FrameLoop struct {
	interval time.Duration
	tick     func(context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewFrameLoop creates a stopped loop.
func NewFrameLoop(interval time.Duration, tick func(context.Context) error) *FrameLoop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameLoop{interval: interval, tick: tick}
}

// Start launches the loop. Starting a running loop is a no-op.
func (l *FrameLoop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		select {
		case <-l.done:
		default:
			return
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel, l.done, l.err = cancel, done, nil
	go l.run(ctx, done)
}

func (l *FrameLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.tick(ctx); err != nil {
				l.mu.Lock()
				l.err = err
				l.mu.Unlock()
				return
			}
		}
	}
}

// Stop cancels the loop and waits for its goroutine to exit. No tick runs
// after Stop returns. Stop must not be called from inside a tick.
func (l *FrameLoop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop goroutine is alive.
func (l *FrameLoop) Running() bool {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Done is closed when the current run ends. It is nil before the first
// Start.
func (l *FrameLoop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Err returns the tick error that ended the last run, if any.
func (l *FrameLoop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
