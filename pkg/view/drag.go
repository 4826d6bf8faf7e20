package view

import "sync"

// DragSession is an active pan drag. It holds the global listeners it
// registered and releases them exactly once.
type DragSession struct {
	anchor Point

	mu      sync.Mutex // guards release while it is being installed
	release func()
	once    sync.Once
}

// StartDrag registers move/up/blur listeners on w. The anchor is
// pointer - pan, so onMove receives the new pan (current pointer - anchor).
// onEnd runs when the pointer is released anywhere or the window blurs; the
// listeners are already gone by then.
func StartDrag(w *Window, pointer, pan Point, onMove func(pan Point), onEnd func()) *DragSession {
	s := &DragSession{anchor: pointer.Sub(pan)}
	finish := func() {
		if s.End() && onEnd != nil {
			onEnd()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release = w.Add(Listener{
		Move: func(p Point) {
			if onMove != nil {
				onMove(p.Sub(s.anchor))
			}
		},
		Up:   func(Point) { finish() },
		Blur: finish,
	})
	return s
}

// Anchor returns pointer-down minus the pan at drag start.
func (s *DragSession) Anchor() Point { return s.anchor }

// End releases the session's listeners. It reports whether this call ended
// the session; later calls are no-ops.
func (s *DragSession) End() bool {
	ended := false
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.release()
		ended = true
	})
	return ended
}
