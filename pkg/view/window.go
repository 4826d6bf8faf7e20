package view

import "sync"

// Point is a position in screen (viewport) coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Listener receives global pointer events. Nil fields are ignored.
type Listener struct {
	Move func(Point)
	Up   func(Point)
	Blur func()
}

// Window is the global listener scope of a hosted view: events dispatched here
// reach listeners regardless of whether the pointer is over the canvas.
type Window struct {
	mu        sync.Mutex
	next      int
	listeners map[int]Listener
	order     []int
}

// NewWindow creates an empty scope.
func NewWindow() *Window {
	return &Window{listeners: make(map[int]Listener)}
}

// Add registers l and returns a function that removes it. The remover is
// idempotent.
func (w *Window) Add(l Listener) (remove func()) {
	w.mu.Lock()
	id := w.next
	w.next++
	w.listeners[id] = l
	w.order = append(w.order, id)
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.listeners, id)
			for i, v := range w.order {
				if v == id {
					w.order = append(w.order[:i], w.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Len returns the number of registered listeners.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

// DispatchMove delivers a pointer move to every listener.
func (w *Window) DispatchMove(p Point) {
	for _, l := range w.snapshot() {
		if l.Move != nil {
			l.Move(p)
		}
	}
}

// DispatchUp delivers a pointer release to every listener.
func (w *Window) DispatchUp(p Point) {
	for _, l := range w.snapshot() {
		if l.Up != nil {
			l.Up(p)
		}
	}
}

// DispatchBlur tells every listener the window lost focus.
func (w *Window) DispatchBlur() {
	for _, l := range w.snapshot() {
		if l.Blur != nil {
			l.Blur()
		}
	}
}

// snapshot copies the listeners in registration order so handlers may
// add or remove listeners while being dispatched.
func (w *Window) snapshot() []Listener {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Listener, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.listeners[id])
	}
	return out
}
