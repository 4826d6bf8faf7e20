package server

import (
	"context"
	"encoding/json"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/matzehuels/codeflow/pkg/render/planar"
	"github.com/matzehuels/codeflow/pkg/render/spatial"
	"github.com/matzehuels/codeflow/pkg/session"
	"github.com/matzehuels/codeflow/pkg/view"
	"github.com/matzehuels/codeflow/pkg/viewer"
)

// liveView is a session with its viewer held in memory.
type liveView struct {
	// mu serializes event handling and persistence for the session.
	mu   sync.Mutex
	sess *session.Session
	v    *viewer.Viewer
	dev  *spatial.SVGDevice

	subsMu sync.Mutex
	subs   map[*client]struct{}
}

// broadcast queues msg for every subscriber. Slow clients drop messages.
func (lv *liveView) broadcast(msg []byte) {
	lv.subsMu.Lock()
	defer lv.subsMu.Unlock()
	for c := range lv.subs {
		c.enqueue(msg)
	}
}

func (lv *liveView) subscribe(c *client) int {
	lv.subsMu.Lock()
	defer lv.subsMu.Unlock()
	lv.subs[c] = struct{}{}
	return len(lv.subs)
}

func (lv *liveView) unsubscribe(c *client) int {
	lv.subsMu.Lock()
	defer lv.subsMu.Unlock()
	delete(lv.subs, c)
	return len(lv.subs)
}

func (lv *liveView) closeSubscribers() {
	lv.subsMu.Lock()
	defer lv.subsMu.Unlock()
	for c := range lv.subs {
		c.close()
		delete(lv.subs, c)
	}
}

// pushFrame sends the latest 3D frame drawn by the frame loop. It runs on the
// loop goroutine and reads the device directly.
func (lv *liveView) pushFrame() {
	msg, err := json.Marshal(frameMessage{Type: msgFrame, Mode: view.Mode3D, SVG: string(lv.dev.Bytes())})
	if err == nil {
		lv.broadcast(msg)
	}
}

func (lv *liveView) pushStatus(st spatial.Status, cause error) {
	m := statusMessage{Type: msgStatus, Status: st}
	if st == spatial.StatusDegraded {
		m.Message = spatial.DegradedMessage
	}
	if msg, err := json.Marshal(m); err == nil {
		lv.broadcast(msg)
	}
}

// hub keeps a bounded set of live viewers. Evicted viewers are closed and
// their websocket clients disconnected; the session itself stays in the
// store and is rebuilt on next use.
type hub struct {
	s     *Server
	mu    sync.Mutex
	cache *lru.Cache
}

func newHub(size int, s *Server) (*hub, error) {
	h := &hub{s: s}
	c, err := lru.NewWithEvict(size, func(key, value interface{}) {
		lv := value.(*liveView)
		lv.closeSubscribers()
		lv.v.Close(context.Background())
		s.logger.Debug("live view closed", "session", key)
	})
	if err != nil {
		return nil, err
	}
	h.cache = c
	return h, nil
}

// get returns the live view of a session, building it from the store if it
// is not in memory.
func (h *hub) get(ctx context.Context, id string) (*liveView, error) {
	if v, ok := h.cache.Get(id); ok {
		return v.(*liveView), nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if v, ok := h.cache.Get(id); ok {
		return v.(*liveView), nil
	}
	sess, err := h.s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	lv := h.build(ctx, sess, 0, 0)
	h.cache.Add(id, lv)
	return lv, nil
}

// add registers a freshly created session.
func (h *hub) add(ctx context.Context, sess *session.Session, w, hgt float64) *liveView {
	lv := h.build(ctx, sess, w, hgt)
	h.mu.Lock()
	h.cache.Add(sess.ID, lv)
	h.mu.Unlock()
	return lv
}

func (h *hub) build(ctx context.Context, sess *session.Session, w, hgt float64) *liveView {
	if w <= 0 || hgt <= 0 {
		// Sizes are not persisted; clients resend a resize after reconnecting.
		w, hgt = planar.DefaultWidth, planar.DefaultHeight
	}
	lv := &liveView{
		sess: sess,
		dev:  spatial.NewSVGDevice(w, hgt),
		subs: make(map[*client]struct{}),
	}
	res := h.s.runner.Layout(ctx, sess.Snapshot)
	lv.v = viewer.New(sess.Snapshot, res,
		viewer.WithDevice(lv.dev),
		viewer.WithState(sess.State),
		viewer.WithViewport(w, hgt),
		viewer.WithFrameInterval(h.s.cfg.FrameInterval.Duration),
		viewer.WithFrameHandler(lv.pushFrame),
		viewer.WithStatusHandler(lv.pushStatus),
		viewer.WithLogger(h.s.logger.With("session", sess.ID)),
	)
	return lv
}

// remove drops a live view, closing its viewer.
func (h *hub) remove(id string) {
	h.cache.Remove(id)
}

func (h *hub) len() int { return h.cache.Len() }

func (h *hub) closeAll() {
	h.cache.Purge()
}
