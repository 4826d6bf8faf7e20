package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/codeflow/pkg/buildinfo"
	"github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/layout"
	"github.com/matzehuels/codeflow/pkg/pipeline"
	"github.com/matzehuels/codeflow/pkg/session"
	"github.com/matzehuels/codeflow/pkg/viewer"
)

var contentTypes = map[string]string{
	pipeline.FormatSVG: "image/svg+xml",
	pipeline.FormatPNG: "image/png",
	pipeline.FormatPDF: "application/pdf",
	pipeline.FormatDOT: "text/vnd.graphviz; charset=utf-8",
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type layoutResponse struct {
	SnapshotHash string         `json:"snapshot_hash"`
	Layout       *layout.Result `json:"layout"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	viewer.Result
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: buildinfo.Version})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	snap, err := readSnapshot(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res := s.runner.Layout(r.Context(), snap)
	s.writeJSON(w, http.StatusOK, layoutResponse{SnapshotHash: snap.Hash(), Layout: res})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	if err := pipeline.ValidateMode(mode); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := renderOptions(r, mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := readSnapshot(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Logger = s.logger
	res, err := s.runner.Execute(r.Context(), snap, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := opts.Formats[0]
	data, ok := res.Artifacts[pipeline.ArtifactName(mode, format)]
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeInternal, "no %s artifact for mode %s", format, mode))
		return
	}
	if res.CacheInfo.RenderHits > 0 {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	writeBytes(w, contentTypes[format], data)
}

// renderOptions reads render parameters from the query string.
func renderOptions(r *http.Request, mode string) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Modes:    []string{mode},
		Formats:  []string{pipeline.FormatSVG},
		Selected: q.Get("select"),
		Refresh:  q.Get("refresh") == "true",
	}
	if f := q.Get("format"); f != "" {
		opts.Formats = []string{f}
	}
	floats := []struct {
		name string
		dst  *float64
	}{
		{"width", &opts.Width},
		{"height", &opts.Height},
		{"zoom", &opts.Zoom},
		{"distance", &opts.Distance},
		{"azimuth", &opts.Azimuth},
		{"elevation", &opts.Elevation},
	}
	for _, f := range floats {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidFormat, "invalid %s %q", f.name, raw)
		}
		*f.dst = v
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	snap, err := readSnapshot(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := renderOptions(r, pipeline.Mode2D)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	sess := session.New(snap, s.cfg.SessionTTL.Duration)
	lv := s.hub.add(ctx, sess, opts.Width, opts.Height)

	lv.mu.Lock()
	defer lv.mu.Unlock()
	if mode := r.URL.Query().Get("mode"); mode != "" {
		if _, err := lv.v.Apply(ctx, viewer.Event{Type: viewer.SetMode, Mode: mode}); err != nil {
			s.hub.remove(sess.ID)
			s.writeError(w, r, err)
			return
		}
	}
	if opts.Selected != "" {
		lv.v.Apply(ctx, viewer.Event{Type: viewer.Select, ID: opts.Selected})
	}
	res := lv.v.Result()
	sess.State = res.State
	if err := s.store.Set(ctx, sess); err != nil {
		s.hub.remove(sess.ID)
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("session created", "session", sess.ID, "nodes", len(snap.Nodes), "mode", res.State.Mode)
	s.writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, ExpiresAt: sess.ExpiresAt, Result: res})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	lv, err := s.live(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lv.mu.Lock()
	defer lv.mu.Unlock()
	s.writeJSON(w, http.StatusOK, sessionResponse{ID: lv.sess.ID, ExpiresAt: lv.sess.ExpiresAt, Result: lv.v.Result()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !session.ValidID(id) {
		s.writeError(w, r, errors.New(errors.ErrCodeSessionNotFound, "session %q not found", id))
		return
	}
	s.hub.remove(id)
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	lv, err := s.live(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := readEvent(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.apply(r.Context(), lv, e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lv.broadcast(mustJSON(stateMessage{Type: msgState, Result: res}))
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	lv, err := s.live(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	svg, err := lv.v.SVG(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBytes(w, contentTypes[pipeline.FormatSVG], svg)
}

// live resolves a session id to its live view.
func (s *Server) live(ctx context.Context, id string) (*liveView, error) {
	if !session.ValidID(id) {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %q not found", id)
	}
	return s.hub.get(ctx, id)
}

// apply runs e against the live view and persists the resulting state. The
// persisted state is what a rebuilt viewer restores after eviction.
func (s *Server) apply(ctx context.Context, lv *liveView, e viewer.Event) (viewer.Result, error) {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	res, err := lv.v.Apply(ctx, e)
	if err != nil {
		return viewer.Result{}, err
	}
	lv.sess.State = res.State
	lv.sess.Touch(s.cfg.SessionTTL.Duration)
	if err := s.store.Set(ctx, lv.sess); err != nil {
		return viewer.Result{}, errors.Wrap(errors.ErrCodeInternal, err, "persist session")
	}
	return res, nil
}
