package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/codeflow/pkg/config"
	"github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/observability"
	"github.com/matzehuels/codeflow/pkg/observability/prom"
	"github.com/matzehuels/codeflow/pkg/session"
	"github.com/matzehuels/codeflow/pkg/view"
	"github.com/matzehuels/codeflow/pkg/viewer"
)

const snapshotJSON = `{
  "nodes": [
    {"id": "app", "label": "App.tsx", "type": "file"},
    {"id": "auth", "label": "useAuth", "type": "function"},
    {"id": "api", "label": "/api/users", "type": "route"}
  ],
  "edges": [
    {"source": "app", "target": "auth", "type": "import"},
    {"source": "auth", "target": "api", "type": "dependency"}
  ]
}`

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default().Server
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func do(t *testing.T, method, url, contentType, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createSession(t *testing.T, ts *httptest.Server, query string) sessionResponse {
	t.Helper()
	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions"+query, "application/json", snapshotJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[sessionResponse](t, resp)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[healthResponse](t, resp).Status)
}

func TestLayout(t *testing.T) {
	_, ts := newTestServer(t)

	t.Run("json", func(t *testing.T) {
		resp := do(t, http.MethodPost, ts.URL+"/v1/layout", "application/json", snapshotJSON)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decode[layoutResponse](t, resp)
		require.NotNil(t, got.Layout)
		assert.Len(t, got.Layout.Nodes, 3)
		assert.False(t, got.Layout.Fallback)
		assert.Len(t, got.SnapshotHash, 64)
	})

	t.Run("yaml", func(t *testing.T) {
		body := "nodes:\n  - id: a\n  - id: b\nedges:\n  - source: a\n    target: b\n"
		resp := do(t, http.MethodPost, ts.URL+"/v1/layout", "application/yaml", body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decode[layoutResponse](t, resp).Layout.Nodes, 2)
	})

	t.Run("duplicate ids use the fallback", func(t *testing.T) {
		body := `{"nodes":[{"id":"a"},{"id":"a"}],"edges":[]}`
		resp := do(t, http.MethodPost, ts.URL+"/v1/layout", "application/json", body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, decode[layoutResponse](t, resp).Layout.Fallback)
	})

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"nodes":[`},
		{"empty id", `{"nodes":[{"id":""}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, ts.URL+"/v1/layout", "application/json", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, errors.ErrCodeInvalidSnapshot, decode[errorBody](t, resp).Code)
		})
	}
}

func TestRender(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name        string
		path        string
		status      int
		contentType string
		code        errors.Code
	}{
		{"2d svg", "/v1/render/2d", http.StatusOK, "image/svg+xml", ""},
		{"3d svg", "/v1/render/3d?azimuth=30&elevation=20&distance=900", http.StatusOK, "image/svg+xml", ""},
		{"selected", "/v1/render/2d?select=auth&zoom=1.5", http.StatusOK, "image/svg+xml", ""},
		{"dot text", "/v1/render/dot?format=dot", http.StatusOK, "text/vnd.graphviz; charset=utf-8", ""},
		{"unknown mode", "/v1/render/4d", http.StatusBadRequest, "", errors.ErrCodeInvalidMode},
		{"both is not a single artifact", "/v1/render/both", http.StatusBadRequest, "", errors.ErrCodeInvalidMode},
		{"unknown format", "/v1/render/2d?format=gif", http.StatusBadRequest, "", errors.ErrCodeInvalidFormat},
		{"bad number", "/v1/render/2d?zoom=lots", http.StatusBadRequest, "", errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, ts.URL+tt.path, "application/json", snapshotJSON)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.code != "" {
				assert.Equal(t, tt.code, decode[errorBody](t, resp).Code)
				return
			}
			assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.NotEmpty(t, body)
		})
	}
}

func TestRenderCacheHeader(t *testing.T) {
	_, ts := newTestServer(t)
	first := do(t, http.MethodPost, ts.URL+"/v1/render/2d", "application/json", snapshotJSON)
	require.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, "miss", first.Header.Get("X-Cache"))

	second := do(t, http.MethodPost, ts.URL+"/v1/render/2d", "application/json", snapshotJSON)
	require.Equal(t, http.StatusOK, second.StatusCode)
	assert.Equal(t, "hit", second.Header.Get("X-Cache"))

	refreshed := do(t, http.MethodPost, ts.URL+"/v1/render/2d?refresh=true", "application/json", snapshotJSON)
	assert.Equal(t, "miss", refreshed.Header.Get("X-Cache"))
}

func TestSessionLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	created := createSession(t, ts, "")
	require.True(t, session.ValidID(created.ID))
	assert.Equal(t, view.Mode2D, created.State.Mode)
	assert.Nil(t, created.Selection)

	base := ts.URL + "/v1/sessions/" + created.ID

	resp := do(t, http.MethodPost, base+"/events", "application/json", `{"type":"select","id":"auth"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[viewer.Result](t, resp)
	require.NotNil(t, res.Selection)
	assert.Equal(t, "useAuth", res.Selection.Label)
	assert.Equal(t, 1, res.Selection.Outgoing)
	assert.Equal(t, 1, res.Selection.Incoming)

	resp = do(t, http.MethodGet, base, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "auth", decode[sessionResponse](t, resp).State.SelectedID)

	resp = do(t, http.MethodGet, base+"/frame", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	svg, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(svg), "<svg")

	resp = do(t, http.MethodDelete, base, "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, base, "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, errors.ErrCodeSessionNotFound, decode[errorBody](t, resp).Code)
}

func TestCreateSessionOptions(t *testing.T) {
	_, ts := newTestServer(t)

	created := createSession(t, ts, "?mode=3d&select=api&width=640&height=480")
	assert.Equal(t, view.Mode3D, created.State.Mode)
	assert.Equal(t, "api", created.State.SelectedID)

	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions?mode=4d", "application/json", snapshotJSON)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, errors.ErrCodeInvalidMode, decode[errorBody](t, resp).Code)
}

func TestSessionErrors(t *testing.T) {
	_, ts := newTestServer(t)
	created := createSession(t, ts, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   errors.Code
	}{
		{"malformed id", http.MethodGet, "/v1/sessions/not-a-uuid", "", http.StatusNotFound, errors.ErrCodeSessionNotFound},
		{"unknown id", http.MethodGet, "/v1/sessions/" + session.IDFor("nope"), "", http.StatusNotFound, errors.ErrCodeSessionNotFound},
		{"bad event json", http.MethodPost, "/v1/sessions/" + created.ID + "/events", `{"type":`, http.StatusBadRequest, errors.ErrCodeInvalidEvent},
		{"unknown event", http.MethodPost, "/v1/sessions/" + created.ID + "/events", `{"type":"teleport"}`, http.StatusBadRequest, errors.ErrCodeInvalidEvent},
		{"mode without value", http.MethodPost, "/v1/sessions/" + created.ID + "/events", `{"type":"mode"}`, http.StatusBadRequest, errors.ErrCodeInvalidEvent},
		{"unknown mode", http.MethodPost, "/v1/sessions/" + created.ID + "/events", `{"type":"mode","mode":"4d"}`, http.StatusBadRequest, errors.ErrCodeInvalidMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, ts.URL+tt.path, "application/json", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.code != "" {
				assert.Equal(t, tt.code, decode[errorBody](t, resp).Code)
			}
		})
	}
}

func TestDragAcrossRequests(t *testing.T) {
	_, ts := newTestServer(t)
	created := createSession(t, ts, "")
	events := ts.URL + "/v1/sessions/" + created.ID + "/events"

	// Empty canvas so the press starts a pan.
	do(t, http.MethodPost, events, "application/json", `{"type":"pointerdown","x":1,"y":1}`)
	resp := do(t, http.MethodPost, events, "application/json", `{"type":"pointermove","x":21,"y":11}`)
	res := decode[viewer.Result](t, resp)
	assert.True(t, res.State.Dragging)
	assert.Equal(t, view.Point{X: 20, Y: 10}, res.State.Pan)

	resp = do(t, http.MethodPost, events, "application/json", `{"type":"pointerup","x":21,"y":11}`)
	assert.False(t, decode[viewer.Result](t, resp).State.Dragging)
}

func TestEvictedSessionIsRebuilt(t *testing.T) {
	s, ts := newTestServer(t, WithLiveSessions(1))

	first := createSession(t, ts, "")
	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions/"+first.ID+"/events", "application/json", `{"type":"select","id":"api"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	createSession(t, ts, "")
	assert.Equal(t, 1, s.hub.len())

	resp = do(t, http.MethodGet, ts.URL+"/v1/sessions/"+first.ID, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[sessionResponse](t, resp)
	assert.Equal(t, "api", got.State.SelectedID)
	require.NotNil(t, got.Selection)
	assert.Equal(t, "/api/users", got.Selection.Label)
}

func TestSessionsPersistToStore(t *testing.T) {
	store := session.NewMemoryStore()
	_, ts := newTestServer(t, WithStore(store))

	created := createSession(t, ts, "")
	do(t, http.MethodPost, ts.URL+"/v1/sessions/"+created.ID+"/events", "application/json", `{"type":"zoomin"}`)

	sess, err := store.Get(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Greater(t, sess.State.Zoom, 1.0)
	assert.Len(t, sess.Snapshot.Nodes, 3)
}

func TestLiveWebsocket(t *testing.T) {
	_, ts := newTestServer(t)
	created := createSession(t, ts, "")

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/" + created.ID + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() map[string]any {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}
	readType := func(typ string) map[string]any {
		t.Helper()
		for range 20 {
			if m := read(); m["type"] == typ {
				return m
			}
		}
		t.Fatalf("no %s message", typ)
		return nil
	}

	assert.Equal(t, "state", read()["type"])
	frame := readType("frame")
	assert.Equal(t, "2d", frame["mode"])
	assert.Contains(t, frame["svg"], "<svg")

	require.NoError(t, conn.WriteJSON(viewer.Event{Type: viewer.Select, ID: "app"}))
	state := readType("state")
	assert.Equal(t, "app", state["state"].(map[string]any)["selected_id"])
	readType("frame")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))
	msg := readType("error")
	assert.Equal(t, string(errors.ErrCodeInvalidEvent), msg["code"])
}

func TestLiveUnknownSession(t *testing.T) {
	_, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/" + session.IDFor("gone") + "/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := prom.New(reg)
	observability.SetHTTPHooks(m)
	t.Cleanup(observability.Reset)

	_, ts := newTestServer(t, WithGatherer(reg))
	do(t, http.MethodGet, ts.URL+"/healthz", "", "")

	resp := do(t, http.MethodGet, ts.URL+"/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := io.Copy(&buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `codeflow_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}
