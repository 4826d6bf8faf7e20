package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/render/spatial"
	"github.com/matzehuels/codeflow/pkg/view"
	"github.com/matzehuels/codeflow/pkg/viewer"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Events are small; anything bigger is a protocol error.
	maxMessageSize = 64 << 10

	sendBuffer = 32
)

// Message types pushed to live clients.
const (
	msgFrame  = "frame"
	msgState  = "state"
	msgStatus = "status"
	msgError  = "error"
)

type frameMessage struct {
	Type string    `json:"type"`
	Mode view.Mode `json:"mode"`
	SVG  string    `json:"svg"`
}

type stateMessage struct {
	Type string `json:"type"`
	viewer.Result
}

type statusMessage struct {
	Type    string         `json:"type"`
	Status  spatial.Status `json:"status"`
	Message string         `json:"message,omitempty"`
}

type errorMessage struct {
	Type    string      `json:"type"`
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// client is one websocket connection to a live session.
type client struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
}

// enqueue queues msg without blocking. A full buffer drops the message; the
// next frame or state supersedes it.
func (c *client) enqueue(msg []byte) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lv, err := s.live(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debug("websocket upgrade failed", "session", id, "err", err)
		return
	}

	c := newClient(conn)
	go c.writePump()

	// The request context ends with the handler; the frame loop outlives
	// individual requests.
	ctx := context.WithoutCancel(r.Context())
	if lv.subscribe(c) == 1 {
		lv.v.Start(ctx)
	}
	s.logger.Debug("live client connected", "session", id)

	c.enqueue(mustJSON(stateMessage{Type: msgState, Result: lv.v.Result()}))
	s.pushFrame(ctx, lv, c.enqueue)

	s.readPump(ctx, lv, c)

	c.close()
	if lv.unsubscribe(c) == 0 {
		lv.v.Stop(ctx)
	}
	s.logger.Debug("live client disconnected", "session", id)
}

// readPump applies events from c until the connection closes.
func (s *Server) readPump(ctx context.Context, lv *liveView, c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				s.logger.Warn("websocket read error", "session", lv.sess.ID, "err", err)
			}
			return
		}
		select {
		case <-c.done:
			return
		default:
		}

		e, err := viewer.ParseEvent(data)
		var res viewer.Result
		if err == nil {
			res, err = s.apply(ctx, lv, e)
		}
		if err != nil {
			c.enqueue(mustJSON(errorMessage{Type: msgError, Code: errors.GetCode(err), Message: errors.UserMessage(err)}))
			continue
		}
		lv.broadcast(mustJSON(stateMessage{Type: msgState, Result: res}))
		if res.State.Mode == view.Mode2D || !lv.v.Spatial().Running() {
			s.pushFrame(ctx, lv, lv.broadcast)
		}
	}
}

// pushFrame renders the active mode on demand and hands it to send.
func (s *Server) pushFrame(ctx context.Context, lv *liveView, send func([]byte)) {
	svg, err := lv.v.SVG(ctx)
	if err != nil {
		s.logger.Debug("frame failed", "session", lv.sess.ID, "err", err)
		return
	}
	send(mustJSON(frameMessage{Type: msgFrame, Mode: lv.v.Controller().State().Mode, SVG: string(svg)}))
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
