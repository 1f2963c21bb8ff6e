package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rhuss/judgeide/pkg/debug"
	"github.com/rhuss/judgeide/pkg/judge0"
	"github.com/rhuss/judgeide/pkg/observability"
	"github.com/rhuss/judgeide/pkg/session"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = wsPongWait * 9 / 10
	wsMaxMessage   = 4 << 20
)

// eventError is sent when an inbound message cannot be handled.
const eventError = "error"

// errorEvent answers a message the session rejected.
type errorEvent struct {
	Event  string `json:"event"`
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// bridge relays host bridge messages between a WebSocket and a session.
// Each connection owns exactly one session, closed when the socket closes.
type bridge struct {
	sessions *session.Manager
	upgrader websocket.Upgrader
}

func newBridge(sessions *session.Manager, allowedOrigins []string) *bridge {
	b := &bridge{sessions: sessions}
	if len(allowedOrigins) > 0 {
		b.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(allowedOrigins, origin)
		}
	}
	return b
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := c.conn.WriteJSON(v); err != nil {
		debug.Log("server", "websocket write failed", "error", err)
	}
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (b *bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error.
		debug.Log("server", "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	observability.WebSocketSessions.Inc()
	defer observability.WebSocketSessions.Dec()

	c := &wsConn{conn: conn}
	sess := b.sessions.Open(session.EmitHooks(c.send))
	defer b.sessions.Close(sess.ID())

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(wsPingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	// Runs inherit the request context, so they are cancelled when the
	// socket goes away and this handler returns.
	ctx := r.Context()
	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket closed unexpectedly", "session", sess.ID(), "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		reply, err := sess.Handle(ctx, raw)
		if err != nil {
			c.send(errorEvent{Event: eventErrorName(err), Error: err.Error(), Status: bridgeStatus(err)})
			continue
		}
		if reply != nil {
			c.send(reply)
		}
	}
}

// eventErrorName reports a rejected run as runError so hosts that only
// listen for lifecycle events still see it.
func eventErrorName(err error) string {
	if errors.Is(err, session.ErrBusy) || errors.Is(err, session.ErrClosed) {
		return session.EventRunError
	}
	return eventError
}

func bridgeStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	default:
		if s := judge0.HTTPStatus(err); s != http.StatusInternalServerError {
			return s
		}
		return http.StatusBadRequest
	}
}
