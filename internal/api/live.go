package api

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mailsink/internal/constants"
	"mailsink/internal/notifier"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsTransport writes events as JSON text frames. Send is only called from
// the hub pump; pings go through WriteControl, which gorilla allows
// concurrently with other writes.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func (t *wsTransport) Send(event notifier.Event) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteJSON(event)
}

func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(t.writeTimeout))
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

func (t *wsTransport) Kind() string { return constants.TransportWebSocket }

func (t *wsTransport) ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeTimeout))
}

// WebSocket godoc
// @Summary      Live email feed over WebSocket
// @Description  Sends the full email list as {"event":"emails","reason":"init"} on connect and again after every change
// @Tags         live
// @Success      101
// @Router       /ws [get]
func (h *Handler) WebSocket(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.Logger.InfowCtx(ctx, "WebSocket upgrade failed", "error", err)
		return
	}

	t := &wsTransport{conn: conn, writeTimeout: h.opts.WriteTimeout}
	id, err := h.hub.Subscribe(h.store, t)
	if err != nil {
		h.Logger.WarnwCtx(ctx, "WebSocket subscribe refused", "error", err)
		_ = t.Close()
		return
	}
	defer h.hub.Unsubscribe(id)

	h.Logger.DebugwCtx(ctx, "WebSocket subscriber connected", "subscriber_id", id, "remote_addr", c.ClientIP())

	done := make(chan struct{})
	defer close(done)
	go h.keepalive(t, done)

	// Clients never send anything meaningful; reading only detects close
	// frames and dead peers.
	conn.SetReadLimit(512)
	deadline := 2 * h.opts.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.Logger.DebugwCtx(ctx, "WebSocket subscriber disconnected", "subscriber_id", id, "error", err)
			return
		}
	}
}

func (h *Handler) keepalive(t *wsTransport, done <-chan struct{}) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := t.ping(); err != nil {
				return
			}
		}
	}
}

// sseTransport streams events on a held-open HTTP response. The pump and
// the keepalive in Events both write, so writes are serialized by mu.
type sseTransport struct {
	mu      sync.Mutex
	w       gin.ResponseWriter
	closed  chan struct{}
	closeMu sync.Once
}

func newSSETransport(w gin.ResponseWriter) *sseTransport {
	return &sseTransport{w: w, closed: make(chan struct{})}
}

func (t *sseTransport) Send(event notifier.Event) error {
	return t.write(func(w io.Writer) error {
		return sse.Encode(w, sse.Event{Event: event.Name, Data: event})
	})
}

func (t *sseTransport) comment() error {
	return t.write(func(w io.Writer) error {
		_, err := io.WriteString(w, ": ping\n\n")
		return err
	})
}

func (t *sseTransport) write(fn func(io.Writer) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.closed:
		return io.ErrClosedPipe
	default:
	}

	if err := fn(t.w); err != nil {
		return err
	}
	t.w.Flush()
	return nil
}

// Close only marks the stream finished; the handler returning ends the
// response.
func (t *sseTransport) Close() error {
	t.closeMu.Do(func() {
		t.mu.Lock()
		close(t.closed)
		t.mu.Unlock()
	})
	return nil
}

func (t *sseTransport) Kind() string { return constants.TransportSSE }

// Events godoc
// @Summary      Live email feed over Server-Sent Events
// @Description  Emits an "emails" event with the full email list on connect and after every change
// @Tags         live
// @Produce      text/event-stream
// @Success      200  {object}  notifier.Event
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /events [get]
func (h *Handler) Events(c *gin.Context) {
	ctx := c.Request.Context()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Status(http.StatusOK)

	t := newSSETransport(c.Writer)
	id, err := h.hub.Subscribe(h.store, t)
	if err != nil {
		c.Header("Content-Type", "application/json; charset=utf-8")
		h.HandleError(c, err)
		return
	}

	h.Logger.DebugwCtx(ctx, "SSE subscriber connected", "subscriber_id", id, "remote_addr", c.ClientIP())

	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.hub.Unsubscribe(id)
			// Wait for the pump to stop writing before the response is
			// released.
			<-t.closed
			h.Logger.DebugwCtx(ctx, "SSE subscriber disconnected", "subscriber_id", id)
			return
		case <-t.closed:
			return
		case <-ticker.C:
			if err := t.comment(); err != nil {
				h.hub.Unsubscribe(id)
				<-t.closed
				return
			}
		}
	}
}
