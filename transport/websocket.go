package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/ldx/errors"
)

// Gorilla connection limits, following the chat example.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 16 * 1024 * 1024 // INIT frames carry whole documents
)

// WebSocket carries one frame per text message over a gorilla connection.
// Send and Receive are safe for concurrent use.
type WebSocket struct {
	conn     *websocket.Conn
	log      *zap.SugaredLogger
	writeMu  sync.Mutex
	incoming chan []byte
	done     chan struct{}
	once     sync.Once

	errMu   sync.Mutex
	readErr error
}

// NewWebSocket takes ownership of conn and starts its read and ping pumps.
func NewWebSocket(conn *websocket.Conn, log *zap.SugaredLogger) *WebSocket {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ws := &WebSocket{
		conn:     conn,
		log:      log,
		incoming: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
	go ws.readPump()
	go ws.pingPump()
	return ws
}

// DialWebSocket connects to a server endpoint such as ws://host:port/ws.
func DialWebSocket(ctx context.Context, url string, header http.Header, log *zap.SugaredLogger) (*WebSocket, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to dial %s", url),
			"is `ldx serve` running and reachable?",
		)
	}
	return NewWebSocket(conn, log), nil
}

func (w *WebSocket) readPump() {
	defer w.shutdown()

	w.conn.SetReadLimit(maxMessageSize)
	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				w.log.Warnw("WebSocket read error", "error", err)
			}
			w.setReadErr(err)
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		select {
		case w.incoming <- data:
		case <-w.done:
			return
		}
	}
}

func (w *WebSocket) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.writeMu.Lock()
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := w.conn.WriteMessage(websocket.PingMessage, nil)
			w.writeMu.Unlock()
			if err != nil {
				w.shutdown()
				return
			}
		}
	}
}

func (w *WebSocket) Send(ctx context.Context, frame []byte) error {
	select {
	case <-w.done:
		return w.closedErr()
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = w.conn.SetWriteDeadline(deadline)
	if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return errors.Wrap(errors.ErrTransportClosed, err.Error())
	}
	return nil
}

func (w *WebSocket) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-w.incoming:
		return data, nil
	default:
	}
	select {
	case data := <-w.incoming:
		return data, nil
	case <-w.done:
		return nil, w.closedErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close sends a close frame and tears down the connection.
func (w *WebSocket) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	w.writeMu.Lock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	w.writeMu.Unlock()
	w.shutdown()
	return nil
}

// Done is closed once the connection is gone.
func (w *WebSocket) Done() <-chan struct{} { return w.done }

func (w *WebSocket) shutdown() {
	w.once.Do(func() {
		close(w.done)
		w.conn.Close()
	})
}

func (w *WebSocket) setReadErr(err error) {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.readErr == nil {
		w.readErr = err
	}
}

func (w *WebSocket) closedErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.readErr != nil {
		return errors.Wrap(errors.ErrTransportClosed, w.readErr.Error())
	}
	return closed("websocket closed")
}
