package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/teranos/ldx/channel"
	"github.com/teranos/ldx/logger"
)

// WebSocket timeouts, as in the gorilla chat example.
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size accepted from a peer (INIT carries whole documents)
	maxMessageSize = 16 * 1024 * 1024

	// Frames buffered per client before broadcasts to it are dropped
	sendBufferSize = 256
)

// Client is one websocket connection.
type Client struct {
	server  *Server
	conn    *websocket.Conn
	send    chan []byte
	id      string
	limiter *rate.Limiter // nil = unlimited
	closed  bool          // Guarded by server.mu
}

func newClient(s *Server, conn *websocket.Conn) *Client {
	c := &Client{
		server: s,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		id:     uuid.NewString(),
	}
	if s.cfg.CommandsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(s.cfg.CommandsPerSecond), max(s.cfg.CommandBurst, 1))
	}
	return c
}

// closeSend closes the send channel once. Callers hold server.mu.
func (c *Client) closeSend() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump turns inbound messages into queued commands until the
// connection fails or the server stops.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		if !c.handleFrame(data) {
			return
		}
	}
}

// handleFrame returns false once the server has stopped.
func (c *Client) handleFrame(data []byte) bool {
	cmd, err := channel.DecodeCommand(data)
	if err != nil {
		c.server.reject(c, "invalid_frame", err.Error())
		return true
	}
	if c.limiter != nil && !c.limiter.Allow() {
		c.server.reject(c, "rate_limited", "rate limit exceeded: "+cmd.Summary())
		return true
	}
	return c.server.enqueue(queued{from: c, cmd: cmd})
}

// handleReadError logs unexpected close errors. Normal closes are silent.
func (c *Client) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
	) {
		c.server.logger.Warnw("WebSocket read error",
			logger.FieldClientID, c.id,
			logger.FieldError, err,
		)
	}
}

// writePump is the only writer on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.server.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"))
			return
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.server.logger.Debugw("Frame write error",
					logger.FieldClientID, c.id,
					logger.FieldError, err,
				)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
