// Package server exposes one command channel to websocket clients.
//
// Every text message a client sends is a command frame. Responses from the
// channel are broadcast to all connected clients, which correlate them by
// the echoed command. Frames that cannot be decoded, and commands over the
// client's rate limit, are answered with an error frame to that client only.
package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/teranos/ldx/channel"
	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/logger"
	"github.com/teranos/ldx/metrics"
	"github.com/teranos/ldx/source"
)

// commandQueueSize bounds commands accepted from clients but not yet submitted.
const commandQueueSize = 64

// Config holds the client-facing limits of a Server.
type Config struct {
	AllowedOrigins    []string
	CommandsPerSecond float64 // Per client, 0 = unlimited
	CommandBurst      int
}

// Server hosts a channel for websocket clients.
type Server struct {
	ch  channel.Channel
	cfg Config

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	commands   chan queued
	mu         sync.RWMutex

	state          *stateTracker
	broadcastDrops atomic.Int64
	unsubscribe    func()

	registry  *prometheus.Registry // nil disables /metrics
	collector *metrics.Collector

	watcher *source.Watcher
	hosts   []func() error

	logger *zap.SugaredLogger

	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopOnce sync.Once
}

// queued is a command waiting for submission. from is nil for commands the
// server issues itself.
type queued struct {
	from *Client
	cmd  ld.Command
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Server) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithMetrics serves reg on /metrics and reports client activity to c.
// Either may be nil.
func WithMetrics(reg *prometheus.Registry, c *metrics.Collector) Option {
	return func(s *Server) {
		s.registry = reg
		s.collector = c
	}
}

// New creates a server for ch and starts its hub and dispatcher. The
// server does not own ch; Stop leaves it open.
func New(ch channel.Channel, cfg Config, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ch:         ch,
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan queued, commandQueueSize),
		state:      newStateTracker(),
		logger:     logger.Logger.Named("server"),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.unsubscribe = ch.Subscribe(s.handleResponse)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.Run()
	}()
	go func() {
		defer s.wg.Done()
		s.dispatch()
	}()
	return s
}

// Run is the hub loop owning client registration. It returns when the
// server stops.
func (s *Server) Run() {
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debugw("Server hub stopping due to context cancellation")
			return
		case client := <-s.register:
			s.handleClientRegister(client)
		case client := <-s.unregister:
			s.handleClientUnregister(client)
		}
	}
}

func (s *Server) handleClientRegister(client *Client) {
	s.mu.Lock()
	s.clients[client] = true
	total := len(s.clients)
	s.mu.Unlock()

	if s.collector != nil {
		s.collector.ClientConnected()
	}
	s.logger.Infow("Client connected",
		logger.FieldClientID, client.id,
		"total_clients", total,
	)
}

func (s *Server) handleClientUnregister(client *Client) {
	s.mu.Lock()
	_, ok := s.clients[client]
	if ok {
		delete(s.clients, client)
		client.closeSend()
	}
	remaining := len(s.clients)
	s.mu.Unlock()

	if !ok {
		return
	}
	if s.collector != nil {
		s.collector.ClientDisconnected()
	}
	s.logger.Infow("Client disconnected",
		logger.FieldClientID, client.id,
		"remaining_clients", remaining,
	)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Load queues an INIT for doc as if a client had sent it. It returns the
// queued command, or false once the server has stopped.
func (s *Server) Load(doc string) (ld.Command, bool) {
	cmd := ld.Init(doc)
	return cmd, s.enqueue(queued{cmd: cmd})
}

func (s *Server) enqueue(q queued) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.commands <- q:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// dispatch submits queued commands in arrival order. A submission failure
// is reported to the client that sent the command.
func (s *Server) dispatch() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case q := <-s.commands:
			if q.cmd.Kind == ld.KindInit {
				s.state.initSubmitted(q.cmd)
			}
			if err := s.ch.Submit(s.ctx, q.cmd); err != nil {
				if s.ctx.Err() != nil {
					return
				}
				s.logger.Warnw("Command submission failed",
					logger.FieldCommandID, q.cmd.ID,
					logger.FieldCommand, q.cmd.Summary(),
					logger.FieldError, err,
				)
				if q.from != nil {
					s.reject(q.from, "submit_failed", err.Error())
				}
			}
		}
	}
}

// handleResponse runs on the channel's delivery goroutine.
func (s *Server) handleResponse(resp ld.Response) {
	s.state.observe(resp)
	data, err := channel.EncodeResponse(resp)
	if err != nil {
		s.logger.Errorw("Failed to encode response",
			logger.FieldCommandID, resp.Command.ID,
			logger.FieldError, err,
		)
		return
	}
	sent := s.broadcastMessage(data)
	s.logger.Debugw("Broadcast response",
		logger.FieldCommandID, resp.Command.ID,
		"success", resp.Success,
		"clients", sent,
	)
}

// reject sends an error frame to one client and counts it.
func (s *Server) reject(c *Client, reason, message string) {
	if s.collector != nil {
		s.collector.FrameRejected(reason)
	}
	s.logger.Debugw("Rejected frame",
		logger.FieldClientID, c.id,
		"reason", reason,
		logger.FieldError, message,
	)
	s.sendTo(c, channel.EncodeError(message))
}
