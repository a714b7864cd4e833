package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/teranos/ldx/channel"
	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/logger"
	"github.com/teranos/ldx/source"
	"github.com/teranos/ldx/transport"
)

// ShutdownTimeout bounds how long Stop waits for connections and goroutines.
const ShutdownTimeout = 5 * time.Second

// Start listens on port and serves until Stop. It returns nil after a
// clean stop.
func (s *Server) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.WithHint(
			errors.Wrapf(err, "failed to listen on port %d", port),
			"choose another port with --port or server.port in am.toml",
		)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Infow("Server ready",
		"url", "http://"+ln.Addr().String(),
		logger.FieldAddress, ln.Addr().String(),
	)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Watch submits an INIT for the document at path now and again whenever
// the file changes.
func (s *Server) Watch(path string) error {
	doc, err := source.Load(s.ctx, path)
	if err != nil {
		return err
	}
	w, err := source.NewWatcher(path, doc, func(doc string) {
		cmd, ok := s.Load(doc)
		if ok {
			s.logger.Infow("Document changed, reloading",
				logger.FieldSource, path,
				logger.FieldCommandID, cmd.ID,
			)
		}
	}, source.WithWatcherLogger(s.logger))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()

	w.Start()
	s.Load(doc)
	return nil
}

// HostNATS serves a second, independent processor to NATS clients on
// prefix. It runs until Stop.
func (s *Server) HostNATS(url, prefix string, parser ingest.Parser, opts ...channel.Option) error {
	t, err := transport.DialNATS(url, prefix, transport.RoleHost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.hosts = append(s.hosts, t.Close)
	s.mu.Unlock()

	commands, _ := transport.Subjects(prefix)
	s.logger.Infow("Hosting processor over NATS",
		logger.FieldAddress, url,
		logger.FieldSubject, commands,
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := channel.Serve(s.ctx, t, parser, opts...); err != nil {
			s.logger.Warnw("NATS host stopped", logger.FieldError, err)
		}
	}()
	return nil
}

// Stop shuts down the listener, closes client connections and waits for
// server goroutines. The channel stays open for its owner to close.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() { err = s.stop() })
	return err
}

func (s *Server) stop() error {
	s.logger.Infow("Initiating server shutdown")

	s.mu.Lock()
	srv, watcher, hosts := s.httpServer, s.watcher, s.hosts
	s.mu.Unlock()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			s.logger.Warnw("Failed to stop document watcher", logger.FieldError, err)
		}
	}

	var shutdownErr error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		shutdownErr = srv.Shutdown(ctx)
		cancel()
	}

	s.unsubscribe()

	// Close connections to unblock read pumps. Cancelling under the lock
	// keeps late upgrades from joining the wait group.
	s.mu.Lock()
	for client := range s.clients {
		client.conn.Close()
	}
	s.cancel()
	s.mu.Unlock()

	for _, closeHost := range hosts {
		closeHost()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(ShutdownTimeout):
		s.logger.Warnw("Goroutine shutdown timed out", "timeout", ShutdownTimeout)
	}

	s.mu.Lock()
	for client := range s.clients {
		delete(s.clients, client)
		client.closeSend()
		if s.collector != nil {
			s.collector.ClientDisconnected()
		}
	}
	s.mu.Unlock()

	s.logger.Infow("Server shutdown complete",
		"broadcast_drops", s.broadcastDrops.Load(),
	)
	return errors.Wrap(shutdownErr, "http shutdown")
}
