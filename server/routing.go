package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teranos/ldx/logger"
	"github.com/teranos/ldx/version"
)

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	mux.HandleFunc("/health", s.corsMiddleware(s.HandleHealth))
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
			Registry: s.registry,
		}))
	}
	return mux
}

// corsMiddleware adds CORS headers for allowed origins
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients) and browser origins with an allowed prefix, so any port matches.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.originAllowed(origin)
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// HandleWebSocket upgrades the request and registers the client.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("WebSocket upgrade failed",
			logger.FieldAddress, r.RemoteAddr,
			logger.FieldError, err,
		)
		return
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.wg.Add(2)
	s.mu.Unlock()

	client := newClient(s, conn)
	select {
	case s.register <- client:
	case <-s.ctx.Done():
		conn.Close()
		s.wg.Done()
		s.wg.Done()
		return
	}

	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
	go func() {
		defer s.wg.Done()
		client.readPump()
	}()
}

// Health is the /health payload.
type Health struct {
	Status    string  `json:"status"`
	State     string  `json:"state"`
	Clients   int     `json:"clients"`
	Version   string  `json:"version"`
	Commit    string  `json:"commit"`
	BuildTime string  `json:"build_time"`
	System    *System `json:"system,omitempty"`
}

// HandleHealth reports processor readiness and connected clients.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	info := version.Get()
	h := Health{
		Status:    "ok",
		State:     s.state.current().String(),
		Clients:   s.Clients(),
		Version:   info.Version,
		Commit:    info.CommitHash,
		BuildTime: info.BuildTime,
	}
	if sys, err := systemStats(); err != nil {
		s.logger.Debugw("System stats unavailable", logger.FieldError, err)
	} else {
		h.System = sys
	}
	writeJSON(w, http.StatusOK, h)
}
