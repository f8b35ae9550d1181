// Package api provides the citation resolution REST API server.
package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/otzaria/mekor/core/cache"
	"github.com/otzaria/mekor/core/cite"
	"github.com/otzaria/mekor/core/resolve"
	"github.com/otzaria/mekor/internal/ingest"
	"github.com/otzaria/mekor/internal/logging"
	"github.com/otzaria/mekor/internal/server"
	"github.com/otzaria/mekor/internal/store"
)

// Server wires the citation engine behind HTTP handlers.
type Server struct {
	cfg       Config
	store     *store.Store
	resolver  *resolve.Resolver
	formatter *cite.Formatter
	importer  *ingest.Importer
	hub       *Hub
}

// New opens the catalog store at cfg.StorePath and builds a Server around it.
func New(cfg Config) (*Server, error) {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	return NewWithStore(cfg, st), nil
}

// NewWithStore builds a Server over an already-open store.
func NewWithStore(cfg Config, st *store.Store) *Server {
	return &Server{
		cfg:       cfg,
		store:     st,
		resolver:  resolve.New(st, resolve.WithChildrenCache(cache.NewDefaultChildrenCache())),
		formatter: cite.NewFormatter(),
		importer:  ingest.New(st),
		hub:       NewHub(),
	}
}

// Close releases the underlying store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Handler builds the full middleware-wrapped route handler.
func (s *Server) Handler() http.Handler {
	mux := s.routes()

	var handler http.Handler = server.SecurityHeadersMiddleware(mux)

	if s.cfg.RateLimitRequests > 0 {
		rlCfg := RateLimiterConfig{
			RequestsPerMinute: s.cfg.RateLimitRequests,
			BurstSize:         s.cfg.RateLimitBurst,
		}
		if rlCfg.BurstSize == 0 {
			rlCfg.BurstSize = 10
		}
		handler = NewRateLimiter(rlCfg).Middleware(handler)
		logging.Info("rate limiting enabled",
			"requests_per_minute", rlCfg.RequestsPerMinute,
			"burst_size", rlCfg.BurstSize)
	}

	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{
		AllowedOrigins: s.cfg.AllowedOrigins,
	}, handler)

	return logging.CombinedMiddleware(handler)
}

// Start runs the WebSocket hub and serves HTTP until the listener fails.
func (s *Server) Start() error {
	if s.cfg.TLS.Enabled {
		if s.cfg.TLS.CertFile == "" || s.cfg.TLS.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
		if _, err := os.Stat(s.cfg.TLS.CertFile); err != nil {
			return fmt.Errorf("TLS cert file not found: %w", err)
		}
		if _, err := os.Stat(s.cfg.TLS.KeyFile); err != nil {
			return fmt.Errorf("TLS key file not found: %w", err)
		}
	}

	go s.hub.Run()

	protocol := "http"
	wsProtocol := "ws"
	if s.cfg.TLS.Enabled {
		protocol = "https"
		wsProtocol = "wss"
		logging.Info("TLS enabled", "cert_file", s.cfg.TLS.CertFile)
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}
	logging.ServerStartup("rest_api", protocol, s.cfg.Port,
		"websocket_protocol", wsProtocol,
		"store", server.AbsPath(s.cfg.StorePath))

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	if s.cfg.TLS.Enabled {
		return http.ListenAndServeTLS(addr, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile, s.Handler())
	}
	return http.ListenAndServe(addr, s.Handler())
}

// routes configures all HTTP routes.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/parse", s.handleParse)
	mux.HandleFunc("/v1/resolve", s.handleResolve)
	mux.HandleFunc("/v1/format", s.handleFormat)
	mux.HandleFunc("/v1/match", s.handleMatch)
	mux.HandleFunc("/v1/heal", s.handleHeal)
	mux.HandleFunc("/v1/sources", s.handleSources)
	mux.HandleFunc("/v1/import", s.handleImport)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return mux
}
