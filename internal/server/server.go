package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/anoncore/anoncore/internal/audit"
	"github.com/anoncore/anoncore/internal/config"
	"github.com/anoncore/anoncore/internal/engine"
	"github.com/anoncore/anoncore/internal/logger"
	"github.com/anoncore/anoncore/internal/session"
	"github.com/anoncore/anoncore/internal/web"
	"github.com/anoncore/anoncore/internal/websocket"
)

// Server exposes the pseudonymization engine over HTTP.
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	engine    *engine.Engine
	sessions  session.Store
	audit     *audit.Store // nil when auditing is disabled
	router    *mux.Router
	server    *http.Server
	wsHub     *websocket.Hub
	limiter   *RateLimiter
	startedAt time.Time
}

// New creates a server around an engine instance and its collaborators.
func New(cfg *config.Config, log *logger.Logger, eng *engine.Engine, sessions session.Store, auditStore *audit.Store) (*Server, error) {
	hubConfig := &websocket.HubConfig{
		BroadcastRuns:        cfg.WebSocket.Events.BroadcastRuns,
		BroadcastRequests:    cfg.WebSocket.Events.BroadcastRequests,
		BroadcastSystem:      cfg.WebSocket.Events.BroadcastSystem,
		BroadcastConnections: cfg.WebSocket.Events.BroadcastConnections,
		Username:             cfg.WebSocket.Username,
		Password:             cfg.WebSocket.Password,
	}
	wsHub := websocket.NewHub(hubConfig, log.WithComponent("websocket").Logger)

	router := mux.NewRouter()

	s := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		engine:    eng,
		sessions:  sessions,
		audit:     auditStore,
		router:    router,
		wsHub:     wsHub,
		limiter:   NewRateLimiter(cfg.RateLimit),
		startedAt: time.Now(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/anonymize", s.handleAnonymize).Methods("POST")
	api.HandleFunc("/reverse", s.handleReverse).Methods("POST")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handlePutSession).Methods("PUT")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting anoncore server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("audit_enabled", s.audit != nil),
		zap.Bool("websocket_enabled", s.config.WebSocket.Enabled),
	)

	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping anoncore server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo reports engine configuration and, when auditing is on, run totals.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":          "anoncore",
		"version":       "0.1.0",
		"uptime":        time.Since(s.startedAt).String(),
		"enabled_rules": s.engine.EnabledRules(),
	}

	if s.audit != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if stats, err := s.audit.GetStats(ctx); err == nil {
			info["audit"] = stats
		} else {
			s.logger.Warn("Failed to load audit stats", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(info)
}

// handleWebSocket handles WebSocket connections for the dashboard
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}
