// internal/stub/server.go

// Package stub implements the inbound-facing counterparty emulator: it
// issues bearer tokens to the system under test, accepts its event
// notifications, and answers its footprint lookups with synthesized
// documents.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"pathfinder-checker/internal/common/auth"
	"pathfinder-checker/internal/common/config"
	"pathfinder-checker/internal/common/errors"
	"pathfinder-checker/internal/common/httpx"
	"pathfinder-checker/internal/common/logger"
	"pathfinder-checker/internal/common/metrics"
	"pathfinder-checker/internal/model"
	"pathfinder-checker/internal/token"
)

// Config wires the stub server to its collaborators and to the destination
// endpoints used for outbound fulfillment callbacks.
type Config struct {
	Settings *config.Settings
	Tokens   *token.Service
	Auth     *auth.Client
	HTTP     *httpx.Client
	Logger   logger.Logger

	// TokenEndpoint is the destination's resolved token endpoint; the
	// orchestrator supplies the discovered one.
	TokenEndpoint string
	// PathPrefix is the destination's footprint path prefix ("/2" for a
	// version 2 implementation).
	PathPrefix string

	Generator *model.Generator
}

// Server is the stub callback server. Handlers hold no shared mutable
// state beyond the read-only configuration, so concurrent inbound requests
// need no locking.
type Server struct {
	cfg        Config
	emitter    *Emitter
	httpServer *http.Server
	logger     logger.Logger
}

func NewServer(cfg Config) *Server {
	if cfg.Generator == nil {
		cfg.Generator = model.DefaultGenerator()
	}
	return &Server{
		cfg:     cfg,
		emitter: &Emitter{},
		logger:  cfg.Logger.WithFields(map[string]interface{}{"component": "stub-server"}),
	}
}

// OnFootprintData registers a subscriber for received footprint payloads.
// Subscribers must be registered before Start.
func (s *Server) OnFootprintData(handler func(model.Envelope)) {
	s.emitter.OnFootprintData(handler)
}

// OnError registers a subscriber for per-request processing errors.
func (s *Server) OnError(handler func(error)) {
	s.emitter.OnError(handler)
}

// Start binds the listener parsed from stub_context_path and serves until
// Stop. A bind failure is returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	addr, err := s.cfg.Settings.StubHostPort()
	if err != nil {
		return fmt.Errorf("invalid stub context path: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: http.HandlerFunc(s.route),
	}

	go func() {
		s.logger.Info("stub server listening", map[string]interface{}{"addr": addr})
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("stub server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	return nil
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

const footprintsPath = "/2/footprints"

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")

	switch {
	case path == "/auth/token" && r.Method == http.MethodPost:
		s.handleToken(w, r)
	case path == footprintsPath && r.Method == http.MethodGet:
		s.handleFootprintList(w, r)
	case strings.HasPrefix(path, footprintsPath+"/") && r.Method == http.MethodGet:
		id := strings.TrimPrefix(path, footprintsPath+"/")
		if _, err := uuid.Parse(id); err != nil {
			// A non-UUID-shaped id segment falls through to the list behavior.
			s.handleFootprintList(w, r)
			return
		}
		s.handleFootprint(w, r, id)
	case path == "/2/events" && r.Method == http.MethodPost:
		s.handleEvents(w, r)
	default:
		metrics.StubRequestsTotal.WithLabelValues("unknown", "404").Inc()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintln(w, "not found")
	}
}

// requireBearer verifies the Authorization bearer token and writes the 403
// AccessDenied response itself on failure.
func (s *Server) requireBearer(w http.ResponseWriter, r *http.Request, route string) bool {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		s.writeError(w, route, http.StatusForbidden, errors.CodeAccessDenied, "bearer token required")
		return false
	}
	if err := s.cfg.Tokens.Verify(strings.TrimPrefix(header, prefix)); err != nil {
		s.writeError(w, route, http.StatusForbidden, errors.CodeAccessDenied, "invalid bearer token")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, route string, status int, body interface{}) {
	metrics.StubRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to write response", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, route string, status int, code errors.ResponseCode, message string) {
	s.writeJSON(w, route, status, &errors.ErrorResponse{Code: code, Message: message})
}
