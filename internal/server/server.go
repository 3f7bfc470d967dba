// Package server exposes the HTTP surface: chat, session reset, health,
// and root, with CORS, request logging, and panic recovery.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"helpdesk/internal/claude"
	"helpdesk/internal/logging"
	"helpdesk/internal/orchestrator"
	"helpdesk/internal/session"
	"helpdesk/internal/trello"
)

// Processor runs one chat message through the conversation loop.
type Processor interface {
	Process(ctx context.Context, sessionID, userMessage, requestType string, history []claude.Message) (*orchestrator.Result, error)
}

// HealthChecker reports whether the Claude client is usable.
type HealthChecker interface {
	Healthy() bool
}

// Pinger probes the MCP server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server identity and CORS settings.
type Config struct {
	Name        string
	Version     string
	CORSOrigins []string
}

// Server handles the HTTP API.
type Server struct {
	cfg       Config
	store     session.Store
	processor Processor
	model     HealthChecker
	mcp       Pinger
	logger    *zap.Logger
}

// New builds the server.
func New(cfg Config, store session.Store, processor Processor, model HealthChecker, mcp Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		store:     store,
		processor: processor,
		model:     model,
		mcp:       mcp,
		logger:    logger,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/session/reset", s.handleReset)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	var h http.Handler = mux
	h = s.corsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.recoveryMiddleware(h)
	return h
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "session_id and message are required"})
		return
	}

	logging.Server("chat request from session %s: %s", req.SessionID, truncate(req.Message, 50))

	// Two concurrent chats for one session run in turn; other sessions
	// are unaffected.
	unlock := s.store.LockSession(req.SessionID)
	defer unlock()

	history := s.store.History(req.SessionID)

	result, err := s.processor.Process(r.Context(), req.SessionID, req.Message, "", history)
	if err != nil {
		s.logger.Error("chat processing failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		logging.ServerError("chat processing failed for session %s: %v", req.SessionID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Error processing request"})
		return
	}

	s.store.SetHistory(req.SessionID, result.UpdatedHistory)

	resp := ChatResponse{
		Message:         result.Message,
		ToolCalls:       result.ToolCalls,
		CreatedTickets:  result.CreatedTickets,
		RequiresNewChat: result.RequiresNewChat,
		Error:           result.Err,
	}
	if resp.ToolCalls == nil {
		resp.ToolCalls = []orchestrator.ToolCall{}
	}
	if resp.CreatedTickets == nil {
		resp.CreatedTickets = []trello.Ticket{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReset clears a session. Resetting an unknown or expired session is
// a success; the client's goal state is reached either way.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req SessionResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "session_id is required"})
		return
	}

	existed := s.store.Reset(req.SessionID)
	msg := "Session cleared successfully"
	if !existed {
		msg = "Session not found (may have already expired)"
	}
	writeJSON(w, http.StatusOK, SessionResetResponse{Success: true, Message: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	claudeStatus := "disconnected"
	if s.model.Healthy() {
		claudeStatus = "connected"
	}

	mcpStatus := "connected"
	if err := s.mcp.Ping(r.Context()); err != nil {
		mcpStatus = "disconnected"
	}

	status := "healthy"
	if claudeStatus != "connected" || mcpStatus != "connected" {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         status,
		Timestamp:      time.Now(),
		ClaudeAPI:      claudeStatus,
		MCPServer:      mcpStatus,
		ActiveSessions: s.store.Count(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    s.cfg.Name,
		"version": s.cfg.Version,
		"status":  "running",
	})
}

// recoveryMiddleware turns panics into 500 JSON responses.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in handler",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware tags each request with a uuid and logs its outcome.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(sw, r)

		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// corsMiddleware applies the configured origin allow-list.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
