package server

import (
	"time"

	"helpdesk/internal/orchestrator"
	"helpdesk/internal/trello"
)

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse is the POST /api/chat reply.
type ChatResponse struct {
	Message         string                  `json:"message"`
	ToolCalls       []orchestrator.ToolCall `json:"tool_calls"`
	CreatedTickets  []trello.Ticket         `json:"created_tickets"`
	RequiresNewChat bool                    `json:"requires_new_chat"`
	Error           string                  `json:"error,omitempty"`
}

// SessionResetRequest is the POST /api/session/reset body.
type SessionResetRequest struct {
	SessionID string `json:"session_id"`
}

// SessionResetResponse is the POST /api/session/reset reply.
type SessionResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is the GET /api/health reply.
type HealthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	ClaudeAPI      string    `json:"claude_api"`
	MCPServer      string    `json:"mcp_server"`
	ActiveSessions int       `json:"active_sessions"`
}

// errorResponse is the generic failure body.
type errorResponse struct {
	Detail string `json:"detail"`
}
