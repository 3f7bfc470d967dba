// Package orchestrator drives the bounded tool-use conversation loop:
// model call, sequential tool execution, repeat until the model answers in
// text or the iteration ceiling is hit.
package orchestrator

import (
	"context"
	"fmt"

	"helpdesk/internal/boards"
	"helpdesk/internal/claude"
	"helpdesk/internal/logging"
	"helpdesk/internal/prompt"
	"helpdesk/internal/trello"
)

// DefaultMaxIterations caps the tool round trips for one chat request.
const DefaultMaxIterations = 10

// Fallback text returned when the loop exhausts its iteration budget.
const maxIterationsMessage = "I apologize, but I'm having trouble completing this request. Please try again or rephrase your question."

// Tool call statuses surfaced to the chat client.
const (
	StatusExecuting = "executing"
	StatusSuccess   = "success"
	StatusError     = "error"
)

// Model is the slice of the Claude client the orchestrator needs.
type Model interface {
	Messages(ctx context.Context, system string, history []claude.Message, tools []claude.Tool) (*claude.Response, error)
}

// ToolRunner executes one named tool, returning the text for its
// tool_result block or a classified failure.
type ToolRunner interface {
	Execute(ctx context.Context, name string, input map[string]interface{}) (string, error)
}

// ToolSource provides liveness and tool schemas from the MCP server.
type ToolSource interface {
	Ping(ctx context.Context) error
	ToolDefinitions() []claude.Tool
}

// ToolCall is the per-tool status projection returned to the client.
type ToolCall struct {
	Tool   string `json:"tool"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of one processed chat message.
type Result struct {
	Message         string
	ToolCalls       []ToolCall
	CreatedTickets  []trello.Ticket
	RequiresNewChat bool
	UpdatedHistory  []claude.Message
	// Err is set for graceful degradations (iteration cap); the request
	// itself still succeeds.
	Err string
}

// actionTools would mark Trello-mutating tools that end the conversation.
// Kept empty so one conversation can create multiple tickets.
var actionTools = map[string]bool{}

// Orchestrator wires the model, tool bridge, prompts, and board routing.
type Orchestrator struct {
	model         Model
	tools         ToolRunner
	source        ToolSource
	prompts       *prompt.Manager
	router        *boards.Router
	maxIterations int
}

// New creates an orchestrator. maxIterations <= 0 selects the default.
func New(model Model, tools ToolRunner, source ToolSource, prompts *prompt.Manager, router *boards.Router, maxIterations int) *Orchestrator {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Orchestrator{
		model:         model,
		tools:         tools,
		source:        source,
		prompts:       prompts,
		router:        router,
		maxIterations: maxIterations,
	}
}

// Process runs one chat message through the tool loop. Model and transport
// errors abort and propagate; tool failures become error-flagged
// tool_results and never abort.
func (o *Orchestrator) Process(ctx context.Context, sessionID, userMessage, requestType string, history []claude.Message) (*Result, error) {
	if err := o.source.Ping(ctx); err != nil {
		return nil, fmt.Errorf("MCP server not available: %w", err)
	}

	system := o.prompts.SystemPrompt(requestType) + "\n\n" + o.router.RoutingPrompt()
	tools := o.source.ToolDefinitions()

	messages := make([]claude.Message, len(history), len(history)+2)
	copy(messages, history)
	messages = append(messages, claude.UserText(userMessage))

	var toolCalls []ToolCall
	var createdTickets []trello.Ticket
	actionExecuted := false

	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		response, err := o.model.Messages(ctx, system, messages, tools)
		if err != nil {
			logging.APIError("session %s: model call failed at iteration %d: %v", sessionID, iteration, err)
			return nil, err
		}

		toolUses := response.ToolUses()
		if len(toolUses) == 0 {
			messages = append(messages, claude.AssistantBlocks(response.Content))
			logging.Session("session %s: conversation completed in %d iterations", sessionID, iteration)
			return &Result{
				Message:         response.Text(),
				ToolCalls:       toolCalls,
				CreatedTickets:  createdTickets,
				RequiresNewChat: actionExecuted,
				UpdatedHistory:  messages,
			}, nil
		}

		// Execute every requested tool sequentially, in request order.
		results := make([]claude.ContentBlock, 0, len(toolUses))
		for _, use := range toolUses {
			logging.Tools("session %s: tool requested: %s", sessionID, use.Name)

			text, err := o.tools.Execute(ctx, use.Name, use.Input)
			if err != nil {
				logging.ToolsError("session %s: tool %s failed: %v", sessionID, use.Name, err)
				results = append(results, claude.ToolResultBlock(use.ID,
					fmt.Sprintf("Error executing tool: %s", err.Error()), true))
				toolCalls = append(toolCalls, ToolCall{Tool: use.Name, Status: StatusError, Error: err.Error()})
				continue
			}

			if actionTools[use.Name] {
				actionExecuted = true
			}
			if use.Name == trello.ToolCreateCard {
				if ticket := trello.ExtractTicket(text, use.Input, o.router.BoardName); ticket != nil {
					createdTickets = append(createdTickets, *ticket)
				}
			}

			results = append(results, claude.ToolResultBlock(use.ID, text, false))
			toolCalls = append(toolCalls, ToolCall{Tool: use.Name, Status: StatusSuccess})
		}

		messages = append(messages, claude.AssistantBlocks(response.Content))
		messages = append(messages, claude.ToolResults(results))
	}

	logging.SessionDebug("session %s: reached max iterations (%d)", sessionID, o.maxIterations)
	return &Result{
		Message:         maxIterationsMessage,
		ToolCalls:       toolCalls,
		CreatedTickets:  createdTickets,
		RequiresNewChat: actionExecuted,
		UpdatedHistory:  messages,
		Err:             "Max iterations reached",
	}, nil
}
