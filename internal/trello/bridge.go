// Package trello bridges model tool requests to the Trello MCP server. It
// owns the supported operation set, failure classification, and the
// result-to-text rendering handed back to the model.
package trello

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"helpdesk/internal/logging"
	"helpdesk/internal/mcp"
)

// Caller is the slice of the MCP client the bridge needs.
type Caller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallResult, error)
}

// Bridge executes Trello operations through an MCP caller. It never
// retries; retry policy belongs to the model's conversation loop.
type Bridge struct {
	caller Caller
}

// NewBridge wraps an MCP caller.
func NewBridge(caller Caller) *Bridge {
	return &Bridge{caller: caller}
}

// Execute runs one named tool and returns the text content for the
// tool_result block. The returned error is a classified tool-tier failure;
// callers convert it to an error-flagged tool_result rather than aborting.
func (b *Bridge) Execute(ctx context.Context, name string, input map[string]interface{}) (string, error) {
	if !IsKnownTool(name) {
		logging.ToolsWarn("rejected unknown tool: %s", name)
		return "", wrap(ErrUnknownTool, fmt.Sprintf("unknown tool: %s", name))
	}

	result, err := b.caller.CallTool(ctx, name, input)
	if err != nil {
		return "", wrap(ErrTransport, err.Error())
	}
	if !result.Success {
		return "", classify(result.Error)
	}

	text, isErr := FormatResult(result.Output)
	if isErr {
		return "", classify(text)
	}
	return text, nil
}

// FormatResult renders a raw MCP tool result to the text handed to the
// model. MCP servers return {"content":[{"type":"text","text":...}]}
// with an optional isError flag; anything else is pretty-printed JSON.
func FormatResult(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var envelope struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Content) > 0 {
		parts := make([]string, 0, len(envelope.Content))
		for _, block := range envelope.Content {
			if block.Type == "text" || block.Text != "" {
				parts = append(parts, block.Text)
			}
		}
		return strings.Join(parts, "\n"), envelope.IsError
	}

	// Bare JSON result: re-indent for the model.
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err == nil {
		if pretty, err := json.MarshalIndent(generic, "", "  "); err == nil {
			return string(pretty), false
		}
	}
	return string(raw), false
}

// ExtractTicket pulls ticket info from a successful create_trello_card
// result text. Returns nil when the result does not describe a created
// card. boardName resolves a board_id to its display name.
func ExtractTicket(resultText string, input map[string]interface{}, boardName func(string) string) *Ticket {
	var created CreateResult
	if err := json.Unmarshal([]byte(resultText), &created); err != nil {
		logging.ToolsWarn("could not parse create result for ticket extraction: %v", err)
		return nil
	}
	if !created.Success {
		return nil
	}

	boardID, _ := input["board_id"].(string)
	name := "Unknown Board"
	if boardName != nil {
		if resolved := boardName(boardID); resolved != "" {
			name = resolved
		}
	}

	return &Ticket{
		ID:        created.Card.ID,
		Name:      created.Card.Name,
		URL:       created.Card.URL,
		BoardName: name,
		ListName:  created.Card.ListName,
	}
}
