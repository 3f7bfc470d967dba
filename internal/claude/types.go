package claude

import "fmt"

// Message is a single conversation turn. Content is either a plain string
// (simple text turns) or []ContentBlock (tool_use / tool_result turns).
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// ContentBlock is one element of a structured message.
type ContentBlock struct {
	Type string `json:"type"` // "text", "tool_use", "tool_result"
	Text string `json:"text,omitempty"`

	// tool_use fields
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// tool_result fields
	ToolUseID string      `json:"tool_use_id,omitempty"`
	Content   interface{} `json:"content,omitempty"`
	IsError   bool        `json:"is_error,omitempty"`
}

// Tool is a tool definition in the messages API format.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// request is the messages API request body.
type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Tools     []Tool    `json:"tools,omitempty"`
}

// Response is the parsed messages API response.
type Response struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Error      *apiError      `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Text concatenates all text blocks in the response.
func (r *Response) Text() string {
	var out string
	for _, block := range r.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}

// ToolUses returns the tool_use blocks in request order.
func (r *Response) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, block := range r.Content {
		if block.Type == "tool_use" {
			uses = append(uses, block)
		}
	}
	return uses
}

// HasToolUse reports whether the model requested any tool execution.
func (r *Response) HasToolUse() bool {
	for _, block := range r.Content {
		if block.Type == "tool_use" {
			return true
		}
	}
	return false
}

// ModelError is returned for non-2xx API responses and API-level errors.
type ModelError struct {
	StatusCode int
	Message    string
}

func (e *ModelError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("claude API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("claude API error: %s", e.Message)
}

// UserText builds a plain-text user message.
func UserText(text string) Message {
	return Message{Role: "user", Content: text}
}

// AssistantBlocks builds an assistant message from response content blocks.
func AssistantBlocks(blocks []ContentBlock) Message {
	return Message{Role: "assistant", Content: blocks}
}

// ToolResults builds the user message carrying tool_result blocks.
func ToolResults(blocks []ContentBlock) Message {
	return Message{Role: "user", Content: blocks}
}

// ToolResultBlock builds a tool_result content block correlated to a tool_use ID.
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{
		Type:      "tool_result",
		ToolUseID: toolUseID,
		Content:   content,
		IsError:   isError,
	}
}
