// Package mcp implements a Model Context Protocol client: JSON-RPC 2.0
// framing over stdio or HTTP transports, tool discovery, and tool invocation.
package mcp

import (
	"context"
	"encoding/json"
)

// Transport abstracts the wire protocol to an MCP server.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error
	ListTools(ctx context.Context) ([]ToolSchema, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*CallResult, error)
	GetCapabilities(ctx context.Context) (*Capabilities, error)
	Ping(ctx context.Context) error
	IsConnected() bool
}

// ToolSchema describes a tool advertised by the server.
type ToolSchema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the JSON schema for a tool's arguments.
type InputSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
}

// CallResult is the outcome of one tool invocation. Transport-level failures
// are reported through Success/Error rather than a Go error so callers can
// treat every outcome uniformly.
type CallResult struct {
	Success   bool            `json:"success"`
	Output    json.RawMessage `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
	LatencyMs int64           `json:"latency_ms"`
}

// Capabilities describes what the server supports.
type Capabilities struct {
	Tools     map[string]interface{} `json:"tools,omitempty"`
	Resources map[string]interface{} `json:"resources,omitempty"`
	Prompts   map[string]interface{} `json:"prompts,omitempty"`
}

// jsonrpcRequest is a JSON-RPC 2.0 request.
type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

const protocolVersion = "2024-11-05"

var clientInfo = map[string]string{
	"name":    "helpdesk",
	"version": "1.0.0",
}
