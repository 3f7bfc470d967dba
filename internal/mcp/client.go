package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"helpdesk/internal/claude"
	"helpdesk/internal/logging"
)

// Client owns a transport to one MCP server, discovers its tools, and
// exposes them as Claude tool definitions.
type Client struct {
	mu        sync.RWMutex
	transport Transport
	tools     []ToolSchema
	timeout   time.Duration
}

// NewClient wraps a transport. Call Connect before use.
func NewClient(transport Transport, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		transport: transport,
		timeout:   timeout,
	}
}

// NewStdioClient builds a client for a subprocess MCP server.
func NewStdioClient(commandLine string, timeout time.Duration) *Client {
	return NewClient(NewStdioTransport(commandLine), timeout)
}

// NewHTTPClient builds a client for an HTTP MCP server.
func NewHTTPClient(baseURL string, timeout time.Duration) *Client {
	return NewClient(NewHTTPTransport(baseURL, timeout), timeout)
}

// Connect establishes the transport, runs the initialize handshake, and
// caches the server's tool schemas.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.transport.Connect(ctx); err != nil {
		return fmt.Errorf("transport connect: %w", err)
	}

	if _, err := c.transport.GetCapabilities(ctx); err != nil {
		_ = c.transport.Disconnect()
		return fmt.Errorf("initialize handshake: %w", err)
	}

	tools, err := c.transport.ListTools(ctx)
	if err != nil {
		_ = c.transport.Disconnect()
		return fmt.Errorf("tool discovery: %w", err)
	}

	c.mu.Lock()
	c.tools = tools
	c.mu.Unlock()

	logging.Tools("MCP client connected, %d tools discovered", len(tools))
	return nil
}

// Close shuts down the transport.
func (c *Client) Close() error {
	return c.transport.Disconnect()
}

// RefreshTools re-queries the server's tool list.
func (c *Client) RefreshTools(ctx context.Context) error {
	tools, err := c.transport.ListTools(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.tools = tools
	c.mu.Unlock()
	return nil
}

// ToolSchemas returns the cached tool schemas.
func (c *Client) ToolSchemas() []ToolSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ToolSchema, len(c.tools))
	copy(out, c.tools)
	return out
}

// ToolDefinitions converts the cached schemas to the Claude tool format.
func (c *Client) ToolDefinitions() []claude.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]claude.Tool, 0, len(c.tools))
	for _, t := range c.tools {
		schema := map[string]interface{}{
			"type": t.InputSchema.Type,
		}
		if schema["type"] == "" {
			schema["type"] = "object"
		}
		if t.InputSchema.Properties != nil {
			schema["properties"] = t.InputSchema.Properties
		}
		if len(t.InputSchema.Required) > 0 {
			schema["required"] = t.InputSchema.Required
		}
		defs = append(defs, claude.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return defs
}

// CallTool invokes one tool with a per-call timeout. Failures are reported
// in the result, not as a Go error; no internal retry.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*CallResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logging.ToolsDebug("calling tool %s", name)
	result, err := c.transport.CallTool(callCtx, name, args)
	if err != nil {
		return nil, err
	}
	if result.Success {
		logging.Tools("tool %s succeeded in %dms", name, result.LatencyMs)
	} else {
		logging.ToolsWarn("tool %s failed in %dms: %s", name, result.LatencyMs, result.Error)
	}
	return result, nil
}

// Ping checks server liveness with a short timeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.transport.Ping(pingCtx)
}

// IsConnected reports the transport's connection status.
func (c *Client) IsConnected() bool {
	return c.transport.IsConnected()
}
