package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"helpdesk/internal/logging"
)

// HTTPTransport speaks JSON-RPC to an MCP server over HTTP POST.
type HTTPTransport struct {
	mu sync.RWMutex

	baseURL    string
	timeout    time.Duration
	client     *http.Client
	connected  bool
	serverInfo *Capabilities
}

// NewHTTPTransport creates an HTTP transport for the given base URL.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL: baseURL,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Connect verifies the server is reachable by running the initialize
// handshake.
func (t *HTTPTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	caps, err := t.getCapabilitiesLocked(ctx)
	if err != nil {
		t.connected = false
		return fmt.Errorf("failed to connect to MCP server at %s: %w", t.baseURL, err)
	}

	t.serverInfo = caps
	t.connected = true
	logging.Tools("MCP HTTP transport connected to %s", t.baseURL)
	return nil
}

// Disconnect marks the transport closed.
func (t *HTTPTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connected = false
	t.serverInfo = nil
	logging.Tools("MCP HTTP transport disconnected from %s", t.baseURL)
	return nil
}

// ListTools retrieves available tools from the server.
func (t *HTTPTransport) ListTools(ctx context.Context) ([]ToolSchema, error) {
	if !t.IsConnected() {
		return nil, fmt.Errorf("not connected to MCP server")
	}

	resp, err := t.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	var result struct {
		Tools []ToolSchema `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tools response: %w", err)
	}

	logging.ToolsDebug("MCP server returned %d tools", len(result.Tools))
	return result.Tools, nil
}

// CallTool invokes a tool on the MCP server.
func (t *HTTPTransport) CallTool(ctx context.Context, name string, args map[string]interface{}) (*CallResult, error) {
	if !t.IsConnected() {
		return nil, fmt.Errorf("not connected to MCP server")
	}

	start := time.Now()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}

	resp, err := t.call(ctx, "tools/call", params)
	latencyMs := time.Since(start).Milliseconds()

	if err != nil {
		return &CallResult{
			Success:   false,
			Error:     err.Error(),
			LatencyMs: latencyMs,
		}, nil
	}

	if resp.Error != nil {
		return &CallResult{
			Success:   false,
			Error:     resp.Error.Message,
			LatencyMs: latencyMs,
		}, nil
	}

	return &CallResult{
		Success:   true,
		Output:    resp.Result,
		LatencyMs: latencyMs,
	}, nil
}

// GetCapabilities returns cached capabilities, initializing if needed.
func (t *HTTPTransport) GetCapabilities(ctx context.Context) (*Capabilities, error) {
	t.mu.RLock()
	if t.serverInfo != nil {
		caps := *t.serverInfo
		t.mu.RUnlock()
		return &caps, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.getCapabilitiesLocked(ctx)
}

func (t *HTTPTransport) getCapabilitiesLocked(ctx context.Context) (*Capabilities, error) {
	resp, err := t.callLocked(ctx, "initialize", map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]interface{}{},
		"clientInfo":      clientInfo,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Capabilities Capabilities `json:"capabilities"`
		ServerInfo   struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		var simple Capabilities
		if err2 := json.Unmarshal(resp.Result, &simple); err2 != nil {
			return nil, fmt.Errorf("failed to parse capabilities: %w", err)
		}
		return &simple, nil
	}

	return &result.Capabilities, nil
}

// Ping checks if the server is responsive, falling back to GET /health for
// servers that do not implement the ping method.
func (t *HTTPTransport) Ping(ctx context.Context) error {
	if !t.IsConnected() {
		return fmt.Errorf("not connected to MCP server")
	}

	_, err := t.call(ctx, "ping", nil)
	if err != nil {
		req, err2 := http.NewRequestWithContext(ctx, "GET", t.baseURL+"/health", nil)
		if err2 != nil {
			return err
		}
		resp, err2 := t.client.Do(req)
		if err2 != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
	}
	return nil
}

// IsConnected returns current connection status.
func (t *HTTPTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

func (t *HTTPTransport) call(ctx context.Context, method string, params interface{}) (*jsonrpcResponse, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.callLocked(ctx, method, params)
}

func (t *HTTPTransport) callLocked(ctx context.Context, method string, params interface{}) (*jsonrpcResponse, error) {
	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", t.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("server returned status %d: %s", httpResp.StatusCode, string(bodyBytes))
	}

	var resp jsonrpcResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.Error != nil {
		return &resp, fmt.Errorf("MCP error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	return &resp, nil
}

var _ Transport = (*HTTPTransport)(nil)
