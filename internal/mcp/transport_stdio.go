package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"helpdesk/internal/logging"
)

// StdioTransport runs the MCP server as a subprocess and speaks
// newline-delimited JSON-RPC over its stdin/stdout.
type StdioTransport struct {
	mu sync.RWMutex

	command string
	args    []string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	stderr  io.ReadCloser

	connected  bool
	serverInfo *Capabilities

	pendingReqs map[int]chan *jsonrpcResponse
	nextID      int

	done chan struct{}
	wg   sync.WaitGroup
}

// NewStdioTransport creates a stdio transport from a command line, e.g.
// "python ../mcp-server/server.py".
func NewStdioTransport(commandLine string) *StdioTransport {
	parts := strings.Fields(commandLine)
	var cmd string
	var args []string
	if len(parts) > 0 {
		cmd = parts[0]
		args = parts[1:]
	}

	return &StdioTransport{
		command:     cmd,
		args:        args,
		pendingReqs: make(map[int]chan *jsonrpcResponse),
		nextID:      1,
		done:        make(chan struct{}),
	}
}

// Connect starts the subprocess and the reader goroutines. The initialize
// handshake happens on the first GetCapabilities call, which must not run
// under the connect lock because the reader needs the lock to dispatch.
func (t *StdioTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		return nil
	}

	if t.command == "" {
		return fmt.Errorf("empty command for stdio transport")
	}

	t.cmd = exec.Command(t.command, t.args...)

	var err error
	t.stdin, err = t.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	t.stdout, err = t.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	t.stderr, err = t.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := t.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start command %s: %w", t.command, err)
	}

	t.connected = true

	t.wg.Add(1)
	go t.readStderr()

	t.wg.Add(1)
	go t.readStdout()

	logging.Tools("MCP stdio transport started: %s", t.command)
	return nil
}

// Disconnect kills the subprocess and cleans up pending requests.
func (t *StdioTransport) Disconnect() error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil
	}
	t.connected = false

	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	if t.stdin != nil {
		_ = t.stdin.Close()
	}

	close(t.done)

	for id, ch := range t.pendingReqs {
		close(ch)
		delete(t.pendingReqs, id)
	}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		logging.ToolsWarn("timeout waiting for stdio transport goroutines to exit")
	}

	logging.Tools("MCP stdio transport disconnected")
	return nil
}

// readStderr forwards the server's stderr into the tools log.
func (t *StdioTransport) readStderr() {
	defer t.wg.Done()
	scanner := bufio.NewScanner(t.stderr)
	for scanner.Scan() {
		logging.Tools("[mcp-server] %s", scanner.Text())
	}
}

// readStdout dispatches JSON-RPC responses to the waiting callers.
func (t *StdioTransport) readStdout() {
	defer t.wg.Done()
	scanner := bufio.NewScanner(t.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(line, &raw); err != nil {
			logging.ToolsWarn("failed to parse JSON from stdout: %v", err)
			continue
		}

		// Responses carry an "id"; everything else is a server notification.
		idVal, ok := raw["id"]
		if !ok {
			logging.ToolsDebug("received notification: %s", string(line))
			continue
		}

		// json.Unmarshal decodes JSON numbers as float64.
		var id int
		switch v := idVal.(type) {
		case float64:
			id = int(v)
		case int:
			id = v
		default:
			continue
		}

		var resp jsonrpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			logging.ToolsWarn("failed to unmarshal response: %v", err)
			continue
		}

		t.mu.Lock()
		ch, exists := t.pendingReqs[id]
		if exists {
			delete(t.pendingReqs, id)
			ch <- &resp
		} else {
			logging.ToolsWarn("received response for unknown ID: %d", id)
		}
		t.mu.Unlock()
	}

	if err := scanner.Err(); err != nil {
		t.mu.RLock()
		connected := t.connected
		t.mu.RUnlock()
		if connected {
			logging.ToolsError("error reading stdout: %v", err)
		}
	}
}

// call sends a request and waits for its response or context cancellation.
func (t *StdioTransport) call(ctx context.Context, method string, params interface{}) (*jsonrpcResponse, error) {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil, fmt.Errorf("not connected to MCP server")
	}

	id := t.nextID
	t.nextID++

	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	ch := make(chan *jsonrpcResponse, 1)
	t.pendingReqs[id] = ch

	data, err := json.Marshal(req)
	if err != nil {
		delete(t.pendingReqs, id)
		t.mu.Unlock()
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		delete(t.pendingReqs, id)
		t.mu.Unlock()
		return nil, fmt.Errorf("failed to write to stdin: %w", err)
	}
	t.mu.Unlock()

	select {
	case resp := <-ch:
		if resp == nil {
			return nil, fmt.Errorf("connection closed")
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("MCP error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp, nil
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pendingReqs, id)
		t.mu.Unlock()
		return nil, ctx.Err()
	}
}

// ListTools retrieves available tools from the server.
func (t *StdioTransport) ListTools(ctx context.Context) ([]ToolSchema, error) {
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

	return result.Tools, nil
}

// CallTool invokes a tool on the MCP server.
func (t *StdioTransport) CallTool(ctx context.Context, name string, args map[string]interface{}) (*CallResult, error) {
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

	return &CallResult{
		Success:   true,
		Output:    resp.Result,
		LatencyMs: latencyMs,
	}, nil
}

// GetCapabilities performs the initialize handshake (once) and returns the
// server's capabilities.
func (t *StdioTransport) GetCapabilities(ctx context.Context) (*Capabilities, error) {
	t.mu.RLock()
	if t.serverInfo != nil {
		caps := *t.serverInfo
		t.mu.RUnlock()
		return &caps, nil
	}
	t.mu.RUnlock()

	resp, err := t.call(ctx, "initialize", map[string]interface{}{
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
		t.mu.Lock()
		t.serverInfo = &simple
		t.mu.Unlock()
		return &simple, nil
	}

	t.mu.Lock()
	t.serverInfo = &result.Capabilities
	t.mu.Unlock()

	// Handshake completes with a fire-and-forget initialized notification.
	notification := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "notifications/initialized",
	}
	notifBytes, _ := json.Marshal(notification)
	t.mu.Lock()
	if t.stdin != nil {
		_, _ = t.stdin.Write(append(notifBytes, '\n'))
	}
	t.mu.Unlock()

	return &result.Capabilities, nil
}

// Ping checks if the server is responsive.
func (t *StdioTransport) Ping(ctx context.Context) error {
	_, err := t.call(ctx, "ping", nil)
	return err
}

// IsConnected returns current connection status.
func (t *StdioTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

var _ Transport = (*StdioTransport)(nil)
