package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeServer speaks just enough JSON-RPC to exercise the HTTP transport.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := jsonrpcResponse{JSONRPC: "2.0", ID: req.ID}
		switch req.Method {
		case "initialize":
			resp.Result = json.RawMessage(`{"capabilities":{"tools":{}},"serverInfo":{"name":"trello-mcp","version":"1.0.0"}}`)
		case "tools/list":
			resp.Result = json.RawMessage(`{"tools":[
				{"name":"search_trello_cards","description":"Search cards","inputSchema":{"type":"object","properties":{"query":{"type":"string"}}}},
				{"name":"create_trello_card","description":"Create a card","inputSchema":{"type":"object","properties":{"list_id":{"type":"string"},"name":{"type":"string"}},"required":["list_id","name"]}}
			]}`)
		case "tools/call":
			params, _ := req.Params.(map[string]interface{})
			if params["name"] == "boom" {
				resp.Error = &jsonrpcError{Code: -32000, Message: "tool exploded"}
			} else {
				resp.Result = json.RawMessage(`{"cards":[],"count":0}`)
			}
		case "ping":
			resp.Result = json.RawMessage(`{}`)
		default:
			resp.Error = &jsonrpcError{Code: -32601, Message: "method not found"}
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPTransportConnectAndListTools(t *testing.T) {
	srv := fakeServer(t)
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, 5*time.Second)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()

	if !tr.IsConnected() {
		t.Fatal("IsConnected() = false after Connect")
	}

	tools, err := tr.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("tools = %d, want 2", len(tools))
	}
	if tools[0].Name != "search_trello_cards" {
		t.Errorf("tools[0] = %q", tools[0].Name)
	}
	if len(tools[1].InputSchema.Required) != 2 {
		t.Errorf("required = %v", tools[1].InputSchema.Required)
	}
}

func TestHTTPTransportCallTool(t *testing.T) {
	srv := fakeServer(t)
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, 5*time.Second)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()

	result, err := tr.CallTool(context.Background(), "search_trello_cards", map[string]interface{}{"query": "printer"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.Success {
		t.Errorf("Success = false: %s", result.Error)
	}
	if string(result.Output) != `{"cards":[],"count":0}` {
		t.Errorf("Output = %s", result.Output)
	}
}

func TestHTTPTransportToolErrorIsNotGoError(t *testing.T) {
	srv := fakeServer(t)
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, 5*time.Second)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()

	result, err := tr.CallTool(context.Background(), "boom", nil)
	if err != nil {
		t.Fatalf("CallTool returned Go error: %v", err)
	}
	if result.Success {
		t.Error("Success = true for failing tool")
	}
	if result.Error == "" {
		t.Error("Error empty for failing tool")
	}
}

func TestHTTPTransportPing(t *testing.T) {
	srv := fakeServer(t)
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, 5*time.Second)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()

	if err := tr.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestHTTPTransportConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, 2*time.Second)
	if err := tr.Connect(context.Background()); err == nil {
		t.Fatal("Connect succeeded against broken server")
	}
	if tr.IsConnected() {
		t.Error("IsConnected() = true after failed Connect")
	}
}

func TestStdioTransportCommandParsing(t *testing.T) {
	tr := NewStdioTransport("python ../mcp-server/server.py --flag")
	if tr.command != "python" {
		t.Errorf("command = %q", tr.command)
	}
	if len(tr.args) != 2 || tr.args[0] != "../mcp-server/server.py" {
		t.Errorf("args = %v", tr.args)
	}

	empty := NewStdioTransport("")
	if err := empty.Connect(context.Background()); err == nil {
		t.Error("Connect succeeded with empty command")
	}
}
