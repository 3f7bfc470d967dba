package trello

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"helpdesk/internal/mcp"
)

type fakeCaller struct {
	result *mcp.CallResult
	err    error
	name   string
	args   map[string]interface{}
}

func (f *fakeCaller) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallResult, error) {
	f.name = name
	f.args = args
	return f.result, f.err
}

func TestExecuteSuccess(t *testing.T) {
	fc := &fakeCaller{
		result: &mcp.CallResult{
			Success: true,
			Output:  json.RawMessage(`{"content":[{"type":"text","text":"{\"cards\":[],\"count\":0}"}]}`),
		},
	}
	b := NewBridge(fc)

	text, err := b.Execute(context.Background(), ToolSearchCards, map[string]interface{}{"query": "vpn"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if text != `{"cards":[],"count":0}` {
		t.Errorf("text = %q", text)
	}
	if fc.name != ToolSearchCards || fc.args["query"] != "vpn" {
		t.Errorf("call = %s %v", fc.name, fc.args)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	b := NewBridge(&fakeCaller{})
	_, err := b.Execute(context.Background(), "delete_trello_board", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("err = %v, want ErrUnknownTool", err)
	}
}

func TestExecuteClassification(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		wantErr error
	}{
		{"not found", "Card not found: abc123", ErrNotFound},
		{"404", "Trello API request failed: 404 Client Error", ErrNotFound},
		{"unauthorized", "invalid token supplied", ErrUnauthorized},
		{"401", "401 Unauthorized", ErrUnauthorized},
		{"rate limited", "Rate limit exceeded, retry later", ErrRateLimited},
		{"429", "HTTP 429 from api.trello.com", ErrRateLimited},
		{"generic", "connection reset by peer", ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCaller{result: &mcp.CallResult{Success: false, Error: tt.errMsg}}
			_, err := NewBridge(fc).Execute(context.Background(), ToolCardDetails, map[string]interface{}{"card_id": "x"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("message = %q, want original %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestExecuteTransportError(t *testing.T) {
	fc := &fakeCaller{err: errors.New("pipe closed")}
	_, err := NewBridge(fc).Execute(context.Background(), ToolListBoards, nil)
	if !errors.Is(err, ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}

func TestExecuteServerSideToolError(t *testing.T) {
	fc := &fakeCaller{
		result: &mcp.CallResult{
			Success: true,
			Output:  json.RawMessage(`{"content":[{"type":"text","text":"Card not found: xyz"}],"isError":true}`),
		},
	}
	_, err := NewBridge(fc).Execute(context.Background(), ToolCardDetails, map[string]interface{}{"card_id": "xyz"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFormatResultBareJSON(t *testing.T) {
	text, isErr := FormatResult(json.RawMessage(`{"boards":[{"id":"b1","name":"IT","url":""}]}`))
	if isErr {
		t.Error("isErr = true")
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		t.Fatalf("output not JSON: %v", err)
	}
	if _, ok := decoded["boards"]; !ok {
		t.Errorf("text = %q", text)
	}
}

func TestExtractTicket(t *testing.T) {
	resultText := `{"success":true,"card":{"id":"c1","name":"Printer broken","url":"https://trello.com/c/c1","list_name":"Inbox"}}`
	input := map[string]interface{}{"board_id": "board-it"}
	lookup := func(id string) string {
		if id == "board-it" {
			return "IT Support"
		}
		return ""
	}

	ticket := ExtractTicket(resultText, input, lookup)
	if ticket == nil {
		t.Fatal("ticket = nil")
	}
	want := &Ticket{
		ID:        "c1",
		Name:      "Printer broken",
		URL:       "https://trello.com/c/c1",
		BoardName: "IT Support",
		ListName:  "Inbox",
	}
	if diff := cmp.Diff(want, ticket); diff != "" {
		t.Errorf("ticket mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTicketUnknownBoard(t *testing.T) {
	resultText := `{"success":true,"card":{"id":"c2","name":"x","url":"","list_name":"Inbox"}}`
	ticket := ExtractTicket(resultText, map[string]interface{}{}, func(string) string { return "" })
	if ticket == nil {
		t.Fatal("ticket = nil")
	}
	if ticket.BoardName != "Unknown Board" {
		t.Errorf("board = %q", ticket.BoardName)
	}
}

func TestExtractTicketFailures(t *testing.T) {
	if ExtractTicket("not json", nil, nil) != nil {
		t.Error("extracted ticket from garbage")
	}
	if ExtractTicket(`{"success":false}`, nil, nil) != nil {
		t.Error("extracted ticket from failed create")
	}
}

func TestIsKnownTool(t *testing.T) {
	for _, name := range []string{ToolSearchCards, ToolCardDetails, ToolListBoards, ToolListLists, ToolCreateCard} {
		if !IsKnownTool(name) {
			t.Errorf("IsKnownTool(%q) = false", name)
		}
	}
	if IsKnownTool("archive_trello_card") {
		t.Error("IsKnownTool accepted unsupported tool")
	}
}
