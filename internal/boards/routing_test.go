package boards

import (
	"strings"
	"testing"
)

func TestDefaultRouting(t *testing.T) {
	r := NewRouter(nil)

	b, ok := r.BoardForRequestType("desktop_support")
	if !ok {
		t.Fatal("desktop_support not routed")
	}
	if b.Name != "Desktop Support" {
		t.Errorf("board = %+v", b)
	}

	// Engineering request types share one board
	missing, _ := r.BoardForRequestType("missing_report")
	enhancement, _ := r.BoardForRequestType("enhancement_request")
	if missing.ID != enhancement.ID {
		t.Errorf("engineering boards differ: %s vs %s", missing.ID, enhancement.ID)
	}

	if _, ok := r.BoardForRequestType("unknown"); ok {
		t.Error("unknown request type routed")
	}
}

func TestConfigOverrides(t *testing.T) {
	r := NewRouter(map[string]Board{
		"it_support":      {ID: "custom-it", Name: "IT Queue"},
		"desktop_support": {ID: "override-id", Name: "Desktop v2"},
	})

	b, ok := r.BoardForRequestType("it_support")
	if !ok || b.ID != "custom-it" {
		t.Errorf("it_support = %+v, ok=%v", b, ok)
	}

	b, _ = r.BoardForRequestType("desktop_support")
	if b.ID != "override-id" {
		t.Errorf("override lost: %+v", b)
	}

	// Non-overridden defaults survive
	if _, ok := r.BoardForRequestType("new_report"); !ok {
		t.Error("default new_report routing lost")
	}
}

func TestBoardNameReverseLookup(t *testing.T) {
	r := NewRouter(nil)

	if name := r.BoardName("674213d1c000f649b4ad902f"); name != "Desktop Support" {
		t.Errorf("name = %q", name)
	}
	if name := r.BoardName("no-such-board"); name != "" {
		t.Errorf("unknown board name = %q", name)
	}
}

func TestRoutingPrompt(t *testing.T) {
	r := NewRouter(nil)
	got := r.RoutingPrompt()

	if !strings.HasPrefix(got, "BOARD ROUTING:") {
		t.Errorf("prompt prefix:\n%s", got)
	}
	for _, want := range []string{
		`- desktop_support: board_id="674213d1c000f649b4ad902f" (Desktop Support)`,
		`- facilities_support: board_id="691b97abf5a738a85fb76c02" (Facilities Support)`,
		"Always include the board_id parameter",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}

	// Deterministic output
	if r.RoutingPrompt() != got {
		t.Error("RoutingPrompt not stable across calls")
	}
}
