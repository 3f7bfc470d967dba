package prompt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPlaceholderSubstitution(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "base_prompt.txt",
		"You are a helpdesk assistant.\n\n"+placeholder+"\n\nAlways be polite.")
	writePrompt(t, dir, "it_support.txt", "Route IT issues to the IT board.")

	m := NewManager(dir)

	got := m.SystemPrompt("it_support")
	if !strings.Contains(got, "Route IT issues to the IT board.") {
		t.Errorf("supplement missing:\n%s", got)
	}
	if strings.Contains(got, "[PLACEHOLDER") {
		t.Errorf("placeholder survived substitution:\n%s", got)
	}
	if !strings.Contains(got, "Always be polite.") {
		t.Errorf("base text after placeholder lost:\n%s", got)
	}
}

func TestPlaceholderStrippedWithoutType(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "base_prompt.txt", "Base.\n"+placeholder+"\nEnd.")

	m := NewManager(dir)

	for _, requestType := range []string{"", "unknown_type"} {
		got := m.SystemPrompt(requestType)
		if strings.Contains(got, "[PLACEHOLDER") {
			t.Errorf("placeholder survived for type %q:\n%s", requestType, got)
		}
	}
}

func TestSupplementAppendedWithoutPlaceholder(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "base_prompt.txt", "Base prompt without a marker.")
	writePrompt(t, dir, "new_report.txt", "Gather report requirements first.")

	m := NewManager(dir)

	got := m.SystemPrompt("new_report")
	if !strings.HasSuffix(got, "Gather report requirements first.") {
		t.Errorf("supplement not appended:\n%s", got)
	}
}

func TestMissingBaseFallsBack(t *testing.T) {
	m := NewManager(t.TempDir())

	got := m.SystemPrompt("")
	if !strings.Contains(got, "Trello ticket management assistant") {
		t.Errorf("fallback prompt missing:\n%s", got)
	}
}

func TestAvailableRequestTypes(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "base_prompt.txt", "Base.")
	writePrompt(t, dir, "it_support.txt", "IT.")
	writePrompt(t, dir, "missing_report.txt", "Missing.")

	m := NewManager(dir)

	types := m.AvailableRequestTypes()
	if len(types) != 2 {
		t.Fatalf("types = %v, want 2 entries", types)
	}
	// Stable order: declaration order of RequestTypes
	if types[0] != "missing_report" || types[1] != "it_support" {
		t.Errorf("types = %v", types)
	}
}

func TestExplicitReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "base_prompt.txt", "Version one.")

	m := NewManager(dir)
	if got := m.SystemPrompt(""); got != "Version one." {
		t.Fatalf("got %q", got)
	}

	writePrompt(t, dir, "base_prompt.txt", "Version two.")
	m.Reload()

	if got := m.SystemPrompt(""); got != "Version two." {
		t.Errorf("got %q after reload", got)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "base_prompt.txt", "Before.")

	m := NewManager(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchDone := make(chan error, 1)
	go func() { watchDone <- m.Watch(ctx) }()

	// Give the watcher a moment to register
	time.Sleep(100 * time.Millisecond)
	writePrompt(t, dir, "base_prompt.txt", "After.")

	deadline := time.After(3 * time.Second)
	for {
		if m.SystemPrompt("") == "After." {
			break
		}
		select {
		case <-deadline:
			t.Fatal("watcher did not reload after write")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-watchDone:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
