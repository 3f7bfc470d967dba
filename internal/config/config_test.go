package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Claude.Model != "claude-sonnet-4-20250514" {
		t.Errorf("default model = %q, want claude-sonnet-4-20250514", cfg.Claude.Model)
	}
	if cfg.Claude.MaxTokens != 4096 {
		t.Errorf("default max_tokens = %d, want 4096", cfg.Claude.MaxTokens)
	}
	if cfg.Claude.MaxToolIterations != 10 {
		t.Errorf("default max_tool_iterations = %d, want 10", cfg.Claude.MaxToolIterations)
	}
	if cfg.Session.TimeoutMinutes != 60 {
		t.Errorf("default session timeout = %d, want 60", cfg.Session.TimeoutMinutes)
	}
	if cfg.Session.Backend != "memory" {
		t.Errorf("default session backend = %q, want memory", cfg.Session.Backend)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("default port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.MCP.Protocol != "stdio" {
		t.Errorf("default mcp protocol = %q, want stdio", cfg.MCP.Protocol)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want default 8000", cfg.Server.Port)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helpdesk.yaml")
	content := []byte(`
claude:
  api_key: test-key
  model: claude-test
  max_tokens: 1024
server:
  port: 9090
session:
  timeout_minutes: 30
boards:
  it_support:
    board_id: abc123
    board_name: IT Support
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Claude.Model != "claude-test" {
		t.Errorf("model = %q, want claude-test", cfg.Claude.Model)
	}
	if cfg.Claude.MaxTokens != 1024 {
		t.Errorf("max_tokens = %d, want 1024", cfg.Claude.MaxTokens)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Session.TimeoutMinutes != 30 {
		t.Errorf("timeout_minutes = %d, want 30", cfg.Session.TimeoutMinutes)
	}
	// Unset fields keep their defaults
	if cfg.MCP.Protocol != "stdio" {
		t.Errorf("mcp protocol = %q, want default stdio", cfg.MCP.Protocol)
	}
	b, ok := cfg.Boards["it_support"]
	if !ok {
		t.Fatal("it_support board missing")
	}
	if b.BoardID != "abc123" || b.BoardName != "IT Support" {
		t.Errorf("board = %+v", b)
	}
}

func TestEnvOverridesTakePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helpdesk.yaml")
	content := []byte(`
claude:
  api_key: file-key
mcp:
  command: python server.py
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("HELPDESK_CLAUDE_MODEL", "claude-env")
	t.Setenv("HELPDESK_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("HELPDESK_DB", "/tmp/sessions.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Claude.APIKey != "env-key" {
		t.Errorf("api_key = %q, want env-key", cfg.Claude.APIKey)
	}
	if cfg.Claude.Model != "claude-env" {
		t.Errorf("model = %q, want claude-env", cfg.Claude.Model)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("cors origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	if cfg.Session.Backend != "sqlite" || cfg.Session.DBPath != "/tmp/sessions.db" {
		t.Errorf("session = %+v, want sqlite backend at /tmp/sessions.db", cfg.Session)
	}
}

func TestMCPURLEnvSwitchesProtocol(t *testing.T) {
	t.Setenv("HELPDESK_MCP_URL", "http://localhost:7777")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MCP.Protocol != "http" {
		t.Errorf("protocol = %q, want http", cfg.MCP.Protocol)
	}
	if cfg.MCP.BaseURL != "http://localhost:7777" {
		t.Errorf("base_url = %q", cfg.MCP.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid defaults with key",
			mutate: func(c *Config) { c.Claude.APIKey = "k" },
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "bad protocol",
			mutate: func(c *Config) {
				c.Claude.APIKey = "k"
				c.MCP.Protocol = "grpc"
			},
			wantErr: true,
		},
		{
			name: "http protocol needs base url",
			mutate: func(c *Config) {
				c.Claude.APIKey = "k"
				c.MCP.Protocol = "http"
				c.MCP.BaseURL = ""
			},
			wantErr: true,
		},
		{
			name: "bad session backend",
			mutate: func(c *Config) {
				c.Claude.APIKey = "k"
				c.Session.Backend = "redis"
			},
			wantErr: true,
		},
		{
			name: "zero iterations",
			mutate: func(c *Config) {
				c.Claude.APIKey = "k"
				c.Claude.MaxToolIterations = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ClaudeTimeout(); got != 2*time.Minute {
		t.Errorf("ClaudeTimeout = %v, want 2m", got)
	}
	if got := cfg.SweepInterval(); got != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", got)
	}

	cfg.MCP.Timeout = "garbage"
	if got := cfg.MCPTimeout(); got != 30*time.Second {
		t.Errorf("MCPTimeout fallback = %v, want 30s", got)
	}

	if got := cfg.SessionTimeout(); got != time.Hour {
		t.Errorf("SessionTimeout = %v, want 1h", got)
	}
}
