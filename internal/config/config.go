// Package config loads helpdesk configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all helpdesk configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Claude API configuration
	Claude ClaudeConfig `yaml:"claude"`

	// MCP server configuration
	MCP MCPConfig `yaml:"mcp"`

	// HTTP server configuration
	Server ServerConfig `yaml:"server"`

	// Session store configuration
	Session SessionConfig `yaml:"session"`

	// Prompt configuration
	Prompts PromptConfig `yaml:"prompts"`

	// Board routing: request type -> Trello board
	Boards map[string]BoardConfig `yaml:"boards"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ClaudeConfig configures the Anthropic messages API client.
type ClaudeConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	Timeout   string `yaml:"timeout"`

	// MaxToolIterations is the hard ceiling on tool-use round trips
	// for a single chat request.
	MaxToolIterations int `yaml:"max_tool_iterations"`
}

// MCPConfig configures the MCP tool server connection.
type MCPConfig struct {
	// Protocol is "stdio" or "http".
	Protocol string `yaml:"protocol"`
	// Command launches the stdio server, e.g. "python ../mcp-server/server.py".
	Command string `yaml:"command"`
	// BaseURL is used for the http protocol.
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// SessionConfig configures the conversation session store.
type SessionConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	// DBPath is the SQLite database path (sqlite backend only).
	DBPath string `yaml:"db_path"`
	// TimeoutMinutes is the inactivity window before a session expires.
	TimeoutMinutes int `yaml:"timeout_minutes"`
	// SweepInterval is how often the expiry sweep runs.
	SweepInterval string `yaml:"sweep_interval"`
}

// PromptConfig configures the prompt composer.
type PromptConfig struct {
	Dir string `yaml:"dir"`
	// WatchReload enables the fsnotify watcher for edit-and-reload.
	WatchReload bool `yaml:"watch_reload"`
}

// BoardConfig maps a request type to a Trello board.
type BoardConfig struct {
	BoardID   string `yaml:"board_id"`
	BoardName string `yaml:"board_name"`
}

// LoggingConfig controls the category file logger.
type LoggingConfig struct {
	Dir        string          `yaml:"dir"`
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "helpdesk",
		Version: "1.0.0",
		Claude: ClaudeConfig{
			BaseURL:           "https://api.anthropic.com/v1",
			Model:             "claude-sonnet-4-20250514",
			MaxTokens:         4096,
			Timeout:           "2m",
			MaxToolIterations: 10,
		},
		MCP: MCPConfig{
			Protocol: "stdio",
			Command:  "python ../mcp-server/server.py",
			Timeout:  "30s",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Session: SessionConfig{
			Backend:        "memory",
			DBPath:         "helpdesk.db",
			TimeoutMinutes: 60,
			SweepInterval:  "5m",
		},
		Prompts: PromptConfig{
			Dir:         "prompts",
			WatchReload: true,
		},
		Boards: map[string]BoardConfig{},
		Logging: LoggingConfig{
			Dir:   "logs",
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(".", "helpdesk.yaml")
}

// Load reads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets environment variables take precedence over file
// values. Useful for deployments where secrets never touch disk.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Claude.APIKey = key
	}
	if model := os.Getenv("HELPDESK_CLAUDE_MODEL"); model != "" {
		c.Claude.Model = model
	}
	if cmd := os.Getenv("HELPDESK_MCP_COMMAND"); cmd != "" {
		c.MCP.Command = cmd
	}
	if url := os.Getenv("HELPDESK_MCP_URL"); url != "" {
		c.MCP.BaseURL = url
		c.MCP.Protocol = "http"
	}
	if origins := os.Getenv("HELPDESK_CORS_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				list = append(list, trimmed)
			}
		}
		c.Server.CORSOrigins = list
	}
	if db := os.Getenv("HELPDESK_DB"); db != "" {
		c.Session.Backend = "sqlite"
		c.Session.DBPath = db
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Claude.APIKey == "" {
		return fmt.Errorf("claude.api_key is required (or set ANTHROPIC_API_KEY)")
	}
	if c.Claude.MaxTokens <= 0 {
		return fmt.Errorf("claude.max_tokens must be positive")
	}
	if c.Claude.MaxToolIterations <= 0 {
		return fmt.Errorf("claude.max_tool_iterations must be positive")
	}
	switch c.MCP.Protocol {
	case "stdio":
		if strings.TrimSpace(c.MCP.Command) == "" {
			return fmt.Errorf("mcp.command is required for stdio protocol")
		}
	case "http":
		if c.MCP.BaseURL == "" {
			return fmt.Errorf("mcp.base_url is required for http protocol")
		}
	default:
		return fmt.Errorf("unsupported mcp.protocol: %s", c.MCP.Protocol)
	}
	switch c.Session.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported session.backend: %s", c.Session.Backend)
	}
	if c.Session.TimeoutMinutes <= 0 {
		return fmt.Errorf("session.timeout_minutes must be positive")
	}
	return nil
}

// ClaudeTimeout parses the Claude request timeout with a sane fallback.
func (c *Config) ClaudeTimeout() time.Duration {
	return parseDuration(c.Claude.Timeout, 2*time.Minute)
}

// MCPTimeout parses the MCP call timeout with a sane fallback.
func (c *Config) MCPTimeout() time.Duration {
	return parseDuration(c.MCP.Timeout, 30*time.Second)
}

// SessionTimeout returns the session expiry window.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutMinutes) * time.Minute
}

// SweepInterval parses the sweep interval with a sane fallback.
func (c *Config) SweepInterval() time.Duration {
	return parseDuration(c.Session.SweepInterval, 5*time.Minute)
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
