// Command helpdesk runs the chat backend for AI-assisted Trello ticket
// management: an HTTP API that drives Claude tool-use conversations against
// a Trello MCP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"helpdesk/internal/boards"
	"helpdesk/internal/claude"
	"helpdesk/internal/config"
	"helpdesk/internal/logging"
	"helpdesk/internal/mcp"
	"helpdesk/internal/orchestrator"
	"helpdesk/internal/prompt"
	"helpdesk/internal/server"
	"helpdesk/internal/session"
	"helpdesk/internal/trello"
)

// version is set at build time via -ldflags.
var version = "1.0.0-dev"

var (
	cfgFile string
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "helpdesk",
	Short: "Chat backend for AI-assisted Trello ticket management",
	Long: `helpdesk is a chat backend that routes user messages through Claude
with tool access to a Trello MCP server. It exposes a small HTTP API:
chat, session reset, and health.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("helpdesk %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Initialize(cfg.Logging.Dir, logging.Config{
		DebugMode:  cfg.Logging.DebugMode,
		Categories: cfg.Logging.Categories,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.JSONFormat,
	}); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer logging.CloseAll()

	logging.Boot("helpdesk %s starting", version)
	logger.Info("starting helpdesk", zap.String("version", version), zap.String("addr", cfg.Addr()))

	// Session store
	var store session.Store
	switch cfg.Session.Backend {
	case "sqlite":
		store, err = session.NewSQLiteStore(cfg.Session.DBPath, cfg.SessionTimeout())
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
	default:
		store = session.NewMemoryStore(cfg.SessionTimeout())
	}
	defer store.Close()

	// Prompts
	prompts := prompt.NewManager(cfg.Prompts.Dir)

	// MCP client; startup fails if the tool server is unreachable.
	var mcpClient *mcp.Client
	if cfg.MCP.Protocol == "http" {
		mcpClient = mcp.NewHTTPClient(cfg.MCP.BaseURL, cfg.MCPTimeout())
	} else {
		mcpClient = mcp.NewStdioClient(cfg.MCP.Command, cfg.MCPTimeout())
	}
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer connectCancel()
	if err := mcpClient.Connect(connectCtx); err != nil {
		logging.BootError("MCP connect failed: %v", err)
		return fmt.Errorf("connect MCP server: %w", err)
	}
	defer mcpClient.Close()
	logger.Info("MCP client connected", zap.Int("tools", len(mcpClient.ToolSchemas())))

	// Claude client
	model := claude.NewClient(claude.Config{
		APIKey:    cfg.Claude.APIKey,
		BaseURL:   cfg.Claude.BaseURL,
		Model:     cfg.Claude.Model,
		MaxTokens: cfg.Claude.MaxTokens,
		Timeout:   cfg.ClaudeTimeout(),
	})

	// Board routing, bridge, orchestrator
	router := boards.NewRouter(boardOverrides(cfg))
	bridge := trello.NewBridge(mcpClient)
	orch := orchestrator.New(model, bridge, mcpClient, prompts, router, cfg.Claude.MaxToolIterations)

	srv := server.New(server.Config{
		Name:        "Trello AI Assistant API",
		Version:     version,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, store, orch, model, mcpClient, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Addr()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		err := session.NewSweeper(store, cfg.SweepInterval()).Run(gctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	if cfg.Prompts.WatchReload {
		g.Go(func() error {
			err := prompts.Watch(gctx)
			if err == context.Canceled {
				return nil
			}
			if err != nil {
				// Prompt reload is a development convenience; its failure
				// must not take the service down.
				logger.Warn("prompt watcher stopped", zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("helpdesk stopped")
	return nil
}

func boardOverrides(cfg *config.Config) map[string]boards.Board {
	if len(cfg.Boards) == 0 {
		return nil
	}
	out := make(map[string]boards.Board, len(cfg.Boards))
	for requestType, b := range cfg.Boards {
		out[requestType] = boards.Board{ID: b.BoardID, Name: b.BoardName}
	}
	return out
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
