package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/estebmaister/supportbot/internal/config"
	"github.com/estebmaister/supportbot/internal/logger"
	"github.com/estebmaister/supportbot/pkg/agent"
	"github.com/estebmaister/supportbot/pkg/gateway"
	"github.com/estebmaister/supportbot/pkg/llm"
	"github.com/estebmaister/supportbot/pkg/mcp"
	"github.com/estebmaister/supportbot/pkg/prompt"
	"github.com/estebmaister/supportbot/pkg/session"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the supportbot HTTP service",
	Long: `Start the supportbot HTTP service in the foreground.
The service exposes the chat API and the web chat UI, and stops
gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if rootCmd.PersistentFlags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: true,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer lg.Close()
	zl := lg.GetZerolog()

	zl.Info().
		Str("mcp_server", cfg.MCP.ServerURL).
		Str("model", cfg.LLM.Model).
		Msg("Starting supportbot")

	store := session.New(session.Config{
		Capacity:         cfg.Conversations.Capacity,
		MaxConversations: cfg.Conversations.Max,
		StaleTimeout:     time.Duration(cfg.Conversations.StaleTimeoutMinutes) * time.Minute,
	})

	provider, err := llm.NewProvider(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create model provider: %w", err)
	}

	tools := mcp.NewClient(cfg.MCP.ServerURL)
	prompts := prompt.NewLoader(cfg.Prompts.Dir)

	bot, err := agent.New(agent.Config{
		Store:         store,
		Model:         provider,
		Tools:         tools,
		SystemPrompt:  prompts.SupportAgent(),
		HistoryWindow: cfg.Conversations.HistoryWindow,
		Logger:        zl,
	})
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	server, err := gateway.NewServer(gateway.Config{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		StaticDir:  cfg.Server.StaticDir,
		Dispatcher: bot.Chat,
		Tools:      tools,
		Model:      provider,
		Prompts:    prompts,
		Logger:     zl,
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway server: %w", err)
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start gateway server: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	zl.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	return server.Stop()
}
