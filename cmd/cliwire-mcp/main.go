// Command cliwire-mcp runs an MCP server exposing the CLI provider
// adapters as tools, over either a stdio or an HTTP transport.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/howard-nolan/cliwire/internal/config"
	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/howard-nolan/cliwire/internal/mcpfront"
	"github.com/howard-nolan/cliwire/internal/mcpstate"
	"github.com/howard-nolan/cliwire/internal/registry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	var (
		configPath string
		transport  string
		host       string
		port       int
		provider   string
	)

	cmd := &cobra.Command{
		Use:   "cliwire-mcp",
		Short: "MCP server exposing cliwire CLI runners via the Model Context Protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cmd.Flags().Changed("provider") {
				cfg.DefaultProvider = provider
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			// Stdio is the protocol channel when --transport stdio is in
			// play, so every log line has to go to stderr regardless of
			// which transport ends up running.
			logger, err := newStderrLogger()
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer logger.Sync()

			overrides := registry.Overrides(cfg.RunnerOverrides())
			reg := registry.New(overrides, logger)
			state := mcpstate.New(cfg.DefaultProviderKind(), reg)
			server := mcpfront.NewServer(state, version)

			switch transport {
			case "stdio":
				logger.Info("starting cliwire MCP server", zap.String("transport", "stdio"))
				return server.Run(cmd.Context(), mcpfront.StdioTransport())
			case "http":
				addr := fmt.Sprintf("%s:%d", host, port)
				logger.Info("starting cliwire MCP server",
					zap.String("transport", "http"),
					zap.String("address", addr))

				httpServer := &http.Server{Addr: addr, Handler: mcpfront.HTTPHandler(server)}
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return fmt.Errorf("http server error: %w", err)
				}
				return nil
			default:
				return fmt.Errorf("unknown transport: %s. valid: stdio, http", transport)
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the gateway config file")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "transport mode: stdio or http")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "HTTP listen host (only used with --transport http)")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP listen port (only used with --transport http)")
	cmd.Flags().StringVar(&provider, "provider", "", fmt.Sprintf("default LLM provider (%s)", llm.ValidKindNames()))

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newStderrLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
