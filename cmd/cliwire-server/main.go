// Command cliwire-server runs the OpenAI-compatible REST gateway in front
// of the CLI provider adapters.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/howard-nolan/cliwire/internal/config"
	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/howard-nolan/cliwire/internal/metrics"
	"github.com/howard-nolan/cliwire/internal/registry"
	"github.com/howard-nolan/cliwire/internal/restfront"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		host       string
		port       int
		provider   string
	)

	cmd := &cobra.Command{
		Use:   "cliwire-server",
		Short: "OpenAI-compatible REST API for cliwire CLI runners",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			// Flags override whatever the config file and environment set,
			// but only when the operator actually passed them.
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("provider") {
				cfg.DefaultProvider = provider
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer logger.Sync()

			overrides := registry.Overrides(cfg.RunnerOverrides())
			reg := registry.New(overrides, logger)
			collector := metrics.NewCollector("cliwire")

			srv := restfront.New(reg, cfg.DefaultProviderKind(), logger, collector)

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			httpServer := &http.Server{
				Addr:         addr,
				Handler:      srv,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			logger.Info("starting cliwire REST API server",
				zap.String("address", addr),
				zap.String("default_provider", cfg.DefaultProvider))

			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the gateway config file")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "HTTP listen host")
	cmd.Flags().IntVar(&port, "port", 3000, "HTTP listen port")
	cmd.Flags().StringVar(&provider, "provider", "", fmt.Sprintf("default LLM provider (%s)", llm.ValidKindNames()))

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
