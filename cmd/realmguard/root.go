package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/realm-guard/config"
	"github.com/upb/realm-guard/internal/observability"
	"go.uber.org/zap"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "realmguard",
	Short: "Keycloak bearer token guard",
	Long: `realmguard authenticates requests carrying Keycloak access tokens,
enforces realm and client roles, and advises clients when to refresh.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override LOG_FORMAT (json, text)")
}

// loadRuntime reads configuration and builds the process logger
func loadRuntime(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Observability.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.Observability.LogFormat = logFormat
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	return cfg, logger, nil
}
