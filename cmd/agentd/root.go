package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-agent-backend/internal/config"
	"github.com/tbourn/go-agent-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	envFile string

	cfg    config.Config
	logger zerolog.Logger
)

// Execute adds all child commands to the root command and runs it. It is
// called once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootCmd serves the API when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:           "agentd",
	Short:         "Live agent backend (presence, answers, inbox, rooms, websocket hub)",
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return bootstrap()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "",
		"load environment variables from this file before reading config (default .env when present)")
}

// bootstrap loads the env file, then config, then installs the logger.
// Variables already present in the environment win over the file.
func bootstrap() error {
	switch {
	case envFile != "":
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	default:
		if _, err := os.Stat(".env"); err == nil {
			_ = godotenv.Load()
		}
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger = sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)
	return nil
}
