package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-agent-backend/internal/http/middleware"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed admin token for the console or websocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Auth.JWTSecret == "" {
			return errors.New("token: JWT_SECRET is not set")
		}
		auth := middleware.NewAdminAuth(cfg.Auth.JWTSecret, cfg.Auth.JWTCookie)
		tok, err := auth.IssueToken(tokenSubject, middleware.AdminRole, tokenTTL)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
		return err
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "subject (sub) claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
