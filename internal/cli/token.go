package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"n8n-monitor/internal/pkg/jwt"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		scopes  []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API (uses JWT_SECRET)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			tok, err := jwt.NewHMACService(secret, ttl).GenerateToken(subject, scopes, ttl)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "who the token is for")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{jwt.ScopeRead}, "granted scopes ("+jwt.ScopeRead+", "+jwt.ScopeRefresh+")")
	cmd.Flags().DurationVar(&ttl, "ttl", 720*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
