package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/ultramynd/notesync/internal/auth"
	"github.com/ultramynd/notesync/internal/config"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <owner-id>",
	Short: "Issue a bearer token for an owner",
	Long:  "Sign a bearer token with the configured secret. Intended for development and testing.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ttl := tokenTTL
		if ttl == 0 {
			ttl = time.Duration(cfg.Auth.TokenTTL)
		}

		tok, err := auth.IssueToken([]byte(jwtSecret(cfg)), cfg.Auth.Issuer, args[0], ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default from auth.token_ttl)")
}
