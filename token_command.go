package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wifski/routes"
	"wifski/utils"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for /convert using the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if cfg.Server.JWTSecret == "" {
				return errors.New("server.jwt_secret is not configured")
			}
			claims := utils.NewConvertClaims(cfg.Server.JWTIssuer, subject, ttl)
			token, err := utils.CreateConvertJWT(claims, []byte(cfg.Server.JWTSecret))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "wifski-client", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime; 0 for no expiry")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := routes.BuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "wifski %s (commit %s, built %s, %s)\n",
				info.Version, info.GitCommit, info.BuildTime, info.GoVersion)
		},
	}
}
