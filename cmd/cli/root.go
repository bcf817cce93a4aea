package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	baseURL string
	timeout time.Duration
	token   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "gosettle-cli",
		Short:         "GoSettle CLI tool",
		Long:          `A command line interface for the GoSettle group settlement API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("GOSETTLE_URL", "http://localhost:8080"), "Base URL of the GoSettle API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("GOSETTLE_TOKEN"), "Bearer token (defaults to $GOSETTLE_TOKEN)")

	rootCmd.AddCommand(
		loginCmd(opts),
		optimizeCmd(opts),
		balanceCmd(opts),
		settleCmd(opts),
		simulateCmd(),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
