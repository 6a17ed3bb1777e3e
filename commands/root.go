// Package commands provides the agromitra CLI: the serve command that runs
// the full backend, and inspection commands for stored workflow runs.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "agromitra"
)

// NewRootCmd builds the CLI command tree.
func NewRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Agricultural advisory backend",
		Long: `Agromitra is an AI-driven agricultural advisory backend.

It serves farmers over REST and WebSocket: crop recommendations,
cultivation plans, pest and disease diagnosis, conversational farm
survey and general chat agents, weather, and file storage.

State lives in NATS JetStream (key-value and object stores); AI
generation goes through a capability-routed Gemini client.`,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(&logLevel))
	cmd.AddCommand(newWorkflowsCmd(&logLevel))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// newLogger builds a slog logger writing to stderr and installs it as the
// process default.
func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)
	return logger
}
