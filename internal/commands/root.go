// Package commands holds the studyflow command-line entrypoints.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/studyflow-api/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "studyflow",
	Short: "Personal assignment tracker with LMS sync",
	Long: `studyflow keeps manual and LMS-imported assignments in one place, ranks them
by urgency and keeps the dashboard live as work changes.`,
	SilenceUsage: true,
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statsCmd)
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "studyflow").Logger()
}

// withContainer loads configuration, wires services and hands them to fn.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	// Day boundaries for tiers and stats follow the configured timezone.
	time.Local = loc

	logger := newLogger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := newContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	return fn(ctx, c)
}
