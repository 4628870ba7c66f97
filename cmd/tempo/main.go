// Package main is the entry point for the tempo command line.
// It loads configuration, builds the service manager and dispatches commands.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Bluefinee/tempo-ai-sub007/internal/config"
	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
	"github.com/Bluefinee/tempo-ai-sub007/internal/services"
	"github.com/Bluefinee/tempo-ai-sub007/internal/version"
)

// cli carries state shared by every subcommand.
type cli struct {
	out io.Writer
	cfg *config.Config

	fixturePath string
	logLevel    string
	noAdvice    bool
	noNotify    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   version.Name,
		Short: "tempo - biometric wellbeing from platform health telemetry",
		Long: `tempo aggregates daily health telemetry into a snapshot, caches it per
calendar day, classifies the result against your personal trend and asks the
advisory service for guidance.

Configuration comes from TEMPO_* environment variables or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.loadConfig()
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&c.fixturePath, "fixture", "", "serve telemetry from a fixture file instead of the export directory")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&c.noAdvice, "no-advice", false, "skip the advisory service")
	root.PersistentFlags().BoolVar(&c.noNotify, "no-notify", false, "disable desktop notifications")

	root.AddCommand(
		c.refreshCmd(),
		c.statusCmd(),
		c.trendCmd(),
		c.historyCmd(),
		c.purgeCmd(),
		c.watchCmd(),
		versionCmd(out),
	)
	return root
}

// loadConfig reads configuration and applies flag overrides.
func (c *cli) loadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if c.fixturePath != "" {
		cfg.DataSource = config.SourceFixture
		cfg.FixturePath = c.fixturePath
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.noAdvice {
		cfg.DeliveryEnabled = false
	}
	if c.noNotify {
		cfg.Notifications = false
	}

	logger.Configure(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	c.cfg = cfg
	return nil
}

// withManager builds a manager, runs fn and closes the manager.
func (c *cli) withManager(advice bool, fn func(*services.Manager) error) error {
	cfg := *c.cfg
	if !advice {
		cfg.DeliveryEnabled = false
	}

	mgr, err := services.NewManager(&cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			logger.Warn("error closing services", "error", closeErr)
		}
	}()

	return fn(mgr)
}

func versionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(out, version.Info())
		},
	}
}
