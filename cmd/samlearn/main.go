package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omereliy/macq-implementSAA/internal/config"
	"github.com/omereliy/macq-implementSAA/internal/logging"
	"github.com/omereliy/macq-implementSAA/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Resolved at startup
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "samlearn",
	Short: "samlearn - lifted STRIPS action models from state traces",
	Long: `samlearn learns lifted STRIPS action models from fully observed
state/action traces.

Two learners are available:
  - esam: safe learning under ambiguous parameter bindings (default)
  - sam:  the unambiguous-binding learner, which reads every binding

Learned models can be written as PDDL, JSON or YAML, stored in a local
SQLite catalog and audited against traces with Mangle.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.For(logger, logging.CategoryBoot).Debug("config resolved",
			zap.String("config", configPath),
			zap.String("algorithm", cfg.Extract.Algorithm),
			zap.String("store", cfg.Store.Path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Timeout for a single command")

	rootCmd.AddCommand(learnCmd, auditCmd, modelsCmd, generateCmd)
}

// commandContext bounds a command by the global timeout.
func commandContext() (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

func openStore() (*store.ModelStore, error) {
	return store.Open(cfg.Store.Path, logging.For(logger, logging.CategoryStore))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
