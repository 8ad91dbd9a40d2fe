// Package main implements the argfeat CLI: argumentative feature extraction
// over proposition datasets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/argfeat/internal/config"
	"github.com/japaniel/argfeat/internal/logging"
)

var version = "dev"

func main() {
	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	language   string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "argfeat",
		Short: "Argumentative feature extraction for argument mining",
		Long: `argfeat turns the sentences of citizen proposals into feature records
for argument-mining classifiers: bag-of-words n-grams, POS n-grams, linker
keywords, named entities and parse-tree statistics.

Configuration is read from the --config YAML file and ARGFEAT_* environment
variables (ARGFEAT_EXTRACT_WORKERS -> extract.workers).`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to the YAML configuration file")
	root.PersistentFlags().StringVarP(&a.language, "language", "l", "", "language of the texts (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")

	root.AddCommand(newExtractCmd(a))
	root.AddCommand(newDatasetCmd(a))
	root.AddCommand(newTaxonomyCmd(a))
	root.AddCommand(newSimpleCmd(a))
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.language != "" {
		cfg.Language = a.language
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.With(zap.String("language", cfg.Language))
	return nil
}
