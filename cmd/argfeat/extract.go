package main

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/argfeat/pkg/dataset"
	"github.com/japaniel/argfeat/pkg/db"
	"github.com/japaniel/argfeat/pkg/feature"
	"github.com/japaniel/argfeat/pkg/pipeline"
)

type extractOptions struct {
	input       string
	output      string
	mode        string
	workers     int
	metricsAddr string
	store       string
	create      bool
}

func newExtractCmd(a *app) *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract feature records from a proposition dataset",
		Long: `Extract reads the proposition CSV, runs the extraction strategy over every
sentence on a worker pool and writes the valid records as one JSON object
keyed by proposition ID, in input order.

Examples:
  # Extract with the configured paths
  argfeat extract -c argfeat.yaml

  # Rebuild the dataset from the proposal store first, expose metrics
  argfeat extract --create-dataset --metrics-addr :9102

  # Persist records of this run in a sqlite store
  argfeat extract --store features.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "proposition CSV (default dataset.path)")
	f.StringVarP(&opts.output, "output", "o", "", "feature JSON file (default dataset.features_path)")
	f.StringVarP(&opts.mode, "mode", "m", "", "extraction mode: ARG_DET or ARG_CLF (default extract.mode)")
	f.IntVarP(&opts.workers, "workers", "w", 0, "number of extraction workers (default extract.workers)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address during the run")
	f.StringVar(&opts.store, "store", "", "sqlite feature store DSN (default store.dsn)")
	f.BoolVar(&opts.create, "create-dataset", false, "rebuild the proposition CSV from the proposal store first")
	return cmd
}

func (a *app) runExtract(cmd *cobra.Command, opts *extractOptions) error {
	ctx := cmd.Context()
	cfg := a.cfg
	logger := a.logger

	input := firstNonEmpty(opts.input, cfg.LangPath(cfg.Dataset.Path))
	output := firstNonEmpty(opts.output, cfg.LangPath(cfg.Dataset.FeaturesPath))
	storeDSN := firstNonEmpty(opts.store, cfg.Store.DSN)
	workers := cfg.Extract.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}
	mode, err := feature.ParseMode(firstNonEmpty(opts.mode, cfg.Extract.Mode))
	if err != nil {
		return err
	}

	// The lexicon is complete before any worker starts.
	tax, err := a.loadTaxonomy()
	if err != nil {
		return fmt.Errorf("load lexicon: %w", err)
	}
	lex := tax.Lexicon(true)

	ann, err := a.newAnnotator(workers)
	if err != nil {
		return err
	}

	if opts.create || cfg.Dataset.Create {
		if err := a.buildDataset(ctx, ann, lex, input, nil); err != nil {
			return err
		}
	}

	props, err := dataset.LoadCSV(input, logger)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded", zap.String("path", input), zap.Int("propositions", len(props)))

	strategy, err := a.newStrategy(mode, ann)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	runner := pipeline.NewRunner(strategy, workers)
	runner.Timeout = cfg.Extract.Timeout
	runner.BatchSize = cfg.Extract.BatchSize
	runner.Logger = logger
	runner.Metrics = pipeline.NewMetrics(reg)
	runner.OnProgress = func(current, total int) {
		if current%1000 == 0 {
			logger.Info("progress", zap.Int("done", current), zap.Int("total", total))
		}
	}

	addr := firstNonEmpty(opts.metricsAddr, cfg.Metrics.Addr)
	if addr != "" {
		stop, err := serveMetrics(addr, reg, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	var store *sql.DB
	if storeDSN != "" {
		store, err = db.Open(storeDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		runID, err := db.CreateRun(store, cfg.Language, string(mode))
		if err != nil {
			return err
		}
		runner.DB = store
		runner.RunID = runID
		runner.Logger = logger.With(zap.String("run", runID))
	}

	start := time.Now()
	res, runErr := runner.Run(ctx, props, lex)
	if store != nil && res != nil {
		if err := db.FinishRun(store, runner.RunID, res.Stats.Counts()); err != nil {
			logger.Warn("failed to finish run", zap.Error(err))
		}
	}
	if runErr != nil {
		return fmt.Errorf("extract: %w", runErr)
	}

	var written int
	err = dataset.WriteFileAtomic(output, func(w io.Writer) error {
		n, err := feature.WriteJSON(w, res.Records)
		written = n
		return err
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	cmd.Printf("Extracted %d sentences in %s: %d valid, %d invalid, %d failed.\n",
		res.Stats.Total, time.Since(start).Round(time.Millisecond), res.Stats.Valid, res.Stats.Invalid, res.Stats.Failed)
	cmd.Printf("Wrote %d records to %s\n", written, output)
	return nil
}
