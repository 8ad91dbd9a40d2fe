// Package pipeline runs a feature extraction strategy over a batch of
// propositions on a worker pool, reassembles the records in input order and
// optionally streams the valid ones into the sqlite store.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/argfeat/pkg/dataset"
	"github.com/japaniel/argfeat/pkg/db"
	"github.com/japaniel/argfeat/pkg/feature"
	"github.com/japaniel/argfeat/pkg/lexicon"
)

// Stats counts the outcome of every sentence of a run.
type Stats struct {
	Total   int
	Valid   int
	Invalid int
	// Failed sentences had an annotator error or timeout. They are counted
	// in Invalid as well and kept in Result.Records as invalid records.
	Failed int
}

// Counts converts s for db.FinishRun.
func (s Stats) Counts() db.RunCounts {
	return db.RunCounts{Total: s.Total, Valid: s.Valid, Invalid: s.Invalid, Failed: s.Failed}
}

// Result is the in-memory output of Run. Records has one entry per input
// proposition, in input order.
type Result struct {
	Records []*feature.Record
	Stats   Stats
}

// Runner executes a strategy over a batch.
type Runner struct {
	Strategy feature.Strategy
	Workers  int
	// Timeout bounds each sentence. 0 means no limit.
	Timeout time.Duration
	// BatchSize is the number of records per store transaction.
	BatchSize int
	// Logger is used for skipped sentences and progress. nil means no logging.
	Logger  *zap.Logger
	Metrics *Metrics

	// DB and RunID enable persisting valid records while the run progresses.
	DB    *sql.DB
	RunID string

	// OnProgress is called with the number of records reassembled so far.
	OnProgress func(current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewRunner creates a Runner with default settings.
func NewRunner(s feature.Strategy, workers int) *Runner {
	return &Runner{
		Strategy:  s,
		Workers:   workers,
		BatchSize: 50,
	}
}

// outcome is the result of one job before reassembly.
type outcome struct {
	index   int
	id      string
	record  *feature.Record
	err     error
	elapsed time.Duration
}

// Run extracts every proposition. The lexicon must be fully built before
// the call; it is shared read-only by all workers.
//
// Sentences whose extraction fails are logged, counted as Failed and kept as
// invalid records. Run itself fails only when ctx is canceled, the strategy
// is not implemented, or the store rejects a batch.
func (r *Runner) Run(ctx context.Context, props []dataset.Proposition, lex []lexicon.Entry) (*Result, error) {
	if r.Strategy == nil {
		return nil, errors.New("pipeline: nil strategy")
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	res := &Result{Records: make([]*feature.Record, len(props))}
	res.Stats.Total = len(props)
	if len(props) == 0 {
		return res, nil
	}

	r.Metrics.runStarted()
	defer r.Metrics.runFinished()

	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp WorkerPoolInterface
	if r.PoolFactory != nil {
		wp = r.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}

	var bw *BatchWriter
	if r.DB != nil {
		bw = NewBatchWriter(r.DB, r.BatchSize, 100*time.Millisecond)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome, workers*2)
	done := make(chan error, 1)
	go func() {
		done <- r.collect(results, res, bw, cancel, logger)
	}()

	wp.Start(runCtx)

	var submitErr error
	for i, p := range props {
		idx, p := i, p
		job := func(ctx context.Context) error {
			o := r.extract(ctx, idx, p, lex)
			select {
			case results <- o:
			case <-ctx.Done():
			}
			return nil
		}
		if err := wp.SubmitCtx(runCtx, job); err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				submitErr = fmt.Errorf("submit %s: %w", p.ID(), err)
			}
			cancel()
			break
		}
	}

	// Close waits for every worker, so no job can send after this point.
	wp.Close()
	close(results)
	err := <-done

	if bw != nil {
		if cerr := bw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("store features: %w", cerr)
		}
	}
	if err == nil {
		err = submitErr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err == nil && res.Stats.Valid+res.Stats.Invalid < res.Stats.Total {
		err = fmt.Errorf("pipeline: %d of %d sentences not processed", res.Stats.Total-res.Stats.Valid-res.Stats.Invalid, res.Stats.Total)
	}
	if err != nil {
		return res, err
	}

	logger.Info("extraction finished",
		zap.Int("total", res.Stats.Total),
		zap.Int("valid", res.Stats.Valid),
		zap.Int("invalid", res.Stats.Invalid),
		zap.Int("failed", res.Stats.Failed))
	return res, nil
}

func (r *Runner) extract(ctx context.Context, idx int, p dataset.Proposition, lex []lexicon.Entry) outcome {
	start := time.Now()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	rec, err := r.Strategy.Extract(ctx, feature.Input{ID: p.ID(), Text: p.Text, Lexicon: lex})
	return outcome{index: idx, id: p.ID(), record: rec, err: err, elapsed: time.Since(start)}
}

// collect drains results until the channel is closed, placing records in
// input order and handing each contiguous record to the store.
func (r *Runner) collect(results <-chan outcome, res *Result, bw *BatchWriter, cancel context.CancelFunc, logger *zap.Logger) error {
	var firstErr error
	pending := make(map[int]outcome)
	next := 0
	total := len(res.Records)

	for o := range results {
		if firstErr != nil {
			continue
		}
		if errors.Is(o.err, feature.ErrNotImplemented) {
			firstErr = o.err
			cancel()
			continue
		}
		pending[o.index] = o

		for {
			cur, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)

			rec := r.settle(cur, &res.Stats, logger)
			res.Records[next] = rec

			if bw != nil && rec.Valid() {
				position := next
				err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
					_, err := db.SaveFeatures(tx, r.RunID, position, []*feature.Record{rec})
					return err
				})
				if err != nil {
					firstErr = err
					cancel()
					break
				}
			}

			next++
			if r.OnProgress != nil {
				r.OnProgress(next, total)
			}
		}
	}
	return firstErr
}

// settle turns an outcome into its final record and updates stats.
func (r *Runner) settle(o outcome, stats *Stats, logger *zap.Logger) *feature.Record {
	rec := o.record
	switch {
	case o.err != nil || rec == nil:
		stats.Failed++
		stats.Invalid++
		r.Metrics.observe(OutcomeFailed, o.elapsed)
		logger.Warn("skipping sentence", zap.String("id", o.id), zap.Error(o.err))
		return &feature.Record{ID: o.id, State: feature.Invalid}
	case rec.Valid():
		stats.Valid++
		r.Metrics.observe(OutcomeValid, o.elapsed)
	default:
		stats.Invalid++
		r.Metrics.observe(OutcomeInvalid, o.elapsed)
	}
	return rec
}
