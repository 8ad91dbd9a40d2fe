package db

import "time"

// Run is one extraction batch.
type Run struct {
	ID         string
	Language   string
	Mode       string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Total      int
	Valid      int
	Invalid    int
	Failed     int
}

// Finished reports whether FinishRun was called for the run.
func (r Run) Finished() bool { return !r.FinishedAt.IsZero() }

// RunCounts are the outcome counters stored with a run.
type RunCounts struct {
	Total   int
	Valid   int
	Invalid int
	Failed  int
}
