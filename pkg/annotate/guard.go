package annotate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Serialized wraps an annotator so that at most one call runs at a time.
type Serialized struct {
	mu    sync.Mutex
	inner Annotator
}

// NewSerialized returns a mutex-guarded view of a.
func NewSerialized(a Annotator) *Serialized {
	return &Serialized{inner: a}
}

func (s *Serialized) Language() string { return s.inner.Language() }

func (s *Serialized) Annotate(ctx context.Context, text string) (*Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Annotate(ctx, text)
}

func (s *Serialized) SplitSentences(ctx context.Context, text string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.SplitSentences(ctx, text)
}

// ErrEmptyPool is returned by NewPool when no annotators are given.
var ErrEmptyPool = errors.New("annotate: empty pool")

// Pool lends each call its own annotator instance, so n instances serve n
// concurrent callers without sharing state. Callers beyond n wait for a free
// instance or for their context to end.
type Pool struct {
	free     chan Annotator
	language string
}

// NewPool builds a pool from pre-constructed instances, which must all
// work on the same language.
func NewPool(instances ...Annotator) (*Pool, error) {
	if len(instances) == 0 {
		return nil, ErrEmptyPool
	}
	p := &Pool{free: make(chan Annotator, len(instances)), language: instances[0].Language()}
	for _, a := range instances {
		if a.Language() != p.language {
			return nil, fmt.Errorf("annotate: pool mixes languages %q and %q", p.language, a.Language())
		}
		p.free <- a
	}
	return p, nil
}

// NewPoolFunc builds a pool of n instances created by factory.
func NewPoolFunc(n int, factory func() (Annotator, error)) (*Pool, error) {
	if n < 1 {
		return nil, ErrEmptyPool
	}
	instances := make([]Annotator, 0, n)
	for i := 0; i < n; i++ {
		a, err := factory()
		if err != nil {
			return nil, fmt.Errorf("annotate: create instance %d: %w", i, err)
		}
		instances = append(instances, a)
	}
	return NewPool(instances...)
}

// Size returns the number of instances in the pool.
func (p *Pool) Size() int { return cap(p.free) }

func (p *Pool) Language() string { return p.language }

func (p *Pool) acquire(ctx context.Context) (Annotator, error) {
	select {
	case a := <-p.free:
		return a, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) Annotate(ctx context.Context, text string) (*Annotation, error) {
	a, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { p.free <- a }()
	return a.Annotate(ctx, text)
}

func (p *Pool) SplitSentences(ctx context.Context, text string) ([]string, error) {
	a, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { p.free <- a }()
	return a.SplitSentences(ctx, text)
}

// Timeout bounds every call to the wrapped annotator. The inner call keeps
// running in the background after a timeout (most annotators cannot be
// interrupted) but its result is discarded and ErrTimeout is returned.
//
// Wrap Serialized or Pool with Timeout, not the other way round, so the wait
// for the lock counts against the deadline.
type Timeout struct {
	inner Annotator
	d     time.Duration
}

// WithTimeout returns a as is when d <= 0.
func WithTimeout(a Annotator, d time.Duration) Annotator {
	if d <= 0 {
		return a
	}
	return &Timeout{inner: a, d: d}
}

func (t *Timeout) Language() string { return t.inner.Language() }

func (t *Timeout) Annotate(ctx context.Context, text string) (*Annotation, error) {
	type result struct {
		ann *Annotation
		err error
	}
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		ann, err := t.inner.Annotate(ctx, text)
		done <- result{ann, err}
	}()
	select {
	case r := <-done:
		return r.ann, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, t.d)
		}
		return nil, ctx.Err()
	}
}

func (t *Timeout) SplitSentences(ctx context.Context, text string) ([]string, error) {
	type result struct {
		sents []string
		err   error
	}
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		sents, err := t.inner.SplitSentences(ctx, text)
		done <- result{sents, err}
	}()
	select {
	case r := <-done:
		return r.sents, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, t.d)
		}
		return nil, ctx.Err()
	}
}
