// Package resolve links names of one dataset to the closest name of another
// and accepts the link only above a similarity threshold.
package resolve

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/okian/squadlink/internal/domain/names"
	"github.com/okian/squadlink/internal/domain/scoring"
)

// Defaults for resolution.
const (
	DefaultThreshold = 85
	DefaultSentinel  = "N/A"
)

// Candidate is a name from the reference dataset and the value it carries.
type Candidate struct {
	Name  string
	Value string
}

// Index is the read-only candidate pool. Names are normalized and kept in
// first-seen order; when two candidates share a normalized name the later
// value replaces the earlier one.
type Index struct {
	names  []string
	values map[string]string
}

// NewIndex normalizes and indexes candidates.
func NewIndex(candidates []Candidate) *Index {
	idx := &Index{values: make(map[string]string, len(candidates))}
	for _, c := range candidates {
		n := names.Normalize(c.Name)
		if _, ok := idx.values[n]; !ok {
			idx.names = append(idx.names, n)
		}
		idx.values[n] = c.Value
	}
	return idx
}

// Len returns the number of distinct normalized names.
func (i *Index) Len() int { return len(i.names) }

// Match is the outcome of resolving one target.
type Match struct {
	Target    string
	Candidate string // best candidate, empty when the pool is empty
	Score     float64
	Accepted  bool
	Value     string // candidate value when accepted, sentinel otherwise
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithScorer replaces the token-sort scorer.
func WithScorer(s scoring.Scorer) Option {
	return func(r *Resolver) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithThreshold sets the lowest accepted score.
func WithThreshold(t float64) Option {
	return func(r *Resolver) { r.threshold = t }
}

// WithSentinel sets the value reported for unaccepted targets.
func WithSentinel(s string) Option {
	return func(r *Resolver) {
		if s != "" {
			r.sentinel = s
		}
	}
}

// WithWorkers sets the parallelism of ResolveAll.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// Resolver matches targets against an Index.
type Resolver struct {
	index     *Index
	scorer    scoring.Scorer
	threshold float64
	sentinel  string
	workers   int
}

// New creates a Resolver over idx.
func New(idx *Index, opts ...Option) *Resolver {
	r := &Resolver{
		index:     idx,
		scorer:    scoring.NewTokenSortScorer(),
		threshold: DefaultThreshold,
		sentinel:  DefaultSentinel,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve normalizes target and returns its best match. The highest score
// wins and ties keep the earliest candidate. The match is accepted when the
// score is at or above the threshold.
func (r *Resolver) Resolve(target string) Match {
	m := Match{Target: target, Value: r.sentinel}
	if r.index.Len() == 0 {
		return m
	}
	norm := names.Normalize(target)
	m.Score = -1
	for _, c := range r.index.names {
		if s := r.scorer.Score(norm, c); s > m.Score {
			m.Score = s
			m.Candidate = c
		}
	}
	if m.Score >= r.threshold {
		m.Accepted = true
		m.Value = r.index.values[m.Candidate]
	}
	return m
}

// ResolveAll resolves targets in parallel. Result i belongs to targets[i].
func (r *Resolver) ResolveAll(ctx context.Context, targets []string) ([]Match, error) {
	if r.index.Len() == 0 {
		return nil, ErrEmptyPool
	}
	out := make([]Match, len(targets))
	if len(targets) == 0 {
		return out, nil
	}

	pool, err := ants.NewPool(r.workers)
	if err != nil {
		return nil, fmt.Errorf("create resolver pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			out[i] = r.Resolve(target)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit %q: %w", target, err)
		}
	}
	wg.Wait()
	return out, nil
}
