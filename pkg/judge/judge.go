// Package judge asks an external oracle whether a candidate event fits a
// free-text request.
package judge

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dobromatch/dobromatch/pkg/llm"
)

const DefaultMaxConcurrency = 4

// Oracle returns the raw verdict text for a query/candidate pair. A
// verdict starting with "1" means the candidate fits.
type Oracle interface {
	Judge(ctx context.Context, query, candidate string) (string, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, query, candidate string) (string, error)

func (f OracleFunc) Judge(ctx context.Context, query, candidate string) (string, error) {
	return f(ctx, query, candidate)
}

// Logger is the subset of a leveled logger the filter uses.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// Filter applies an Oracle to candidates. When the oracle fails the
// candidate is kept.
type Filter struct {
	Oracle         Oracle
	MaxConcurrency int
	Log            Logger
}

// New returns a filter with the default concurrency.
func New(o Oracle) *Filter {
	return &Filter{Oracle: o, MaxConcurrency: DefaultMaxConcurrency}
}

func (f *Filter) logger() Logger {
	if f.Log == nil {
		return nopLogger{}
	}
	return f.Log
}

// Keep reports whether candidate passes. An oracle error keeps it, but an
// empty reply is a verdict like any other and drops it.
func (f *Filter) Keep(ctx context.Context, query, candidate string) bool {
	verdict, err := f.Oracle.Judge(ctx, query, candidate)
	if errors.Is(err, llm.ErrEmptyResponse) {
		f.logger().Debugf("[judge] empty verdict, dropping candidate")
		return false
	}
	if err != nil {
		f.logger().Warnf("[judge] oracle failed, keeping candidate: %v", err)
		return true
	}
	keep := strings.HasPrefix(strings.TrimSpace(verdict), "1")
	f.logger().Debugf("[judge] verdict %q keep=%v", verdict, keep)
	return keep
}

// Verdicts judges every candidate and returns keep flags by position. A
// nil filter, a nil oracle or a blank query keeps everything.
func (f *Filter) Verdicts(ctx context.Context, query string, candidates []string) []bool {
	out := make([]bool, len(candidates))
	if f == nil || f.Oracle == nil || strings.TrimSpace(query) == "" {
		for i := range out {
			out[i] = true
		}
		return out
	}

	workerLimit := f.MaxConcurrency
	if workerLimit <= 0 {
		workerLimit = DefaultMaxConcurrency
	}
	sem := make(chan struct{}, workerLimit)

	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(idx int, candidate string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out[idx] = f.Keep(ctx, query, candidate)
		}(i, c)
	}
	wg.Wait()
	return out
}

// Apply returns the elements of items whose candidate text passes, in
// their original relative order.
func Apply[T any](ctx context.Context, f *Filter, query string, items []T, text func(T) string) []T {
	if len(items) == 0 {
		return items
	}
	candidates := make([]string, len(items))
	for i, it := range items {
		candidates[i] = text(it)
	}

	keep := f.Verdicts(ctx, query, candidates)
	out := make([]T, 0, len(items))
	for i, it := range items {
		if keep[i] {
			out = append(out, it)
		}
	}
	return out
}
