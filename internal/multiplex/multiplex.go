// Package multiplex fans a single prompt out to several providers
// concurrently and aggregates their individual outcomes.
package multiplex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/howard-nolan/cliwire/internal/llm"
)

// ProviderLookup resolves a provider kind to a live adapter, constructing
// it on first use. *registry.Registry satisfies this.
type ProviderLookup interface {
	Get(kind llm.Kind) (llm.Provider, error)
}

// Outcome is one provider's result from a multiplex dispatch. Content and
// Model are set on success; Err is set on failure — never both.
type Outcome struct {
	Provider   llm.Kind
	Content    string
	Model      string
	Err        error
	DurationMS int64
}

// Result is the aggregated outcome of one multiplex call.
type Result struct {
	Outcomes []Outcome
	Summary  string
}

// Execute runs req against every provider in kinds concurrently. Results
// are written into a slice pre-sized to len(kinds), one indexed goroutine
// write per provider, synchronized with a WaitGroup — not a channel — so
// the output order always matches the input order regardless of which
// provider finishes first.
func Execute(ctx context.Context, reg ProviderLookup, kinds []llm.Kind, req *llm.ChatRequest) Result {
	outcomes := make([]Outcome, len(kinds))

	var wg sync.WaitGroup
	wg.Add(len(kinds))
	for i, kind := range kinds {
		go func(i int, kind llm.Kind) {
			defer wg.Done()
			outcomes[i] = dispatchOne(ctx, reg, kind, req)
		}(i, kind)
	}
	wg.Wait()

	return Result{Outcomes: outcomes, Summary: buildSummary(outcomes)}
}

func dispatchOne(ctx context.Context, reg ProviderLookup, kind llm.Kind, req *llm.ChatRequest) Outcome {
	start := time.Now()

	provider, err := reg.Get(kind)
	if err != nil {
		return Outcome{Provider: kind, Err: err, DurationMS: elapsedMS(start)}
	}

	resp, err := provider.Complete(ctx, req)
	if err != nil {
		return Outcome{Provider: kind, Err: err, DurationMS: elapsedMS(start)}
	}

	return Outcome{
		Provider:   kind,
		Content:    resp.Content,
		Model:      resp.Model,
		DurationMS: elapsedMS(start),
	}
}

func buildSummary(outcomes []Outcome) string {
	total := len(outcomes)
	succeeded := 0
	for _, o := range outcomes {
		if o.Err == nil {
			succeeded++
		}
	}
	failed := total - succeeded
	return fmt.Sprintf("%d succeeded, %d failed out of %d providers", succeeded, failed, total)
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
