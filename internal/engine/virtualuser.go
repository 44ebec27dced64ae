package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/pulseload/pulse/internal/plan"
	"github.com/pulseload/pulse/internal/results"
	"github.com/pulseload/pulse/internal/variables"
)

// runVirtualUser drives one user's iterations according to the thread
// group's loop policy, emitting exactly one event per attempted
// request until the policy is exhausted or cancellation is observed.
func runVirtualUser(ctx context.Context, tg *plan.ThreadGroup, testPlan *plan.TestPlan, requests []*plan.HttpRequest, client *http.Client, store *variables.Store, out chan<- results.RequestResultEvent) {
	policy := tg.LoopPolicy
	if policy == nil {
		policy = plan.DefaultLoopPolicy()
	}

	switch p := policy.(type) {
	case plan.FiniteLoop:
		for i := uint64(0); i < p.Count; i++ {
			if !runIteration(ctx, tg, testPlan, requests, client, store, out) {
				return
			}
		}

	case plan.DurationLoop:
		deadline := time.Now().Add(time.Duration(p.Seconds) * time.Second)
		for time.Now().Before(deadline) {
			if !runIteration(ctx, tg, testPlan, requests, client, store, out) {
				return
			}
		}

	case plan.InfiniteLoop:
		for {
			if !runIteration(ctx, tg, testPlan, requests, client, store, out) {
				return
			}
		}
	}
}

// runIteration merges one row from each configured CSV source into
// the shared store, then executes every request in order, delivering
// each request's event before checking for cancellation again. It
// returns false if cancellation was observed, signalling the caller to
// stop iterating entirely.
func runIteration(ctx context.Context, tg *plan.ThreadGroup, testPlan *plan.TestPlan, requests []*plan.HttpRequest, client *http.Client, store *variables.Store, out chan<- results.RequestResultEvent) bool {
	for _, csv := range testPlan.CsvDataSources {
		if row, ok := csv.NextRow(); ok {
			store.PutAll(row)
		}
	}

	for _, req := range requests {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		event := executeSingleRequest(ctx, tg, testPlan, req, client, store)

		out <- event
	}

	return true
}
