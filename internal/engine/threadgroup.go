package engine

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pulseload/pulse/internal/plan"
	"github.com/pulseload/pulse/internal/results"
	"github.com/pulseload/pulse/internal/variables"
)

// rampDelay computes the inter-start delay per §4.2: zero when there
// is nothing to ramp between (at most one thread, or no ramp window),
// otherwise the ramp window spread evenly across the gaps between
// thread starts.
func rampDelay(numThreads, rampUpSeconds uint32) time.Duration {
	if numThreads <= 1 || rampUpSeconds == 0 {
		return 0
	}
	millis := float64(rampUpSeconds) / float64(numThreads-1) * 1000.0
	return time.Duration(millis) * time.Millisecond
}

// runThreadGroup starts numThreads virtual users spaced by rampDelay
// and returns once every one of them has exited. A zero thread count
// or an empty enabled-request sequence is a no-op.
func runThreadGroup(ctx context.Context, tg *plan.ThreadGroup, testPlan *plan.TestPlan, client *http.Client, store *variables.Store, activeThreads *int64, out chan<- results.RequestResultEvent) {
	if tg.NumThreads == 0 {
		return
	}
	requests := tg.EnabledRequests()
	if len(requests) == 0 {
		return
	}

	delay := rampDelay(tg.NumThreads, tg.RampUpSeconds)

	var usersWG sync.WaitGroup
	for i := uint32(0); i < tg.NumThreads; i++ {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				// Cancelled mid-ramp: the users already started are
				// awaited below, but no further users are spawned.
				usersWG.Wait()
				return
			case <-time.After(delay):
			}
		}

		usersWG.Add(1)
		atomic.AddInt64(activeThreads, 1)
		go func() {
			defer usersWG.Done()
			defer atomic.AddInt64(activeThreads, -1)
			runVirtualUser(ctx, tg, testPlan, requests, client, store, out)
		}()
	}

	usersWG.Wait()
}
