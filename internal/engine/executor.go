// Package engine is the plan executor: it owns a run's lifecycle from
// StatusChange{Running} through Complete{summary}, coordinating thread
// groups, the streaming aggregator, and the progress reporter.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pulseload/pulse/internal/aggregator"
	"github.com/pulseload/pulse/internal/engerrors"
	"github.com/pulseload/pulse/internal/httpengine"
	"github.com/pulseload/pulse/internal/plan"
	"github.com/pulseload/pulse/internal/results"
	"github.com/pulseload/pulse/internal/telemetry"
	"github.com/pulseload/pulse/internal/variables"
	"github.com/pulseload/pulse/pkg/logging"
)

// Config controls the shared HTTP client and a run's ambient timings.
type Config struct {
	Client           httpengine.ClientConfig
	ProgressInterval time.Duration
	EventBuffer      int
	// BodyPreviewBytes is carried from configuration but not applied:
	// request events truncate body previews at the fixed
	// bodyPreviewLimit of 4096 bytes.
	BodyPreviewBytes int
}

// DefaultConfig mirrors §4.1's stated defaults: a 500ms progress tick
// and a ~4096-capacity internal event channel.
func DefaultConfig() Config {
	return Config{
		Client:           httpengine.DefaultClientConfig(),
		ProgressInterval: 500 * time.Millisecond,
		EventBuffer:      4096,
		BodyPreviewBytes: 4096,
	}
}

// Handle is a running test's external surface: the event stream and a
// cancel function that requests graceful shutdown.
type Handle struct {
	Events <-chan results.Event
	Cancel context.CancelFunc
}

// Run starts a test plan executing in the background and returns
// immediately with a Handle. The caller drains Events until it is
// closed. A run that starts ends with StatusChange{Completed} followed
// by Complete{summary}; a plan with no enabled thread groups or a
// client-build failure ends with a single StatusChange{Error} and no
// Complete.
func Run(ctx context.Context, testPlan *plan.TestPlan, cfg Config, metrics *telemetry.Metrics, logger *logging.Logger) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	out := make(chan results.Event, cfg.EventBuffer)

	go runExecutor(runCtx, testPlan, cfg, metrics, logger, out)

	return &Handle{Events: out, Cancel: cancel}
}

func runExecutor(ctx context.Context, testPlan *plan.TestPlan, cfg Config, metrics *telemetry.Metrics, logger *logging.Logger, out chan<- results.Event) {
	defer close(out)

	groups := testPlan.EnabledThreadGroups()
	if len(groups) == 0 {
		rejection := engerrors.Validation("test plan has no enabled thread groups").WithDetails("plan_id", testPlan.ID)
		if logger != nil {
			logger.WithError(rejection).WithFields(rejection.Details).Warn(rejection.Message)
		}
		out <- results.StatusChangeEvent{Status: results.StatusError}
		return
	}

	client, err := httpengine.NewClient(cfg.Client)
	if err != nil {
		wrapped := engerrors.ClientBuild(err)
		if logger != nil {
			entry := logger.WithError(wrapped)
			if ee := engerrors.AsEngineError(wrapped); ee != nil && ee.Details != nil {
				entry = entry.WithFields(ee.Details)
			}
			entry.Error("failed to build http client")
		}
		out <- results.StatusChangeEvent{Status: results.StatusError}
		return
	}

	out <- results.StatusChangeEvent{Status: results.StatusRunning}

	seed := make(map[string]string, len(testPlan.Variables))
	for _, v := range testPlan.Variables {
		seed[v.Name] = v.Value
	}
	store := variables.New(seed)

	agg := aggregator.New()

	internalCh := make(chan results.RequestResultEvent, cfg.EventBuffer)
	var activeThreads int64

	var groupsWG sync.WaitGroup
	for _, tg := range groups {
		groupsWG.Add(1)
		go func(tg *plan.ThreadGroup) {
			defer groupsWG.Done()
			defer func() {
				if r := recover(); r != nil {
					panicErr := engerrors.Internal("panic recovered in thread group goroutine", nil).
						WithDetails("thread_group", tg.Name).WithDetails("panic", r)
					if logger != nil {
						logger.WithError(panicErr).WithFields(panicErr.Details).Error(panicErr.Message)
					}
				}
			}()
			runThreadGroup(ctx, tg, testPlan, client, store, &activeThreads, internalCh)
		}(tg)
	}
	go func() {
		groupsWG.Wait()
		close(internalCh)
	}()

	progressStop := make(chan struct{})
	progressDone := make(chan struct{})
	go runProgressReporter(ctx, progressStop, progressDone, agg, &activeThreads, cfg.ProgressInterval, out, metrics)

	for event := range internalCh {
		success := event.Error == ""
		agg.Record(event.ElapsedMs, success, event.SizeBytes)
		if metrics != nil {
			metrics.RecordRequest(event.ThreadGroupName, event.RequestName, event.StatusCode,
				time.Duration(event.ElapsedMs)*time.Millisecond, failureReason(event) == "", event.SizeBytes, failureReason(event))
		}
		out <- event
	}

	close(progressStop)
	<-progressDone
	if metrics != nil {
		metrics.SetActiveVUs(0)
	}

	summary := agg.Summary(testPlan.ID, testPlan.Name)
	out <- results.StatusChangeEvent{Status: results.StatusCompleted}
	out <- results.CompleteEvent{Summary: summary}
}

// runProgressReporter emits a Progress snapshot every interval.
// Missed ticks are skipped (no burst catch-up) since each tick is
// handled synchronously before the next can fire. It exits on either
// cancellation or progressStop being closed, signalling exit via done.
func runProgressReporter(ctx context.Context, stop <-chan struct{}, done chan<- struct{}, agg *aggregator.Aggregator, activeThreads *int64, interval time.Duration, out chan<- results.Event, metrics *telemetry.Metrics) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			active := atomic.LoadInt64(activeThreads)
			if metrics != nil {
				metrics.SetActiveVUs(active)
			}
			snap := agg.Snapshot()
			out <- results.ProgressEvent{
				CompletedRequests: snap.TotalRequests,
				TotalErrors:       snap.TotalErrors,
				ActiveThreads:     active,
				ElapsedMs:         snap.ElapsedMs,
				CurrentRPS:        snap.CurrentRPS,
				MeanMs:            snap.MeanMs,
				P95Ms:             snap.P95Ms,
				MinMs:             snap.MinMs,
				MaxMs:             snap.MaxMs,
			}
		}
	}
}

// failureReason classifies a completed request event for the error
// counter's "reason" label.
func failureReason(event results.RequestResultEvent) string {
	if event.Error != "" {
		return "network_error"
	}
	if !event.AssertionsPassed {
		return "assertion_failed"
	}
	return ""
}
