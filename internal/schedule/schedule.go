// Package schedule re-invokes a test plan on a cron expression for
// unattended repeated or soak-testing execution. Each fire starts an
// independent run through the engine; runs never overlap.
package schedule

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/pulseload/pulse/internal/engine"
	"github.com/pulseload/pulse/internal/plan"
	"github.com/pulseload/pulse/internal/results"
	"github.com/pulseload/pulse/internal/telemetry"
	"github.com/pulseload/pulse/pkg/logging"
)

// RunFunc starts one execution of testPlan and blocks until its event
// stream is fully drained, returning the terminal summary.
type RunFunc func(ctx context.Context, testPlan *plan.TestPlan) results.TestSummary

// Scheduler fires a test plan on a cron schedule, skipping a fire if
// the previous run is still in progress.
type Scheduler struct {
	cron   *cron.Cron
	run    RunFunc
	logger *logging.Logger

	mu      sync.Mutex
	running bool
}

// New builds a Scheduler around runFn, the function invoked on every
// cron tick.
func New(runFn RunFunc, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		run:    runFn,
		logger: logger,
	}
}

// Schedule registers testPlan to run on expr (standard five-field
// cron syntax) and starts the scheduler's clock. Returns the
// underlying cron.EntryID, and an error if expr cannot be parsed.
func (s *Scheduler) Schedule(ctx context.Context, expr string, testPlan *plan.TestPlan) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(expr, func() { s.fire(ctx, testPlan) })
	if err != nil {
		return 0, err
	}
	s.cron.Start()
	return id, nil
}

func (s *Scheduler) fire(ctx context.Context, testPlan *plan.TestPlan) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.WithContext(ctx).Warn("schedule: previous run still in progress, skipping this fire")
		}
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	summary := s.run(ctx, testPlan)
	if s.logger != nil {
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"plan_id":        summary.PlanID,
			"total_requests": summary.TotalRequests,
			"failed":         summary.FailedRequests,
		}).Info("schedule: run complete")
	}
}

// Stop halts the cron clock; in-flight runs are allowed to finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// DrainRun is the default RunFunc: it starts testPlan through the
// engine and drains its event stream synchronously, discarding
// intermediate events and returning only the final summary.
func DrainRun(cfg engine.Config, metrics *telemetry.Metrics, logger *logging.Logger) RunFunc {
	return func(ctx context.Context, testPlan *plan.TestPlan) results.TestSummary {
		handle := engine.Run(ctx, testPlan, cfg, metrics, logger)
		var summary results.TestSummary
		for ev := range handle.Events {
			if complete, ok := ev.(results.CompleteEvent); ok {
				summary = complete.Summary
			}
		}
		return summary
	}
}
