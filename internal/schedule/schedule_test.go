package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseload/pulse/internal/engine"
	"github.com/pulseload/pulse/internal/plan"
	"github.com/pulseload/pulse/internal/results"
)

func TestScheduleRejectsSixFieldExprAndAcceptsFiveField(t *testing.T) {
	var calls int64
	runFn := func(ctx context.Context, testPlan *plan.TestPlan) results.TestSummary {
		atomic.AddInt64(&calls, 1)
		return results.TestSummary{PlanID: testPlan.ID}
	}

	s := New(runFn, nil)
	testPlan := plan.NewTestPlan("scheduled")

	_, err := s.Schedule(context.Background(), "* * * * * *", testPlan)
	// robfig/cron/v3's standard parser is five-field; a six-field
	// seconds-resolution expression requires cron.WithSeconds, so this
	// is expected to fail with the default parser.
	require.Error(t, err)

	_, err = s.Schedule(context.Background(), "*/1 * * * *", testPlan)
	require.NoError(t, err)

	s.Stop()
}

func TestSkipsOverlappingFireWhilePreviousRunInProgress(t *testing.T) {
	release := make(chan struct{})
	var calls int64
	runFn := func(ctx context.Context, testPlan *plan.TestPlan) results.TestSummary {
		atomic.AddInt64(&calls, 1)
		<-release
		return results.TestSummary{}
	}

	s := New(runFn, nil)
	testPlan := plan.NewTestPlan("overlap")

	go s.fire(context.Background(), testPlan)
	time.Sleep(20 * time.Millisecond)
	s.fire(context.Background(), testPlan) // should be skipped: first fire still running

	close(release)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestDrainRunProducesARunFunc(t *testing.T) {
	// DrainRun wires a real engine.Run call; engine.Run itself is
	// exercised by the engine package's own end-to-end tests, so here
	// we only check it builds a usable RunFunc.
	runFn := DrainRun(engine.DefaultConfig(), nil, nil)
	var _ RunFunc = runFn
}
