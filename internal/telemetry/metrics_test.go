package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("smoke-test", reg)

	if m == nil {
		t.Fatal("expected metrics instance, got nil")
	}
	if m.RequestsTotal == nil {
		t.Error("RequestsTotal should not be nil")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration should not be nil")
	}
	if m.ErrorsTotal == nil {
		t.Error("ErrorsTotal should not be nil")
	}
}

func TestRecordRequestSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("smoke-test", reg)

	// Should not panic.
	m.RecordRequest("default", "GET /ok", 200, 20*time.Millisecond, true, 128, "")
}

func TestRecordRequestNetworkFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("smoke-test", reg)

	m.RecordRequest("default", "GET /down", 0, 5*time.Millisecond, false, 0, "network")
}

func TestStatusClassOf(t *testing.T) {
	cases := map[int]string{
		0:   "network_error",
		200: "2xx",
		301: "3xx",
		404: "4xx",
		503: "5xx",
	}
	for status, want := range cases {
		if got := statusClassOf(status); got != want {
			t.Errorf("statusClassOf(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestSetActiveVUs(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("smoke-test", reg)

	m.SetActiveVUs(12)
	if got := testutil.ToFloat64(m.ActiveVUs); got != 12 {
		t.Errorf("ActiveVUs = %v, want 12", got)
	}
}
