// Package results defines the outbound event stream types: per-request
// results, progress snapshots, lifecycle status transitions, and the
// terminal summary.
package results

import "time"

// Status is the executor's lifecycle state, as seen by external observers.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusStopping  Status = "stopping"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Event is the sealed sum type over everything the executor emits on
// its outbound channel.
type Event interface {
	isEvent()
}

// RequestResultEvent carries the full outcome of one attempted request.
type RequestResultEvent struct {
	ID                 string                 `json:"id"`
	PlanID             string                 `json:"plan_id"`
	ThreadGroupName    string                 `json:"thread_group_name"`
	RequestName        string                 `json:"request_name"`
	Timestamp          time.Time              `json:"timestamp"`
	StatusCode         int                    `json:"status_code"` // 0 when network-failed
	ElapsedMs          uint64                 `json:"elapsed_ms"`
	SizeBytes          int                    `json:"size_bytes"`
	AssertionsPassed   bool                   `json:"assertions_passed"`
	Error              string                 `json:"error,omitempty"`
	AssertionResults   []AssertionResultView  `json:"assertion_results,omitempty"`
	ExtractionResults  []ExtractionResultView `json:"extraction_results,omitempty"`
	Method             string                 `json:"method"`
	URL                string                 `json:"url"`
	ResponseHeaders    map[string]string      `json:"response_headers,omitempty"` // lowercased keys
	BodyPreview        string                 `json:"body_preview,omitempty"`     // "" (absent) when the body was empty
}

func (RequestResultEvent) isEvent() {}

// AssertionResultView is the event-facing projection of one assertion
// outcome.
type AssertionResultView struct {
	AssertionID   string `json:"assertion_id"`
	AssertionName string `json:"assertion_name"`
	Passed        bool   `json:"passed"`
	Message       string `json:"message"`
}

// ExtractionResultView is the event-facing projection of one
// extractor outcome.
type ExtractionResultView struct {
	ExtractorID    string `json:"extractor_id"`
	ExtractorName  string `json:"extractor_name"`
	VariableName   string `json:"variable_name"`
	Success        bool   `json:"success"`
	ExtractedValue string `json:"extracted_value,omitempty"`
	Message        string `json:"message"`
}

// ProgressEvent is a periodic live snapshot of the run.
type ProgressEvent struct {
	CompletedRequests uint64  `json:"completed_requests"`
	TotalErrors       uint64  `json:"total_errors"`
	ActiveThreads     int64   `json:"active_threads"`
	ElapsedMs         uint64  `json:"elapsed_ms"`
	CurrentRPS        float64 `json:"current_rps"`
	MeanMs            float64 `json:"mean_ms"`
	P95Ms             uint64  `json:"p95_ms"`
	MinMs             uint64  `json:"min_ms"`
	MaxMs             uint64  `json:"max_ms"`
}

func (ProgressEvent) isEvent() {}

// StatusChangeEvent marks a lifecycle transition.
type StatusChangeEvent struct {
	Status Status `json:"status"`
}

func (StatusChangeEvent) isEvent() {}

// CompleteEvent is terminal; it carries the final summary.
type CompleteEvent struct {
	Summary TestSummary `json:"summary"`
}

func (CompleteEvent) isEvent() {}

// TestSummary is produced once at run end.
type TestSummary struct {
	PlanID             string    `json:"plan_id"`
	PlanName           string    `json:"plan_name"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	TotalRequests      uint64    `json:"total_requests"`
	SuccessfulRequests uint64    `json:"successful_requests"`
	FailedRequests     uint64    `json:"failed_requests"`
	MinMs              uint64    `json:"min_ms"`
	MaxMs              uint64    `json:"max_ms"`
	MeanMs             float64   `json:"mean_ms"`
	P50Ms              uint64    `json:"p50_ms"`
	P95Ms              uint64    `json:"p95_ms"`
	P99Ms              uint64    `json:"p99_ms"`
	RPS                float64   `json:"rps"`
	TotalBytes         uint64    `json:"total_bytes"`
}

// BucketStats is one whole-second bucket's accumulated statistics.
type BucketStats struct {
	Requests uint64 `json:"requests"`
	Errors   uint64 `json:"errors"`
	SumMs    uint64 `json:"sum_ms"`
	MinMs    uint64 `json:"min_ms"`
	MaxMs    uint64 `json:"max_ms"`
}

// TimeBucketEntry is the externally reported view of one bucket.
type TimeBucketEntry struct {
	Second   uint64  `json:"second"`
	Requests uint64  `json:"requests"`
	Errors   uint64  `json:"errors"`
	AvgMs    float64 `json:"avg_ms"`
	MinMs    uint64  `json:"min_ms"`
	MaxMs    uint64  `json:"max_ms"`
}
