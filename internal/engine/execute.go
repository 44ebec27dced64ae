package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pulseload/pulse/internal/assertions"
	"github.com/pulseload/pulse/internal/extractors"
	"github.com/pulseload/pulse/internal/httpengine"
	"github.com/pulseload/pulse/internal/plan"
	"github.com/pulseload/pulse/internal/results"
	"github.com/pulseload/pulse/internal/variables"
)

// bodyPreviewLimit is the body preview truncation point in bytes, per §4.4.
const bodyPreviewLimit = 4096

// executeSingleRequest resolves variables, shapes and sends one HTTP
// request, evaluates its assertions and extractors, and returns the
// resulting event. It never returns an error: network-level failures
// are folded into the event's zero-status-code, populated-error shape.
func executeSingleRequest(ctx context.Context, tg *plan.ThreadGroup, testPlan *plan.TestPlan, req *plan.HttpRequest, client *http.Client, store *variables.Store) results.RequestResultEvent {
	vars := store.Snapshot()
	resolved := httpengine.ResolveVariables(req, vars)

	// The send ignores run cancellation so an in-flight request always
	// completes (bounded by the client timeout) and is still reported.
	start := time.Now()
	resp, err := httpengine.BuildAndSend(context.WithoutCancel(ctx), client, resolved)
	elapsedMs := uint64(time.Since(start).Milliseconds())

	base := results.RequestResultEvent{
		ID:              uuid.New().String(),
		PlanID:          testPlan.ID,
		ThreadGroupName: tg.Name,
		RequestName:     req.Name,
		Timestamp:       start,
		ElapsedMs:       elapsedMs,
		Method:          string(resolved.Method),
		URL:             resolved.URL,
	}

	if err != nil {
		base.StatusCode = 0
		base.AssertionsPassed = false
		base.Error = err.Error()
		return base
	}

	assertCtx := assertions.ResponseContext{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.BodyText,
		ElapsedMs:  elapsedMs,
	}
	assertionResults := assertions.EvaluateAll(req.Assertions, assertCtx)

	extractCtx := extractors.Context{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.BodyText,
	}
	extractionResults, writes := extractors.EvaluateAll(req.Extractors, extractCtx)
	store.PutAll(writes)

	base.StatusCode = resp.StatusCode
	base.SizeBytes = resp.SizeBytes
	base.AssertionsPassed = allPassed(assertionResults)
	base.AssertionResults = toAssertionViews(assertionResults)
	base.ExtractionResults = toExtractionViews(extractionResults)
	base.ResponseHeaders = resp.Headers
	base.BodyPreview = buildBodyPreview(resp.BodyText)
	return base
}

func allPassed(rs []assertions.Result) bool {
	for _, r := range rs {
		if !r.Passed {
			return false
		}
	}
	return true
}

func toAssertionViews(rs []assertions.Result) []results.AssertionResultView {
	out := make([]results.AssertionResultView, len(rs))
	for i, r := range rs {
		out[i] = results.AssertionResultView{
			AssertionID:   r.AssertionID,
			AssertionName: r.AssertionName,
			Passed:        r.Passed,
			Message:       r.Message,
		}
	}
	return out
}

func toExtractionViews(rs []extractors.Result) []results.ExtractionResultView {
	out := make([]results.ExtractionResultView, len(rs))
	for i, r := range rs {
		out[i] = results.ExtractionResultView{
			ExtractorID:    r.ExtractorID,
			ExtractorName:  r.ExtractorName,
			VariableName:   r.VariableName,
			Success:        r.Success,
			ExtractedValue: r.ExtractedValue,
			Message:        r.Message,
		}
	}
	return out
}

// buildBodyPreview returns "" for an empty body, the full body when
// at or under the preview limit, or the first bodyPreviewLimit bytes
// followed by a truncation marker.
func buildBodyPreview(body string) string {
	if body == "" {
		return ""
	}
	if len(body) <= bodyPreviewLimit {
		return body
	}
	return body[:bodyPreviewLimit] + "... [truncated]"
}
