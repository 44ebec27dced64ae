package assertions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseload/pulse/internal/plan"
)

func ctx(status int, body string, headers map[string]string, elapsed uint64) ResponseContext {
	return ResponseContext{StatusCode: status, Body: body, Headers: headers, ElapsedMs: elapsed}
}

func TestEvaluateStatusCodeEquals(t *testing.T) {
	passed, msg := Evaluate(StatusCodeEquals{Expected: 200}, ctx(200, "", nil, 0))
	assert.True(t, passed)
	assert.NotEmpty(t, msg)

	passed, _ = Evaluate(StatusCodeEquals{Expected: 200}, ctx(404, "", nil, 0))
	assert.False(t, passed)
}

func TestEvaluateStatusCodeRangeIsInclusiveBothEnds(t *testing.T) {
	passed, _ := Evaluate(StatusCodeRange{Min: 200, Max: 299}, ctx(200, "", nil, 0))
	assert.True(t, passed)
	passed, _ = Evaluate(StatusCodeRange{Min: 200, Max: 299}, ctx(299, "", nil, 0))
	assert.True(t, passed)
	passed, _ = Evaluate(StatusCodeRange{Min: 200, Max: 299}, ctx(300, "", nil, 0))
	assert.False(t, passed)
}

func TestEvaluateBodyContains(t *testing.T) {
	passed, _ := Evaluate(BodyContains{Substring: "ok"}, ctx(200, "all ok here", nil, 0))
	assert.True(t, passed)
	passed, _ = Evaluate(BodyNotContains{Substring: "fail"}, ctx(200, "all ok here", nil, 0))
	assert.True(t, passed)
}

func TestEvaluateResponseTimeBelowIsStrict(t *testing.T) {
	passed, _ := Evaluate(ResponseTimeBelow{ThresholdMs: 100}, ctx(200, "", nil, 99))
	assert.True(t, passed)
	passed, _ = Evaluate(ResponseTimeBelow{ThresholdMs: 100}, ctx(200, "", nil, 100))
	assert.False(t, passed, "equal elapsed must fail a strict < comparison")
}

func TestEvaluateHeaderEqualsAndContains(t *testing.T) {
	headers := map[string]string{"content-type": "application/json"}
	passed, _ := Evaluate(HeaderEquals{Header: "Content-Type", Expected: "application/json"}, ctx(200, "", headers, 0))
	assert.True(t, passed, "header lookup must be case-insensitive via lowercased keys")

	passed, _ = Evaluate(HeaderContains{Header: "content-type", Substring: "json"}, ctx(200, "", headers, 0))
	assert.True(t, passed)
}

func TestEvaluateJsonPathEquals(t *testing.T) {
	passed, _ := Evaluate(JsonPath{Expression: "items[0].id", Expected: float64(7)}, ctx(200, `{"items":[{"id":7}]}`, nil, 0))
	assert.True(t, passed)

	passed, _ = Evaluate(JsonPath{Expression: "items[0]", Expected: "x"}, ctx(200, `{"items":[]}`, nil, 0))
	assert.False(t, passed)
}

func TestEvaluateAllNeverAbortsOnMalformedRule(t *testing.T) {
	configured := []plan.Assertion{
		{ID: "1", Name: "bad", Rule: json.RawMessage(`{"type":"not_a_real_rule"}`)},
		{ID: "2", Name: "status", Rule: json.RawMessage(`{"type":"status_code_equals","expected":200}`)},
	}
	results := EvaluateAll(configured, ctx(200, "", nil, 0))
	require.Len(t, results, 2)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Message, "invalid assertion rule")
	assert.True(t, results[1].Passed)
}

func TestEvaluateAllVacuouslyTrueWhenEmpty(t *testing.T) {
	results := EvaluateAll(nil, ctx(200, "", nil, 0))
	allPassed := true
	for _, r := range results {
		allPassed = allPassed && r.Passed
	}
	assert.True(t, allPassed)
	assert.Empty(t, results)
}
