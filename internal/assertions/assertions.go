// Package assertions implements the nine response-validation rules
// and their evaluation against a ResponseContext. Rules are a sealed
// sum type decoded lazily from the plan's opaque JSON payload, per
// §9's "sealed sum types, not dynamic dispatch" design note.
package assertions

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/pulseload/pulse/internal/engerrors"
	"github.com/pulseload/pulse/internal/jsonnav"
	"github.com/pulseload/pulse/internal/plan"
)

// Rule is the sealed sum type over the nine assertion variants.
type Rule interface {
	isRule()
}

type StatusCodeEquals struct{ Expected int }

func (StatusCodeEquals) isRule() {}

type StatusCodeNotEquals struct{ NotExpected int }

func (StatusCodeNotEquals) isRule() {}

type StatusCodeRange struct{ Min, Max int }

func (StatusCodeRange) isRule() {}

type BodyContains struct{ Substring string }

func (BodyContains) isRule() {}

type BodyNotContains struct{ Substring string }

func (BodyNotContains) isRule() {}

type JsonPath struct {
	Expression string
	Expected   interface{}
}

func (JsonPath) isRule() {}

type ResponseTimeBelow struct{ ThresholdMs uint64 }

func (ResponseTimeBelow) isRule() {}

type HeaderEquals struct{ Header, Expected string }

func (HeaderEquals) isRule() {}

type HeaderContains struct{ Header, Substring string }

func (HeaderContains) isRule() {}

// wireRule is the on-the-wire JSON shape of a Rule: a "type" tag plus
// variant-specific fields, matching the plan's serde-tagged encoding.
type wireRule struct {
	Type        string      `json:"type"`
	Expected    int         `json:"expected"`
	NotExpected int         `json:"not_expected"`
	Min         int         `json:"min"`
	Max         int         `json:"max"`
	Substring   string      `json:"substring"`
	Expression  string      `json:"expression"`
	Value       interface{} `json:"expected_value"`
	ThresholdMs uint64      `json:"threshold_ms"`
	Header      string      `json:"header"`
	HeaderValue string      `json:"value"`
}

// decodeRule turns a plan's opaque JSON rule payload into a concrete
// Rule. Malformed rules are reported, not panicked on.
func decodeRule(raw json.RawMessage) (Rule, error) {
	var w wireRule
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, engerrors.RuleEvaluation("malformed assertion rule payload", err)
	}
	switch w.Type {
	case "status_code_equals":
		return StatusCodeEquals{Expected: w.Expected}, nil
	case "status_code_not_equals":
		return StatusCodeNotEquals{NotExpected: w.NotExpected}, nil
	case "status_code_range":
		return StatusCodeRange{Min: w.Min, Max: w.Max}, nil
	case "body_contains":
		return BodyContains{Substring: w.Substring}, nil
	case "body_not_contains":
		return BodyNotContains{Substring: w.Substring}, nil
	case "json_path":
		return JsonPath{Expression: w.Expression, Expected: w.Value}, nil
	case "response_time_below":
		return ResponseTimeBelow{ThresholdMs: w.ThresholdMs}, nil
	case "header_equals":
		return HeaderEquals{Header: w.Header, Expected: w.HeaderValue}, nil
	case "header_contains":
		return HeaderContains{Header: w.Header, Substring: w.HeaderValue}, nil
	default:
		return nil, engerrors.RuleEvaluation(fmt.Sprintf("unknown assertion rule type %q", w.Type), nil)
	}
}

// ResponseContext is the read-only view of a completed response an
// assertion evaluates against.
type ResponseContext struct {
	StatusCode int
	Headers    map[string]string // keys already lowercased
	Body       string
	ElapsedMs  uint64
}

// Result is the outcome of evaluating one assertion: whether it
// passed, and a human-readable message describing observed vs expected.
type Result struct {
	AssertionID   string
	AssertionName string
	Passed        bool
	Message       string
}

// EvaluateAll runs every assertion in order against ctx. A malformed
// rule yields a failing result and does not abort the remaining
// assertions.
func EvaluateAll(configured []plan.Assertion, ctx ResponseContext) []Result {
	results := make([]Result, 0, len(configured))
	for _, a := range configured {
		rule, err := decodeRule(a.Rule)
		if err != nil {
			results = append(results, Result{
				AssertionID:   a.ID,
				AssertionName: a.Name,
				Passed:        false,
				Message:       fmt.Sprintf("invalid assertion rule: %v", err),
			})
			continue
		}
		passed, message := Evaluate(rule, ctx)
		results = append(results, Result{
			AssertionID:   a.ID,
			AssertionName: a.Name,
			Passed:        passed,
			Message:       message,
		})
	}
	return results
}

// Evaluate runs a single assertion rule against ctx.
func Evaluate(rule Rule, ctx ResponseContext) (bool, string) {
	switch r := rule.(type) {
	case StatusCodeEquals:
		if ctx.StatusCode == r.Expected {
			return true, fmt.Sprintf("status code %d matches expected %d", ctx.StatusCode, r.Expected)
		}
		return false, fmt.Sprintf("expected status %d, got %d", r.Expected, ctx.StatusCode)

	case StatusCodeNotEquals:
		if ctx.StatusCode != r.NotExpected {
			return true, fmt.Sprintf("status code %d differs from excluded %d", ctx.StatusCode, r.NotExpected)
		}
		return false, fmt.Sprintf("status code %d matched excluded value", ctx.StatusCode)

	case StatusCodeRange:
		if ctx.StatusCode >= r.Min && ctx.StatusCode <= r.Max {
			return true, fmt.Sprintf("status code %d is within [%d, %d]", ctx.StatusCode, r.Min, r.Max)
		}
		return false, fmt.Sprintf("status code %d is outside [%d, %d]", ctx.StatusCode, r.Min, r.Max)

	case BodyContains:
		if strings.Contains(ctx.Body, r.Substring) {
			return true, fmt.Sprintf("body contains %q", r.Substring)
		}
		return false, fmt.Sprintf("body does not contain %q", r.Substring)

	case BodyNotContains:
		if !strings.Contains(ctx.Body, r.Substring) {
			return true, fmt.Sprintf("body does not contain %q", r.Substring)
		}
		return false, fmt.Sprintf("body unexpectedly contains %q", r.Substring)

	case JsonPath:
		result, ok := jsonnav.Navigate(ctx.Body, r.Expression)
		if !ok {
			return false, fmt.Sprintf("json path %q not found in response", r.Expression)
		}
		if valuesEqual(result.Value(), r.Expected) {
			return true, fmt.Sprintf("json path %q equals expected value", r.Expression)
		}
		return false, fmt.Sprintf("json path %q: expected %v, got %v", r.Expression, r.Expected, result.Value())

	case ResponseTimeBelow:
		if ctx.ElapsedMs < r.ThresholdMs {
			return true, fmt.Sprintf("response time %dms is below threshold %dms", ctx.ElapsedMs, r.ThresholdMs)
		}
		return false, fmt.Sprintf("response time %dms is not below threshold %dms", ctx.ElapsedMs, r.ThresholdMs)

	case HeaderEquals:
		name := strings.ToLower(r.Header)
		value, present := ctx.Headers[name]
		if present && value == r.Expected {
			return true, fmt.Sprintf("header %q equals %q", r.Header, r.Expected)
		}
		return false, fmt.Sprintf("header %q expected %q, got %q", r.Header, r.Expected, value)

	case HeaderContains:
		name := strings.ToLower(r.Header)
		value, present := ctx.Headers[name]
		if present && strings.Contains(value, r.Substring) {
			return true, fmt.Sprintf("header %q contains %q", r.Header, r.Substring)
		}
		return false, fmt.Sprintf("header %q (%q) does not contain %q", r.Header, value, r.Substring)

	default:
		return false, "unknown assertion rule"
	}
}

// valuesEqual compares a navigated JSON value against the plan's
// expected value using deep equality on their decoded Go
// representations, matching serde_json::Value equality semantics
// closely enough for scalars, arrays, and objects.
func valuesEqual(got, want interface{}) bool {
	return reflect.DeepEqual(normalizeNumber(got), normalizeNumber(want))
}

// normalizeNumber coerces numeric values to float64 so that e.g. an
// expected int 200 compares equal to a decoded JSON number 200.0.
func normalizeNumber(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err == nil {
			return f
		}
		return v
	default:
		return v
	}
}
