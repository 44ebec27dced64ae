// Package extractors implements response-to-variable projection: the
// three rule variants that capture a string value out of a response
// and feed it back into the variable store.
package extractors

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pulseload/pulse/internal/engerrors"
	"github.com/pulseload/pulse/internal/jsonnav"
	"github.com/pulseload/pulse/internal/plan"
)

// Rule is the sealed sum type over the three extractor variants.
type Rule interface {
	isRule()
}

type JsonPath struct{ Expression string }

func (JsonPath) isRule() {}

type Regex struct {
	Pattern string
	Group   int
}

func (Regex) isRule() {}

type Header struct{ Name string }

func (Header) isRule() {}

type wireRule struct {
	Type       string `json:"type"`
	Expression string `json:"expression"`
	Pattern    string `json:"pattern"`
	Group      int    `json:"group"`
	Name       string `json:"name"`
}

func decodeRule(raw json.RawMessage) (Rule, error) {
	var w wireRule
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, engerrors.RuleEvaluation("malformed extractor rule payload", err)
	}
	switch w.Type {
	case "json_path":
		return JsonPath{Expression: w.Expression}, nil
	case "regex":
		return Regex{Pattern: w.Pattern, Group: w.Group}, nil
	case "header":
		return Header{Name: w.Name}, nil
	default:
		return nil, engerrors.RuleEvaluation(fmt.Sprintf("unknown extractor rule type %q", w.Type), nil)
	}
}

// Context is the read-only view of a completed response an extractor
// reads from.
type Context struct {
	StatusCode int
	Headers    map[string]string // keys already lowercased
	Body       string
}

// Result is the outcome of evaluating one extractor.
type Result struct {
	ExtractorID    string
	ExtractorName  string
	VariableName   string
	Success        bool
	ExtractedValue string
	Message        string
}

// EvaluateAll runs every extractor in order against ctx and returns
// both the full result list (for the event) and a map of successfully
// extracted values ready to merge into the variable store. Failures
// are recorded but never clear prior variable values.
func EvaluateAll(configured []plan.Extractor, ctx Context) ([]Result, map[string]string) {
	results := make([]Result, 0, len(configured))
	writes := make(map[string]string)

	for _, e := range configured {
		rule, err := decodeRule(e.Rule)
		if err != nil {
			results = append(results, Result{
				ExtractorID:   e.ID,
				ExtractorName: e.Name,
				VariableName:  e.Variable,
				Success:       false,
				Message:       fmt.Sprintf("invalid extractor rule: %v", err),
			})
			continue
		}

		success, value, message := Evaluate(rule, ctx)
		results = append(results, Result{
			ExtractorID:    e.ID,
			ExtractorName:  e.Name,
			VariableName:   e.Variable,
			Success:        success,
			ExtractedValue: value,
			Message:        message,
		})
		if success {
			writes[e.Variable] = value
		}
	}

	return results, writes
}

// Evaluate runs a single extractor rule against ctx.
func Evaluate(rule Rule, ctx Context) (success bool, value string, message string) {
	switch r := rule.(type) {
	case JsonPath:
		result, ok := jsonnav.Navigate(ctx.Body, r.Expression)
		if !ok {
			return false, "", fmt.Sprintf("json path %q not found in response", r.Expression)
		}
		return true, jsonnav.ValueToString(result), fmt.Sprintf("extracted json path %q", r.Expression)

	case Regex:
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return false, "", fmt.Sprintf("invalid regex %q: %v", r.Pattern, err)
		}
		matches := re.FindStringSubmatch(ctx.Body)
		if matches == nil {
			return false, "", fmt.Sprintf("pattern %q did not match", r.Pattern)
		}
		if r.Group >= len(matches) {
			return false, "", fmt.Sprintf("pattern %q matched but group %d does not exist", r.Pattern, r.Group)
		}
		return true, matches[r.Group], fmt.Sprintf("extracted group %d from pattern %q", r.Group, r.Pattern)

	case Header:
		name := strings.ToLower(r.Name)
		value, present := ctx.Headers[name]
		if !present {
			return false, "", fmt.Sprintf("header %q not present", r.Name)
		}
		return true, value, fmt.Sprintf("extracted header %q", r.Name)

	default:
		return false, "", "unknown extractor rule"
	}
}
