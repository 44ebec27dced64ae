package extractors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseload/pulse/internal/plan"
)

func TestEvaluateJsonPath(t *testing.T) {
	success, value, _ := Evaluate(JsonPath{Expression: "token"}, Context{Body: `{"token":"abc"}`})
	assert.True(t, success)
	assert.Equal(t, "abc", value)
}

func TestEvaluateJsonPathStringifiesNonString(t *testing.T) {
	success, value, _ := Evaluate(JsonPath{Expression: "count"}, Context{Body: `{"count":7}`})
	assert.True(t, success)
	assert.Equal(t, "7", value)

	success, value, _ = Evaluate(JsonPath{Expression: "flag"}, Context{Body: `{"flag":null}`})
	assert.True(t, success)
	assert.Equal(t, "null", value)
}

func TestEvaluateRegexFirstMatchAndGroup(t *testing.T) {
	success, value, _ := Evaluate(Regex{Pattern: `id=(\d+)`, Group: 1}, Context{Body: "prefix id=42 suffix"})
	assert.True(t, success)
	assert.Equal(t, "42", value)
}

func TestEvaluateRegexGroupZeroIsWholeMatch(t *testing.T) {
	success, value, _ := Evaluate(Regex{Pattern: `id=\d+`, Group: 0}, Context{Body: "prefix id=42 suffix"})
	assert.True(t, success)
	assert.Equal(t, "id=42", value)
}

func TestEvaluateRegexNoMatchFails(t *testing.T) {
	success, _, msg := Evaluate(Regex{Pattern: `nomatch`, Group: 0}, Context{Body: "nothing here"})
	assert.False(t, success)
	assert.Contains(t, msg, "did not match")
}

func TestEvaluateRegexNonexistentGroupFails(t *testing.T) {
	success, _, msg := Evaluate(Regex{Pattern: `id=(\d+)`, Group: 5}, Context{Body: "id=42"})
	assert.False(t, success)
	assert.Contains(t, msg, "does not exist")
}

func TestEvaluateHeaderCaseInsensitiveLookup(t *testing.T) {
	success, value, _ := Evaluate(Header{Name: "Authorization"}, Context{Headers: map[string]string{"authorization": "Bearer abc"}})
	assert.True(t, success)
	assert.Equal(t, "Bearer abc", value)
}

func TestEvaluateAllWritesOnlySuccessfulValues(t *testing.T) {
	configured := []plan.Extractor{
		{ID: "1", Name: "token", Variable: "token", Rule: json.RawMessage(`{"type":"json_path","expression":"token"}`)},
		{ID: "2", Name: "missing", Variable: "missing_var", Rule: json.RawMessage(`{"type":"json_path","expression":"nope"}`)},
	}
	results, writes := EvaluateAll(configured, Context{Body: `{"token":"abc"}`})
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, map[string]string{"token": "abc"}, writes)
}

func TestEvaluateAllInvalidRuleDoesNotAbort(t *testing.T) {
	configured := []plan.Extractor{
		{ID: "1", Name: "bad", Variable: "x", Rule: json.RawMessage(`{"type":"nonsense"}`)},
		{ID: "2", Name: "header", Variable: "ct", Rule: json.RawMessage(`{"type":"header","name":"content-type"}`)},
	}
	results, writes := EvaluateAll(configured, Context{Headers: map[string]string{"content-type": "text/plain"}})
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Equal(t, "text/plain", writes["ct"])
}
