// Package plan defines the read-only test-plan data model: thread
// groups, requests, assertions, extractors, variables, and CSV
// sources. Values are immutable for the lifetime of a run.
package plan

import (
	"encoding/json"

	"github.com/google/uuid"
)

// HttpMethod is the set of HTTP verbs a request may use.
type HttpMethod string

const (
	MethodGet     HttpMethod = "GET"
	MethodPost    HttpMethod = "POST"
	MethodPut     HttpMethod = "PUT"
	MethodDelete  HttpMethod = "DELETE"
	MethodPatch   HttpMethod = "PATCH"
	MethodHead    HttpMethod = "HEAD"
	MethodOptions HttpMethod = "OPTIONS"
)

// RequestBody is a sealed sum type over the body shapes a request may carry.
type RequestBody interface {
	isRequestBody()
}

// JSONBody sends the resolved text as a parsed JSON document.
type JSONBody struct {
	Text string
}

func (JSONBody) isRequestBody() {}

// FormDataBody sends url-encoded key/value pairs.
type FormDataBody struct {
	Pairs []KeyValue
}

func (FormDataBody) isRequestBody() {}

// RawBody sends the resolved text unmodified, caller-supplied
// Content-Type wins.
type RawBody struct {
	Text string
}

func (RawBody) isRequestBody() {}

// XMLBody sends the resolved text with Content-Type: application/xml
// unless overridden by an explicit header.
type XMLBody struct {
	Text string
}

func (XMLBody) isRequestBody() {}

// KeyValue is an ordered key/value pair, used for form-data bodies
// where both key and value may contain variable placeholders.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// VariableScope is an advisory tag with no behavioural effect on
// substitution; carried through for callers that group variables by
// origin.
type VariableScope string

const (
	ScopeGlobal      VariableScope = "global"
	ScopePlan        VariableScope = "plan"
	ScopeThreadGroup VariableScope = "thread_group"
)

// Variable is a named string value seeded into the shared variable
// store at the start of a run.
type Variable struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Value string        `json:"value"`
	Scope VariableScope `json:"scope,omitempty"`
}

// Assertion pairs an id/name with an opaque, lazily-interpreted rule.
// The rule is stored as raw JSON because plans are supplied by
// external callers who may not share this package's concrete rule
// types; §4.4's evaluators decode it into a sealed assertions.Rule.
type Assertion struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Rule json.RawMessage `json:"rule"`
}

// Extractor pairs an id/name/target-variable with an opaque rule.
type Extractor struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Variable string          `json:"variable"`
	Rule     json.RawMessage `json:"rule"`
}

// HttpRequest is one request in a thread group's sequence.
type HttpRequest struct {
	ID          string
	Name        string
	Method      HttpMethod
	URL         string
	Headers     map[string]string
	Body        RequestBody
	Assertions  []Assertion
	Extractors  []Extractor
	Enabled     bool
}

// NewHttpRequest returns a request with Enabled defaulted to true,
// matching the source's #[serde(default = "default_true")] behaviour
// — Go's zero value for bool is false, which would silently skip
// every request, so the default is applied explicitly here rather
// than relying on struct literals.
func NewHttpRequest(name string, method HttpMethod, url string) *HttpRequest {
	return &HttpRequest{
		ID:      uuid.New().String(),
		Name:    name,
		Method:  method,
		URL:     url,
		Headers: map[string]string{},
		Enabled: true,
	}
}

// LoopPolicy is a sealed sum type describing a thread group's
// iteration termination rule.
type LoopPolicy interface {
	isLoopPolicy()
}

// FiniteLoop iterates the request sequence exactly Count times.
type FiniteLoop struct {
	Count uint64
}

func (FiniteLoop) isLoopPolicy() {}

// DurationLoop iterates while elapsed wall time is strictly less than Seconds.
type DurationLoop struct {
	Seconds uint64
}

func (DurationLoop) isLoopPolicy() {}

// InfiniteLoop iterates until cancellation.
type InfiniteLoop struct{}

func (InfiniteLoop) isLoopPolicy() {}

// DefaultLoopPolicy is the policy applied when a thread group's plan
// data does not specify one, matching the source's Finite{count: 1} default.
func DefaultLoopPolicy() LoopPolicy {
	return FiniteLoop{Count: 1}
}

// ThreadGroup binds a virtual-user count, ramp-up duration, loop
// policy, and request sequence.
type ThreadGroup struct {
	ID            string
	Name          string
	NumThreads    uint32
	RampUpSeconds uint32
	LoopPolicy    LoopPolicy
	Requests      []*HttpRequest
	Enabled       bool
}

// NewThreadGroup returns a thread group with Enabled defaulted to
// true and LoopPolicy defaulted to Finite{1}, for the same reason
// NewHttpRequest exists.
func NewThreadGroup(name string, numThreads uint32, rampUpSeconds uint32) *ThreadGroup {
	return &ThreadGroup{
		ID:            uuid.New().String(),
		Name:          name,
		NumThreads:    numThreads,
		RampUpSeconds: rampUpSeconds,
		LoopPolicy:    DefaultLoopPolicy(),
		Enabled:       true,
	}
}

// EnabledRequests returns the subset of requests with Enabled set,
// preserving order.
func (tg *ThreadGroup) EnabledRequests() []*HttpRequest {
	out := make([]*HttpRequest, 0, len(tg.Requests))
	for _, r := range tg.Requests {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// TestPlan is the top-level, caller-supplied execution unit.
type TestPlan struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	ThreadGroups   []*ThreadGroup   `json:"thread_groups,omitempty"`
	Variables      []Variable       `json:"variables,omitempty"`
	CsvDataSources []*CsvDataSource `json:"csv_data_sources,omitempty"`
	FormatVersion  uint32           `json:"format_version"`
}

// NewTestPlan returns an empty plan with a freshly generated ID and
// FormatVersion 1 (the original's persisted-plan forward-compatibility
// marker; harmless metadata here since persistence is out of scope).
func NewTestPlan(name string) *TestPlan {
	return &TestPlan{
		ID:            uuid.New().String(),
		Name:          name,
		FormatVersion: 1,
	}
}

// EnabledThreadGroups returns the subset of thread groups with
// Enabled set, preserving order.
func (p *TestPlan) EnabledThreadGroups() []*ThreadGroup {
	out := make([]*ThreadGroup, 0, len(p.ThreadGroups))
	for _, tg := range p.ThreadGroups {
		if tg.Enabled {
			out = append(out, tg)
		}
	}
	return out
}
