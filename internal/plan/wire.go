package plan

import (
	"encoding/json"
	"fmt"
)

// wireRequestBody is RequestBody's on-the-wire shape: a "type" tag
// plus the union of every variant's fields, mirroring how Assertion
// and Extractor rules are already tagged.
type wireRequestBody struct {
	Type  string     `json:"type"`
	Text  string     `json:"text,omitempty"`
	Pairs []KeyValue `json:"pairs,omitempty"`
}

func marshalRequestBody(b RequestBody) (*wireRequestBody, error) {
	switch v := b.(type) {
	case nil:
		return nil, nil
	case JSONBody:
		return &wireRequestBody{Type: "json", Text: v.Text}, nil
	case FormDataBody:
		return &wireRequestBody{Type: "form_data", Pairs: v.Pairs}, nil
	case RawBody:
		return &wireRequestBody{Type: "raw", Text: v.Text}, nil
	case XMLBody:
		return &wireRequestBody{Type: "xml", Text: v.Text}, nil
	default:
		return nil, fmt.Errorf("unknown request body type %T", b)
	}
}

func unmarshalRequestBody(w *wireRequestBody) (RequestBody, error) {
	if w == nil {
		return nil, nil
	}
	switch w.Type {
	case "json":
		return JSONBody{Text: w.Text}, nil
	case "form_data":
		return FormDataBody{Pairs: w.Pairs}, nil
	case "raw":
		return RawBody{Text: w.Text}, nil
	case "xml":
		return XMLBody{Text: w.Text}, nil
	default:
		return nil, fmt.Errorf("unknown request body type %q", w.Type)
	}
}

// httpRequestWire is HttpRequest's JSON shadow: every field identical
// except Body, which is carried as a tagged wireRequestBody.
type httpRequestWire struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Method     HttpMethod        `json:"method"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       *wireRequestBody  `json:"body,omitempty"`
	Assertions []Assertion       `json:"assertions,omitempty"`
	Extractors []Extractor       `json:"extractors,omitempty"`
	Enabled    *bool             `json:"enabled,omitempty"`
}

// enabledOrDefaultTrue mirrors original_source's
// #[serde(default = "default_true")] on HttpRequest.enabled and
// ThreadGroup.enabled: a missing field on deserialize means enabled,
// not disabled.
func enabledOrDefaultTrue(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}

// MarshalJSON implements json.Marshaler for HttpRequest's sealed Body field.
func (r HttpRequest) MarshalJSON() ([]byte, error) {
	body, err := marshalRequestBody(r.Body)
	if err != nil {
		return nil, err
	}
	enabled := r.Enabled
	return json.Marshal(httpRequestWire{
		ID:         r.ID,
		Name:       r.Name,
		Method:     r.Method,
		URL:        r.URL,
		Headers:    r.Headers,
		Body:       body,
		Assertions: r.Assertions,
		Extractors: r.Extractors,
		Enabled:    &enabled,
	})
}

// UnmarshalJSON implements json.Unmarshaler for HttpRequest's sealed Body field.
func (r *HttpRequest) UnmarshalJSON(data []byte) error {
	var w httpRequestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	body, err := unmarshalRequestBody(w.Body)
	if err != nil {
		return err
	}
	*r = HttpRequest{
		ID:         w.ID,
		Name:       w.Name,
		Method:     w.Method,
		URL:        w.URL,
		Headers:    w.Headers,
		Body:       body,
		Assertions: w.Assertions,
		Extractors: w.Extractors,
		Enabled:    enabledOrDefaultTrue(w.Enabled),
	}
	return nil
}

// wireLoopPolicy is LoopPolicy's on-the-wire shape.
type wireLoopPolicy struct {
	Type    string `json:"type"`
	Count   uint64 `json:"count,omitempty"`
	Seconds uint64 `json:"seconds,omitempty"`
}

func marshalLoopPolicy(p LoopPolicy) (*wireLoopPolicy, error) {
	switch v := p.(type) {
	case nil:
		return nil, nil
	case FiniteLoop:
		return &wireLoopPolicy{Type: "finite", Count: v.Count}, nil
	case DurationLoop:
		return &wireLoopPolicy{Type: "duration", Seconds: v.Seconds}, nil
	case InfiniteLoop:
		return &wireLoopPolicy{Type: "infinite"}, nil
	default:
		return nil, fmt.Errorf("unknown loop policy type %T", p)
	}
}

func unmarshalLoopPolicy(w *wireLoopPolicy) (LoopPolicy, error) {
	if w == nil {
		return DefaultLoopPolicy(), nil
	}
	switch w.Type {
	case "finite":
		return FiniteLoop{Count: w.Count}, nil
	case "duration":
		return DurationLoop{Seconds: w.Seconds}, nil
	case "infinite":
		return InfiniteLoop{}, nil
	default:
		return nil, fmt.Errorf("unknown loop policy type %q", w.Type)
	}
}

// threadGroupWire is ThreadGroup's JSON shadow, carrying LoopPolicy tagged.
type threadGroupWire struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	NumThreads    uint32          `json:"num_threads"`
	RampUpSeconds uint32          `json:"ramp_up_seconds"`
	LoopPolicy    *wireLoopPolicy `json:"loop_policy,omitempty"`
	Requests      []*HttpRequest  `json:"requests,omitempty"`
	Enabled       *bool           `json:"enabled,omitempty"`
}

// MarshalJSON implements json.Marshaler for ThreadGroup's sealed LoopPolicy field.
func (tg ThreadGroup) MarshalJSON() ([]byte, error) {
	policy, err := marshalLoopPolicy(tg.LoopPolicy)
	if err != nil {
		return nil, err
	}
	enabled := tg.Enabled
	return json.Marshal(threadGroupWire{
		ID:            tg.ID,
		Name:          tg.Name,
		NumThreads:    tg.NumThreads,
		RampUpSeconds: tg.RampUpSeconds,
		LoopPolicy:    policy,
		Requests:      tg.Requests,
		Enabled:       &enabled,
	})
}

// UnmarshalJSON implements json.Unmarshaler for ThreadGroup's sealed LoopPolicy field.
func (tg *ThreadGroup) UnmarshalJSON(data []byte) error {
	var w threadGroupWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	policy, err := unmarshalLoopPolicy(w.LoopPolicy)
	if err != nil {
		return err
	}
	*tg = ThreadGroup{
		ID:            w.ID,
		Name:          w.Name,
		NumThreads:    w.NumThreads,
		RampUpSeconds: w.RampUpSeconds,
		LoopPolicy:    policy,
		Requests:      w.Requests,
		Enabled:       enabledOrDefaultTrue(w.Enabled),
	}
	return nil
}
