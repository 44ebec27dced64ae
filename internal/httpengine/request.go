package httpengine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pulseload/pulse/internal/engerrors"
	"github.com/pulseload/pulse/internal/plan"
	"github.com/pulseload/pulse/internal/variables"
)

// ResolvedRequest is an HttpRequest with every ${name} placeholder
// already substituted: URL, header keys and values, and text body
// content.
type ResolvedRequest struct {
	ID      string
	Name    string
	Method  plan.HttpMethod
	URL     string
	Headers map[string]string
	Body    plan.RequestBody
}

// ResolveVariables substitutes vars (a snapshot taken once under lock
// before shaping, per §4.4) into a request's URL, header keys/values,
// and text body content, leaving method/id/name unchanged.
func ResolveVariables(req *plan.HttpRequest, vars map[string]string) ResolvedRequest {
	headers := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		headers[variables.Substitute(k, vars)] = variables.Substitute(v, vars)
	}

	resolved := ResolvedRequest{
		ID:      req.ID,
		Name:    req.Name,
		Method:  req.Method,
		URL:     variables.Substitute(req.URL, vars),
		Headers: headers,
	}

	switch b := req.Body.(type) {
	case plan.JSONBody:
		resolved.Body = plan.JSONBody{Text: variables.Substitute(b.Text, vars)}
	case plan.RawBody:
		resolved.Body = plan.RawBody{Text: variables.Substitute(b.Text, vars)}
	case plan.XMLBody:
		resolved.Body = plan.XMLBody{Text: variables.Substitute(b.Text, vars)}
	case plan.FormDataBody:
		pairs := make([]plan.KeyValue, len(b.Pairs))
		for i, kv := range b.Pairs {
			pairs[i] = plan.KeyValue{
				Key:   variables.Substitute(kv.Key, vars),
				Value: variables.Substitute(kv.Value, vars),
			}
		}
		resolved.Body = plan.FormDataBody{Pairs: pairs}
	case nil:
		resolved.Body = nil
	}

	return resolved
}

// httpMethod maps plan.HttpMethod onto the standard library's method
// string constants.
func httpMethod(m plan.HttpMethod) string {
	switch m {
	case plan.MethodGet:
		return http.MethodGet
	case plan.MethodPost:
		return http.MethodPost
	case plan.MethodPut:
		return http.MethodPut
	case plan.MethodDelete:
		return http.MethodDelete
	case plan.MethodPatch:
		return http.MethodPatch
	case plan.MethodHead:
		return http.MethodHead
	case plan.MethodOptions:
		return http.MethodOptions
	default:
		return string(m)
	}
}

// ResponseData is the internal view of a completed HTTP response used
// to feed assertions and extractors.
type ResponseData struct {
	StatusCode int
	SizeBytes  int
	Headers    map[string]string // lowercased keys, later values win
	BodyText   string
}

// BuildAndSend shapes resolved into an *http.Request per its body
// variant, sends it via client, and reads the full response body.
// Body-shaping failures are request-shaping errors; transport
// failures and read failures are network errors — both are reported
// through the returned error, which callers fold into the event's
// network-failure shape.
func BuildAndSend(ctx context.Context, client *http.Client, resolved ResolvedRequest) (ResponseData, error) {
	httpReq, err := buildRequest(ctx, resolved)
	if err != nil {
		return ResponseData{}, err
	}

	for k, v := range resolved.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return ResponseData{}, engerrors.Network("http request failed", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return ResponseData{}, engerrors.Network("failed to read response body", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k, vs := range resp.Header {
		if len(vs) == 0 {
			continue
		}
		headers[strings.ToLower(k)] = vs[len(vs)-1]
	}

	return ResponseData{
		StatusCode: resp.StatusCode,
		SizeBytes:  len(bodyBytes),
		Headers:    headers,
		BodyText:   string(bodyBytes), // lossy UTF-8 decoding is implicit in Go's string conversion
	}, nil
}

func buildRequest(ctx context.Context, resolved ResolvedRequest) (*http.Request, error) {
	method := httpMethod(resolved.Method)

	switch b := resolved.Body.(type) {
	case nil:
		return http.NewRequestWithContext(ctx, method, resolved.URL, nil)

	case plan.JSONBody:
		var value interface{}
		if err := json.Unmarshal([]byte(b.Text), &value); err != nil {
			return nil, engerrors.RequestShaping("invalid json body", err)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, engerrors.RequestShaping("invalid json body", err)
		}
		req, err := http.NewRequestWithContext(ctx, method, resolved.URL, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil

	case plan.FormDataBody:
		form := url.Values{}
		for _, kv := range b.Pairs {
			form.Add(kv.Key, kv.Value)
		}
		encoded := form.Encode()
		req, err := http.NewRequestWithContext(ctx, method, resolved.URL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil

	case plan.RawBody:
		return http.NewRequestWithContext(ctx, method, resolved.URL, strings.NewReader(b.Text))

	case plan.XMLBody:
		req, err := http.NewRequestWithContext(ctx, method, resolved.URL, strings.NewReader(b.Text))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/xml")
		return req, nil

	default:
		return http.NewRequestWithContext(ctx, method, resolved.URL, nil)
	}
}
