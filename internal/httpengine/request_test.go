package httpengine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseload/pulse/internal/engerrors"
	"github.com/pulseload/pulse/internal/plan"
)

func TestResolveVariablesSubstitutesUrlHeadersAndBody(t *testing.T) {
	req := &plan.HttpRequest{
		URL:     "https://api.example.com/users/${id}",
		Headers: map[string]string{"Authorization": "Bearer ${token}"},
		Body:    plan.JSONBody{Text: `{"name":"${name}"}`},
	}
	resolved := ResolveVariables(req, map[string]string{"id": "42", "token": "xyz", "name": "ada"})

	assert.Equal(t, "https://api.example.com/users/42", resolved.URL)
	assert.Equal(t, "Bearer xyz", resolved.Headers["Authorization"])
	assert.Equal(t, plan.JSONBody{Text: `{"name":"ada"}`}, resolved.Body)
}

func TestResolveVariablesLeavesUnknownPlaceholdersIntact(t *testing.T) {
	req := &plan.HttpRequest{URL: "https://example.com/${missing}"}
	resolved := ResolveVariables(req, map[string]string{})
	assert.Equal(t, "https://example.com/${missing}", resolved.URL)
}

func TestBuildAndSendJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("X-Custom", "value")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	resolved := ResolvedRequest{
		Method: plan.MethodPost,
		URL:    server.URL,
		Body:   plan.JSONBody{Text: `{"a":1}`},
	}
	resp, err := BuildAndSend(context.Background(), server.Client(), resolved)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, resp.BodyText)
	assert.Equal(t, "value", resp.Headers["x-custom"])
	assert.Equal(t, len(`{"ok":true}`), resp.SizeBytes)
}

func TestBuildAndSendFormData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "bar", r.Form.Get("foo"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resolved := ResolvedRequest{
		Method: plan.MethodPost,
		URL:    server.URL,
		Body:   plan.FormDataBody{Pairs: []plan.KeyValue{{Key: "foo", Value: "bar"}}},
	}
	resp, err := BuildAndSend(context.Background(), server.Client(), resolved)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBuildAndSendCallerHeaderOverridesDefaultContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/custom", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resolved := ResolvedRequest{
		Method:  plan.MethodPost,
		URL:     server.URL,
		Headers: map[string]string{"Content-Type": "text/custom"},
		Body:    plan.JSONBody{Text: `{}`},
	}
	_, err := BuildAndSend(context.Background(), server.Client(), resolved)
	require.NoError(t, err)
}

func TestBuildAndSendNetworkErrorIsWrapped(t *testing.T) {
	resolved := ResolvedRequest{Method: plan.MethodGet, URL: "http://127.0.0.1:1"}
	_, err := BuildAndSend(context.Background(), http.DefaultClient, resolved)
	require.Error(t, err)
	assert.True(t, engerrors.IsKind(err, engerrors.KindNetwork))
}

func TestBuildAndSendInvalidJSONBodyIsRequestShapingError(t *testing.T) {
	resolved := ResolvedRequest{
		Method: plan.MethodPost,
		URL:    "http://example.invalid",
		Body:   plan.JSONBody{Text: `{not valid json`},
	}
	_, err := BuildAndSend(context.Background(), http.DefaultClient, resolved)
	require.Error(t, err)
	assert.True(t, engerrors.IsKind(err, engerrors.KindRequestShaping))
}
