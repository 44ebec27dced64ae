// Package httpengine builds and drives the single process-wide HTTP
// client shared by every virtual user, and shapes/sends individual
// requests against it.
package httpengine

import (
	"bufio"
	"compress/gzip"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/pulseload/pulse/internal/engerrors"
)

// ClientConfig controls the shared HTTP client's connection pool and
// transport behaviour.
type ClientConfig struct {
	RequestTimeout      time.Duration
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	UserAgent           string
	DisableCompression  bool
}

// DefaultClientConfig mirrors §2's stated pool limits: 100 idle
// connections per host, a 90 second idle timeout, and a 30 second
// per-request deadline.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RequestTimeout:      30 * time.Second,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		UserAgent:           "pulse/1.0",
		DisableCompression:  false,
	}
}

// NewClient builds the shared HTTP client used for the duration of a
// run. Construction failures are reported as engerrors.ClientBuild so
// the executor can emit StatusChange{Error} without panicking.
func NewClient(cfg ClientConfig) (*http.Client, error) {
	base := &http.Transport{
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		// The brotliRoundTripper below sets Accept-Encoding itself, which
		// turns off net/http's own gzip handling, so it decodes both
		// gzip and brotli bodies when compression is enabled.
		DisableCompression: cfg.DisableCompression,
	}

	var transport http.RoundTripper = base
	transport = &userAgentRoundTripper{next: transport, userAgent: cfg.UserAgent}
	transport = &brotliRoundTripper{next: transport, enabled: !cfg.DisableCompression}

	client := copyHTTPClientWithTimeout(&http.Client{Transport: transport}, cfg.RequestTimeout, true)
	return client, nil
}

// userAgentRoundTripper injects a fixed User-Agent header on every
// outbound request that doesn't already carry one.
type userAgentRoundTripper struct {
	next      http.RoundTripper
	userAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", rt.userAgent)
	}
	return rt.next.RoundTrip(req)
}

// brotliRoundTripper requests brotli alongside gzip and transparently
// decodes both brotli- and gzip-encoded response bodies (net/http only
// decodes gzip when it set Accept-Encoding itself). Grounded on
// grafana/k6's use of andybalholm/brotli in its own load-generating
// HTTP client.
type brotliRoundTripper struct {
	next    http.RoundTripper
	enabled bool
}

func (rt *brotliRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if !rt.enabled {
		return rt.next.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, br")
	}

	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		return nil, engerrors.Network("http transport error", err)
	}

	if resp.Header.Get("Content-Encoding") == "br" {
		resp.Body = &brotliDecodeCloser{r: bufio.NewReader(resp.Body), closer: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
	}

	if resp.Header.Get("Content-Encoding") == "gzip" {
		if gz, err := gzip.NewReader(resp.Body); err == nil {
			resp.Body = struct {
				io.Reader
				io.Closer
			}{gz, resp.Body}
		} else if err != io.EOF {
			resp.Body.Close()
			return nil, engerrors.Network("failed to decode gzip response body", err)
		}
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
	}

	return resp, nil
}

// brotliDecodeCloser lazily wraps the response body in a brotli
// reader on first Read, closing the underlying body on Close.
type brotliDecodeCloser struct {
	r      io.Reader
	br     *brotli.Reader
	closer io.Closer
}

func (b *brotliDecodeCloser) Read(p []byte) (int, error) {
	if b.br == nil {
		b.br = brotli.NewReader(b.r)
	}
	return b.br.Read(p)
}

func (b *brotliDecodeCloser) Close() error {
	return b.closer.Close()
}
