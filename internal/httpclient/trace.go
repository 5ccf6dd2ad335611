// Package httpclient builds outbound HTTP clients that log traffic at trace level.
package httpclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// maxLoggedBody caps how much of a response body is copied into the trace log
const maxLoggedBody = 4096

const redacted = "redacted"

type traceTransport struct {
	base http.RoundTripper
	name string
}

// NewTraceClient returns an HTTP client whose requests are logged at trace level
// under the given client name.
func NewTraceClient(name string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &traceTransport{base: http.DefaultTransport, name: name},
	}
}

func (t *traceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target := RedactURL(req.URL)
	start := time.Now()

	log.Trace().
		Str("client", t.name).
		Str("method", req.Method).
		Str("url", target).
		Msg("HTTP request")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		log.Trace().
			Err(err).
			Str("client", t.name).
			Str("url", target).
			Dur("duration", time.Since(start)).
			Msg("HTTP request failed")
		return nil, err
	}

	event := log.Trace().
		Str("client", t.name).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start))

	// Only buffer the body when it will actually be logged
	if event.Enabled() {
		body, readErr := peekBody(resp)
		if readErr != nil {
			event.AnErr("body_error", readErr)
		}
		switch {
		case len(body) == 0:
		case json.Valid(body):
			event.RawJSON("body", body)
		default:
			event.Str("body", string(body))
		}
	}
	event.Msg("HTTP response")

	return resp, nil
}

// peekBody reads up to maxLoggedBody bytes and puts them back in front of the
// remaining body.
func peekBody(resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, nil
	}
	head, err := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), resp.Body), resp.Body}
	return head, err
}

// RedactURL renders u for logs with secrets removed. Webhook URLs carry their
// token as the last path segment, so that segment is masked as well as
// sensitive query parameters and user info.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	c := *u
	c.User = nil

	if strings.Contains(c.Path, "/webhooks/") {
		if i := strings.LastIndex(c.Path, "/"); i >= 0 && i < len(c.Path)-1 {
			c.Path = c.Path[:i+1] + redacted
			c.RawPath = ""
		}
	}

	if c.RawQuery != "" {
		q := c.Query()
		for key := range q {
			if isSensitiveQueryKey(key) {
				q.Set(key, redacted)
			}
		}
		c.RawQuery = q.Encode()
	}
	return c.String()
}

func isSensitiveQueryKey(key string) bool {
	switch strings.ToLower(key) {
	case "apikey", "api_key", "api-key", "key", "token", "access_token", "signature", "sig", "authorization", "auth":
		return true
	default:
		return false
	}
}
