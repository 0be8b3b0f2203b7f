// Package httptransport executes reqcache requests with net/http.
package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bool64/ctxd"
	"github.com/goccy/go-json"
	"github.com/vearutop/reqcache"
)

var _ reqcache.Transport = &Transport{}

// Response is a buffered upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError indicates non-2xx response status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Option configures Transport.
type Option func(t *Transport)

// WithLogger sets a logger.
func WithLogger(logger ctxd.Logger) Option {
	return func(t *Transport) {
		t.log = logger
	}
}

// Transport sends requests with http.Client.
type Transport struct {
	client *http.Client
	log    ctxd.Logger
}

// New creates Transport, http.DefaultClient is used for nil client.
func New(client *http.Client, options ...Option) *Transport {
	if client == nil {
		client = http.DefaultClient
	}

	t := &Transport{
		client: client,
		log:    ctxd.NoOpLogger{},
	}

	for _, o := range options {
		o(t)
	}

	return t
}

// Do sends request and returns *Response.
func (t *Transport) Do(ctx context.Context, req *reqcache.Request) (interface{}, error) {
	hreq, err := t.httpRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	t.log.Debug(ctx, "sending request", "method", hreq.Method, "url", hreq.URL.String())

	resp, err := t.client.Do(hreq)
	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to send request", "url", req.URL)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.log.Error(ctx, "failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ctxd.WrapError(ctx, err, "failed to read response body", "url", req.URL)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (t *Transport) httpRequest(ctx context.Context, req *reqcache.Request) (*http.Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	if len(req.Query) > 0 {
		q := u.Query()

		for _, p := range req.Query {
			q.Add(p.Name, p.Value)
		}

		u.RawQuery = q.Encode()
	}

	var body io.Reader

	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}

		body = bytes.NewReader(data)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}

	return hreq, nil
}
