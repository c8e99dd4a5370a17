// Package transport performs single HTTP attempts against the form-data service.
//
// A Transport never retries and never interprets the response body; retry
// and error classification belong to the dispatcher in pkg/client.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// DefaultTimeout is the per-attempt timeout used when a Request carries none.
const DefaultTimeout = 5 * time.Second

// Request describes one HTTP attempt.
type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Query   url.Values
	Body    []byte
	Timeout time.Duration
}

// Response is the raw outcome of an attempt that reached the server.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport sends a single request. A non-nil error means no HTTP response
// was received (network failure, timeout, cancelled context).
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a plain function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Send calls f(ctx, req).
func (f Func) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPTransport is the production Transport backed by go-retryablehttp with
// its own retries switched off.
type HTTPTransport struct {
	client *retryablehttp.Client
}

// NewHTTP creates an HTTPTransport that logs through logger.
func NewHTTP(logger zerolog.Logger) *HTTPTransport {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = leveledLogger{logger: logger}
	rc.CheckRetry = noRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPTransport{client: rc}
}

// SetHTTPClient replaces the underlying *http.Client (for testing).
func (t *HTTPTransport) SetHTTPClient(client *http.Client) {
	t.client.HTTPClient = client
}

// Send performs the request and reads the full body within the timeout.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := req.URL
	if len(req.Query) > 0 {
		u, err := url.Parse(req.URL)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		q := u.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	var body interface{}
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// noRetry stops go-retryablehttp from retrying anything.
func noRetry(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}
