package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/jdy-client/pkg/ratelimit"
	"github.com/Sternrassler/jdy-client/pkg/transport"
)

// contentType is sent on every request, GET included.
const contentType = "application/json;charset=utf-8"

// remoteError is the error document returned with a status >= 400.
type remoteError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// SendRequest issues a call against one of the service URLs and returns the
// parsed JSON result.
//
// For GET the payload becomes the query string, otherwise it is sent as a JSON
// body. A response with status >= 400 and code 8303 is retried after a fixed
// delay, without limit, unless the client was built with
// DisableRateLimitRetry. Any other failure is returned at once.
func (c *Client) SendRequest(ctx context.Context, method, rawURL string, payload any) (json.RawMessage, error) {
	req, err := c.buildRequest(strings.ToUpper(method), rawURL, payload)
	if err != nil {
		return nil, err
	}

	endpoint := path.Base(rawURL)
	var state ratelimit.State

	for {
		result, err := c.attempt(ctx, endpoint, req)
		if err == nil {
			if state.Throttled() {
				c.logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", state.Attempt()).
					Dur("waited", state.Waited).
					Msg("Request succeeded after rate limit retry")
			}
			return result, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !c.policy.ShouldRetry(apiErr.Code) {
			return nil, err
		}

		if waitErr := c.policy.Wait(ctx, endpoint, &state); waitErr != nil {
			return nil, fmt.Errorf("rate limit wait on %s after %d throttled attempts: %w",
				endpoint, state.Throttles, waitErr)
		}
	}
}

// attempt performs one request and classifies its outcome.
func (c *Client) attempt(ctx context.Context, endpoint string, req *transport.Request) (json.RawMessage, error) {
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing request")

	start := time.Now()
	resp, err := c.transport.Send(ctx, req)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: err}
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if !json.Valid(resp.Body) {
		c.logger.Error().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Int("body_bytes", len(resp.Body)).
			Msg("Response body is not valid JSON")
		errorsTotal.WithLabelValues(string(ErrorClassMalformed)).Inc()
		return nil, &MalformedResponseError{StatusCode: resp.StatusCode, Body: resp.Body, Err: ErrInvalidJSON}
	}

	if resp.StatusCode < http.StatusBadRequest {
		return json.RawMessage(resp.Body), nil
	}

	var remote remoteError
	if err := json.Unmarshal(resp.Body, &remote); err != nil {
		// Valid JSON but not an error document.
		remote.Msg = string(resp.Body)
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: remote.Code, Message: remote.Msg}
	errorsTotal.WithLabelValues(string(apiErr.Class())).Inc()

	if apiErr.Class() != ErrorClassRateLimit {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Int("code", remote.Code).
			Str("error_class", string(apiErr.Class())).
			Msg("API request error")
	}
	return nil, apiErr
}

// buildRequest prepares the attempt-independent request.
func (c *Client) buildRequest(method, rawURL string, payload any) (*transport.Request, error) {
	req := &transport.Request{
		Method: method,
		URL:    rawURL,
		Header: http.Header{
			"Authorization": []string{"Bearer " + c.config.APIKey},
			"Content-Type":  []string{contentType},
		},
		Timeout: c.config.RequestTimeout,
	}

	if method == http.MethodGet {
		query, err := encodeQuery(payload)
		if err != nil {
			return nil, err
		}
		req.Query = query
		return req, nil
	}

	if payload == nil {
		payload = struct{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	req.Body = body
	return req, nil
}

// encodeQuery flattens the top-level fields of a JSON object payload into
// query parameters. Strings are sent verbatim, null as an empty value, and
// anything else as its JSON text.
func encodeQuery(payload any) (url.Values, error) {
	if payload == nil {
		return nil, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal query payload: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("query payload must be a JSON object: %w", err)
	}

	query := make(url.Values, len(fields))
	for key, raw := range fields {
		raw = bytes.TrimSpace(raw)
		switch {
		case bytes.Equal(raw, []byte("null")):
			query.Set(key, "")
		case len(raw) > 0 && raw[0] == '"':
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("decode query field %s: %w", key, err)
			}
			query.Set(key, s)
		default:
			query.Set(key, string(raw))
		}
	}
	return query, nil
}
