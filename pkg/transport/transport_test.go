package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_Send(t *testing.T) {
	t.Run("post with body and headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/app/a/entry/e/data", r.URL.Path)
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"limit":10}`, string(body))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		defer server.Close()

		tr := NewHTTP(zerolog.Nop())
		resp, err := tr.Send(context.Background(), &Request{
			Method: http.MethodPost,
			URL:    server.URL + "/api/v1/app/a/entry/e/data",
			Header: http.Header{"Authorization": []string{"Bearer key"}},
			Body:   []byte(`{"limit":10}`),
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `{"data":[]}`, string(resp.Body))
	})

	t.Run("get with query", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "v", r.URL.Query().Get("k"))
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		tr := NewHTTP(zerolog.Nop())
		resp, err := tr.Send(context.Background(), &Request{
			Method: http.MethodGet,
			URL:    server.URL + "/x",
			Query:  url.Values{"k": []string{"v"}},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("error status is returned, not retried", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":8303,"msg":"rate limited"}`))
		}))
		defer server.Close()

		tr := NewHTTP(zerolog.Nop())
		resp, err := tr.Send(context.Background(), &Request{Method: http.MethodPost, URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, 1, calls)
	})

	t.Run("timeout is a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		tr := NewHTTP(zerolog.Nop())
		_, err := tr.Send(context.Background(), &Request{
			Method:  http.MethodPost,
			URL:     server.URL,
			Timeout: 50 * time.Millisecond,
		})
		require.Error(t, err)
	})

	t.Run("connection refused is a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		tr := NewHTTP(zerolog.Nop())
		_, err := tr.Send(context.Background(), &Request{Method: http.MethodPost, URL: addr})
		require.Error(t, err)
	})
}

func TestFunc_Send(t *testing.T) {
	called := false
	var tr Transport = Func(func(ctx context.Context, req *Request) (*Response, error) {
		called = true
		return &Response{StatusCode: 204}, nil
	})

	resp, err := tr.Send(context.Background(), &Request{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 204, resp.StatusCode)
}
