// Package testutil provides a mock form-data service for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
)

// Remote error codes served by the mock.
const (
	CodeRateLimited  = 8303
	CodeInvalidKey   = 8301
	CodeDataNotFound = 4004
	CodeInvalidField = 4001
)

// MockResponse is a canned reply for one operation.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// RequestRecord captures one request received by the mock.
type RequestRecord struct {
	Method string
	AppID  string
	Entry  string
	Op     string
	Header http.Header
	Query  string
	Body   map[string]any
}

// MockServer is an in-memory form-data service with scripted failures.
type MockServer struct {
	server *httptest.Server
	apiKey string

	mu        sync.Mutex
	records   []map[string]any
	widgets   []map[string]any
	nextID    int
	throttle  int
	scripted  map[string][]MockResponse
	requests  []RequestRecord
	pageSizes []int
}

// NewMockServer starts a mock service that accepts apiKey. An empty apiKey
// disables the authorization check.
func NewMockServer(apiKey string) *MockServer {
	m := &MockServer{
		apiKey:   apiKey,
		scripted: make(map[string][]MockResponse),
	}

	router := httprouter.New()
	router.POST("/api/v1/app/:app/entry/:entry/:op", m.handle)
	router.GET("/api/v1/app/:app/entry/:entry/:op", m.handle)
	m.server = httptest.NewServer(router)

	return m
}

// URL returns the base URL of the mock.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// SetWidgets configures the widgets endpoint reply.
func (m *MockServer) SetWidgets(widgets []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.widgets = widgets
}

// Seed appends n generated records and returns their ids in order.
func (m *MockServer) Seed(n int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		rec := map[string]any{
			"_widget_text": map[string]any{"value": fmt.Sprintf("row %d", len(m.records)+1)},
		}
		id := m.insertLocked(rec)
		ids = append(ids, id)
	}
	return ids
}

// ThrottleNext makes the next n requests fail with the rate limit code.
func (m *MockServer) ThrottleNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.throttle = n
}

// Script queues canned responses for op. Each request to op consumes one
// response; once the queue is empty normal handling resumes.
func (m *MockServer) Script(op string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted[op] = append(m.scripted[op], responses...)
}

// Requests returns a copy of all requests received.
func (m *MockServer) Requests() []RequestRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RequestRecord, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests received.
func (m *MockServer) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// PageSizes returns the sizes of the data pages served, in order.
func (m *MockServer) PageSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.pageSizes))
	copy(out, m.pageSizes)
	return out
}

// RecordCount returns the number of stored records.
func (m *MockServer) RecordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	op := ps.ByName("op")

	var body map[string]any
	if raw, err := io.ReadAll(r.Body); err == nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": 4000, "msg": "invalid json"})
			return
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, RequestRecord{
		Method: r.Method,
		AppID:  ps.ByName("app"),
		Entry:  ps.ByName("entry"),
		Op:     op,
		Header: r.Header.Clone(),
		Query:  r.URL.RawQuery,
		Body:   body,
	})

	if queue := m.scripted[op]; len(queue) > 0 {
		resp := queue[0]
		m.scripted[op] = queue[1:]
		m.mu.Unlock()

		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write([]byte(resp.Body))
		return
	}

	if m.throttle > 0 {
		m.throttle--
		m.mu.Unlock()
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"code": CodeRateLimited, "msg": "rate limited"})
		return
	}
	defer m.mu.Unlock()

	if m.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+m.apiKey {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": CodeInvalidKey, "msg": "invalid api key"})
		return
	}

	switch op {
	case "widgets":
		widgets := m.widgets
		if widgets == nil {
			widgets = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"widgets": widgets})
	case "data":
		m.serveDataLocked(w, body)
	case "data_retrieve":
		idx := m.indexLocked(stringField(body, "data_id"))
		if idx < 0 {
			writeNotFound(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": m.records[idx]})
	case "data_create":
		data, _ := body["data"].(map[string]any)
		rec := make(map[string]any, len(data))
		for k, v := range data {
			rec[k] = v
		}
		m.insertLocked(rec)
		writeJSON(w, http.StatusCreated, map[string]any{"data": rec})
	case "data_update":
		idx := m.indexLocked(stringField(body, "data_id"))
		if idx < 0 {
			writeNotFound(w)
			return
		}
		data, _ := body["data"].(map[string]any)
		for k, v := range data {
			m.records[idx][k] = v
		}
		m.records[idx]["updateTime"] = time.Now().UTC().Format(time.RFC3339)
		writeJSON(w, http.StatusOK, map[string]any{"data": m.records[idx]})
	case "data_delete":
		idx := m.indexLocked(stringField(body, "data_id"))
		if idx < 0 {
			writeNotFound(w)
			return
		}
		m.records = append(m.records[:idx], m.records[idx+1:]...)
		writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"code": 4040, "msg": "unknown operation"})
	}
}

// serveDataLocked returns up to limit records after the data_id cursor.
func (m *MockServer) serveDataLocked(w http.ResponseWriter, body map[string]any) {
	limit := 10
	if l, ok := body["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}
	if limit > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": CodeInvalidField, "msg": "invalid field: limit"})
		return
	}

	start := 0
	if cursor := stringField(body, "data_id"); cursor != "" {
		idx := m.indexLocked(cursor)
		if idx < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": CodeInvalidField, "msg": "invalid field: data_id"})
			return
		}
		start = idx + 1
	}

	end := start + limit
	if end > len(m.records) {
		end = len(m.records)
	}
	page := m.records[start:end]
	m.pageSizes = append(m.pageSizes, len(page))

	if len(page) == 0 {
		// Empty pages are served without a data key.
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": page})
}

func (m *MockServer) insertLocked(rec map[string]any) string {
	m.nextID++
	id := fmt.Sprintf("%024x", m.nextID)
	now := time.Now().UTC().Format(time.RFC3339)
	rec["_id"] = id
	rec["createTime"] = now
	rec["updateTime"] = now
	m.records = append(m.records, rec)
	return id
}

func (m *MockServer) indexLocked(id string) int {
	for i, rec := range m.records {
		if rec["_id"] == id {
			return i
		}
	}
	return -1
}

func stringField(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"code": CodeDataNotFound, "msg": "data not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NewRateLimitResponse returns the service's throttle reply.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"code":8303,"msg":"rate limited"}`,
	}
}

// NewErrorResponse returns a remote error reply.
func NewErrorResponse(status, code int, msg string) MockResponse {
	body, _ := json.Marshal(map[string]any{"code": code, "msg": msg})
	return MockResponse{StatusCode: status, Body: string(body)}
}

// NewOKResponse returns a 200 reply with body.
func NewOKResponse(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}
