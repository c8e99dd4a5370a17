// Package client provides the form-data service client: request dispatch with
// rate limit retry, the entry operations, and full data set retrieval.
package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/jdy-client/pkg/logging"
	"github.com/Sternrassler/jdy-client/pkg/ratelimit"
	"github.com/Sternrassler/jdy-client/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request dispatch.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jdy_requests_total",
		Help: "Total requests sent to the form-data service by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jdy_request_duration_seconds",
		Help:    "Duration of single request attempts in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jdy_errors_total",
		Help: "Total failed request attempts by error class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the service host.
	DefaultBaseURL = "https://www.jiandaoyun.com"

	// DefaultRequestTimeout bounds each attempt.
	DefaultRequestTimeout = 5 * time.Second

	// PageSize is the page size used by GetAllFormData.
	PageSize = 100
)

// Config holds the client configuration. It is copied by New and never
// modified afterwards.
type Config struct {
	// AppID identifies the application (required).
	AppID string

	// EntryID identifies the form within the application (required).
	EntryID string

	// APIKey is sent as a bearer token. An empty key is allowed and
	// results in remote authentication errors.
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Transport defaults to transport.NewHTTP.
	Transport transport.Transport

	// Logger defaults to a "jdy-client" component logger.
	Logger *zerolog.Logger

	// DisableRateLimitRetry surfaces rate limit responses as errors
	// instead of waiting and retrying.
	DisableRateLimitRetry bool

	// RetryDelay is the fixed wait before retrying a rate limited request.
	RetryDelay time.Duration

	// RequestTimeout bounds each attempt.
	RequestTimeout time.Duration
}

// DefaultConfig returns a configuration for one entry with default settings.
func DefaultConfig(appID, entryID, apiKey string) Config {
	return Config{
		AppID:          appID,
		EntryID:        entryID,
		APIKey:         apiKey,
		BaseURL:        DefaultBaseURL,
		RetryDelay:     ratelimit.DefaultDelay,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// endpoints are the fixed URLs of one entry.
type endpoints struct {
	widgets  string
	data     string
	retrieve string
	create   string
	update   string
	delete   string
}

func newEndpoints(baseURL, appID, entryID string) endpoints {
	prefix := fmt.Sprintf("%s/api/v1/app/%s/entry/%s", baseURL, appID, entryID)
	return endpoints{
		widgets:  prefix + "/widgets",
		data:     prefix + "/data",
		retrieve: prefix + "/data_retrieve",
		create:   prefix + "/data_create",
		update:   prefix + "/data_update",
		delete:   prefix + "/data_delete",
	}
}

// Client talks to a single entry of the form-data service. It holds no
// mutable state and is safe for concurrent use.
type Client struct {
	config    Config
	endpoints endpoints
	transport transport.Transport
	policy    *ratelimit.Policy
	logger    zerolog.Logger
}

// New creates a client for the entry described by cfg.
func New(cfg Config) (*Client, error) {
	if cfg.AppID == "" {
		return nil, fmt.Errorf("app id is required")
	}
	if cfg.EntryID == "" {
		return nil, fmt.Errorf("entry id is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = ratelimit.DefaultDelay
	}

	var logger zerolog.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	} else {
		logger = logging.NewLogger("jdy-client")
	}
	logger = logger.With().
		Str("app_id", cfg.AppID).
		Str("entry_id", cfg.EntryID).
		Logger()

	tr := cfg.Transport
	if tr == nil {
		tr = transport.NewHTTP(logger)
	}

	return &Client{
		config:    cfg,
		endpoints: newEndpoints(cfg.BaseURL, cfg.AppID, cfg.EntryID),
		transport: tr,
		policy:    ratelimit.NewPolicy(!cfg.DisableRateLimitRetry, cfg.RetryDelay, logger),
		logger:    logger,
	}, nil
}

// AppID returns the application id.
func (c *Client) AppID() string {
	return c.config.AppID
}

// EntryID returns the entry id.
func (c *Client) EntryID() string {
	return c.config.EntryID
}
