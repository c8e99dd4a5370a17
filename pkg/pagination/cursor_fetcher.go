package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for paginated retrieval.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jdy_pages_fetched_total",
		Help: "Total number of pages fetched by data set",
	}, []string{"name"})

	recordsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jdy_records_fetched_total",
		Help: "Total number of records fetched by data set",
	}, []string{"name"})
)

// ErrMissingCursor is returned when a non-empty page ends with a record that
// carries no cursor. Continuing would restart from the first page.
var ErrMissingCursor = errors.New("last record of page has no cursor")

// progressEvery controls how often progress is logged, in pages.
const progressEvery = 10

// Config holds cursor fetcher configuration.
type Config struct {
	// Name labels logs and metrics (for example the entry id).
	Name string

	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// PageFetcher fetches the page that follows cursor. An empty cursor requests
// the first page; an empty result means there are no more pages.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, cursor string) ([]T, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, cursor string) ([]T, error)

// FetchPage calls f(ctx, cursor).
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, cursor string) ([]T, error) {
	return f(ctx, cursor)
}

// CursorFunc extracts the cursor value of an item.
type CursorFunc[T any] func(item T) string

// CursorFetcher retrieves a whole data set page by page.
type CursorFetcher[T any] struct {
	fetcher PageFetcher[T]
	cursor  CursorFunc[T]
	config  Config
	logger  zerolog.Logger
}

// NewCursorFetcher creates a cursor fetcher.
func NewCursorFetcher[T any](fetcher PageFetcher[T], cursor CursorFunc[T], config Config) *CursorFetcher[T] {
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &CursorFetcher[T]{
		fetcher: fetcher,
		cursor:  cursor,
		config:  config,
		logger:  logger.With().Str("dataset", config.Name).Logger(),
	}
}

// FetchAll fetches pages until an empty one and returns the concatenated
// items.
func (cf *CursorFetcher[T]) FetchAll(ctx context.Context) ([]T, error) {
	start := time.Now()
	results := []T{}
	cursor := ""
	pages := 0

	for {
		page, err := cf.fetcher.FetchPage(ctx, cursor)
		if err != nil {
			cf.logger.Warn().
				Err(err).
				Int("page", pages+1).
				Str("cursor", cursor).
				Msg("Page fetch failed")
			return nil, err
		}

		if len(page) == 0 {
			cf.logger.Info().
				Int("pages", pages).
				Int("records", len(results)).
				Dur("duration", time.Since(start)).
				Msg("Fetch complete")
			return results, nil
		}

		pages++
		pagesFetchedTotal.WithLabelValues(cf.config.Name).Inc()
		recordsFetchedTotal.WithLabelValues(cf.config.Name).Add(float64(len(page)))

		next := cf.cursor(page[len(page)-1])
		if next == "" {
			return nil, fmt.Errorf("page %d: %w", pages, ErrMissingCursor)
		}

		results = append(results, page...)
		cursor = next

		if pages%progressEvery == 0 {
			cf.logger.Info().
				Int("pages", pages).
				Int("records", len(results)).
				Msg("Fetch progress")
		}
	}
}
