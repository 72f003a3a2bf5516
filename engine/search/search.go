// Package search runs Vertex AI Search queries with AI summaries and
// normalizes the response into plain JSON values.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/docsift/docsift/engine/config"
	"github.com/docsift/docsift/engine/domain"
	"github.com/docsift/docsift/pkg/metrics"
)

var tracer = otel.Tracer("github.com/docsift/docsift/engine/search")

// Searcher performs one search round trip.
type Searcher interface {
	Search(ctx context.Context, req *discoveryenginepb.SearchRequest) (*discoveryenginepb.SearchResponse, error)
}

// Service is the search adapter.
type Service struct {
	client   Searcher
	cfg      *config.Config
	strategy Strategy
	preamble string
	logger   *slog.Logger

	searchesOK     *metrics.Counter
	searchesFailed *metrics.Counter
	searchDur      *metrics.Histogram
}

// New creates a Service using the strategy named by cfg.SummaryMode.
// met and logger may be nil.
func New(client Searcher, cfg *config.Config, met *metrics.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if met == nil {
		met = metrics.New()
	}
	strategy := NewStrategy(cfg.SummaryMode, met, logger)
	preamble := strategy.Preamble()
	if cfg.Preamble != "" {
		preamble = cfg.Preamble
	}
	return &Service{
		client:         client,
		cfg:            cfg,
		strategy:       strategy,
		preamble:       preamble,
		logger:         logger,
		searchesOK:     met.Counter(metrics.WithLabels("docsift_searches_total", "status", "ok"), "Search requests"),
		searchesFailed: met.Counter(metrics.WithLabels("docsift_searches_total", "status", "failed"), "Search requests"),
		searchDur:      met.Histogram("docsift_search_duration_seconds", "Search round trip duration", nil),
	}
}

// Defaults returns the configured fallback values for omitted fields.
func (s *Service) Defaults() domain.SearchConfiguration { return s.cfg.SearchDefaults }

// Search runs one query. The result is a domain.SearchResult for the
// structured strategy and a map[string]any for the raw one.
func (s *Service) Search(ctx context.Context, c domain.SearchConfiguration) (any, error) {
	if err := domain.ValidateSearch(c); err != nil {
		return nil, err
	}
	if err := s.cfg.RequireSearch(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.strategy", s.strategy.Name()),
		attribute.Int("search.page_size", int(c.PageSize)),
	)

	req := BuildRequest(s.cfg.ServingConfigPath(), s.preamble, c)
	start := time.Now()
	resp, err := s.client.Search(ctx, req)
	s.searchDur.Since(start)
	if err != nil {
		s.searchesFailed.Inc()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "search failed")
		return nil, domain.NewUpstreamError("discoveryengine", "search", err)
	}
	s.searchesOK.Inc()

	out, err := s.strategy.Normalize(resp)
	if err != nil {
		return nil, fmt.Errorf("search: normalize: %w", err)
	}
	s.logger.Info("search: done", "results", len(resp.GetResults()), "strategy", s.strategy.Name(), "duration", time.Since(start))
	return out, nil
}
