package search

import (
	"log/slog"

	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"

	"github.com/docsift/docsift/engine/config"
	"github.com/docsift/docsift/engine/domain"
	"github.com/docsift/docsift/pkg/metrics"
	"github.com/docsift/docsift/pkg/protomap"
)

// Strategy turns a search response into the value returned to clients.
type Strategy interface {
	Name() string
	// Preamble is the summary instruction the strategy expects the model to
	// follow.
	Preamble() string
	Normalize(resp *discoveryenginepb.SearchResponse) (any, error)
}

// NewStrategy returns the strategy for a SUMMARY_MODE value.
func NewStrategy(mode string, met *metrics.Registry, logger *slog.Logger) Strategy {
	if mode == config.SummaryRaw {
		return rawStrategy{}
	}
	return &structuredStrategy{
		logger:    logger,
		fallbacks: met.Counter("docsift_summary_fallbacks_total", "Summaries that could not be parsed as JSON"),
	}
}

// structuredStrategy returns {results, summary} with the summary parsed
// from JSON.
type structuredStrategy struct {
	logger    *slog.Logger
	fallbacks *metrics.Counter
}

func (s *structuredStrategy) Name() string     { return config.SummaryStructured }
func (s *structuredStrategy) Preamble() string { return StructuredPreamble }

func (s *structuredStrategy) Normalize(resp *discoveryenginepb.SearchResponse) (any, error) {
	results, err := protomap.NormalizeAll(resp.GetResults())
	if err != nil {
		return nil, err
	}
	text := resp.GetSummary().GetSummaryText()
	summary, ok := ParseSummary(text)
	if !ok {
		s.fallbacks.Inc()
		s.logger.Warn("search: summary is not JSON, returning raw text", "kind", "degraded", "length", len(text))
	}
	return domain.SearchResult{Results: results, Summary: summary}, nil
}

// rawStrategy returns the whole response as a plain mapping.
type rawStrategy struct{}

func (rawStrategy) Name() string     { return config.SummaryRaw }
func (rawStrategy) Preamble() string { return HTMLPreamble }

func (rawStrategy) Normalize(resp *discoveryenginepb.SearchResponse) (any, error) {
	return protomap.Normalize(resp)
}
