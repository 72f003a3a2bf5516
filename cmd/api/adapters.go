package main

import (
	"context"
	"io"
	"log/slog"

	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"

	"github.com/docsift/docsift/engine/blob"
	"github.com/docsift/docsift/engine/catalog"
	"github.com/docsift/docsift/engine/config"
	"github.com/docsift/docsift/engine/indexing"
	"github.com/docsift/docsift/engine/search"
	"github.com/docsift/docsift/pkg/gcp"
	"github.com/docsift/docsift/pkg/metrics"
	"github.com/docsift/docsift/pkg/resilience"
)

// discoveryAPI is everything the services need from Discovery Engine.
type discoveryAPI interface {
	search.Searcher
	catalog.Lister
	indexing.Importer
}

// unavailable stands in for a cloud client that could not be created.
type unavailable struct{ err error }

func (u unavailable) Search(context.Context, *discoveryenginepb.SearchRequest) (*discoveryenginepb.SearchResponse, error) {
	return nil, u.err
}

func (u unavailable) ListDocuments(context.Context, *discoveryenginepb.ListDocumentsRequest) ([]*discoveryenginepb.Document, error) {
	return nil, u.err
}

func (u unavailable) ImportDocuments(context.Context, *discoveryenginepb.ImportDocumentsRequest) (string, error) {
	return "", u.err
}

func (u unavailable) Write(context.Context, string, string, string, io.Reader) error { return u.err }

func (u unavailable) List(context.Context, string, string) ([]gcp.Object, error) { return nil, u.err }

// guardedDiscovery fails fast while Discovery Engine keeps failing.
type guardedDiscovery struct {
	next discoveryAPI
	b    *resilience.Breaker
}

func (g guardedDiscovery) Search(ctx context.Context, req *discoveryenginepb.SearchRequest) (*discoveryenginepb.SearchResponse, error) {
	return resilience.Do(ctx, g.b, func(ctx context.Context) (*discoveryenginepb.SearchResponse, error) {
		return g.next.Search(ctx, req)
	})
}

func (g guardedDiscovery) ListDocuments(ctx context.Context, req *discoveryenginepb.ListDocumentsRequest) ([]*discoveryenginepb.Document, error) {
	return resilience.Do(ctx, g.b, func(ctx context.Context) ([]*discoveryenginepb.Document, error) {
		return g.next.ListDocuments(ctx, req)
	})
}

func (g guardedDiscovery) ImportDocuments(ctx context.Context, req *discoveryenginepb.ImportDocumentsRequest) (string, error) {
	return resilience.Do(ctx, g.b, func(ctx context.Context) (string, error) {
		return g.next.ImportDocuments(ctx, req)
	})
}

// guardedStore fails fast while Cloud Storage keeps failing.
type guardedStore struct {
	next blob.ObjectStore
	b    *resilience.Breaker
}

func (g guardedStore) Write(ctx context.Context, bucket, name, contentType string, r io.Reader) error {
	_, err := resilience.Do(ctx, g.b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.Write(ctx, bucket, name, contentType, r)
	})
	return err
}

func (g guardedStore) List(ctx context.Context, bucket, prefix string) ([]gcp.Object, error) {
	return resilience.Do(ctx, g.b, func(ctx context.Context) ([]gcp.Object, error) {
		return g.next.List(ctx, bucket, prefix)
	})
}

// newBreaker returns nil when breaking is disabled. counts decides which
// errors are outages. State changes are logged and exported as
// docsift_breaker_open{target}.
func newBreaker(cfg *config.Config, target string, counts func(error) bool, met *metrics.Registry, logger *slog.Logger) *resilience.Breaker {
	if cfg.BreakerThreshold <= 0 {
		return nil
	}
	open := met.Gauge(metrics.WithLabels("docsift_breaker_open", "target", target), "1 while the client circuit breaker rejects calls")
	return resilience.New(resilience.Options{
		Threshold: cfg.BreakerThreshold,
		Cooldown:  cfg.BreakerCooldown,
		Counts:    counts,
		OnChange: func(from, to resilience.State) {
			logger.Warn("circuit breaker state changed", "target", target, "from", from.String(), "to", to.String())
			if to == resilience.StateOpen {
				open.Set(1)
			} else {
				open.Set(0)
			}
		},
	})
}
