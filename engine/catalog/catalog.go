// Package catalog lists the documents registered in the data store's
// default branch.
package catalog

import (
	"context"
	"log/slog"

	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/docsift/docsift/engine/config"
	"github.com/docsift/docsift/engine/domain"
	"github.com/docsift/docsift/pkg/fn"
)

var tracer = otel.Tracer("github.com/docsift/docsift/engine/catalog")

// Lister returns every document under a branch.
type Lister interface {
	ListDocuments(ctx context.Context, req *discoveryenginepb.ListDocumentsRequest) ([]*discoveryenginepb.Document, error)
}

// Catalog lists indexed documents.
type Catalog struct {
	lister Lister
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a Catalog.
func New(lister Lister, cfg *config.Config, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{lister: lister, cfg: cfg, logger: logger}
}

// List returns the documents in upstream order.
func (c *Catalog) List(ctx context.Context) ([]domain.IndexedDocument, error) {
	if err := c.cfg.RequireCatalog(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "catalog.List")
	defer span.End()

	docs, err := c.lister.ListDocuments(ctx, &discoveryenginepb.ListDocumentsRequest{Parent: c.cfg.BranchPath()})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "list failed")
		return nil, domain.NewUpstreamError("discoveryengine", "list documents", err)
	}
	c.logger.Debug("catalog: listed", "count", len(docs))
	return fn.Map(docs, FromProto), nil
}

// FromProto converts a Document, resolving its display title.
func FromProto(d *discoveryenginepb.Document) domain.IndexedDocument {
	var title string
	if v, ok := d.GetStructData().GetFields()["title"]; ok {
		title = v.GetStringValue()
	}
	return domain.IndexedDocument{
		ID:    d.GetId(),
		Name:  d.GetName(),
		Title: domain.ResolveTitle(title, d.GetContent().GetUri(), d.GetId()),
	}
}
