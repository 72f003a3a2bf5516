// Package indexing asks Vertex AI Search to (re)import stored documents.
// Imports are submitted and never awaited; callers get the long-running
// operation name to poll elsewhere.
package indexing

import (
	"context"
	"log/slog"

	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/docsift/docsift/engine/config"
	"github.com/docsift/docsift/engine/domain"
	"github.com/docsift/docsift/pkg/fn"
	"github.com/docsift/docsift/pkg/metrics"
)

var tracer = otel.Tracer("github.com/docsift/docsift/engine/indexing")

// Importer submits import requests.
type Importer interface {
	ImportDocuments(ctx context.Context, req *discoveryenginepb.ImportDocumentsRequest) (string, error)
}

// Indexer triggers document imports into the configured data store.
type Indexer struct {
	importer Importer
	cfg      *config.Config
	logger   *slog.Logger

	importsOK     *metrics.Counter
	importsFailed *metrics.Counter
}

// New creates an Indexer. met and logger may be nil.
func New(importer Importer, cfg *config.Config, met *metrics.Registry, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	if met == nil {
		met = metrics.New()
	}
	return &Indexer{
		importer:      importer,
		cfg:           cfg,
		logger:        logger,
		importsOK:     met.Counter(metrics.WithLabels("docsift_imports_total", "status", "ok"), "Import operations submitted"),
		importsFailed: met.Counter(metrics.WithLabels("docsift_imports_total", "status", "failed"), "Import operations submitted"),
	}
}

// BuildRequest returns the incremental import request for one gs:// URI.
func BuildRequest(branch, uri string) *discoveryenginepb.ImportDocumentsRequest {
	return &discoveryenginepb.ImportDocumentsRequest{
		Parent: branch,
		Source: &discoveryenginepb.ImportDocumentsRequest_GcsSource{
			GcsSource: &discoveryenginepb.GcsSource{
				InputUris:  []string{uri},
				DataSchema: "content",
			},
		},
		ReconciliationMode: discoveryenginepb.ImportDocumentsRequest_INCREMENTAL,
	}
}

// Import submits an import for uri and returns the operation name.
func (ix *Indexer) Import(ctx context.Context, uri string) (string, error) {
	if _, _, err := domain.ParseGCSURI(uri); err != nil {
		return "", err
	}
	if err := ix.cfg.RequireIndexing(); err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, "indexing.Import")
	defer span.End()
	span.SetAttributes(attribute.String("gcs.uri", uri))

	op, err := ix.importer.ImportDocuments(ctx, BuildRequest(ix.cfg.BranchPath(), uri))
	if err != nil {
		ix.importsFailed.Inc()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "import failed")
		return "", domain.NewUpstreamError("discoveryengine", "import "+uri, err)
	}
	ix.importsOK.Inc()
	ix.logger.Info("indexing: import submitted", "uri", uri, "operation", op)
	return op, nil
}

// ImportMany submits one import per URI concurrently. Every URI gets an
// entry in input order; a failed submission does not stop the others.
func (ix *Indexer) ImportMany(ctx context.Context, uris []string) []domain.IndexOperation {
	results := fn.ParMapResult(uris, ix.cfg.UploadWorkers, func(uri string) fn.Result[string] {
		return fn.FromPair(ix.Import(ctx, uri))
	})

	out := make([]domain.IndexOperation, len(uris))
	for i, r := range results {
		out[i] = domain.IndexOperation{FileName: domain.BaseName(uris[i])}
		op, err := r.Unwrap()
		if err != nil {
			ix.logger.Warn("indexing: import failed", "uri", uris[i], "kind", domain.Kind(err), "error", err)
			out[i].Error = err.Error()
			continue
		}
		out[i].OperationName = &op
	}
	return out
}
