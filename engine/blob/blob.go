// Package blob stores uploaded PDFs in the configured Cloud Storage bucket
// under the docs/ prefix and lists what is stored there.
package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/docsift/docsift/engine/config"
	"github.com/docsift/docsift/engine/domain"
	"github.com/docsift/docsift/pkg/fn"
	"github.com/docsift/docsift/pkg/gcp"
	"github.com/docsift/docsift/pkg/metrics"
)

var tracer = otel.Tracer("github.com/docsift/docsift/engine/blob")

// ObjectStore abstracts the bucket operations the uploader needs.
type ObjectStore interface {
	Write(ctx context.Context, bucket, name, contentType string, r io.Reader) error
	List(ctx context.Context, bucket, prefix string) ([]gcp.Object, error)
}

// Uploader writes files to storage.
type Uploader struct {
	store  ObjectStore
	cfg    *config.Config
	logger *slog.Logger

	uploadsOK     *metrics.Counter
	uploadsFailed *metrics.Counter
	uploadDur     *metrics.Histogram
}

// New creates an Uploader. met and logger may be nil.
func New(store ObjectStore, cfg *config.Config, met *metrics.Registry, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	if met == nil {
		met = metrics.New()
	}
	return &Uploader{
		store:         store,
		cfg:           cfg,
		logger:        logger,
		uploadsOK:     met.Counter(metrics.WithLabels("docsift_uploads_total", "status", "ok"), "Files written to storage"),
		uploadsFailed: met.Counter(metrics.WithLabels("docsift_uploads_total", "status", "failed"), "Files written to storage"),
		uploadDur:     met.Histogram("docsift_upload_duration_seconds", "Storage write duration", nil),
	}
}

// Upload validates f and writes it to docs/<basename>. An existing object at
// that path is replaced.
func (u *Uploader) Upload(ctx context.Context, f domain.UploadedFile) (domain.StoredBlob, error) {
	if err := domain.ValidateUpload(f); err != nil {
		return domain.StoredBlob{}, err
	}
	if err := u.cfg.RequireStorage(); err != nil {
		return domain.StoredBlob{}, err
	}
	loc, err := domain.NewBlobLocator(u.cfg.Bucket, f.Name)
	if err != nil {
		return domain.StoredBlob{}, err
	}

	ctx, span := tracer.Start(ctx, "blob.Upload")
	defer span.End()
	span.SetAttributes(attribute.String("gcs.uri", loc.URI()))

	start := time.Now()
	err = u.store.Write(ctx, loc.Bucket, loc.Path, domain.PDFContentType, f.Body)
	u.uploadDur.Since(start)
	if err != nil {
		u.uploadsFailed.Inc()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "write failed")
		return domain.StoredBlob{}, domain.NewUpstreamError("gcs", "write "+loc.Path, err)
	}
	u.uploadsOK.Inc()
	u.logger.Info("blob: uploaded", "uri", loc.URI(), "size", f.Size)
	return domain.StoredBlob{Locator: loc, PublicURL: loc.PublicURL()}, nil
}

// UploadMany uploads every file concurrently, bounded by UPLOAD_WORKERS.
// One result per input is returned in input order; a failure only affects
// its own entry.
func (u *Uploader) UploadMany(ctx context.Context, files []domain.UploadedFile) []domain.UploadResult {
	results := fn.ParMapResult(files, u.cfg.UploadWorkers, func(f domain.UploadedFile) fn.Result[domain.StoredBlob] {
		return fn.FromPair(u.Upload(ctx, f))
	})

	out := make([]domain.UploadResult, len(files))
	for i, r := range results {
		name := domain.BaseName(files[i].Name)
		blob, err := r.Unwrap()
		if err != nil {
			u.logger.Warn("blob: upload failed", "file", files[i].Name, "kind", domain.Kind(err), "error", err)
			out[i] = domain.UploadResult{FileName: name, Status: domain.StatusFailed, Error: err.Error()}
			continue
		}
		out[i] = domain.UploadResult{
			FileName:  blob.Locator.FileName(),
			Status:    domain.StatusUploaded,
			GCSURI:    blob.Locator.URI(),
			PublicURL: blob.PublicURL,
		}
	}
	return out
}

// List returns the stored documents under docs/, skipping folder
// placeholders. Names are reported without the prefix.
func (u *Uploader) List(ctx context.Context) ([]domain.StoredObject, error) {
	if err := u.cfg.RequireStorage(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "blob.List")
	defer span.End()

	objs, err := u.store.List(ctx, u.cfg.Bucket, domain.DocsPrefix)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "list failed")
		return nil, domain.NewUpstreamError("gcs", fmt.Sprintf("list gs://%s/%s", u.cfg.Bucket, domain.DocsPrefix), err)
	}
	out := fn.FilterMap(objs, func(o gcp.Object) (domain.StoredObject, bool) {
		if strings.HasSuffix(o.Name, "/") {
			return domain.StoredObject{}, false
		}
		return domain.StoredObject{Name: domain.BaseName(o.Name), Size: o.Size, LastModified: o.Updated}, true
	})
	if out == nil {
		out = []domain.StoredObject{}
	}
	return out, nil
}
