// Package ingest runs the upload request end to end: validate every file,
// write the batch to storage, submit an import for each stored file, and
// announce the outcomes.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/docsift/docsift/engine/domain"
	"github.com/docsift/docsift/engine/events"
	"github.com/docsift/docsift/pkg/fn"
)

// Uploader writes a batch of files, one result per file.
type Uploader interface {
	UploadMany(ctx context.Context, files []domain.UploadedFile) []domain.UploadResult
}

// Importer submits a batch of imports, one operation per URI.
type Importer interface {
	ImportMany(ctx context.Context, uris []string) []domain.IndexOperation
}

// Pipeline wires the upload and import adapters.
type Pipeline struct {
	uploader  Uploader
	importer  Importer
	publisher events.Publisher
	logger    *slog.Logger
}

// New creates a Pipeline. A nil publisher disables events.
func New(uploader Uploader, importer Importer, publisher events.Publisher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Pipeline{uploader: uploader, importer: importer, publisher: publisher, logger: logger}
}

// Run processes one upload request. It fails as a whole only when the
// input is invalid, before anything is written; storage and import
// failures are reported per item.
func (p *Pipeline) Run(ctx context.Context, files []domain.UploadedFile) (domain.UploadResponse, error) {
	if len(files) == 0 {
		return domain.UploadResponse{}, domain.NewValidationError("files", "", domain.ErrNoFiles)
	}
	done := p.stage("validate")
	for _, f := range files {
		if err := domain.ValidateUpload(f); err != nil {
			done()
			return domain.UploadResponse{}, err
		}
	}
	done()

	done = p.stage("upload")
	uploads := p.uploader.UploadMany(ctx, files)
	done()

	stored := fn.FilterMap(uploads, func(r domain.UploadResult) (domain.UploadResult, bool) {
		return r, r.Succeeded()
	})
	now := time.Now().UTC()
	for _, r := range stored {
		p.publisher.Uploaded(ctx, events.Uploaded{FileName: r.FileName, GCSURI: r.GCSURI, PublicURL: r.PublicURL, At: now})
	}

	ops := []domain.IndexOperation{}
	if len(stored) > 0 {
		done = p.stage("import")
		ops = p.importer.ImportMany(ctx, fn.Map(stored, func(r domain.UploadResult) string { return r.GCSURI }))
		done()
	}
	for _, op := range ops {
		e := events.ImportSubmitted{FileName: op.FileName, Error: op.Error, At: time.Now().UTC()}
		if op.OperationName != nil {
			e.OperationName = *op.OperationName
		}
		p.publisher.ImportSubmitted(ctx, e)
	}

	p.logger.Info("ingest: request done",
		"files", len(files),
		"uploaded", len(stored),
		"imports", len(ops),
	)
	return domain.UploadResponse{UploadResults: uploads, IndexingOperations: ops}, nil
}

// stage logs entry and returns a func logging exit with the duration.
func (p *Pipeline) stage(name string) func() {
	p.logger.Debug("stage.enter", "stage", name)
	start := time.Now()
	return func() {
		p.logger.Debug("stage.exit", "stage", name, "duration", time.Since(start))
	}
}
