package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsift/docsift/engine/blob"
	"github.com/docsift/docsift/engine/config"
	"github.com/docsift/docsift/engine/domain"
	"github.com/docsift/docsift/engine/events"
	"github.com/docsift/docsift/engine/indexing"
	"github.com/docsift/docsift/pkg/gcp"
)

// flakyStore fails writes whose object name ends with failSuffix.
type flakyStore struct {
	mu         sync.Mutex
	failSuffix string
	writes     []string
}

func (s *flakyStore) Write(_ context.Context, _, name, _ string, r io.Reader) error {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	if s.failSuffix != "" && strings.HasSuffix(name, s.failSuffix) {
		return errors.New("503 backend unavailable")
	}
	s.mu.Lock()
	s.writes = append(s.writes, name)
	s.mu.Unlock()
	return nil
}

func (s *flakyStore) List(context.Context, string, string) ([]gcp.Object, error) { return nil, nil }

type countingImporter struct {
	mu   sync.Mutex
	uris []string
}

func (c *countingImporter) ImportDocuments(_ context.Context, req *discoveryenginepb.ImportDocumentsRequest) (string, error) {
	uri := req.GetGcsSource().GetInputUris()[0]
	c.mu.Lock()
	c.uris = append(c.uris, uri)
	c.mu.Unlock()
	return "operations/" + domain.BaseName(uri), nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	uploads []events.Uploaded
	imports []events.ImportSubmitted
}

func (r *recordingPublisher) Uploaded(_ context.Context, e events.Uploaded) {
	r.mu.Lock()
	r.uploads = append(r.uploads, e)
	r.mu.Unlock()
}

func (r *recordingPublisher) ImportSubmitted(_ context.Context, e events.ImportSubmitted) {
	r.mu.Lock()
	r.imports = append(r.imports, e)
	r.mu.Unlock()
}

func setup(store *flakyStore, imp *countingImporter, pub events.Publisher) *Pipeline {
	cfg := &config.Config{ProjectID: "p", Location: "global", DataStoreID: "d", Bucket: "bucket", UploadWorkers: 3}
	return New(blob.New(store, cfg, nil, nil), indexing.New(imp, cfg, nil, nil), pub, nil)
}

func pdf(name string) domain.UploadedFile {
	return domain.UploadedFile{Name: name, ContentType: "application/pdf", Body: strings.NewReader("%PDF-1.7")}
}

func TestRun_OneStorageFailure(t *testing.T) {
	store := &flakyStore{failSuffix: "b.pdf"}
	imp := &countingImporter{}
	pub := &recordingPublisher{}
	p := setup(store, imp, pub)

	files := []domain.UploadedFile{pdf("a.pdf"), pdf("b.pdf"), pdf("c.pdf")}
	resp, err := p.Run(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, resp.UploadResults, len(files))
	assert.Less(t, len(resp.IndexingOperations), len(files))
	assert.Len(t, resp.IndexingOperations, 2)

	failed := resp.UploadResults[1]
	assert.Equal(t, domain.StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.Error)

	for _, op := range resp.IndexingOperations {
		require.NotNil(t, op.OperationName)
		assert.NotEqual(t, "b.pdf", op.FileName)
	}
	assert.ElementsMatch(t, []string{"gs://bucket/docs/a.pdf", "gs://bucket/docs/c.pdf"}, imp.uris)
	assert.Len(t, pub.uploads, 2)
	assert.Len(t, pub.imports, 2)
}

func TestRun_NonPDFRejectsWholeRequest(t *testing.T) {
	store := &flakyStore{}
	imp := &countingImporter{}
	p := setup(store, imp, nil)

	_, err := p.Run(context.Background(), []domain.UploadedFile{
		pdf("a.pdf"),
		{Name: "notes.txt", ContentType: "text/plain", Body: strings.NewReader("hi")},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, err, domain.ErrUnsupportedContentType)
	assert.Empty(t, store.writes)
	assert.Empty(t, imp.uris)
}

func TestRun_NoFiles(t *testing.T) {
	_, err := setup(&flakyStore{}, &countingImporter{}, nil).Run(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoFiles)
}

func TestRun_AllFailedSkipsImport(t *testing.T) {
	imp := &countingImporter{}
	p := setup(&flakyStore{failSuffix: ".pdf"}, imp, nil)

	resp, err := p.Run(context.Background(), []domain.UploadedFile{pdf("a.pdf")})
	require.NoError(t, err)
	assert.NotNil(t, resp.IndexingOperations)
	assert.Empty(t, resp.IndexingOperations)
	assert.Empty(t, imp.uris)
}
