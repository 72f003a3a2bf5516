package indexing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/docsift/docsift/engine/config"
	"github.com/docsift/docsift/engine/domain"
)

type mockImporter struct {
	mu   sync.Mutex
	reqs []*discoveryenginepb.ImportDocumentsRequest
	fail string
}

func (m *mockImporter) ImportDocuments(_ context.Context, req *discoveryenginepb.ImportDocumentsRequest) (string, error) {
	uri := req.GetGcsSource().GetInputUris()[0]
	if m.fail != "" && strings.Contains(uri, m.fail) {
		return "", status.Error(codes.Unavailable, "try later")
	}
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()
	return "operations/" + domain.BaseName(uri), nil
}

func testConfig() *config.Config {
	return &config.Config{ProjectID: "p", Location: "global", DataStoreID: "d", UploadWorkers: 2}
}

func TestBuildRequest(t *testing.T) {
	want := &discoveryenginepb.ImportDocumentsRequest{
		Parent: "projects/p/locations/global/collections/default_collection/dataStores/d/branches/default_branch",
		Source: &discoveryenginepb.ImportDocumentsRequest_GcsSource{
			GcsSource: &discoveryenginepb.GcsSource{InputUris: []string{"gs://b/docs/a.pdf"}, DataSchema: "content"},
		},
		ReconciliationMode: discoveryenginepb.ImportDocumentsRequest_INCREMENTAL,
	}
	got := BuildRequest(testConfig().BranchPath(), "gs://b/docs/a.pdf")
	assert.True(t, proto.Equal(want, got), "got %v", got)
}

func TestImport(t *testing.T) {
	imp := &mockImporter{}
	ix := New(imp, testConfig(), nil, nil)

	op, err := ix.Import(context.Background(), "gs://b/docs/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "operations/a.pdf", op)
	require.Len(t, imp.reqs, 1)
}

func TestImport_MalformedURI(t *testing.T) {
	imp := &mockImporter{}
	ix := New(imp, testConfig(), nil, nil)

	_, err := ix.Import(context.Background(), "https://b/docs/a.pdf")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, err, domain.ErrMalformedURI)
	assert.Empty(t, imp.reqs)
}

func TestImport_MissingConfig(t *testing.T) {
	imp := &mockImporter{}
	ix := New(imp, &config.Config{ProjectID: "p"}, nil, nil)

	_, err := ix.Import(context.Background(), "gs://b/docs/a.pdf")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Empty(t, imp.reqs)
}

func TestImport_UpstreamError(t *testing.T) {
	ix := New(&mockImporter{fail: "a.pdf"}, testConfig(), nil, nil)

	_, err := ix.Import(context.Background(), "gs://b/docs/a.pdf")
	require.ErrorIs(t, err, domain.ErrUpstream)
	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, codes.Unavailable, ue.Code)
}

func TestImportMany_IsolatesFailures(t *testing.T) {
	ix := New(&mockImporter{fail: "bad"}, testConfig(), nil, nil)

	ops := ix.ImportMany(context.Background(), []string{"gs://b/docs/one.pdf", "gs://b/docs/bad.pdf", "not-a-uri", "gs://b/docs/two.pdf"})
	require.Len(t, ops, 4)

	require.NotNil(t, ops[0].OperationName)
	assert.Equal(t, "operations/one.pdf", *ops[0].OperationName)
	assert.Equal(t, "one.pdf", ops[0].FileName)

	assert.Nil(t, ops[1].OperationName)
	assert.Contains(t, ops[1].Error, "try later")

	assert.Nil(t, ops[2].OperationName)
	assert.NotEmpty(t, ops[2].Error)

	require.NotNil(t, ops[3].OperationName)
	assert.Empty(t, ops[3].Error)
}
