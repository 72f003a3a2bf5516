package gcp

import (
	"context"
	"net"
	"testing"

	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeSearchServer struct {
	discoveryenginepb.UnimplementedSearchServiceServer
	got  *discoveryenginepb.SearchRequest
	resp *discoveryenginepb.SearchResponse
	err  error
}

func (f *fakeSearchServer) Search(_ context.Context, req *discoveryenginepb.SearchRequest) (*discoveryenginepb.SearchResponse, error) {
	f.got = req
	return f.resp, f.err
}

type fakeDocumentServer struct {
	discoveryenginepb.UnimplementedDocumentServiceServer
	pages     [][]*discoveryenginepb.Document
	imported  *discoveryenginepb.ImportDocumentsRequest
	importErr error
}

func (f *fakeDocumentServer) ListDocuments(_ context.Context, req *discoveryenginepb.ListDocumentsRequest) (*discoveryenginepb.ListDocumentsResponse, error) {
	idx := 0
	if req.GetPageToken() == "page-2" {
		idx = 1
	}
	resp := &discoveryenginepb.ListDocumentsResponse{Documents: f.pages[idx]}
	if idx+1 < len(f.pages) {
		resp.NextPageToken = "page-2"
	}
	return resp, nil
}

func (f *fakeDocumentServer) ImportDocuments(_ context.Context, req *discoveryenginepb.ImportDocumentsRequest) (*longrunningpb.Operation, error) {
	f.imported = req
	if f.importErr != nil {
		return nil, f.importErr
	}
	return &longrunningpb.Operation{Name: req.GetParent() + "/operations/import-1"}, nil
}

func setupDiscovery(t *testing.T, search *fakeSearchServer, docs *fakeDocumentServer) *DiscoveryClient {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	discoveryenginepb.RegisterSearchServiceServer(srv, search)
	discoveryenginepb.RegisterDocumentServiceServer(srv, docs)

	go srv.Serve(lis)
	t.Cleanup(func() { srv.Stop() })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c, err := NewDiscoveryClient(context.Background(), "",
		option.WithGRPCConn(conn), option.WithoutAuthentication())
	require.NoError(t, err)
	return c
}

func TestDiscoveryClient_Search(t *testing.T) {
	search := &fakeSearchServer{resp: &discoveryenginepb.SearchResponse{
		Results: []*discoveryenginepb.SearchResponse_SearchResult{{Id: "doc-1"}},
		Summary: &discoveryenginepb.SearchResponse_Summary{SummaryText: "hello"},
	}}
	c := setupDiscovery(t, search, &fakeDocumentServer{})

	resp, err := c.Search(context.Background(), &discoveryenginepb.SearchRequest{
		ServingConfig: "projects/p/locations/global/collections/default_collection/dataStores/d/servingConfigs/default_config",
		Query:         "brakes",
		PageSize:      5,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.GetSummary().GetSummaryText())
	require.Len(t, resp.GetResults(), 1)
	assert.Equal(t, "brakes", search.got.GetQuery())
}

func TestDiscoveryClient_SearchNoResults(t *testing.T) {
	search := &fakeSearchServer{resp: &discoveryenginepb.SearchResponse{
		Summary: &discoveryenginepb.SearchResponse_Summary{SummaryText: "nothing found"},
	}}
	c := setupDiscovery(t, search, &fakeDocumentServer{})

	resp, err := c.Search(context.Background(), &discoveryenginepb.SearchRequest{Query: "none", PageSize: 5})
	require.NoError(t, err)
	assert.Empty(t, resp.GetResults())
	assert.Equal(t, "nothing found", resp.GetSummary().GetSummaryText())
}

func TestDiscoveryClient_SearchError(t *testing.T) {
	search := &fakeSearchServer{err: status.Error(codes.PermissionDenied, "no access")}
	c := setupDiscovery(t, search, &fakeDocumentServer{})

	_, err := c.Search(context.Background(), &discoveryenginepb.SearchRequest{Query: "x", PageSize: 5})
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestDiscoveryClient_ListDocumentsDrainsPages(t *testing.T) {
	docs := &fakeDocumentServer{pages: [][]*discoveryenginepb.Document{
		{{Id: "a"}, {Id: "b"}},
		{{Id: "c"}},
	}}
	c := setupDiscovery(t, &fakeSearchServer{}, docs)

	got, err := c.ListDocuments(context.Background(), &discoveryenginepb.ListDocumentsRequest{Parent: "branch"})
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, d := range got {
		ids = append(ids, d.GetId())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestDiscoveryClient_ImportDocuments(t *testing.T) {
	docs := &fakeDocumentServer{}
	c := setupDiscovery(t, &fakeSearchServer{}, docs)

	name, err := c.ImportDocuments(context.Background(), &discoveryenginepb.ImportDocumentsRequest{Parent: "branch"})
	require.NoError(t, err)
	assert.Equal(t, "branch/operations/import-1", name)
	assert.Equal(t, "branch", docs.imported.GetParent())

	docs.importErr = status.Error(codes.InvalidArgument, "bad uri")
	_, err = c.ImportDocuments(context.Background(), &discoveryenginepb.ImportDocumentsRequest{Parent: "branch"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
