// Package gcp wires the Google Cloud clients docsift talks to: Vertex AI
// Search (Discovery Engine) over gRPC and Cloud Storage. Callers depend on
// small interfaces; the types here satisfy them.
package gcp

import (
	"context"
	"errors"
	"fmt"

	discoveryengine "cloud.google.com/go/discoveryengine/apiv1"
	"cloud.google.com/go/discoveryengine/apiv1/discoveryenginepb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ErrEmptyResponse is returned when a search round trip yields no response
// message at all.
var ErrEmptyResponse = errors.New("gcp: search returned no response")

// DiscoveryClient bundles the search and document service clients.
type DiscoveryClient struct {
	search *discoveryengine.SearchClient
	docs   *discoveryengine.DocumentClient
}

// NewDiscoveryClient dials Discovery Engine. endpoint selects a regional
// API host; empty uses the global default.
func NewDiscoveryClient(ctx context.Context, endpoint string, opts ...option.ClientOption) (*DiscoveryClient, error) {
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	search, err := discoveryengine.NewSearchClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcp: search client: %w", err)
	}
	docs, err := discoveryengine.NewDocumentClient(ctx, opts...)
	if err != nil {
		search.Close()
		return nil, fmt.Errorf("gcp: document client: %w", err)
	}
	return &DiscoveryClient{search: search, docs: docs}, nil
}

// Search issues one search call and returns the first page as-is.
func (c *DiscoveryClient) Search(ctx context.Context, req *discoveryenginepb.SearchRequest) (*discoveryenginepb.SearchResponse, error) {
	it := c.search.Search(ctx, req)
	// Next performs the round trip; the raw page lands in it.Response.
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return nil, err
	}
	resp, ok := it.Response.(*discoveryenginepb.SearchResponse)
	if !ok || resp == nil {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}

// ListDocuments drains every page of the listing in upstream order.
func (c *DiscoveryClient) ListDocuments(ctx context.Context, req *discoveryenginepb.ListDocumentsRequest) ([]*discoveryenginepb.Document, error) {
	var docs []*discoveryenginepb.Document
	it := c.docs.ListDocuments(ctx, req)
	for {
		doc, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
}

// ImportDocuments starts an import and returns the long-running operation
// name without waiting for it.
func (c *DiscoveryClient) ImportDocuments(ctx context.Context, req *discoveryenginepb.ImportDocumentsRequest) (string, error) {
	op, err := c.docs.ImportDocuments(ctx, req)
	if err != nil {
		return "", err
	}
	return op.Name(), nil
}

// Close releases both underlying connections.
func (c *DiscoveryClient) Close() error {
	return errors.Join(c.search.Close(), c.docs.Close())
}
