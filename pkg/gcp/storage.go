package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/docsift/docsift/pkg/resilience"
)

// Object describes one stored object.
type Object struct {
	Name    string
	Size    int64
	Updated time.Time
}

// StorageClient writes and lists Cloud Storage objects.
type StorageClient struct {
	client *storage.Client
}

// NewStorageClient creates a Cloud Storage client.
func NewStorageClient(ctx context.Context, opts ...option.ClientOption) (*StorageClient, error) {
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcp: storage client: %w", err)
	}
	return &StorageClient{client: c}, nil
}

// Write streams r to bucket/name, replacing any existing object.
func (c *StorageClient) Write(ctx context.Context, bucket, name, contentType string, r io.Reader) error {
	// cancelling the writer context aborts the upload instead of committing
	// a partial object
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := c.client.Bucket(bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return err
	}
	return w.Close()
}

// List returns the objects under prefix in lexical order.
func (c *StorageClient) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var out []Object
	it := c.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Object{Name: attrs.Name, Size: attrs.Size, Updated: attrs.Updated})
	}
}

// Close releases the client.
func (c *StorageClient) Close() error { return c.client.Close() }

// TransientStorageError reports whether a storage error signals an outage.
// Missing buckets and objects are the caller's problem.
func TransientStorageError(err error) bool {
	if errors.Is(err, storage.ErrBucketNotExist) || errors.Is(err, storage.ErrObjectNotExist) {
		return false
	}
	return resilience.Transient(err)
}
