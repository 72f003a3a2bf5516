package domain

import (
	"fmt"
	"strings"
)

// DocsPrefix is the object prefix every upload is stored under.
const DocsPrefix = "docs/"

// BlobLocator addresses an uploaded document inside the configured bucket.
type BlobLocator struct {
	Bucket string
	Path   string
}

// NewBlobLocator derives the locator for a client supplied file name. Only
// the final path component is kept, so "../../etc/x.pdf" maps to docs/x.pdf.
func NewBlobLocator(bucket, fileName string) (BlobLocator, error) {
	base := BaseName(fileName)
	if base == "" || base == "." || base == ".." {
		return BlobLocator{}, NewValidationError("file_name", fileName, ErrEmptyFileName)
	}
	return BlobLocator{Bucket: bucket, Path: DocsPrefix + base}, nil
}

// FileName returns the final path component of the locator.
func (l BlobLocator) FileName() string { return BaseName(l.Path) }

// URI returns the gs:// form used for indexing.
func (l BlobLocator) URI() string {
	return fmt.Sprintf("gs://%s/%s", l.Bucket, l.Path)
}

// PublicURL returns the storage.googleapis.com URL of the object.
func (l BlobLocator) PublicURL() string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", l.Bucket, l.Path)
}

// BaseName returns the last path component of name, treating both '/' and
// '\' as separators. Trailing separators are ignored.
func BaseName(name string) string {
	name = strings.TrimRight(name, `/\`)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", NewValidationError("uri", uri, ErrMalformedURI)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", NewValidationError("uri", uri, ErrMalformedURI)
	}
	return bucket, object, nil
}

// ResolveTitle picks a display title: the metadata title, then the base name
// of the source URI, then the document id.
func ResolveTitle(metadataTitle, sourceURI, id string) string {
	if t := strings.TrimSpace(metadataTitle); t != "" {
		return t
	}
	if sourceURI != "" {
		if base := BaseName(sourceURI); base != "" {
			return base
		}
	}
	return id
}
