// Package domain defines the request/response shapes, error taxonomy, and
// validation shared by the docsift adapters. Nothing here talks to the
// network; every entity lives for the duration of one request.
package domain

import (
	"io"
	"time"
)

// PDFContentType is the only accepted upload media type.
const PDFContentType = "application/pdf"

// Upload statuses reported per file.
const (
	StatusUploaded = "uploaded_to_gcs"
	StatusFailed   = "failed"
)

// UploadedFile is one incoming file of an upload request.
type UploadedFile struct {
	Name        string
	ContentType string
	Body        io.Reader
	Size        int64
}

// StoredBlob is the outcome of a successful blob write.
type StoredBlob struct {
	Locator   BlobLocator
	PublicURL string
}

// UploadResult reports the outcome of one file upload.
type UploadResult struct {
	FileName  string `json:"file_name"`
	Status    string `json:"status"`
	GCSURI    string `json:"gcs_uri,omitempty"`
	PublicURL string `json:"public_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Succeeded reports whether the file reached storage.
func (r UploadResult) Succeeded() bool { return r.Status == StatusUploaded }

// IndexOperation reports the import request submitted for one URI.
// OperationName is nil when the submission failed.
type IndexOperation struct {
	OperationName *string `json:"operation_name"`
	FileName      string  `json:"file_name"`
	Error         string  `json:"error,omitempty"`
}

// UploadResponse is the body returned by POST /upload.
type UploadResponse struct {
	UploadResults      []UploadResult   `json:"upload_results"`
	IndexingOperations []IndexOperation `json:"indexing_operations"`
}

// IndexedDocument is a document registered in the search data store.
type IndexedDocument struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// StoredObject is a raw object found under the docs/ prefix of the bucket.
type StoredObject struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// SearchConfiguration carries the tunables of one search request.
type SearchConfiguration struct {
	Query                     string `json:"query" yaml:"-"`
	PageSize                  int32  `json:"page_size" yaml:"page_size"`
	SummaryResultCount        int32  `json:"summary_result_count" yaml:"summary_result_count"`
	MaxSnippetCount           int32  `json:"max_snippet_count" yaml:"max_snippet_count"`
	IncludeCitations          bool   `json:"include_citations" yaml:"include_citations"`
	UseSemanticChunks         bool   `json:"use_semantic_chunks" yaml:"use_semantic_chunks"`
	MaxExtractiveAnswerCount  int32  `json:"max_extractive_answer_count" yaml:"max_extractive_answer_count"`
	MaxExtractiveSegmentCount int32  `json:"max_extractive_segment_count" yaml:"max_extractive_segment_count"`
}

// DefaultSearchConfiguration returns the fallback values applied to fields a
// client leaves out.
func DefaultSearchConfiguration() SearchConfiguration {
	return SearchConfiguration{
		PageSize:                  5,
		SummaryResultCount:        3,
		MaxSnippetCount:           1,
		IncludeCitations:          true,
		UseSemanticChunks:         true,
		MaxExtractiveAnswerCount:  2,
		MaxExtractiveSegmentCount: 1,
	}
}

// SearchResult is the normalized search output. Summary holds the parsed
// summary object, a SummaryFallback, or nil.
type SearchResult struct {
	Results []map[string]any `json:"results"`
	Summary any              `json:"summary"`
}

// SummaryFallback replaces a summary payload that could not be parsed.
type SummaryFallback struct {
	Note    string `json:"note"`
	RawText string `json:"raw_text"`
}
