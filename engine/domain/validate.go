package domain

import (
	"fmt"
	"mime"
	"strings"
)

// ValidateUpload checks that a file is a PDF with a usable name.
func ValidateUpload(f UploadedFile) error {
	if !IsPDF(f.ContentType) {
		return NewValidationError("content_type", f.ContentType, ErrUnsupportedContentType)
	}
	if b := BaseName(f.Name); b == "" || b == "." || b == ".." {
		return NewValidationError("file_name", f.Name, ErrEmptyFileName)
	}
	return nil
}

// IsPDF reports whether a Content-Type header denotes application/pdf.
// Media type parameters are ignored.
func IsPDF(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mt, PDFContentType)
}

// ValidateSearch checks a fully defaulted search configuration. Counts must
// not be negative; upper bounds are left to the search service, which clamps
// them.
func ValidateSearch(c SearchConfiguration) error {
	if strings.TrimSpace(c.Query) == "" {
		return NewValidationError("query", c.Query, ErrEmptyQuery)
	}
	counts := []struct {
		field string
		val   int32
	}{
		{"page_size", c.PageSize},
		{"summary_result_count", c.SummaryResultCount},
		{"max_snippet_count", c.MaxSnippetCount},
		{"max_extractive_answer_count", c.MaxExtractiveAnswerCount},
		{"max_extractive_segment_count", c.MaxExtractiveSegmentCount},
	}
	for _, ch := range counts {
		if ch.val < 0 {
			return NewValidationError(ch.field, fmt.Sprintf("%d", ch.val), ErrOutOfRange)
		}
	}
	return nil
}
