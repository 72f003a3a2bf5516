package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNewBlobLocator_StripsDirectories(t *testing.T) {
	cases := map[string]string{
		"report.pdf":             "docs/report.pdf",
		"../../etc/x.pdf":        "docs/x.pdf",
		"/abs/path/y.pdf":        "docs/y.pdf",
		`C:\Users\me\z.pdf`:      "docs/z.pdf",
		"nested/dir/":            "docs/dir",
		"  spaced name.pdf ":     "docs/spaced name.pdf",
		"a/b/../c/final.pdf":     "docs/final.pdf",
		`mixed/sep\under\w.pdf`:  "docs/w.pdf",
	}
	for in, want := range cases {
		loc, err := NewBlobLocator("bucket", in)
		require.NoError(t, err, in)
		assert.Equal(t, want, loc.Path, in)
		assert.NotContains(t, loc.Path, "..", in)
	}
}

func TestNewBlobLocator_RejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "/", "..", "../", "a/.."} {
		_, err := NewBlobLocator("bucket", in)
		assert.ErrorIs(t, err, ErrInvalidInput, in)
		assert.ErrorIs(t, err, ErrEmptyFileName, in)
	}
}

func TestBlobLocator_URIs(t *testing.T) {
	loc, err := NewBlobLocator("my-bucket", "foo.pdf")
	require.NoError(t, err)
	assert.Equal(t, "gs://my-bucket/docs/foo.pdf", loc.URI())
	assert.Equal(t, "https://storage.googleapis.com/my-bucket/docs/foo.pdf", loc.PublicURL())
	assert.Equal(t, "foo.pdf", loc.FileName())
}

func TestParseGCSURI(t *testing.T) {
	b, o, err := ParseGCSURI("gs://bucket/docs/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "bucket", b)
	assert.Equal(t, "docs/a.pdf", o)

	for _, bad := range []string{"", "http://x/y", "gs://", "gs://bucket", "gs://bucket/", "gs:///obj", "gs://b/dir/"} {
		_, _, err := ParseGCSURI(bad)
		assert.ErrorIs(t, err, ErrMalformedURI, bad)
	}
}

func TestResolveTitle(t *testing.T) {
	assert.Equal(t, "Report", ResolveTitle("Report", "gs://bucket/docs/report.pdf", "id-1"))
	assert.Equal(t, "report.pdf", ResolveTitle("", "gs://bucket/docs/report.pdf", "id-1"))
	assert.Equal(t, "report.pdf", ResolveTitle("   ", "gs://bucket/docs/report.pdf", "id-1"))
	assert.Equal(t, "id-1", ResolveTitle("", "", "id-1"))
}

func TestValidateUpload(t *testing.T) {
	assert.NoError(t, ValidateUpload(UploadedFile{Name: "a.pdf", ContentType: "application/pdf"}))
	assert.NoError(t, ValidateUpload(UploadedFile{Name: "a.pdf", ContentType: "Application/PDF; charset=binary"}))

	err := ValidateUpload(UploadedFile{Name: "a.txt", ContentType: "text/plain"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrUnsupportedContentType)

	err = ValidateUpload(UploadedFile{Name: "a.pdf", ContentType: ""})
	assert.ErrorIs(t, err, ErrUnsupportedContentType)

	err = ValidateUpload(UploadedFile{Name: "", ContentType: "application/pdf"})
	assert.ErrorIs(t, err, ErrEmptyFileName)
}

func TestValidateSearch(t *testing.T) {
	c := DefaultSearchConfiguration()
	c.Query = "quarterly revenue"
	require.NoError(t, ValidateSearch(c))

	empty := c
	empty.Query = "  "
	assert.ErrorIs(t, ValidateSearch(empty), ErrEmptyQuery)

	big := c
	big.PageSize = 500
	big.MaxExtractiveSegmentCount = 50
	assert.NoError(t, ValidateSearch(big), "upper bounds are left to the search service")

	negPage := c
	negPage.PageSize = -1
	err := ValidateSearch(negPage)
	assert.ErrorIs(t, err, ErrOutOfRange)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "page_size", ve.Field)

	neg := c
	neg.MaxExtractiveAnswerCount = -1
	assert.ErrorIs(t, ValidateSearch(neg), ErrInvalidInput)

	zeros := c
	zeros.PageSize = 0
	zeros.MaxSnippetCount = 0
	assert.NoError(t, ValidateSearch(zeros))
}

func TestErrorTaxonomy(t *testing.T) {
	cfgErr := &ConfigError{Op: "search", Missing: []string{"DATASTORE_ID"}}
	assert.ErrorIs(t, cfgErr, ErrConfiguration)
	assert.NotErrorIs(t, cfgErr, ErrUpstream)
	assert.Contains(t, cfgErr.Error(), "DATASTORE_ID")
	assert.Equal(t, "configuration", Kind(fmt.Errorf("wrapped: %w", cfgErr)))

	up := NewUpstreamError("discoveryengine", "search", status.Error(codes.PermissionDenied, "denied"))
	assert.ErrorIs(t, up, ErrUpstream)
	assert.Equal(t, codes.PermissionDenied, up.Code)
	assert.Contains(t, up.Error(), "denied")
	assert.Equal(t, "upstream", Kind(up))

	plain := NewUpstreamError("gcs", "write", errors.New("boom"))
	assert.Equal(t, codes.Unknown, plain.Code)

	assert.Equal(t, "invalid_input", Kind(NewValidationError("q", "", ErrEmptyQuery)))
	assert.Equal(t, "internal", Kind(errors.New("other")))
}
