package domain

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error taxonomy. Every error leaving an adapter matches exactly one of these
// with errors.Is.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrConfiguration = errors.New("configuration error")
	ErrUpstream      = errors.New("upstream error")
)

// Sentinel causes wrapped by ValidationError.
var (
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrEmptyFileName          = errors.New("empty file name")
	ErrEmptyQuery             = errors.New("query is required")
	ErrOutOfRange             = errors.New("value out of range")
	ErrMalformedURI           = errors.New("malformed storage URI")
	ErrNoFiles                = errors.New("no files supplied")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// Is makes every ValidationError an ErrInvalidInput.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// ConfigError names the deployment variables an operation needs but lacks.
type ConfigError struct {
	Op      string
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: missing configuration: %s", e.Op, strings.Join(e.Missing, ", "))
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// UpstreamError is a failure returned by Cloud Storage or Discovery Engine.
type UpstreamError struct {
	Service string
	Op      string
	Code    codes.Code
	Err     error
}

// NewUpstreamError wraps err, extracting the gRPC status code when present.
func NewUpstreamError(service, op string, err error) *UpstreamError {
	code := codes.Unknown
	if s, ok := status.FromError(err); ok {
		code = s.Code()
	}
	return &UpstreamError{Service: service, Op: op, Code: code, Err: err}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Kind returns a short label for logging: invalid_input, configuration,
// upstream or internal.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	default:
		return "internal"
	}
}
