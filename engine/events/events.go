// Package events announces completed uploads and submitted imports on NATS
// so other services can follow indexing progress. Publishing is best effort:
// a failure is logged and never fails the request that caused it.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/docsift/docsift/pkg/natsutil"
)

// Subjects.
const (
	SubjectUploaded        = "docsift.documents.uploaded"
	SubjectImportSubmitted = "docsift.documents.import_submitted"
	// SubjectAll matches every subject above.
	SubjectAll = "docsift.documents.>"
)

// Uploaded is published once per file written to storage.
type Uploaded struct {
	FileName  string    `json:"file_name"`
	GCSURI    string    `json:"gcs_uri"`
	PublicURL string    `json:"public_url"`
	At        time.Time `json:"at"`
}

// ImportSubmitted is published once per import request, successful or not.
type ImportSubmitted struct {
	FileName      string    `json:"file_name"`
	OperationName string    `json:"operation_name,omitempty"`
	Error         string    `json:"error,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher emits domain events.
type Publisher interface {
	Uploaded(ctx context.Context, e Uploaded)
	ImportSubmitted(ctx context.Context, e ImportSubmitted)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Uploaded(context.Context, Uploaded)               {}
func (Nop) ImportSubmitted(context.Context, ImportSubmitted) {}

// NATSPublisher publishes events as JSON.
type NATSPublisher struct {
	conn   natsutil.MsgPublisher
	logger *slog.Logger
}

// NewNATSPublisher wraps conn, usually a *nats.Conn.
func NewNATSPublisher(conn natsutil.MsgPublisher, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{conn: conn, logger: logger}
}

// Connect dials NATS with reconnects enabled.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return nats.Connect(url,
		nats.Name("docsift"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("events: nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("events: nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
}

func (p *NATSPublisher) Uploaded(ctx context.Context, e Uploaded) {
	p.publish(ctx, SubjectUploaded, e)
}

func (p *NATSPublisher) ImportSubmitted(ctx context.Context, e ImportSubmitted) {
	p.publish(ctx, SubjectImportSubmitted, e)
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, v any) {
	if err := natsutil.Publish(ctx, p.conn, subject, v); err != nil {
		p.logger.Warn("events: publish failed", "subject", subject, "error", err)
	}
}
