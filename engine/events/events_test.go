package events

import (
	"context"
	"errors"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsift/docsift/pkg/natsutil"
)

func startNATS(t *testing.T) *nats.Conn {
	t.Helper()
	ns, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	require.NoError(t, err)
	ns.Start()
	t.Cleanup(ns.Shutdown)
	require.True(t, ns.ReadyForConnections(5*time.Second), "nats not ready")

	nc, err := Connect(ns.ClientURL(), nil)
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func TestNATSPublisher_RoundTrip(t *testing.T) {
	nc := startNATS(t)

	uploads := make(chan Uploaded, 1)
	imports := make(chan ImportSubmitted, 1)
	_, err := natsutil.Subscribe(nc, SubjectUploaded, func(_ context.Context, _ string, e Uploaded) { uploads <- e })
	require.NoError(t, err)
	_, err = natsutil.Subscribe(nc, SubjectImportSubmitted, func(_ context.Context, _ string, e ImportSubmitted) { imports <- e })
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	p := NewNATSPublisher(nc, nil)
	p.Uploaded(context.Background(), Uploaded{FileName: "a.pdf", GCSURI: "gs://b/docs/a.pdf"})
	p.ImportSubmitted(context.Background(), ImportSubmitted{FileName: "a.pdf", OperationName: "operations/1"})

	select {
	case e := <-uploads:
		assert.Equal(t, "gs://b/docs/a.pdf", e.GCSURI)
	case <-time.After(2 * time.Second):
		t.Fatal("no upload event")
	}
	select {
	case e := <-imports:
		assert.Equal(t, "operations/1", e.OperationName)
	case <-time.After(2 * time.Second):
		t.Fatal("no import event")
	}
}

type failingConn struct{ calls int }

func (f *failingConn) PublishMsg(*nats.Msg) error {
	f.calls++
	return errors.New("connection closed")
}

func TestNATSPublisher_SwallowsErrors(t *testing.T) {
	conn := &failingConn{}
	p := NewNATSPublisher(conn, nil)
	assert.NotPanics(t, func() {
		p.Uploaded(context.Background(), Uploaded{FileName: "a.pdf"})
	})
	assert.Equal(t, 1, conn.calls)
}
