package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/processor"
)

var _ processor.Observer = (*Collector)(nil)

func TestCollector_ProcessorEvents(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	initCmd := ld.Init("{}")
	c.CommandReceived(initCmd)
	c.CommandReceived(ld.Fetch())
	c.CommandReceived(ld.Fetch("types"))
	c.IngestError(initCmd, errors.New("bad triple"))
	c.PassCompleted(initCmd, ingest.Stats{Quads: 5, Resources: 3}, 20*time.Millisecond)
	c.PassStalled(initCmd, ingest.Stats{Quads: 2})
	c.ResponseEmitted(ld.Succeeded(initCmd, nil, ld.MsgCompleted))
	c.ResponseEmitted(ld.Failed(ld.Fetch("x"), ld.MsgNotFound))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.commands.WithLabelValues("INIT")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.commands.WithLabelValues("FETCH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.responses.WithLabelValues("INIT", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.responses.WithLabelValues("FETCH", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ingestErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.passes.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.passes.WithLabelValues("stalled")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.quads))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.resources))
	assert.Equal(t, 1, testutil.CollectAndCount(c.passDuration))
}

func TestCollector_ServerEvents(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	c.ClientConnected()
	c.ClientConnected()
	c.ClientDisconnected()
	c.FrameRejected("rate_limited")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.clients))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejected.WithLabelValues("rate_limited")))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}
