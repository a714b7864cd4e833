package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/processor"
)

func TestStateTracker(t *testing.T) {
	tr := newStateTracker()
	assert.Equal(t, processor.StateEmpty, tr.current())

	first := ld.Init("a")
	second := ld.Init("b")
	tr.initSubmitted(first)
	tr.initSubmitted(second)
	assert.Equal(t, processor.StateLoading, tr.current())

	tr.observe(ld.Failed(first, ld.MsgSuperseded))
	assert.Equal(t, processor.StateLoading, tr.current())

	tr.observe(ld.Succeeded(first, nil, ""))
	assert.Equal(t, processor.StateLoading, tr.current(), "stale pass")

	tr.observe(ld.Succeeded(ld.Fetch(), nil, ""))
	assert.Equal(t, processor.StateLoading, tr.current())

	tr.observe(ld.Succeeded(second, nil, ""))
	assert.Equal(t, processor.StateReady, tr.current())
}
