//go:build linux

package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemStats(t *testing.T) {
	sys, err := systemStats()
	require.NoError(t, err)
	assert.Positive(t, sys.MemoryTotalGB)
	assert.LessOrEqual(t, sys.MemoryUsedGB, sys.MemoryTotalGB)
	assert.InDelta(t, sys.MemoryUsedGB/sys.MemoryTotalGB*100, sys.MemoryPercent, 0.001)
}
