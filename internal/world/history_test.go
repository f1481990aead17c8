package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryEmpty(t *testing.T) {
	var h PosHistory
	_, ok := h.At(100)
	assert.False(t, ok)
}

func TestHistoryNearestSample(t *testing.T) {
	var h PosHistory
	h.Record(100, 10, 0)
	h.Record(150, 20, 0)
	h.Record(200, 30, 0)

	s, ok := h.At(150)
	require.True(t, ok)
	assert.Equal(t, 20.0, s.X)

	// Between samples: nearest wins.
	s, _ = h.At(190)
	assert.Equal(t, 30.0, s.X)

	s, _ = h.At(160)
	assert.Equal(t, 20.0, s.X)
}

func TestHistoryRewindClamp(t *testing.T) {
	var h PosHistory
	for i := int64(0); i <= 20; i++ {
		h.Record(i*50, float64(i), 0)
	}
	// Newest is t=1000. Asking for t=0 clamps to t=500.
	s, ok := h.At(0)
	require.True(t, ok)
	assert.Equal(t, int64(500), s.T)
	assert.Equal(t, 10.0, s.X)
}

func TestHistoryRingOverwrite(t *testing.T) {
	var h PosHistory
	for i := int64(0); i < 200; i++ {
		h.Record(i*50, float64(i), 0)
	}
	// Newest sample survives and is returned for current time.
	s, ok := h.At(199 * 50)
	require.True(t, ok)
	assert.Equal(t, 199.0, s.X)
}
