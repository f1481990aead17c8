package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLagCompRecordsPerTick(t *testing.T) {
	d := newTestDeps(t)
	sys := NewLagCompSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "rogue", 3200, 3200)

	for i := int64(0); i < 5; i++ {
		d.World.Now = i * 50
		d.World.UpdatePlayerPos(p, 3200+float64(i)*10, 3200)
		sys.Update(tickDt)
	}

	// Rewinding 100ms lands on the sample from two ticks ago.
	samp, ok := p.History.At(d.World.Now - 100)
	require.True(t, ok)
	assert.Equal(t, int64(100), samp.T)
	assert.Equal(t, 3220.0, samp.X)
}
