package anticheat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/emberfall/server/internal/config"
	"github.com/emberfall/server/internal/protocol"
)

func testConfig() *config.AntiCheatConfig {
	return &config.AntiCheatConfig{
		MaxInputsPerSec:    120,
		MaxAbilitiesPerSec: 4,
		SoftFlagLimit:      20,
		MalformedLimit:     50,
		DtMin:              1.0 / 240.0,
		DtMax:              1.0 / 20.0,
		SpeedSafetyFactor:  1.25,
	}
}

func newTestValidator() *Validator {
	return NewValidator(testConfig(), zap.NewNop())
}

func input(seq uint32, dt float64, keys ...string) *protocol.InputMsg {
	return &protocol.InputMsg{Sequence: seq, DeltaTime: dt, Keys: keys, Facing: "down"}
}

func TestCheckInputAccepts(t *testing.T) {
	v := newTestValidator()
	assert.Equal(t, Accept, v.CheckInput(input(1, 1.0/60.0, "w"), 0))
	assert.Equal(t, Accept, v.CheckInput(input(2, 1.0/60.0, "w", "d"), 16))
}

func TestCheckInputSequenceRegression(t *testing.T) {
	v := newTestValidator()
	assert.Equal(t, Accept, v.CheckInput(input(5, 1.0/60.0), 0))
	// Duplicate and stale sequences are dropped, not flagged.
	assert.Equal(t, Drop, v.CheckInput(input(5, 1.0/60.0), 16))
	assert.Equal(t, Drop, v.CheckInput(input(3, 1.0/60.0), 32))
	assert.Equal(t, Accept, v.CheckInput(input(6, 1.0/60.0), 48))
	assert.Equal(t, 2, v.Stats().Dropped)
	assert.Equal(t, 0, v.Stats().SoftFlags)
}

func TestCheckInputRateLimit(t *testing.T) {
	v := newTestValidator()
	for i := 1; i <= 120; i++ {
		assert.Equal(t, Accept, v.CheckInput(input(uint32(i), 1.0/60.0), 10))
	}
	// The 121st input inside the same second is flagged.
	assert.Equal(t, Flag, v.CheckInput(input(121, 1.0/60.0), 10))
	// A new one-second window resets the counter.
	assert.Equal(t, Accept, v.CheckInput(input(122, 1.0/60.0), 1010))
}

func TestCheckInputDeltaTimeBounds(t *testing.T) {
	v := newTestValidator()
	assert.Equal(t, Flag, v.CheckInput(input(1, 0.001), 0))  // below 1/240
	assert.Equal(t, Flag, v.CheckInput(input(2, 0.1), 16))   // above 1/20
	assert.Equal(t, Accept, v.CheckInput(input(3, 0.05), 32))
	// Flagged inputs do not advance the sequence watermark.
	assert.Equal(t, 2, v.Stats().SoftFlags)
}

func TestCheckInputUnknownKey(t *testing.T) {
	v := newTestValidator()
	assert.Equal(t, Flag, v.CheckInput(input(1, 1.0/60.0, "w", "q"), 0))
	assert.Equal(t, Accept, v.CheckInput(input(1, 1.0/60.0, "w"), 16))
}

func TestCheckMovementBounds(t *testing.T) {
	v := newTestValidator()
	// Straight run at full speed: 5 px/frame over one 20 Hz input.
	assert.Equal(t, Accept, v.CheckMovement(5*0.05*60, 5, 0.05))
	// Diagonal: 0.85 per axis puts ~1.202x base speed on the hypotenuse,
	// inside the 1.25 safety factor.
	assert.Equal(t, Accept, v.CheckMovement(18.03, 5, 0.05))
	// Beyond the bound (limit 18.75): flagged.
	assert.Equal(t, Flag, v.CheckMovement(20, 5, 0.05))
	assert.Equal(t, 1, v.Stats().SoftFlags)
}

func TestExceeded(t *testing.T) {
	v := newTestValidator()
	for i := 0; i < 20; i++ {
		v.FlagAim(3.0)
	}
	assert.False(t, v.Exceeded())
	v.FlagAim(3.0)
	assert.True(t, v.Exceeded())
}

func TestCheckAbilityRate(t *testing.T) {
	v := newTestValidator()
	for i := 0; i < 4; i++ {
		assert.True(t, v.CheckAbility(100))
	}
	assert.False(t, v.CheckAbility(100))
	// Rejection raises no flag.
	assert.Equal(t, 0, v.Stats().SoftFlags)
	// New window.
	assert.True(t, v.CheckAbility(1200))
}

func TestAddMalformed(t *testing.T) {
	v := newTestValidator()
	for i := 0; i < 50; i++ {
		assert.False(t, v.AddMalformed())
	}
	assert.True(t, v.AddMalformed())
	assert.Equal(t, 51, v.Stats().Malformed)
}
