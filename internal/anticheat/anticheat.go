// Package anticheat validates client input against physical limits. It never
// trusts client-reported positions; the simulation derives movement from
// keys, so the checks here bound rates and timing rather than geometry.
package anticheat

import (
	"go.uber.org/zap"

	"github.com/emberfall/server/internal/config"
	"github.com/emberfall/server/internal/protocol"
)

// Verdict classifies a rejected input.
type Verdict int

const (
	Accept Verdict = iota
	// Drop means discard silently: duplicates and reordered packets are
	// network artifacts, not cheating.
	Drop
	// Flag means discard and raise a soft flag.
	Flag
)

var validKeys = map[string]bool{"w": true, "a": true, "s": true, "d": true}

// Validator holds per-session cheat-detection state. Game loop goroutine
// only.
type Validator struct {
	cfg *config.AntiCheatConfig
	log *zap.Logger

	lastSeq    uint32
	seqStarted bool

	inputWindowStart int64 // ms
	inputCount       int

	abilityWindowStart int64
	abilityCount       int

	softFlags int
	malformed int

	dropped int
}

func NewValidator(cfg *config.AntiCheatConfig, log *zap.Logger) *Validator {
	return &Validator{cfg: cfg, log: log}
}

// CheckInput validates one movement input at server time now (ms). Sequence
// regressions are dropped; rate or timing violations are flagged.
func (v *Validator) CheckInput(in *protocol.InputMsg, now int64) Verdict {
	if v.seqStarted && in.Sequence <= v.lastSeq {
		v.dropped++
		return Drop
	}

	if now-v.inputWindowStart >= 1000 {
		v.inputWindowStart = now
		v.inputCount = 0
	}
	v.inputCount++
	if v.inputCount > v.cfg.MaxInputsPerSec {
		return v.flag("input rate exceeded", zap.Int("count", v.inputCount))
	}

	if in.DeltaTime < v.cfg.DtMin || in.DeltaTime > v.cfg.DtMax {
		return v.flag("delta time out of bounds", zap.Float64("dt", in.DeltaTime))
	}

	for _, k := range in.Keys {
		if !validKeys[k] {
			return v.flag("unknown movement key", zap.String("key", k))
		}
	}

	v.lastSeq = in.Sequence
	v.seqStarted = true
	return Accept
}

// CheckMovement bounds the displacement one input may produce against the
// player's fastest legitimate speed. The factor absorbs the diagonal case,
// where per-axis 0.85 scaling yields ~1.202x the base speed along the
// hypotenuse. Movement is derived server-side from keys, so a violation
// means corrupted simulation state; the caller discards the move.
func (v *Validator) CheckMovement(dist, maxSpeed, dt float64) Verdict {
	if dist > maxSpeed*dt*60*v.cfg.SpeedSafetyFactor {
		return v.flag("movement delta exceeds speed bound",
			zap.Float64("dist", dist), zap.Float64("maxSpeed", maxSpeed))
	}
	return Accept
}

// CheckAbility rate-limits ability requests. Rejections do not flag: spam
// clicking during cooldown is normal play.
func (v *Validator) CheckAbility(now int64) bool {
	if now-v.abilityWindowStart >= 1000 {
		v.abilityWindowStart = now
		v.abilityCount = 0
	}
	v.abilityCount++
	return float64(v.abilityCount) <= v.cfg.MaxAbilitiesPerSec
}

// FlagAim raises a soft flag for an aim angle outside the facing tolerance.
func (v *Validator) FlagAim(angle float64) {
	v.flag("aim angle outside facing tolerance", zap.Float64("angle", angle))
}

func (v *Validator) flag(reason string, fields ...zap.Field) Verdict {
	v.softFlags++
	v.log.Warn("soft flag: "+reason, append(fields, zap.Int("flags", v.softFlags))...)
	return Flag
}

// Exceeded reports whether accumulated soft flags warrant a disconnect.
func (v *Validator) Exceeded() bool {
	return v.softFlags > v.cfg.SoftFlagLimit
}

// AddMalformed counts one undecodable message and reports whether the
// session passed the disconnect threshold.
func (v *Validator) AddMalformed() bool {
	v.malformed++
	return v.malformed > v.cfg.MalformedLimit
}

// Stats is a read-only snapshot of the validator counters.
type Stats struct {
	SoftFlags int `json:"softFlags"`
	Malformed int `json:"malformed"`
	Dropped   int `json:"dropped"`
}

func (v *Validator) Stats() Stats {
	return Stats{SoftFlags: v.softFlags, Malformed: v.malformed, Dropped: v.dropped}
}
