package world

import (
	"github.com/emberfall/server/internal/data"
	"github.com/emberfall/server/internal/protocol"
)

// Attack ability slots.
const (
	SlotPrimary   = "primary"
	SlotSecondary = "secondary"
	SlotRoll      = "roll"
)

// Attack phases for the timed ability state machine. Phase transitions are
// driven by Deadline against the simulation clock, never by deferred
// closures, so an interrupted attack (death, disconnect) leaves no stray
// timers behind.
const (
	AttackIdle = iota
	AttackWindup
	AttackActive
	AttackRecover
)

// ActiveAttack is the in-flight ability of a player.
type ActiveAttack struct {
	Slot     string
	Spec     *data.AttackSpec
	Phase    int
	Deadline int64 // ms, end of current phase
	// Facing is captured at the moment of the request; the origin is the
	// player's position at windup end.
	Facing  string
	Angle   float64 // aim angle for aimed projectiles
	OriginX float64
	OriginY float64
	// Dash/jump translation target, resolved per step during the active phase.
	DashVX float64
	DashVY float64
}

// Player is the authoritative record for a connected player. Accessed only
// from the game loop goroutine. The session is referenced by id, never
// embedded — sockets belong to the I/O layer.
type Player struct {
	ID        string
	SessionID uint64
	Class     string
	ClassDef  *data.ClassDef

	X, Y   float64
	VX, VY float64
	Facing string
	Radius float64

	HP    int
	MaxHP int

	Level      int
	Experience int
	KillCount  int

	MoveSpeedBonus      float64 // additive, pixels/frame
	AttackRecoveryBonus float64 // fraction shaved off recovery
	AttackCooldownBonus float64 // fraction shaved off cooldowns
	RollUnlocked        bool

	// Haste powerup buff, additive while active.
	HasteBonus float64
	HasteUntil int64

	IsAttacking       bool
	CurrentAttackType string
	Attack            ActiveAttack
	CooldownUntil     map[string]int64 // slot → ms timestamp

	IsDead              bool
	IsInvulnerable      bool
	InvulnerableUntil   int64
	SpawnProtectedUntil int64
	RespawnAt           int64 // 0 = no respawn pending

	LastProcessedSeq uint32
	PendingInputs    []protocol.InputMsg

	History PosHistory
}

// MoveSpeed returns the effective baseline speed in pixels/frame: class
// speed plus the level bonus, before the directional modifier.
func (p *Player) MoveSpeed() float64 {
	return p.ClassDef.MoveSpeed + p.MoveSpeedBonus
}

// MoveSpeedAt is MoveSpeed plus any active haste buff at time now.
func (p *Player) MoveSpeedAt(now int64) float64 {
	s := p.MoveSpeed()
	if now < p.HasteUntil {
		s += p.HasteBonus
	}
	return s
}

// CooldownReady reports whether the slot is off cooldown at time now.
func (p *Player) CooldownReady(slot string, now int64) bool {
	return now >= p.CooldownUntil[slot]
}

// CooldownRemaining returns the ms left on a slot's cooldown, never negative.
func (p *Player) CooldownRemaining(slot string, now int64) int64 {
	rem := p.CooldownUntil[slot] - now
	if rem < 0 {
		return 0
	}
	return rem
}
