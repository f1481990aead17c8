package world

import "github.com/emberfall/server/internal/data"

// Monster AI states.
const (
	MonsterIdle    = "idle"
	MonsterChase   = "chase"
	MonsterWindup  = "windup"
	MonsterActive  = "active"
	MonsterRecover = "recover"
	MonsterDying   = "dying"
)

// Monster is the authoritative record for a spawned monster. Game loop
// access only.
type Monster struct {
	ID    string
	Type  string
	Stats *data.MonsterType

	X, Y   float64
	VX, VY float64
	Facing string

	HP    int
	Alive bool

	State         string
	StateDeadline int64 // ms, end of current state (windup/recover/dying)
	TargetID      string
	CooldownUntil int64 // ms, next attack allowed
	RemoveAt      int64 // ms, corpse removal time once dying
}

// Targetable reports whether the monster is a valid attack target.
// Dying monsters are corpses: visible, but no longer targetable.
func (m *Monster) Targetable() bool {
	return m.Alive && m.State != MonsterDying
}
