// Package handler decodes client messages and applies them to the world.
// Handlers run on the game loop goroutine via the message registry, so they
// touch world state freely and never block.
package handler

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/emberfall/server/internal/anticheat"
	"github.com/emberfall/server/internal/config"
	"github.com/emberfall/server/internal/core/event"
	"github.com/emberfall/server/internal/data"
	"github.com/emberfall/server/internal/net"
	"github.com/emberfall/server/internal/world"
)

// AbilityRequest is a decoded, rate-checked ability trigger awaiting the
// ability system. Requests queue in arrival order and drain once per tick.
type AbilityRequest struct {
	PlayerID   string
	Slot       string
	Angle      float64
	HasAngle   bool
	ClientTime int64
}

// Deps aggregates everything handlers need. One instance, owned by the game
// loop.
type Deps struct {
	Cfg      *config.Config
	Log      *zap.Logger
	World    *world.State
	Sessions *net.SessionTable
	Bus      *event.Bus
	Classes  *data.ClassTable
	Monsters *data.MonsterTable

	// Per-session validators, created on accept and removed on disconnect by
	// the input system.
	Validators map[uint64]*anticheat.Validator

	// Pending class picks for sessions still in the lobby.
	PendingClass map[uint64]string

	// Ability requests decoded this tick, drained by the ability system.
	AbilityRequests []AbilityRequest

	// Spawn placement randomness. Distinct from the world seed: obstacle
	// layout must be reproducible by clients, spawn points need not be.
	Rng *rand.Rand
}

func NewDeps(cfg *config.Config, log *zap.Logger, w *world.State, sessions *net.SessionTable,
	bus *event.Bus, classes *data.ClassTable, monsters *data.MonsterTable, rng *rand.Rand) *Deps {
	return &Deps{
		Cfg:          cfg,
		Log:          log,
		World:        w,
		Sessions:     sessions,
		Bus:          bus,
		Classes:      classes,
		Monsters:     monsters,
		Validators:   make(map[uint64]*anticheat.Validator),
		PendingClass: make(map[uint64]string),
		Rng:          rng,
	}
}

// ValidatorFor returns the session's validator, creating it on first use.
func (d *Deps) ValidatorFor(sessionID uint64) *anticheat.Validator {
	v := d.Validators[sessionID]
	if v == nil {
		v = anticheat.NewValidator(&d.Cfg.AntiCheat, d.Log.With(zap.Uint64("session", sessionID)))
		d.Validators[sessionID] = v
	}
	return v
}

// DropSession discards all per-session handler state.
func (d *Deps) DropSession(sessionID uint64) {
	delete(d.Validators, sessionID)
	delete(d.PendingClass, sessionID)
}
