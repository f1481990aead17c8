package system

import (
	"time"

	"github.com/emberfall/server/internal/core/event"
	coresys "github.com/emberfall/server/internal/core/system"
	"github.com/emberfall/server/internal/handler"
)

// RespawnSystem revives dead players after the respawn delay and keeps the
// published invulnerability flag in sync with its timers.
type RespawnSystem struct {
	d *handler.Deps
}

func NewRespawnSystem(d *handler.Deps) *RespawnSystem {
	return &RespawnSystem{d: d}
}

func (s *RespawnSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *RespawnSystem) Update(dt time.Duration) {
	now := s.d.World.Now
	cfg := &s.d.Cfg.Game

	for _, p := range s.d.World.PlayersOrdered() {
		if p.IsDead && p.RespawnAt > 0 && now >= p.RespawnAt {
			x, y, ok := s.d.World.Mask.RandomWalkablePos(s.d.Rng, cfg.BoundsMargin, 100)
			if !ok {
				grid := s.d.World.Mask.Grid()
				x = grid.PixelWidth() / 2
				y = grid.PixelHeight() / 2
			}
			s.d.World.UpdatePlayerPos(p, x, y)
			p.IsDead = false
			p.RespawnAt = 0
			p.HP = p.MaxHP
			p.VX, p.VY = 0, 0
			for k := range p.CooldownUntil {
				delete(p.CooldownUntil, k)
			}
			p.SpawnProtectedUntil = now + cfg.SpawnProtection.Milliseconds()
			event.Emit(s.d.Bus, event.PlayerRespawned{PlayerID: p.ID, X: x, Y: y})
		}

		p.IsInvulnerable = now < p.InvulnerableUntil || now < p.SpawnProtectedUntil
	}
}
