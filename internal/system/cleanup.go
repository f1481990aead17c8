package system

import (
	"time"

	"github.com/emberfall/server/internal/core/event"
	coresys "github.com/emberfall/server/internal/core/system"
	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/world"
)

// CleanupSystem removes entities flagged for destruction during the tick:
// expired corpses, spent projectiles, consumed powerups. Running last
// guarantees every earlier system saw a consistent entity set.
type CleanupSystem struct {
	d *handler.Deps
}

func NewCleanupSystem(d *handler.Deps) *CleanupSystem {
	return &CleanupSystem{d: d}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(dt time.Duration) {
	now := s.d.World.Now

	var deadMonsters []string
	for _, m := range s.d.World.MonsterList() {
		if m.State == world.MonsterDying && now >= m.RemoveAt {
			deadMonsters = append(deadMonsters, m.ID)
		}
	}
	for _, id := range deadMonsters {
		s.d.World.RemoveMonster(id)
		event.Emit(s.d.Bus, event.EntityDespawn{
			EntityID: id, Kind: "monster", Reason: "died",
		})
	}

	var spent []string
	var reasons []string
	for _, pr := range s.d.World.ProjectileList() {
		if pr.Removed {
			spent = append(spent, pr.ID)
			reasons = append(reasons, pr.RemoveReason)
		}
	}
	for i, id := range spent {
		s.d.World.RemoveProjectile(id)
		event.Emit(s.d.Bus, event.EntityDespawn{
			EntityID: id, Kind: "projectile", Reason: reasons[i],
		})
	}

	var picked []string
	s.d.World.Powerups(func(pw *world.Powerup) {
		if pw.Removed {
			picked = append(picked, pw.ID)
		}
	})
	for _, id := range picked {
		s.d.World.RemovePowerup(id)
	}
}
