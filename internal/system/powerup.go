package system

import (
	"math/rand"
	"sort"
	"time"

	"github.com/emberfall/server/internal/core/event"
	coresys "github.com/emberfall/server/internal/core/system"
	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/world"
)

const (
	powerupPickupRadius = 40.0
	powerupLifetimeMs   = 30000
	powerupHealAmount   = 2
	powerupHasteBonus   = 1.0 // pixels/frame
	powerupHasteMs      = 5000
)

// PowerupSystem drops pickups on an interval and resolves overlap pickups.
// Lowest player id wins a contested pickup, same tie-break as everywhere
// else.
type PowerupSystem struct {
	d   *handler.Deps
	rng *rand.Rand

	lastSpawnAt int64
}

func NewPowerupSystem(d *handler.Deps, rng *rand.Rand) *PowerupSystem {
	return &PowerupSystem{d: d, rng: rng}
}

func (s *PowerupSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *PowerupSystem) Update(dt time.Duration) {
	now := s.d.World.Now
	s.maybeSpawn(now)

	s.d.World.Powerups(func(pw *world.Powerup) {
		if pw.Removed {
			return
		}
		if now >= pw.ExpiresAt {
			pw.Removed = true
			event.Emit(s.d.Bus, event.EntityDespawn{
				EntityID: pw.ID, Kind: "powerup", Reason: "expired",
			})
			return
		}
		s.tryPickup(pw, now)
	})
}

func (s *PowerupSystem) maybeSpawn(now int64) {
	interval := s.d.Cfg.Game.PowerupInterval.Milliseconds()
	if interval <= 0 || now-s.lastSpawnAt < interval {
		return
	}
	s.lastSpawnAt = now
	if s.d.World.PlayerCount() == 0 {
		return
	}

	x, y, ok := s.d.World.Mask.RandomWalkablePos(s.rng, s.d.Cfg.Game.BoundsMargin, 20)
	if !ok {
		return
	}
	typ := world.PowerupHeal
	if s.rng.Intn(2) == 1 {
		typ = world.PowerupHaste
	}
	pw := &world.Powerup{
		ID:        s.d.World.NextPowerupID(),
		Type:      typ,
		X:         x,
		Y:         y,
		SpawnAt:   now,
		ExpiresAt: now + powerupLifetimeMs,
	}
	s.d.World.AddPowerup(pw)
	event.Emit(s.d.Bus, event.EntitySpawn{
		EntityID: pw.ID, Kind: "powerup", Type: typ, X: x, Y: y,
	})
}

func (s *PowerupSystem) tryPickup(pw *world.Powerup, now int64) {
	candidates := s.d.World.NearbyPlayers(pw.X, pw.Y, powerupPickupRadius+32)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	for _, p := range candidates {
		if p.IsDead {
			continue
		}
		dx := p.X - pw.X
		dy := p.Y - pw.Y
		r := powerupPickupRadius + p.Radius
		if dx*dx+dy*dy > r*r {
			continue
		}

		switch pw.Type {
		case world.PowerupHeal:
			p.HP += powerupHealAmount
			if p.HP > p.MaxHP {
				p.HP = p.MaxHP
			}
		case world.PowerupHaste:
			p.HasteBonus = powerupHasteBonus
			p.HasteUntil = now + powerupHasteMs
		}

		pw.Removed = true
		event.Emit(s.d.Bus, event.EntityDespawn{
			EntityID: pw.ID, Kind: "powerup", Reason: "picked_up",
		})
		return
	}
}
