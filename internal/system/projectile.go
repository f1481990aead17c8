package system

import (
	"math"
	"time"

	"github.com/emberfall/server/internal/core/event"
	coresys "github.com/emberfall/server/internal/core/system"
	"github.com/emberfall/server/internal/data"
	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/world"
)

const (
	projectileRadius = 4
	// Fallback absolute lifetime when the spec leaves it unset.
	defaultProjLifetimeMs = 3000
)

// spawnProjectile creates a projectile at the attack origin, offset along
// the aim direction. When the table is full the oldest projectile is shed
// first so the cap holds deterministically.
func spawnProjectile(d *handler.Deps, ownerID, ownerKind string, x, y, angle float64, spec *data.AttackSpec) {
	w := d.World
	if w.ProjectileCount() >= d.Cfg.Game.MaxProjectiles {
		if oldest := w.OldestProjectile(); oldest != nil {
			oldest.Removed = true
			oldest.RemoveReason = world.RemoveExpired
		}
	}

	cos := math.Cos(angle)
	sin := math.Sin(angle)
	sx := x + cos*spec.Offset
	sy := y + sin*spec.Offset
	if !w.Mask.IsWalkable(sx, sy) {
		sx, sy = x, y
	}

	lifetime := spec.LifetimeMs
	if lifetime <= 0 {
		lifetime = defaultProjLifetimeMs
	}

	pr := &world.Projectile{
		ID:            w.NextProjectileID(),
		OwnerID:       ownerID,
		OwnerKind:     ownerKind,
		X:             sx,
		Y:             sy,
		VX:            cos * spec.Speed,
		VY:            sin * spec.Speed,
		Speed:         spec.Speed,
		Angle:         angle,
		Damage:        spec.Damage,
		Range:         spec.ProjRange,
		EffectTag:     spec.EffectTag,
		CreatedAt:     w.Now,
		MaxLifetimeMs: lifetime,
	}
	w.AddProjectile(pr)
	event.Emit(d.Bus, event.EntitySpawn{
		EntityID: pr.ID, Kind: "projectile", Type: pr.EffectTag, X: sx, Y: sy,
	})
}

// ProjectileSystem advances projectiles, consumes their range budget, and
// resolves at most one hit per projectile per tick.
type ProjectileSystem struct {
	d      *handler.Deps
	combat *Combat
}

func NewProjectileSystem(d *handler.Deps, combat *Combat) *ProjectileSystem {
	return &ProjectileSystem{d: d, combat: combat}
}

func (s *ProjectileSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ProjectileSystem) Update(dt time.Duration) {
	now := s.d.World.Now
	sec := dt.Seconds()

	for _, pr := range s.d.World.ProjectileList() {
		if pr.Removed {
			continue
		}

		stepLen := pr.Speed * sec
		nx := pr.X + pr.VX*sec
		ny := pr.Y + pr.VY*sec

		if !s.d.World.Mask.CanMove(pr.X, pr.Y, nx, ny, projectileRadius) {
			pr.Removed = true
			pr.RemoveReason = world.RemoveBlocked
			continue
		}

		if s.resolveHit(pr, pr.X, pr.Y, nx, ny) {
			pr.Removed = true
			pr.RemoveReason = world.RemoveHit
			continue
		}

		pr.X, pr.Y = nx, ny
		pr.Range -= stepLen
		if pr.Range <= 0 || pr.Expired(now) {
			pr.Removed = true
			pr.RemoveReason = world.RemoveExpired
		}
	}
}

// resolveHit sweeps the segment travelled this tick against candidate
// targets. First hit wins, ordered by distance along the segment with id as
// tie-break. Invulnerable targets are passed through, not consumed.
func (s *ProjectileSystem) resolveHit(pr *world.Projectile, x0, y0, x1, y1 float64) bool {
	now := s.d.World.Now
	midX := (x0 + x1) / 2
	midY := (y0 + y1) / 2
	searchR := math.Hypot(x1-x0, y1-y0)/2 + 64

	bestDist := math.Inf(1)
	var hitPlayer *world.Player
	var hitMonster *world.Monster

	for _, t := range s.d.World.NearbyPlayers(midX, midY, searchR) {
		if t.ID == pr.OwnerID || t.IsDead {
			continue
		}
		if now < t.InvulnerableUntil || now < t.SpawnProtectedUntil {
			continue
		}
		d, ok := world.SegmentCircle(x0, y0, x1, y1, t.X, t.Y, t.Radius+projectileRadius)
		if !ok {
			continue
		}
		if d < bestDist || (d == bestDist && hitPlayer != nil && t.ID < hitPlayer.ID) {
			bestDist = d
			hitPlayer = t
			hitMonster = nil
		}
	}

	if pr.OwnerKind == "player" {
		for _, m := range s.d.World.NearbyMonsters(midX, midY, searchR) {
			d, ok := world.SegmentCircle(x0, y0, x1, y1, m.X, m.Y, m.Stats.CollisionRadius+projectileRadius)
			if !ok {
				continue
			}
			better := d < bestDist
			if d == bestDist {
				if hitMonster != nil {
					better = m.ID < hitMonster.ID
				} else if hitPlayer != nil {
					better = m.ID < hitPlayer.ID
				}
			}
			if better {
				bestDist = d
				hitMonster = m
				hitPlayer = nil
			}
		}
	}

	switch {
	case hitMonster != nil:
		s.combat.DamageMonster(hitMonster, pr.OwnerID, pr.Damage)
		return true
	case hitPlayer != nil:
		s.combat.DamagePlayer(hitPlayer, pr.OwnerID, pr.Damage)
		return true
	}
	return false
}
