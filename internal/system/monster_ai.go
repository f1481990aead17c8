package system

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/emberfall/server/internal/core/event"
	coresys "github.com/emberfall/server/internal/core/system"
	"github.com/emberfall/server/internal/data"
	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/world"
)

// MonsterAISystem runs the spawn controller and the per-monster state
// machine: idle → chase → windup → active → recover, with dying handled by
// combat and cleanup.
type MonsterAISystem struct {
	d      *handler.Deps
	combat *Combat
	rng    *rand.Rand

	seeded      bool
	lastSpawnAt int64
}

func NewMonsterAISystem(d *handler.Deps, combat *Combat, rng *rand.Rand) *MonsterAISystem {
	return &MonsterAISystem{d: d, combat: combat, rng: rng}
}

func (s *MonsterAISystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MonsterAISystem) Update(dt time.Duration) {
	now := s.d.World.Now
	s.runSpawner(now)

	for _, m := range s.d.World.MonsterList() {
		if m.State == world.MonsterDying {
			continue
		}
		s.updateMonster(m, dt, now)
	}
}

func (s *MonsterAISystem) runSpawner(now int64) {
	cfg := &s.d.Cfg.Game
	if !s.seeded {
		for i := 0; i < cfg.InitialSpawns; i++ {
			s.spawnOne()
		}
		s.seeded = true
		s.lastSpawnAt = now
		return
	}
	if now-s.lastSpawnAt < cfg.SpawnInterval.Milliseconds() {
		return
	}
	s.lastSpawnAt = now
	if s.d.World.LiveMonsterCount() < cfg.MaxMonsters {
		s.spawnOne()
	}
}

// spawnOne places a random monster type on walkable ground, outside every
// player's immediate surroundings but within reach of at least one.
func (s *MonsterAISystem) spawnOne() {
	cfg := &s.d.Cfg.Game
	names := s.d.Monsters.Names()
	if len(names) == 0 {
		return
	}
	stats := s.d.Monsters.Get(names[s.rng.Intn(len(names))])

	players := s.d.World.PlayersOrdered()
	for try := 0; try < 20; try++ {
		x, y, ok := s.d.World.Mask.RandomWalkablePos(s.rng, cfg.BoundsMargin, 10)
		if !ok {
			continue
		}
		if len(players) > 0 && !spawnDistanceOK(x, y, players, cfg.MinSpawnRadius, cfg.MaxSpawnRadius) {
			continue
		}

		m := &world.Monster{
			ID:     s.d.World.NextMonsterID(),
			Type:   stats.Name,
			Stats:  stats,
			X:      x,
			Y:      y,
			Facing: "down",
			HP:     stats.MaxHP,
			Alive:  true,
			State:  world.MonsterIdle,
		}
		s.d.World.AddMonster(m)
		event.Emit(s.d.Bus, event.EntitySpawn{
			EntityID: m.ID, Kind: "monster", Type: m.Type, X: x, Y: y,
		})
		s.d.Log.Debug("monster spawned",
			zap.String("id", m.ID),
			zap.String("type", m.Type),
		)
		return
	}
}

func spawnDistanceOK(x, y float64, players []*world.Player, minR, maxR float64) bool {
	withinMax := false
	for _, p := range players {
		d := math.Hypot(p.X-x, p.Y-y)
		if d < minR {
			return false
		}
		if d <= maxR {
			withinMax = true
		}
	}
	return withinMax
}

func (s *MonsterAISystem) updateMonster(m *world.Monster, dt time.Duration, now int64) {
	switch m.State {
	case world.MonsterIdle:
		s.scanForTarget(m)
	case world.MonsterChase:
		s.chase(m, dt, now)
	case world.MonsterWindup:
		if now >= m.StateDeadline {
			s.strike(m)
			m.State = world.MonsterActive
			m.StateDeadline = now + m.Stats.Attack.ActiveMs
		}
	case world.MonsterActive:
		if now >= m.StateDeadline {
			m.State = world.MonsterRecover
			m.StateDeadline = now + m.Stats.Attack.RecoveryMs
			m.CooldownUntil = now + m.Stats.Attack.CooldownMs
		}
	case world.MonsterRecover:
		if now >= m.StateDeadline {
			m.State = world.MonsterChase
		}
	}
}

// scanForTarget aggros onto the nearest live player in range. The lowest id
// wins exact distance ties so repeated runs aggro identically.
func (s *MonsterAISystem) scanForTarget(m *world.Monster) {
	var target *world.Player
	var best float64
	for _, p := range s.d.World.NearbyPlayers(m.X, m.Y, m.Stats.AggroRange) {
		if p.IsDead {
			continue
		}
		dist := math.Hypot(p.X-m.X, p.Y-m.Y)
		if target == nil || dist < best || (dist == best && p.ID < target.ID) {
			target = p
			best = dist
		}
	}
	if target != nil {
		m.TargetID = target.ID
		m.State = world.MonsterChase
	}
}

func (s *MonsterAISystem) chase(m *world.Monster, dt time.Duration, now int64) {
	target := s.d.World.GetPlayer(m.TargetID)
	if target == nil || target.IsDead {
		s.dropTarget(m)
		return
	}
	dx := target.X - m.X
	dy := target.Y - m.Y
	dist := math.Hypot(dx, dy)
	if dist > 2*m.Stats.AggroRange {
		// Leash: the target escaped far enough to forget about.
		s.dropTarget(m)
		return
	}

	m.Facing = world.QuantizeFacing(dx, dy, m.Facing)

	if dist <= m.Stats.AttackRange {
		if now >= m.CooldownUntil {
			m.State = world.MonsterWindup
			m.StateDeadline = now + m.Stats.Attack.WindupMs
			m.VX, m.VY = 0, 0
			event.Emit(s.d.Bus, event.Telegraph{
				SourceID:  m.ID,
				Archetype: m.Stats.Attack.Archetype,
				X:         m.X,
				Y:         m.Y,
				Facing:    m.Facing,
				Width:     m.Stats.Attack.Width,
				Length:    m.Stats.Attack.Length,
				Range:     m.Stats.Attack.Range,
				Angle:     m.Stats.Attack.Angle,
				WindupMs:  m.Stats.Attack.WindupMs,
			})
		}
		return
	}

	speed := m.Stats.MoveSpeed
	vx := dx / dist * speed
	vy := dy / dist * speed
	nx, ny := world.Step(s.d.World.Mask, m.X, m.Y, vx, vy, dt.Seconds(),
		m.Stats.CollisionRadius, s.d.Cfg.Game.BoundsMargin)
	s.d.World.UpdateMonsterPos(m, nx, ny)
	m.VX, m.VY = vx, vy
}

func (s *MonsterAISystem) dropTarget(m *world.Monster) {
	m.TargetID = ""
	m.State = world.MonsterIdle
	m.VX, m.VY = 0, 0
}

// strike resolves the monster's attack at windup end. The monster is
// committed: it strikes at its captured facing even if the target moved or
// died during the windup.
func (s *MonsterAISystem) strike(m *world.Monster) {
	spec := &m.Stats.Attack
	angle := world.FacingAngle(m.Facing)

	switch spec.Archetype {
	case data.ArchetypeProjectile:
		spawnProjectile(s.d, m.ID, "monster", m.X, m.Y, angle, spec)
	case data.ArchetypeMeleeRect, data.ArchetypeMeleeCone:
		reach := spec.Length
		if spec.Archetype == data.ArchetypeMeleeCone {
			reach = spec.Range
		}
		for _, t := range s.d.World.NearbyPlayers(m.X, m.Y, reach+64) {
			if t.IsDead {
				continue
			}
			var hit bool
			if spec.Archetype == data.ArchetypeMeleeRect {
				hit = world.HitRect(m.X, m.Y, angle, spec.Width, spec.Length, t.X, t.Y, t.Radius)
			} else {
				hit = world.HitCone(m.X, m.Y, angle, spec.Range, spec.Angle, t.X, t.Y, t.Radius)
			}
			if hit {
				s.combat.DamagePlayer(t, m.ID, spec.Damage)
			}
		}
	}
}
