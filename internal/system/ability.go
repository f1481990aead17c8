package system

import (
	"math"
	"time"

	coresys "github.com/emberfall/server/internal/core/system"
	"github.com/emberfall/server/internal/core/event"
	"github.com/emberfall/server/internal/data"
	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/world"
)

// Aim angle tolerance for aimed abilities, degrees either side of facing.
const aimToleranceDeg = 60

// AbilitySystem owns the player attack state machine. Phase transitions are
// deadline-driven against the simulation clock; an attack interrupted by
// death or disconnect simply stops being advanced.
type AbilitySystem struct {
	d      *handler.Deps
	combat *Combat
}

func NewAbilitySystem(d *handler.Deps, combat *Combat) *AbilitySystem {
	return &AbilitySystem{d: d, combat: combat}
}

func (s *AbilitySystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *AbilitySystem) Update(dt time.Duration) {
	// Advance in-flight attacks before starting new ones so an attack that
	// finishes this tick frees the player for a queued request.
	for _, p := range s.d.World.PlayersOrdered() {
		if !p.IsAttacking {
			continue
		}
		if p.IsDead {
			clearAttack(p)
			continue
		}
		s.stepActiveMovement(p, dt)
		s.advancePhases(p)
	}

	reqs := s.d.AbilityRequests
	s.d.AbilityRequests = s.d.AbilityRequests[:0]
	for i := range reqs {
		s.start(&reqs[i])
	}
}

func clearAttack(p *world.Player) {
	p.IsAttacking = false
	p.CurrentAttackType = ""
	p.Attack = world.ActiveAttack{}
}

// start validates a request and begins the windup. The cooldown is charged
// immediately: a cancelled attack does not refund it.
func (s *AbilitySystem) start(r *handler.AbilityRequest) {
	now := s.d.World.Now
	p := s.d.World.GetPlayer(r.PlayerID)
	if p == nil || p.IsDead || p.IsAttacking {
		return
	}
	spec := p.ClassDef.Attacks[r.Slot]
	if spec == nil {
		return
	}
	if r.Slot == world.SlotRoll && !p.RollUnlocked {
		return
	}
	if !p.CooldownReady(r.Slot, now) {
		return
	}

	angle := world.FacingAngle(p.Facing)
	if spec.Aimed && r.HasAngle {
		diff := normalizeAngle(r.Angle - angle)
		if math.Abs(diff) > aimToleranceDeg*math.Pi/180 {
			// Shooting backwards is either a buggy client or aim injection.
			// Fall back to the facing direction and flag it.
			s.d.ValidatorFor(p.SessionID).FlagAim(r.Angle)
		} else {
			angle = r.Angle
		}
	}

	cd := float64(spec.CooldownMs) * (1 - p.AttackCooldownBonus)
	p.CooldownUntil[r.Slot] = now + int64(cd)

	p.IsAttacking = true
	p.CurrentAttackType = r.Slot
	p.Attack = world.ActiveAttack{
		Slot:     r.Slot,
		Spec:     spec,
		Phase:    world.AttackWindup,
		Deadline: now + spec.WindupMs,
		Facing:   p.Facing,
		Angle:    angle,
		OriginX:  p.X,
		OriginY:  p.Y,
	}

	if spec.WindupMs > 0 {
		event.Emit(s.d.Bus, event.Telegraph{
			SourceID:  p.ID,
			Archetype: spec.Archetype,
			X:         p.X,
			Y:         p.Y,
			Facing:    p.Facing,
			Width:     spec.Width,
			Length:    spec.Length,
			Range:     spec.Range,
			Angle:     spec.Angle,
			WindupMs:  spec.WindupMs,
		})
	}

	// Zero-windup abilities (dash, roll) go active on the same tick.
	s.advancePhases(p)
}

// advancePhases walks the deadline-driven transitions, possibly several in
// one tick after a long frame.
func (s *AbilitySystem) advancePhases(p *world.Player) {
	now := s.d.World.Now
	for p.IsAttacking && now >= p.Attack.Deadline {
		switch p.Attack.Phase {
		case world.AttackWindup:
			s.beginActive(p)
		case world.AttackActive:
			s.endActive(p)
		case world.AttackRecover:
			clearAttack(p)
		default:
			clearAttack(p)
		}
	}
}

// beginActive resolves the attack's effect. Melee hits are decided here,
// once, using the position at windup end and the facing captured at the
// request.
func (s *AbilitySystem) beginActive(p *world.Player) {
	now := s.d.World.Now
	a := &p.Attack
	spec := a.Spec
	a.OriginX, a.OriginY = p.X, p.Y

	switch spec.Archetype {
	case data.ArchetypeMeleeRect, data.ArchetypeMeleeCone:
		s.resolveMelee(p, a)
	case data.ArchetypeProjectile:
		spawnProjectile(s.d, p.ID, "player", p.X, p.Y, a.Angle, spec)
	case data.ArchetypeDash, data.ArchetypeRoll, data.ArchetypeJump:
		fx, fy := world.FacingVec(a.Facing)
		frames := float64(spec.ActiveMs) / 1000 * 60
		if frames < 1 {
			frames = 1
		}
		perFrame := spec.Distance / frames
		a.DashVX = fx * perFrame
		a.DashVY = fy * perFrame
	}

	if spec.Invulnerable {
		p.InvulnerableUntil = now + spec.ActiveMs
	}

	a.Phase = world.AttackActive
	a.Deadline = now + spec.ActiveMs
}

// stepActiveMovement applies dash/roll/jump translation during the active
// phase. Dash and roll run the normal collision kernel; a jump crosses
// obstacles and settles on landing.
func (s *AbilitySystem) stepActiveMovement(p *world.Player, dt time.Duration) {
	a := &p.Attack
	if a.Phase != world.AttackActive {
		return
	}
	margin := s.d.Cfg.Game.BoundsMargin
	switch a.Spec.Archetype {
	case data.ArchetypeDash, data.ArchetypeRoll:
		nx, ny := world.Step(s.d.World.Mask, p.X, p.Y, a.DashVX, a.DashVY, dt.Seconds(), p.Radius, margin)
		s.d.World.UpdatePlayerPos(p, nx, ny)
	case data.ArchetypeJump:
		grid := s.d.World.Mask.Grid()
		scale := dt.Seconds() * 60
		nx := clampF(p.X+a.DashVX*scale, margin, grid.PixelWidth()-margin)
		ny := clampF(p.Y+a.DashVY*scale, margin, grid.PixelHeight()-margin)
		s.d.World.UpdatePlayerPos(p, math.Round(nx), math.Round(ny))
	}
}

// endActive finishes the active phase. A jump that landed inside a solid
// tile is walked back toward its takeoff point until it finds footing.
func (s *AbilitySystem) endActive(p *world.Player) {
	now := s.d.World.Now
	a := &p.Attack
	spec := a.Spec

	if spec.Archetype == data.ArchetypeJump && !s.d.World.Mask.IsWalkable(p.X, p.Y) {
		for t := 0.95; t >= 0; t -= 0.05 {
			x := math.Round(a.OriginX + (p.X-a.OriginX)*t)
			y := math.Round(a.OriginY + (p.Y-a.OriginY)*t)
			if s.d.World.Mask.IsWalkable(x, y) {
				s.d.World.UpdatePlayerPos(p, x, y)
				break
			}
		}
	}

	recovery := float64(spec.RecoveryMs) * (1 - p.AttackRecoveryBonus)
	a.Phase = world.AttackRecover
	a.Deadline = now + int64(recovery)
}

// resolveMelee tests the attack shape against every target in reach. Player
// targets are rewound by half the attacker's reported round trip when the
// attack is lag-compensated; monsters live purely on the server clock and
// are never rewound.
func (s *AbilitySystem) resolveMelee(p *world.Player, a *world.ActiveAttack) {
	now := s.d.World.Now
	spec := a.Spec
	angle := world.FacingAngle(a.Facing)

	reach := spec.Length
	if spec.Archetype == data.ArchetypeMeleeCone {
		reach = spec.Range
	}

	var rewind int64
	if spec.LagComp {
		if sess := s.d.Sessions.Get(p.SessionID); sess != nil {
			rewind = sess.RTT() / 2
			if rewind > world.RewindLimitMs {
				rewind = world.RewindLimitMs
			}
		}
	}

	hitTest := func(tx, ty, tr float64) bool {
		if spec.Archetype == data.ArchetypeMeleeRect {
			return world.HitRect(a.OriginX, a.OriginY, angle, spec.Width, spec.Length, tx, ty, tr)
		}
		return world.HitCone(a.OriginX, a.OriginY, angle, spec.Range, spec.Angle, tx, ty, tr)
	}

	for _, m := range s.d.World.NearbyMonsters(a.OriginX, a.OriginY, reach+64) {
		if hitTest(m.X, m.Y, m.Stats.CollisionRadius) {
			s.combat.DamageMonster(m, p.ID, spec.Damage)
		}
	}
	// Wider candidate radius than the shape itself: a rewound target may
	// currently stand well outside the reach it occupied half an RTT ago.
	for _, t := range s.d.World.NearbyPlayers(a.OriginX, a.OriginY, reach+256) {
		if t.ID == p.ID || t.IsDead {
			continue
		}
		tx, ty := t.X, t.Y
		if rewind > 0 {
			if samp, ok := t.History.At(now - rewind); ok {
				tx, ty = samp.X, samp.Y
			}
		}
		if hitTest(tx, ty, t.Radius) {
			s.combat.DamagePlayer(t, p.ID, spec.Damage)
		}
	}
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
