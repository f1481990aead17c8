package system

import (
	"go.uber.org/zap"

	"github.com/emberfall/server/internal/core/event"
	"github.com/emberfall/server/internal/data"
	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/world"
)

// How long a dead monster lingers as a corpse before removal.
const corpseLingerMs = 1000

// Combat is the single entry point for applying damage. Every hit source
// (melee, projectile, monster attack) funnels through here so invulnerability,
// death, XP, and level-ups behave identically everywhere.
type Combat struct {
	d *handler.Deps
}

func NewCombat(d *handler.Deps) *Combat {
	return &Combat{d: d}
}

// DamagePlayer applies damage to a player. Returns false when no damage was
// dealt (dead or invulnerable target).
func (c *Combat) DamagePlayer(p *world.Player, attackerID string, amount int) bool {
	now := c.d.World.Now
	if p.IsDead || now < p.InvulnerableUntil || now < p.SpawnProtectedUntil {
		return false
	}
	if amount <= 0 {
		return false
	}
	p.HP -= amount
	if p.HP < 0 {
		p.HP = 0
	}
	event.Emit(c.d.Bus, event.Damage{TargetID: p.ID, AttackerID: attackerID, Amount: amount})

	if p.HP == 0 {
		c.killPlayer(p, attackerID)
	}
	return true
}

func (c *Combat) killPlayer(p *world.Player, killerID string) {
	now := c.d.World.Now
	p.IsDead = true
	p.IsAttacking = false
	p.CurrentAttackType = ""
	p.Attack = world.ActiveAttack{}
	p.VX, p.VY = 0, 0
	p.PendingInputs = p.PendingInputs[:0]
	p.RespawnAt = now + c.d.Cfg.Game.RespawnDelay.Milliseconds()

	event.Emit(c.d.Bus, event.PlayerDied{PlayerID: p.ID, KillerID: killerID})
	c.d.Log.Info("player died",
		zap.String("player", p.ID),
		zap.String("killer", killerID),
	)
}

// DamageMonster applies damage to a monster. The killer, when a player,
// receives the XP reward.
func (c *Combat) DamageMonster(m *world.Monster, attackerID string, amount int) bool {
	if !m.Targetable() || amount <= 0 {
		return false
	}
	m.HP -= amount
	if m.HP < 0 {
		m.HP = 0
	}
	event.Emit(c.d.Bus, event.Damage{TargetID: m.ID, AttackerID: attackerID, Amount: amount})

	if m.HP == 0 {
		c.killMonster(m, attackerID)
	}
	return true
}

func (c *Combat) killMonster(m *world.Monster, killerID string) {
	now := c.d.World.Now
	m.Alive = false
	m.State = world.MonsterDying
	m.VX, m.VY = 0, 0
	m.TargetID = ""
	m.RemoveAt = now + corpseLingerMs

	if killer := c.d.World.GetPlayer(killerID); killer != nil {
		killer.KillCount++
		c.awardXP(killer, m.Stats.XPReward)
	}
}

// awardXP grants experience and applies any level-ups it pays for. Each
// level restores the player to full health.
func (c *Combat) awardXP(p *world.Player, xp int) {
	if xp <= 0 || p.Level >= data.MaxLevel {
		p.Experience += xp
		return
	}
	p.Experience += xp
	for p.Level < data.MaxLevel && p.Experience >= data.TotalXPForLevel(p.Level+1) {
		p.Level++
		c.applyLevelPerk(p, p.Level)
		p.HP = p.MaxHP
		event.Emit(c.d.Bus, event.LevelUp{PlayerID: p.ID, Level: p.Level})
		c.d.Log.Info("level up", zap.String("player", p.ID), zap.Int("level", p.Level))
	}
}

func (c *Combat) applyLevelPerk(p *world.Player, level int) {
	switch level {
	case 2, 6:
		p.MoveSpeedBonus += 0.25
	case 3, 7:
		p.AttackRecoveryBonus += 0.1
	case 4, 8:
		p.AttackCooldownBonus += 0.1
	case 5:
		p.RollUnlocked = true
	case 10:
		p.MaxHP++
	}
}
