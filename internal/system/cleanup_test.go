package system

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emberfall/server/internal/world"
)

func TestCleanupRemovesCorpsesAfterLinger(t *testing.T) {
	d := newTestDeps(t)
	sys := NewCleanupSystem(d)
	m := addTestMonster(t, d, "m-1", "slime", 3200, 3200)
	m.Alive = false
	m.State = world.MonsterDying
	m.RemoveAt = 2000

	d.World.Now = 1999
	sys.Update(tickDt)
	assert.NotNil(t, d.World.GetMonster("m-1"))

	d.World.Now = 2000
	sys.Update(tickDt)
	assert.Nil(t, d.World.GetMonster("m-1"))
	assert.Empty(t, d.World.MonsterList())
}

func TestCleanupRemovesSpentProjectiles(t *testing.T) {
	d := newTestDeps(t)
	sys := NewCleanupSystem(d)

	d.World.AddProjectile(&world.Projectile{ID: "pr-1", Removed: true, RemoveReason: world.RemoveHit})
	d.World.AddProjectile(&world.Projectile{ID: "pr-2"})

	sys.Update(tickDt)
	assert.Nil(t, d.World.GetProjectile("pr-1"))
	assert.NotNil(t, d.World.GetProjectile("pr-2"))
}

func TestCleanupRemovesConsumedPowerups(t *testing.T) {
	d := newTestDeps(t)
	sys := NewCleanupSystem(d)

	d.World.AddPowerup(&world.Powerup{ID: "pw-1", X: 100, Y: 100, Removed: true})
	d.World.AddPowerup(&world.Powerup{ID: "pw-2", X: 200, Y: 200})

	sys.Update(tickDt)
	assert.Nil(t, d.World.GetPowerup("pw-1"))
	assert.NotNil(t, d.World.GetPowerup("pw-2"))
}

func TestCleanupLeavesLiveMonsters(t *testing.T) {
	d := newTestDeps(t)
	sys := NewCleanupSystem(d)
	addTestMonster(t, d, "m-1", "wolf", 3200, 3200)

	d.World.Now = 99999
	sys.Update(tickDt)
	assert.NotNil(t, d.World.GetMonster("m-1"))
}
