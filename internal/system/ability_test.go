package system

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/world"
)

const tickDt = 50 * time.Millisecond

func requestAbility(d *handler.Deps, playerID, slot string) {
	d.AbilityRequests = append(d.AbilityRequests, handler.AbilityRequest{
		PlayerID: playerID, Slot: slot,
	})
}

func TestAbilityChargesCooldownAtRequest(t *testing.T) {
	d := newTestDeps(t)
	sys := NewAbilitySystem(d, NewCombat(d))
	d.World.Now = 1000
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3200, 3200)

	requestAbility(d, "p1", world.SlotPrimary)
	sys.Update(tickDt)

	assert.True(t, p.IsAttacking)
	assert.Equal(t, world.SlotPrimary, p.CurrentAttackType)
	assert.Equal(t, world.AttackWindup, p.Attack.Phase)
	assert.Equal(t, int64(1150), p.Attack.Deadline)        // +150ms windup
	assert.Equal(t, int64(1500), p.CooldownUntil["primary"]) // +500ms cooldown

	// A second request during the attack is ignored.
	requestAbility(d, "p1", world.SlotSecondary)
	sys.Update(tickDt)
	assert.Equal(t, world.SlotPrimary, p.CurrentAttackType)
}

func TestAbilityCooldownBlocksRestart(t *testing.T) {
	d := newTestDeps(t)
	sys := NewAbilitySystem(d, NewCombat(d))
	d.World.Now = 1000
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3200, 3200)

	requestAbility(d, "p1", world.SlotPrimary)
	sys.Update(tickDt)

	// Walk through windup, active, and recovery.
	d.World.Now = 1150
	sys.Update(tickDt)
	d.World.Now = 1250
	sys.Update(tickDt)
	d.World.Now = 1450
	sys.Update(tickDt)
	require.False(t, p.IsAttacking)

	// Still on cooldown until 1500.
	requestAbility(d, "p1", world.SlotPrimary)
	sys.Update(tickDt)
	assert.False(t, p.IsAttacking)

	d.World.Now = 1500
	requestAbility(d, "p1", world.SlotPrimary)
	sys.Update(tickDt)
	assert.True(t, p.IsAttacking)
}

func TestMeleeResolvesAtWindupEnd(t *testing.T) {
	d := newTestDeps(t)
	sys := NewAbilitySystem(d, NewCombat(d))
	d.World.Now = 1000
	addTestPlayer(t, d, "p1", 1, "bladedancer", 3200, 3200)
	m := addTestMonster(t, d, "m-1", "slime", 3260, 3200) // 60px to the right

	requestAbility(d, "p1", world.SlotPrimary)
	sys.Update(tickDt)
	// Nothing lands during the windup.
	assert.Equal(t, 3, m.HP)

	d.World.Now = 1150
	sys.Update(tickDt)
	assert.Equal(t, 2, m.HP)

	// The hit was resolved once: advancing through the active phase does not
	// damage again.
	d.World.Now = 1250
	sys.Update(tickDt)
	assert.Equal(t, 2, m.HP)
}

func TestMeleeUsesFacingAtRequest(t *testing.T) {
	d := newTestDeps(t)
	sys := NewAbilitySystem(d, NewCombat(d))
	d.World.Now = 1000
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3200, 3200)
	m := addTestMonster(t, d, "m-1", "slime", 3260, 3200)

	requestAbility(d, "p1", world.SlotPrimary)
	sys.Update(tickDt)

	// Turning during the windup does not redirect the committed swing.
	p.Facing = "left"
	d.World.Now = 1150
	sys.Update(tickDt)
	assert.Equal(t, 2, m.HP)
}

func TestRollLockedBeforeLevelFive(t *testing.T) {
	d := newTestDeps(t)
	sys := NewAbilitySystem(d, NewCombat(d))
	p := addTestPlayer(t, d, "p1", 1, "rogue", 3200, 3200)

	requestAbility(d, "p1", world.SlotRoll)
	sys.Update(tickDt)
	assert.False(t, p.IsAttacking)

	p.RollUnlocked = true
	requestAbility(d, "p1", world.SlotRoll)
	sys.Update(tickDt)
	assert.True(t, p.IsAttacking)
	// Zero windup: the roll goes active on the same tick, with i-frames.
	assert.Equal(t, world.AttackActive, p.Attack.Phase)
	assert.Equal(t, int64(300), p.InvulnerableUntil)
}

func TestDashMovesDuringActivePhase(t *testing.T) {
	d := newTestDeps(t)
	sys := NewAbilitySystem(d, NewCombat(d))
	d.World.Now = 1000
	p := addTestPlayer(t, d, "p1", 1, "hunter", 3200, 3200)

	requestAbility(d, "p1", world.SlotSecondary)
	sys.Update(tickDt)
	require.Equal(t, world.AttackActive, p.Attack.Phase)
	assert.Greater(t, p.Attack.DashVX, 0.0)
	assert.Zero(t, p.Attack.DashVY)

	startX := p.X
	d.World.Now = 1050
	sys.Update(tickDt)
	assert.Greater(t, p.X, startX)
	assert.Equal(t, 3200.0, p.Y)
}

func TestAimOutsideToleranceFallsBackToFacing(t *testing.T) {
	d := newTestDeps(t)
	sys := NewAbilitySystem(d, NewCombat(d))
	p := addTestPlayer(t, d, "p1", 1, "hunter", 3200, 3200) // facing right

	// Aiming straight backwards: flagged, attack fires along facing instead.
	d.AbilityRequests = append(d.AbilityRequests, handler.AbilityRequest{
		PlayerID: "p1", Slot: world.SlotPrimary, Angle: math.Pi, HasAngle: true,
	})
	sys.Update(tickDt)
	require.True(t, p.IsAttacking)
	assert.Zero(t, p.Attack.Angle)
	assert.Equal(t, 1, d.ValidatorFor(p.SessionID).Stats().SoftFlags)
}

func TestAimWithinToleranceIsUsed(t *testing.T) {
	d := newTestDeps(t)
	sys := NewAbilitySystem(d, NewCombat(d))
	p := addTestPlayer(t, d, "p1", 1, "hunter", 3200, 3200)

	d.AbilityRequests = append(d.AbilityRequests, handler.AbilityRequest{
		PlayerID: "p1", Slot: world.SlotPrimary, Angle: 0.5, HasAngle: true,
	})
	sys.Update(tickDt)
	require.True(t, p.IsAttacking)
	assert.Equal(t, 0.5, p.Attack.Angle)
	assert.Equal(t, 0, d.ValidatorFor(p.SessionID).Stats().SoftFlags)
}

func TestProjectileSpawnsAtWindupEnd(t *testing.T) {
	d := newTestDeps(t)
	sys := NewAbilitySystem(d, NewCombat(d))
	d.World.Now = 1000
	addTestPlayer(t, d, "p1", 1, "hunter", 3200, 3200)

	requestAbility(d, "p1", world.SlotPrimary)
	sys.Update(tickDt)
	assert.Equal(t, 0, d.World.ProjectileCount())

	d.World.Now = 1100
	sys.Update(tickDt)
	require.Equal(t, 1, d.World.ProjectileCount())
	pr := d.World.ProjectileList()[0]
	assert.Equal(t, "p1", pr.OwnerID)
	assert.Equal(t, "player", pr.OwnerKind)
	assert.Equal(t, "arrow", pr.EffectTag)
	assert.Equal(t, 3220.0, pr.X) // 20px spawn offset along the aim
	assert.Equal(t, 600.0, pr.VX)
}

func TestDeathInterruptsAttack(t *testing.T) {
	d := newTestDeps(t)
	sys := NewAbilitySystem(d, NewCombat(d))
	d.World.Now = 1000
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3200, 3200)

	requestAbility(d, "p1", world.SlotPrimary)
	sys.Update(tickDt)
	require.True(t, p.IsAttacking)

	p.IsDead = true
	d.World.Now = 1150
	sys.Update(tickDt)
	assert.False(t, p.IsAttacking)
}
