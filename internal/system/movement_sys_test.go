package system

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emberfall/server/internal/protocol"
	"github.com/emberfall/server/internal/world"
)

func queueInput(p *world.Player, seq uint32, keys []string, facing string) {
	p.PendingInputs = append(p.PendingInputs, protocol.InputMsg{
		Type:      protocol.CInput,
		Sequence:  seq,
		Keys:      keys,
		Facing:    facing,
		DeltaTime: 1.0 / 60.0,
	})
}

func TestMovementAppliesInputsInSequenceOrder(t *testing.T) {
	d := newTestDeps(t)
	sys := NewMovementSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3400, 3200)

	// Queued out of order: applied sorted, each one frame of rightward
	// movement at 5 px/frame.
	queueInput(p, 2, []string{"d"}, "right")
	queueInput(p, 1, []string{"d"}, "right")
	queueInput(p, 3, []string{"d"}, "right")
	sys.Update(tickDt)

	assert.Equal(t, 3415.0, p.X)
	assert.Equal(t, 3200.0, p.Y)
	assert.Equal(t, uint32(3), p.LastProcessedSeq)
	assert.Empty(t, p.PendingInputs)
}

func TestMovementTwentyInputRun(t *testing.T) {
	d := newTestDeps(t)
	sys := NewMovementSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3400, 3200)

	for seq := uint32(1); seq <= 20; seq++ {
		queueInput(p, seq, []string{"d"}, "right")
	}
	sys.Update(tickDt)

	assert.Equal(t, 3500.0, p.X)
	assert.Equal(t, uint32(20), p.LastProcessedSeq)
}

func TestMovementDropsDuplicateSequences(t *testing.T) {
	d := newTestDeps(t)
	sys := NewMovementSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3400, 3200)

	queueInput(p, 1, []string{"d"}, "right")
	sys.Update(tickDt)
	assert.Equal(t, 3405.0, p.X)

	// Replayed and stale sequences are discarded without moving the player.
	queueInput(p, 1, []string{"d"}, "right")
	sys.Update(tickDt)
	assert.Equal(t, 3405.0, p.X)
	assert.Equal(t, uint32(1), p.LastProcessedSeq)
}

func TestMovementLockedWhileAttacking(t *testing.T) {
	d := newTestDeps(t)
	sys := NewMovementSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3400, 3200)
	p.IsAttacking = true
	p.Attack.Phase = world.AttackWindup

	queueInput(p, 1, []string{"d"}, "down")
	sys.Update(tickDt)

	// Position holds, but facing updates and the input is acknowledged.
	assert.Equal(t, 3400.0, p.X)
	assert.Equal(t, "down", p.Facing)
	assert.Equal(t, uint32(1), p.LastProcessedSeq)

	// Recovery unlocks movement.
	p.Attack.Phase = world.AttackRecover
	queueInput(p, 2, []string{"d"}, "right")
	sys.Update(tickDt)
	assert.Equal(t, 3405.0, p.X)
}

func TestMovementDeadPlayersDiscardInputs(t *testing.T) {
	d := newTestDeps(t)
	sys := NewMovementSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3400, 3200)
	p.IsDead = true

	queueInput(p, 1, []string{"d"}, "right")
	sys.Update(tickDt)
	assert.Equal(t, 3400.0, p.X)
	assert.Empty(t, p.PendingInputs)
	assert.Zero(t, p.LastProcessedSeq)
}

func TestMovementForwardsAbilityFlags(t *testing.T) {
	d := newTestDeps(t)
	sys := NewMovementSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3400, 3200)

	p.PendingInputs = append(p.PendingInputs, protocol.InputMsg{
		Sequence: 1, Keys: []string{"d"}, Facing: "right",
		DeltaTime: 1.0 / 60.0, Primary: true, Roll: true,
	})
	sys.Update(tickDt)

	assert.Len(t, d.AbilityRequests, 2)
	assert.Equal(t, world.SlotPrimary, d.AbilityRequests[0].Slot)
	assert.Equal(t, world.SlotRoll, d.AbilityRequests[1].Slot)
}

func TestMovementAbilityFlagsRateCapped(t *testing.T) {
	d := newTestDeps(t)
	sys := NewMovementSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3400, 3200)

	for seq := uint32(1); seq <= 10; seq++ {
		p.PendingInputs = append(p.PendingInputs, protocol.InputMsg{
			Sequence: seq, Facing: "right",
			DeltaTime: 1.0 / 60.0, Primary: true,
		})
	}
	sys.Update(tickDt)

	// Flags riding on inputs spend the same budget as ability_request
	// messages: 4 per second, the rest are dropped.
	assert.Len(t, d.AbilityRequests, 4)
	assert.Equal(t, uint32(10), p.LastProcessedSeq)
}

func TestMovementHasteBonusApplies(t *testing.T) {
	d := newTestDeps(t)
	sys := NewMovementSystem(d)
	d.World.Now = 1000
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3400, 3200)
	p.HasteBonus = 1.0
	p.HasteUntil = 2000

	queueInput(p, 1, []string{"d"}, "right")
	sys.Update(tickDt)
	// 5 base + 1 haste = 6 px for one 60 Hz frame.
	assert.Equal(t, 3406.0, p.X)

	// Expired haste reverts to base speed.
	d.World.Now = 3000
	queueInput(p, 2, []string{"d"}, "right")
	sys.Update(tickDt)
	assert.Equal(t, 3411.0, p.X)
}
