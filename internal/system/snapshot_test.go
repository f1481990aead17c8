package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfall/server/internal/protocol"
	"github.com/emberfall/server/internal/world"
)

func findRecord(records []protocol.EntityRecord, id string) *protocol.EntityRecord {
	for i := range records {
		if records[i].ID == id {
			return &records[i]
		}
	}
	return nil
}

func TestSnapshotFirstSightIsFull(t *testing.T) {
	d := newTestDeps(t)
	sys := NewSnapshotSystem(d)
	d.World.Tick = 7
	d.World.Now = 350
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3200, 3200)
	p.LastProcessedSeq = 42
	addTestMonster(t, d, "m-1", "slime", 3300, 3200)

	msg := sys.buildSnapshot(1, p, 1500)
	assert.Equal(t, uint64(7), msg.Tick)
	assert.Equal(t, int64(350), msg.ServerTime)
	assert.Equal(t, uint32(42), msg.LastProcessedSeq)

	self := findRecord(msg.Entities, "p1")
	require.NotNil(t, self)
	assert.Equal(t, "full", self.UpdateType)
	assert.Equal(t, "player", self.Kind)
	assert.Equal(t, 3200.0, self.Fields["x"])
	assert.Equal(t, "bladedancer", self.Fields["class"])
	assert.Equal(t, uint32(42), self.Fields["lastProcessedSeq"])

	mon := findRecord(msg.Entities, "m-1")
	require.NotNil(t, mon)
	assert.Equal(t, "full", mon.UpdateType)
	assert.Equal(t, "slime", mon.Fields["monsterType"])
	assert.Equal(t, 3, mon.Fields["hp"])
}

func TestSnapshotDeltaCarriesCriticalFields(t *testing.T) {
	d := newTestDeps(t)
	sys := NewSnapshotSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3200, 3200)
	other := addTestPlayer(t, d, "p2", 2, "rogue", 3300, 3200)

	sys.buildSnapshot(1, p, 1500)

	// p2 moves; p1 stands still.
	d.World.UpdatePlayerPos(other, 3310, 3200)
	msg := sys.buildSnapshot(1, p, 1500)

	rec := findRecord(msg.Entities, "p2")
	require.NotNil(t, rec)
	assert.Equal(t, "delta", rec.UpdateType)
	assert.Equal(t, 3310.0, rec.Fields["x"])
	// The critical set rides every delta, changed or not.
	for _, k := range []string{"x", "y", "hp", "facing", "isDead", "isInvulnerable"} {
		assert.Contains(t, rec.Fields, k)
	}
	// Unchanged non-critical fields are omitted, and only the own-player
	// record carries the ack.
	assert.NotContains(t, rec.Fields, "level")
	assert.NotContains(t, rec.Fields, "class")
	assert.NotContains(t, rec.Fields, "maxHp")
	assert.NotContains(t, rec.Fields, "lastProcessedSeq")

	// The stationary self also deltas down to the critical floor.
	self := findRecord(msg.Entities, "p1")
	require.NotNil(t, self)
	assert.Equal(t, "delta", self.UpdateType)
	assert.Len(t, self.Fields, 7)
	assert.Contains(t, self.Fields, "lastProcessedSeq")
}

func TestSnapshotDropsBaselineOfRemovedSession(t *testing.T) {
	d := newTestDeps(t)
	sys := NewSnapshotSystem(d)
	p := addTestPlayer(t, d, "p1", 42, "bladedancer", 3200, 3200)

	sys.buildSnapshot(42, p, 1500)
	require.Contains(t, sys.lastSent, uint64(42))

	// Session 42 was never in (or has left) the table; the next output
	// pass forgets its delta baseline instead of holding it forever.
	sys.Update(tickDt)
	assert.NotContains(t, sys.lastSent, uint64(42))
}

func TestSnapshotDeltaIncludesChangedNonCritical(t *testing.T) {
	d := newTestDeps(t)
	sys := NewSnapshotSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3200, 3200)

	sys.buildSnapshot(1, p, 1500)
	p.Level = 2
	msg := sys.buildSnapshot(1, p, 1500)

	rec := findRecord(msg.Entities, "p1")
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Fields["level"])
}

func TestSnapshotLeaveAndReenter(t *testing.T) {
	d := newTestDeps(t)
	sys := NewSnapshotSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3200, 3200)
	other := addTestPlayer(t, d, "p2", 2, "rogue", 3400, 3200)

	msg := sys.buildSnapshot(1, p, 1500)
	require.NotNil(t, findRecord(msg.Entities, "p2"))

	// p2 walks beyond view distance: one leave record.
	d.World.UpdatePlayerPos(other, 5800, 3200)
	msg = sys.buildSnapshot(1, p, 1500)
	rec := findRecord(msg.Entities, "p2")
	require.NotNil(t, rec)
	assert.Equal(t, "leave", rec.UpdateType)
	assert.Empty(t, rec.Fields)

	// Still gone: no record at all.
	msg = sys.buildSnapshot(1, p, 1500)
	assert.Nil(t, findRecord(msg.Entities, "p2"))

	// Back in view: full record again, no delta baseline survives absence.
	d.World.UpdatePlayerPos(other, 3400, 3200)
	msg = sys.buildSnapshot(1, p, 1500)
	rec = findRecord(msg.Entities, "p2")
	require.NotNil(t, rec)
	assert.Equal(t, "full", rec.UpdateType)
}

func TestSnapshotSelfAlwaysIncluded(t *testing.T) {
	d := newTestDeps(t)
	sys := NewSnapshotSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3200, 3200)

	msg := sys.buildSnapshot(1, p, 0)
	require.NotNil(t, findRecord(msg.Entities, "p1"))
}

func TestSnapshotViewCulling(t *testing.T) {
	d := newTestDeps(t)
	sys := NewSnapshotSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 300, 300)
	addTestMonster(t, d, "m-near", "slime", 500, 300)
	addTestMonster(t, d, "m-far", "slime", 5000, 5000)

	msg := sys.buildSnapshot(1, p, 1500)
	assert.NotNil(t, findRecord(msg.Entities, "m-near"))
	assert.Nil(t, findRecord(msg.Entities, "m-far"))
}

func TestSnapshotDyingMonsterStaysVisible(t *testing.T) {
	d := newTestDeps(t)
	sys := NewSnapshotSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "bladedancer", 3200, 3200)
	m := addTestMonster(t, d, "m-1", "slime", 3300, 3200)
	m.Alive = false
	m.State = world.MonsterDying

	msg := sys.buildSnapshot(1, p, 1500)
	rec := findRecord(msg.Entities, "m-1")
	require.NotNil(t, rec)
	assert.Equal(t, true, rec.Fields["isDead"])
	assert.Equal(t, world.MonsterDying, rec.Fields["state"])
}

func TestSnapshotProjectilesAlwaysFull(t *testing.T) {
	d := newTestDeps(t)
	sys := NewSnapshotSystem(d)
	p := addTestPlayer(t, d, "p1", 1, "hunter", 3200, 3200)
	spec := d.Classes.Get("hunter").Attacks["primary"]
	spawnProjectile(d, "p1", "player", 3200, 3200, 0, spec)

	for i := 0; i < 2; i++ {
		msg := sys.buildSnapshot(1, p, 1500)
		require.Len(t, msg.Projectiles, 1)
		rec := msg.Projectiles[0]
		assert.Equal(t, "full", rec.UpdateType)
		assert.Equal(t, "arrow", rec.Fields["effectTag"])
		assert.Equal(t, "p1", rec.Fields["ownerId"])
	}
}
