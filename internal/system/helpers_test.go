package system

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emberfall/server/internal/config"
	"github.com/emberfall/server/internal/core/event"
	"github.com/emberfall/server/internal/data"
	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/net"
	"github.com/emberfall/server/internal/world"
)

// newTestDeps builds a Deps over an open 100x100 world with default tuning
// tables and no connected sessions.
func newTestDeps(t *testing.T) *handler.Deps {
	t.Helper()
	return newTestDepsWithGrid(t, world.NewTileGrid(100, 100, 64))
}

func newTestDepsWithGrid(t *testing.T, grid *world.TileGrid) *handler.Deps {
	t.Helper()
	cfg, err := config.Load("/nonexistent/server.toml")
	require.NoError(t, err)

	mask := world.NewCollisionMask(grid)
	w := world.NewState(mask, 1)
	return handler.NewDeps(cfg, zap.NewNop(), w, net.NewSessionTable(),
		event.NewBus(), data.DefaultClassTable(), data.DefaultMonsterTable(),
		rand.New(rand.NewSource(1)))
}

func addTestPlayer(t *testing.T, d *handler.Deps, id string, sessionID uint64, class string, x, y float64) *world.Player {
	t.Helper()
	def := d.Classes.Get(class)
	require.NotNil(t, def, "unknown class %s", class)
	p := &world.Player{
		ID:            id,
		SessionID:     sessionID,
		Class:         class,
		ClassDef:      def,
		X:             x,
		Y:             y,
		Facing:        "right",
		Radius:        def.Radius,
		HP:            def.MaxHP,
		MaxHP:         def.MaxHP,
		Level:         1,
		CooldownUntil: make(map[string]int64),
	}
	d.World.AddPlayer(p)
	return p
}

func addTestMonster(t *testing.T, d *handler.Deps, id, typ string, x, y float64) *world.Monster {
	t.Helper()
	stats := d.Monsters.Get(typ)
	require.NotNil(t, stats, "unknown monster type %s", typ)
	m := &world.Monster{
		ID:     id,
		Type:   typ,
		Stats:  stats,
		X:      x,
		Y:      y,
		Facing: "down",
		HP:     stats.MaxHP,
		Alive:  true,
		State:  world.MonsterIdle,
	}
	d.World.AddMonster(m)
	return m
}
