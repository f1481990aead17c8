package handler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emberfall/server/internal/core/event"
	"github.com/emberfall/server/internal/net"
	"github.com/emberfall/server/internal/protocol"
	"github.com/emberfall/server/internal/world"
)

// WorldInit builds the seed handshake sent once when a connection is
// accepted. The player id is assigned before the player spawns so clients
// can pre-generate the collision mask during the lobby and recognize their
// own entity later.
func WorldInit(d *Deps, playerID string) ([]byte, error) {
	grid := d.World.Mask.Grid()
	return json.Marshal(protocol.WorldInitMsg{
		Type:     protocol.SWorldInit,
		PlayerID: playerID,
		Seed:     d.World.Seed,
		TileSize: grid.TileSize,
		Width:    grid.Width,
		Height:   grid.Height,
		TickRate: int(time.Second / d.Cfg.Network.TickRate),
	})
}

func handleClassSelect(d *Deps, sess *net.Session, raw []byte) {
	var msg protocol.ClassSelectMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		countMalformed(d, sess)
		return
	}
	if d.Classes.Get(msg.ClassName) == nil {
		d.Log.Warn("unknown class selected",
			zap.Uint64("session", sess.ID),
			zap.String("class", msg.ClassName),
		)
		countMalformed(d, sess)
		return
	}
	d.PendingClass[sess.ID] = msg.ClassName
}

func handleReady(d *Deps, sess *net.Session, raw []byte) {
	className, ok := d.PendingClass[sess.ID]
	if !ok {
		d.Log.Warn("ready without class selection", zap.Uint64("session", sess.ID))
		countMalformed(d, sess)
		return
	}
	classDef := d.Classes.Get(className)

	grid := d.World.Mask.Grid()
	x, y, found := d.World.Mask.RandomWalkablePos(d.Rng, d.Cfg.Game.BoundsMargin, 100)
	if !found {
		x = grid.PixelWidth() / 2
		y = grid.PixelHeight() / 2
	}

	// The id was assigned and announced in world_init at accept time.
	playerID := sess.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}

	now := d.World.Now
	p := &world.Player{
		ID:                  playerID,
		SessionID:           sess.ID,
		Class:               className,
		ClassDef:            classDef,
		X:                   x,
		Y:                   y,
		Facing:              "down",
		Radius:              classDef.Radius,
		HP:                  classDef.MaxHP,
		MaxHP:               classDef.MaxHP,
		Level:               1,
		CooldownUntil:       make(map[string]int64),
		IsInvulnerable:      true,
		SpawnProtectedUntil: now + d.Cfg.Game.SpawnProtection.Milliseconds(),
	}
	d.World.AddPlayer(p)
	sess.PlayerID = p.ID
	sess.SetState(protocol.StateInWorld)
	delete(d.PendingClass, sess.ID)

	event.Emit(d.Bus, event.PlayerJoined{PlayerID: p.ID, Class: className})
	event.Emit(d.Bus, event.EntitySpawn{
		EntityID: p.ID, Kind: "player", Type: className, X: p.X, Y: p.Y,
	})

	d.Log.Info("player spawned",
		zap.Uint64("session", sess.ID),
		zap.String("player", p.ID),
		zap.String("class", className),
	)
}

func countMalformed(d *Deps, sess *net.Session) {
	if d.ValidatorFor(sess.ID).AddMalformed() {
		d.Log.Warn("too many malformed messages, disconnecting", zap.Uint64("session", sess.ID))
		sess.Close()
	}
}
