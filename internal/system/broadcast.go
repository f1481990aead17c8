package system

import (
	"encoding/json"

	"github.com/emberfall/server/internal/core/event"
	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/net"
	"github.com/emberfall/server/internal/protocol"
)

// Broadcaster translates simulation events into client messages, routed by
// the protocol reliability classifier. It subscribes once at startup;
// delivery happens when the game loop dispatches the previous tick's
// events, and the messages flush with that tick's output.
type Broadcaster struct {
	d *handler.Deps
}

// AttachBroadcaster wires all event subscriptions. Events with a position
// fan out only to clients within view distance; global events reach every
// in-world client.
func AttachBroadcaster(bus *event.Bus, d *handler.Deps) *Broadcaster {
	b := &Broadcaster{d: d}

	event.Subscribe(bus, func(ev event.Damage) {
		x, y, ok := b.entityPos(ev.TargetID)
		msg := protocol.DamageEventMsg{
			Type: protocol.SDamageEvent, TargetID: ev.TargetID,
			AttackerID: ev.AttackerID, Amount: ev.Amount,
		}
		if ok {
			b.sendNear(x, y, protocol.SDamageEvent, msg)
		} else {
			b.sendAll(protocol.SDamageEvent, msg)
		}
	})
	event.Subscribe(bus, func(ev event.EntitySpawn) {
		b.sendNear(ev.X, ev.Y, protocol.SEntitySpawn, protocol.EntitySpawnMsg{
			Type: protocol.SEntitySpawn, EntityID: ev.EntityID,
			Kind: ev.Kind, EntityType: ev.Type, X: ev.X, Y: ev.Y,
		})
	})
	event.Subscribe(bus, func(ev event.EntityDespawn) {
		// No position survives a despawn; everyone hears it.
		b.sendAll(protocol.SEntityDespawn, protocol.EntityDespawnMsg{
			Type: protocol.SEntityDespawn, EntityID: ev.EntityID,
			Kind: ev.Kind, Reason: ev.Reason,
		})
	})
	event.Subscribe(bus, func(ev event.Telegraph) {
		b.sendNear(ev.X, ev.Y, protocol.SAbilityTelegraph, protocol.TelegraphMsg{
			Type: protocol.SAbilityTelegraph, SourceID: ev.SourceID,
			Archetype: ev.Archetype, X: ev.X, Y: ev.Y, Facing: ev.Facing,
			Width: ev.Width, Length: ev.Length, Range: ev.Range,
			Angle: ev.Angle, WindupMs: ev.WindupMs,
		})
	})
	event.Subscribe(bus, func(ev event.PlayerDied) {
		b.sendAll(protocol.SPlayerDied, protocol.PlayerDiedMsg{
			Type: protocol.SPlayerDied, PlayerID: ev.PlayerID, KillerID: ev.KillerID,
		})
	})
	event.Subscribe(bus, func(ev event.PlayerRespawned) {
		b.sendAll(protocol.SPlayerRespawned, protocol.PlayerRespawnedMsg{
			Type: protocol.SPlayerRespawned, PlayerID: ev.PlayerID, X: ev.X, Y: ev.Y,
		})
	})
	event.Subscribe(bus, func(ev event.PlayerJoined) {
		b.sendAll(protocol.SPlayerJoined, protocol.PlayerJoinedMsg{
			Type: protocol.SPlayerJoined, PlayerID: ev.PlayerID, Class: ev.Class,
		})
	})
	event.Subscribe(bus, func(ev event.PlayerLeft) {
		b.sendAll(protocol.SPlayerLeft, protocol.PlayerLeftMsg{Type: protocol.SPlayerLeft, PlayerID: ev.PlayerID})
	})
	event.Subscribe(bus, func(ev event.LevelUp) {
		b.sendAll(protocol.SLevelUp, protocol.LevelUpMsg{
			Type: protocol.SLevelUp, PlayerID: ev.PlayerID, Level: ev.Level,
		})
	})

	return b
}

func (b *Broadcaster) entityPos(id string) (float64, float64, bool) {
	if p := b.d.World.GetPlayer(id); p != nil {
		return p.X, p.Y, true
	}
	if m := b.d.World.GetMonster(id); m != nil {
		return m.X, m.Y, true
	}
	return 0, 0, false
}

func (b *Broadcaster) sendAll(msgType string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.d.Sessions.Each(func(sess *net.Session) {
		if sess.State() == protocol.StateInWorld {
			sess.Enqueue(msgType, data)
		}
	})
}

func (b *Broadcaster) sendNear(x, y float64, msgType string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	view2 := b.d.Cfg.Game.ViewDistance * b.d.Cfg.Game.ViewDistance
	b.d.Sessions.Each(func(sess *net.Session) {
		if sess.State() != protocol.StateInWorld {
			return
		}
		p := b.d.World.GetPlayerBySession(sess.ID)
		if p == nil {
			return
		}
		if distSq(p.X, p.Y, x, y) <= view2 {
			sess.Enqueue(msgType, data)
		}
	})
}
