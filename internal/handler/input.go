package handler

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/emberfall/server/internal/net"
	"github.com/emberfall/server/internal/protocol"
	"github.com/emberfall/server/internal/world"
)

// Backlog high-water mark for a player's pending input queue. A client that
// outruns the simulation this far is resynced by dropping the oldest half.
const inputBacklogLimit = 120

func handleInput(d *Deps, sess *net.Session, raw []byte) {
	var msg protocol.InputMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		countMalformed(d, sess)
		return
	}
	p := d.World.GetPlayerBySession(sess.ID)
	if p == nil {
		return
	}
	if !world.ValidFacing(msg.Facing) || len(msg.Keys) > 4 {
		countMalformed(d, sess)
		return
	}

	if len(p.PendingInputs) >= inputBacklogLimit {
		half := len(p.PendingInputs) / 2
		p.PendingInputs = append(p.PendingInputs[:0], p.PendingInputs[half:]...)
		d.Log.Warn("input backlog trimmed",
			zap.String("player", p.ID),
			zap.Int("dropped", half),
		)
	}
	p.PendingInputs = append(p.PendingInputs, msg)
}

func handleAbilityRequest(d *Deps, sess *net.Session, raw []byte) {
	var msg protocol.AbilityRequestMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		countMalformed(d, sess)
		return
	}
	p := d.World.GetPlayerBySession(sess.ID)
	if p == nil {
		return
	}
	switch msg.Slot {
	case world.SlotPrimary, world.SlotSecondary, world.SlotRoll:
	default:
		countMalformed(d, sess)
		return
	}
	if !d.ValidatorFor(sess.ID).CheckAbility(d.World.Now) {
		// Spam past the rate limit is dropped without flagging.
		return
	}
	d.AbilityRequests = append(d.AbilityRequests, AbilityRequest{
		PlayerID:   p.ID,
		Slot:       msg.Slot,
		Angle:      msg.Angle,
		HasAngle:   msg.HasAngle,
		ClientTime: msg.ClientTime,
	})
}
