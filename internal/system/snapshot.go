package system

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	coresys "github.com/emberfall/server/internal/core/system"
	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/net"
	"github.com/emberfall/server/internal/protocol"
	"github.com/emberfall/server/internal/world"
)

// Position epsilon for delta comparison. Positions are whole pixels, so
// anything under this is float noise, not movement.
const fieldEpsilon = 0.01

// Critical fields are always present in a delta record so a client that
// missed a snapshot still renders combat state correctly.
// lastProcessedSeq appears only on the client's own player record.
var criticalFields = []string{"x", "y", "hp", "facing", "isDead", "isInvulnerable", "lastProcessedSeq"}

type entitySnap struct {
	kind   string
	fields map[string]any
}

// SnapshotSystem builds one personalized snapshot per client: entities
// within view distance, full records on first sight, deltas afterwards, and
// leave records when an entity drops out of view. It also performs the
// single per-tick output flush for every session.
type SnapshotSystem struct {
	d        *handler.Deps
	lastSent map[uint64]map[string]entitySnap
}

func NewSnapshotSystem(d *handler.Deps) *SnapshotSystem {
	return &SnapshotSystem{
		d:        d,
		lastSent: make(map[uint64]map[string]entitySnap),
	}
}

func (s *SnapshotSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *SnapshotSystem) Update(dt time.Duration) {
	view := s.d.Cfg.Game.ViewDistance

	// Sessions the input phase retired this tick are gone from the table;
	// drop their delta baselines with them.
	for id := range s.lastSent {
		if s.d.Sessions.Get(id) == nil {
			delete(s.lastSent, id)
		}
	}

	s.d.Sessions.Each(func(sess *net.Session) {
		if sess.IsClosed() {
			delete(s.lastSent, sess.ID)
			return
		}
		if sess.State() != protocol.StateInWorld {
			return
		}
		p := s.d.World.GetPlayerBySession(sess.ID)
		if p == nil {
			return
		}
		s.sendSnapshot(sess, p, view)
	})

	// One flush per session per tick, lobby sessions included: world_init
	// and event messages ride the same buffer.
	s.d.Sessions.Each(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

func (s *SnapshotSystem) sendSnapshot(sess *net.Session, p *world.Player, view float64) {
	msg := s.buildSnapshot(sess.ID, p, view)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	sess.Enqueue(protocol.SState, data)
}

// buildSnapshot assembles one client's state message and advances that
// client's delta baseline.
func (s *SnapshotSystem) buildSnapshot(sessionID uint64, p *world.Player, view float64) protocol.StateMsg {
	current := s.collectInterest(p, view)

	prev := s.lastSent[sessionID]
	if prev == nil {
		prev = make(map[string]entitySnap)
	}

	ids := make([]string, 0, len(current))
	for id := range current {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]protocol.EntityRecord, 0, len(ids))
	for _, id := range ids {
		cur := current[id]
		old, known := prev[id]
		if !known {
			records = append(records, protocol.EntityRecord{
				ID: id, Kind: cur.kind, UpdateType: "full", Fields: cur.fields,
			})
			continue
		}
		records = append(records, protocol.EntityRecord{
			ID: id, Kind: cur.kind, UpdateType: "delta",
			Fields: deltaFields(old.fields, cur.fields),
		})
	}

	// Entities that left the view since last tick.
	goneIDs := make([]string, 0)
	for id := range prev {
		if _, still := current[id]; !still {
			goneIDs = append(goneIDs, id)
		}
	}
	sort.Strings(goneIDs)
	for _, id := range goneIDs {
		records = append(records, protocol.EntityRecord{
			ID: id, Kind: prev[id].kind, UpdateType: "leave",
		})
	}

	s.lastSent[sessionID] = current

	return protocol.StateMsg{
		Type:             protocol.SState,
		Tick:             s.d.World.Tick,
		ServerTime:       s.d.World.Now,
		LastProcessedSeq: p.LastProcessedSeq,
		Entities:         records,
		Projectiles:      s.collectProjectiles(p, view),
	}
}

func (s *SnapshotSystem) collectInterest(p *world.Player, view float64) map[string]entitySnap {
	current := make(map[string]entitySnap)
	view2 := view * view

	for _, t := range s.d.World.PlayersOrdered() {
		if t.ID != p.ID && distSq(t.X, t.Y, p.X, p.Y) > view2 {
			continue
		}
		f := playerFields(t)
		if t.ID == p.ID {
			// The ack rides the own-player record so a client recovering
			// from loss resyncs its prediction without a full snapshot.
			f["lastProcessedSeq"] = t.LastProcessedSeq
		}
		current[t.ID] = entitySnap{kind: "player", fields: f}
	}
	for _, m := range s.d.World.MonsterList() {
		// Dying monsters stay visible as corpses until cleanup removes them.
		if distSq(m.X, m.Y, p.X, p.Y) > view2 {
			continue
		}
		current[m.ID] = entitySnap{kind: "monster", fields: monsterFields(m)}
	}
	s.d.World.Powerups(func(pw *world.Powerup) {
		if pw.Removed || distSq(pw.X, pw.Y, p.X, p.Y) > view2 {
			return
		}
		current[pw.ID] = entitySnap{kind: "powerup", fields: powerupFields(pw)}
	})
	return current
}

func (s *SnapshotSystem) collectProjectiles(p *world.Player, view float64) []protocol.EntityRecord {
	view2 := view * view
	var out []protocol.EntityRecord
	for _, pr := range s.d.World.ProjectileList() {
		if pr.Removed || distSq(pr.X, pr.Y, p.X, p.Y) > view2 {
			continue
		}
		out = append(out, protocol.EntityRecord{
			ID: pr.ID, Kind: "projectile", UpdateType: "full",
			Fields: map[string]any{
				"x":         pr.X,
				"y":         pr.Y,
				"angle":     pr.Angle,
				"effectTag": pr.EffectTag,
				"ownerId":   pr.OwnerID,
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func playerFields(p *world.Player) map[string]any {
	return map[string]any{
		"x":              p.X,
		"y":              p.Y,
		"facing":         p.Facing,
		"hp":             p.HP,
		"maxHp":          p.MaxHP,
		"level":          p.Level,
		"class":          p.Class,
		"isDead":         p.IsDead,
		"isInvulnerable": p.IsInvulnerable,
		"isAttacking":    p.IsAttacking,
		"attackType":     p.CurrentAttackType,
	}
}

func monsterFields(m *world.Monster) map[string]any {
	return map[string]any{
		"x":              m.X,
		"y":              m.Y,
		"facing":         m.Facing,
		"hp":             m.HP,
		"maxHp":          m.Stats.MaxHP,
		"monsterType":    m.Type,
		"state":          m.State,
		"isDead":         !m.Alive,
		"isInvulnerable": false,
	}
}

func powerupFields(pw *world.Powerup) map[string]any {
	return map[string]any{
		"x":           pw.X,
		"y":           pw.Y,
		"powerupType": pw.Type,
	}
}

// deltaFields returns changed fields plus the critical set. Unchanged
// non-critical fields are omitted.
func deltaFields(old, cur map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range cur {
		if pv, ok := old[k]; !ok || !fieldEq(pv, v) {
			out[k] = v
		}
	}
	for _, k := range criticalFields {
		if v, ok := cur[k]; ok {
			out[k] = v
		}
	}
	return out
}

func fieldEq(a, b any) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return math.Abs(af-bf) < fieldEpsilon
	}
	return a == b
}

func distSq(x0, y0, x1, y1 float64) float64 {
	dx := x1 - x0
	dy := y1 - y0
	return dx*dx + dy*dy
}
