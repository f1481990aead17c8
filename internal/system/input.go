// Package system contains the per-tick simulation systems, ordered by
// phase. All systems run on the game loop goroutine.
package system

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emberfall/server/internal/core/event"
	coresys "github.com/emberfall/server/internal/core/system"
	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/net"
	"github.com/emberfall/server/internal/protocol"
)

// InputSystem demuxes the network edge onto the game loop: it adopts new
// sessions, retires dead ones, and dispatches queued client messages
// through the registry.
type InputSystem struct {
	d      *handler.Deps
	server *net.Server
	reg    *protocol.Registry
}

func NewInputSystem(d *handler.Deps, server *net.Server, reg *protocol.Registry) *InputSystem {
	return &InputSystem{d: d, server: server, reg: reg}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(dt time.Duration) {
	s.acceptNew()
	s.retireDead()

	s.d.Sessions.Each(func(sess *net.Session) {
		if sess.IsClosed() {
			return
		}
		s.drainSession(sess)
	})
}

func (s *InputSystem) acceptNew() {
	for {
		select {
		case sess := <-s.server.NewSessions():
			s.d.Sessions.Add(sess)
			s.d.ValidatorFor(sess.ID)
			// Seed handshake goes out immediately so the client can generate
			// the collision mask while the player sits in the lobby.
			sess.PlayerID = uuid.NewString()
			if init, err := handler.WorldInit(s.d, sess.PlayerID); err == nil {
				sess.Enqueue(protocol.SWorldInit, init)
			}
		default:
			return
		}
	}
}

func (s *InputSystem) retireDead() {
	for {
		select {
		case id := <-s.server.DeadSessions():
			s.disconnect(id)
		default:
			return
		}
	}
}

// disconnect tears down everything a session owned: its queued input is
// discarded, its player leaves the world, and per-session state is dropped.
func (s *InputSystem) disconnect(id uint64) {
	sess := s.d.Sessions.Remove(id)
	if sess != nil {
		sess.Close()
	}

	if p := s.d.World.GetPlayerBySession(id); p != nil {
		p.PendingInputs = nil
		s.d.World.RemovePlayer(p.ID)
		event.Emit(s.d.Bus, event.PlayerLeft{PlayerID: p.ID})
		event.Emit(s.d.Bus, event.EntityDespawn{
			EntityID: p.ID, Kind: "player", Reason: "disconnected",
		})
		s.d.Log.Info("player left",
			zap.Uint64("session", id),
			zap.String("player", p.ID),
		)
	}

	s.d.DropSession(id)
}

func (s *InputSystem) drainSession(sess *net.Session) {
	max := s.d.Cfg.Network.MaxMsgsPerTick
	for i := 0; i < max; i++ {
		select {
		case raw := <-sess.InQueue:
			if err := s.reg.Dispatch(sess, sess.State(), raw); err != nil {
				if s.d.ValidatorFor(sess.ID).AddMalformed() {
					s.d.Log.Warn("malformed message limit reached",
						zap.Uint64("session", sess.ID))
					sess.Close()
					return
				}
			}
		default:
			return
		}
	}
}
