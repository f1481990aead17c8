package system

import (
	"math"
	"sort"
	"time"

	"github.com/emberfall/server/internal/anticheat"
	coresys "github.com/emberfall/server/internal/core/system"
	"github.com/emberfall/server/internal/handler"
	"github.com/emberfall/server/internal/world"
)

// MovementSystem applies each player's queued inputs in sequence order,
// running the same collision kernel the client predicts with. Sequence
// numbers acknowledge exactly the inputs that were applied.
type MovementSystem struct {
	d *handler.Deps
}

func NewMovementSystem(d *handler.Deps) *MovementSystem {
	return &MovementSystem{d: d}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MovementSystem) Update(dt time.Duration) {
	now := s.d.World.Now
	margin := s.d.Cfg.Game.BoundsMargin

	for _, p := range s.d.World.PlayersOrdered() {
		if p.IsDead {
			p.PendingInputs = p.PendingInputs[:0]
			p.VX, p.VY = 0, 0
			continue
		}
		if len(p.PendingInputs) == 0 {
			p.VX, p.VY = 0, 0
			continue
		}

		sort.SliceStable(p.PendingInputs, func(i, j int) bool {
			return p.PendingInputs[i].Sequence < p.PendingInputs[j].Sequence
		})

		v := s.d.ValidatorFor(p.SessionID)
		sess := s.d.Sessions.Get(p.SessionID)

		// Movement is locked while an attack is winding up or active. Dash,
		// jump, and roll translation comes from the ability system instead.
		locked := p.IsAttacking && p.Attack.Phase != world.AttackRecover

		moved := false
		for i := range p.PendingInputs {
			in := &p.PendingInputs[i]
			switch v.CheckInput(in, now) {
			case anticheat.Drop:
				continue
			case anticheat.Flag:
				if v.Exceeded() && sess != nil {
					sess.Close()
				}
				continue
			}

			p.Facing = in.Facing
			if !locked {
				speed := p.MoveSpeedAt(now)
				vx, vy := world.ComputeVelocity(in.Keys, in.Facing, speed)
				if v.CheckMovement(math.Hypot(vx, vy)*in.DeltaTime*60, speed, in.DeltaTime) == anticheat.Flag {
					if v.Exceeded() && sess != nil {
						sess.Close()
					}
					continue
				}
				nx, ny := world.Step(s.d.World.Mask, p.X, p.Y, vx, vy, in.DeltaTime, p.Radius, margin)
				s.d.World.UpdatePlayerPos(p, nx, ny)
				p.VX, p.VY = vx, vy
				moved = true
			}
			p.LastProcessedSeq = in.Sequence

			// Ability flags ride along with movement input but spend the same
			// rate budget as explicit ability_request messages.
			if in.Primary && v.CheckAbility(now) {
				s.enqueueAbility(p.ID, world.SlotPrimary)
			}
			if in.Secondary && v.CheckAbility(now) {
				s.enqueueAbility(p.ID, world.SlotSecondary)
			}
			if in.Roll && v.CheckAbility(now) {
				s.enqueueAbility(p.ID, world.SlotRoll)
			}
		}
		if !moved && !locked {
			p.VX, p.VY = 0, 0
		}
		p.PendingInputs = p.PendingInputs[:0]
	}
}

func (s *MovementSystem) enqueueAbility(playerID, slot string) {
	s.d.AbilityRequests = append(s.d.AbilityRequests, handler.AbilityRequest{
		PlayerID: playerID,
		Slot:     slot,
	})
}
