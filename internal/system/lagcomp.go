package system

import (
	"time"

	coresys "github.com/emberfall/server/internal/core/system"
	"github.com/emberfall/server/internal/handler"
)

// LagCompSystem records each player's post-movement position into their
// history ring, one sample per tick. The ability system rewinds against
// these samples when resolving lag-compensated hits.
type LagCompSystem struct {
	d *handler.Deps
}

func NewLagCompSystem(d *handler.Deps) *LagCompSystem {
	return &LagCompSystem{d: d}
}

func (s *LagCompSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *LagCompSystem) Update(dt time.Duration) {
	now := s.d.World.Now
	for _, p := range s.d.World.PlayersOrdered() {
		p.History.Record(now, p.X, p.Y)
	}
}
