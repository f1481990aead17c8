package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: session demux + message dispatch
	PhaseUpdate                  // 1: movement, monster AI, abilities, projectiles
	PhasePostUpdate              // 2: powerups, respawn timers, lag-comp history
	PhaseOutput                  // 3: build + send snapshots
	PhaseCleanup                 // 4: destroy queued entities
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
