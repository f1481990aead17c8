package event

// Simulation events carried on the Bus. Systems emit these during Update;
// the broadcast layer fans them out to clients on the next tick.

type Damage struct {
	TargetID   string
	AttackerID string
	Amount     int
}

type PlayerDied struct {
	PlayerID string
	KillerID string
}

type PlayerRespawned struct {
	PlayerID string
	X, Y     float64
}

type PlayerJoined struct {
	PlayerID string
	Class    string
}

type PlayerLeft struct {
	PlayerID string
}

type LevelUp struct {
	PlayerID string
	Level    int
}

type EntitySpawn struct {
	EntityID string
	Kind     string // "monster", "projectile", "powerup"
	Type     string // monster type, effect tag, or powerup type
	X, Y     float64
}

type EntityDespawn struct {
	EntityID string
	Kind     string
	Reason   string // "hit", "expired", "died", "picked_up"
}

// Telegraph announces a monster or player attack windup so clients can
// render counterplay cues at the exact shape and position.
type Telegraph struct {
	SourceID  string
	Archetype string
	X, Y      float64
	Facing    string
	Width     float64 // melee_rect
	Length    float64 // melee_rect
	Range     float64 // melee_cone
	Angle     float64 // melee_cone, degrees
	WindupMs  int64
}
