package data

// Attack archetypes.
const (
	ArchetypeMeleeRect  = "melee_rect"
	ArchetypeMeleeCone  = "melee_cone"
	ArchetypeProjectile = "projectile"
	ArchetypeJump       = "jump"
	ArchetypeDash       = "dash"
	ArchetypeRoll       = "roll"
)

// AttackSpec describes one attack entry: timing, damage, and
// archetype-specific parameters. Values are configuration data, not core
// logic — they load from YAML with compiled-in defaults.
type AttackSpec struct {
	Archetype  string `yaml:"archetype"`
	WindupMs   int64  `yaml:"windup_ms"`
	ActiveMs   int64  `yaml:"active_ms"`
	RecoveryMs int64  `yaml:"recovery_ms"`
	CooldownMs int64  `yaml:"cooldown_ms"`
	Damage     int    `yaml:"damage"`

	// melee_rect: attacker position is one short edge; extends forward by
	// Length and ±Width/2 laterally, rotated by facing.
	Width  float64 `yaml:"width"`
	Length float64 `yaml:"length"`

	// melee_cone: circular sector of Range radius and Angle degrees centred
	// on facing.
	Range float64 `yaml:"range"`
	Angle float64 `yaml:"angle"`

	// projectile
	Speed      float64 `yaml:"speed"`       // pixels/second
	ProjRange  float64 `yaml:"proj_range"`  // pixels
	EffectTag  string  `yaml:"effect_tag"`
	Offset     float64 `yaml:"offset"` // spawn offset along facing
	LifetimeMs int64   `yaml:"lifetime_ms"`
	Aimed      bool    `yaml:"aimed"` // angle taken from client mouse aim

	// jump / dash / roll
	Distance float64 `yaml:"distance"`

	// i-frames during the active phase
	Invulnerable bool `yaml:"invulnerable"`

	// rewind targets to the attacker's perceived time before the hit test
	LagComp bool `yaml:"lag_comp"`
}
