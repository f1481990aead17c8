package world

// Projectile removal reasons.
const (
	RemoveHit     = "hit"
	RemoveExpired = "expired"
	RemoveBlocked = "blocked" // flew into a solid tile
)

// Projectile is a server-authoritative projectile in flight. Velocity is in
// pixels/second; Range is the remaining travel budget in pixels.
type Projectile struct {
	ID        string
	OwnerID   string
	OwnerKind string // "player" or "monster"

	X, Y   float64
	VX, VY float64
	Speed  float64
	Angle  float64

	Damage        int
	Range         float64
	EffectTag     string
	CreatedAt     int64
	MaxLifetimeMs int64

	Removed      bool
	RemoveReason string
}

// Expired reports whether the projectile's absolute lifetime has elapsed.
// No per-projectile timer exists; expiry is checked each tick.
func (p *Projectile) Expired(now int64) bool {
	return p.CreatedAt+p.MaxLifetimeMs <= now
}
