package world

// Powerup types.
const (
	PowerupHeal  = "heal"
	PowerupHaste = "haste"
)

// Powerup is a pickup on the ground. Picked up on overlap, expired by
// timestamp otherwise.
type Powerup struct {
	ID        string
	Type      string
	X, Y      float64
	SpawnAt   int64
	ExpiresAt int64
	Removed   bool
}
