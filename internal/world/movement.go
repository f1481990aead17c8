package world

import "math"

// The movement kernel is shared by input processing and monster AI, and is
// mirrored pixel-for-pixel by the client predictor. The dt*60 scaling, the
// 0.85 diagonal factor, the directional speed modifiers, and the CanMove
// sampling are all part of that contract — do not "fix" them.

const diagonalFactor = 0.85

var facingVecs = map[string][2]float64{
	"up":         {0, -1},
	"up-right":   {math.Sqrt2 / 2, -math.Sqrt2 / 2},
	"right":      {1, 0},
	"down-right": {math.Sqrt2 / 2, math.Sqrt2 / 2},
	"down":       {0, 1},
	"down-left":  {-math.Sqrt2 / 2, math.Sqrt2 / 2},
	"left":       {-1, 0},
	"up-left":    {-math.Sqrt2 / 2, -math.Sqrt2 / 2},
}

// ValidFacing reports whether name is one of the 8 cardinal facings.
func ValidFacing(name string) bool {
	_, ok := facingVecs[name]
	return ok
}

// FacingVec returns the unit vector for a facing name, or (0,0) if unknown.
func FacingVec(name string) (float64, float64) {
	v, ok := facingVecs[name]
	if !ok {
		return 0, 0
	}
	return v[0], v[1]
}

// FacingAngle returns the facing direction in radians (0 = +x, clockwise
// positive in screen coordinates).
func FacingAngle(name string) float64 {
	vx, vy := FacingVec(name)
	return math.Atan2(vy, vx)
}

// ComputeVelocity converts pressed keys into a per-frame velocity in
// pixels/frame at 60 Hz. speed is the baseline class speed plus level
// bonus. When both a horizontal and a vertical key are held, each axis is
// multiplied by 0.85 — deliberately not sqrt(2)/2. The directional modifier
// compares the movement direction against the facing: forward (≤45°) ×1.0,
// backpedal (≥135°) ×0.5, strafe ×0.7.
func ComputeVelocity(keys []string, facing string, speed float64) (float64, float64) {
	var ux, uy float64
	for _, k := range keys {
		switch k {
		case "w":
			uy = -1
		case "s":
			uy = 1
		case "a":
			ux = -1
		case "d":
			ux = 1
		}
	}
	if ux == 0 && uy == 0 {
		return 0, 0
	}
	if ux != 0 && uy != 0 {
		ux *= diagonalFactor
		uy *= diagonalFactor
	}

	mod := directionalModifier(ux, uy, facing)
	return ux * speed * mod, uy * speed * mod
}

func directionalModifier(mx, my float64, facing string) float64 {
	fx, fy := FacingVec(facing)
	if fx == 0 && fy == 0 {
		return 1.0
	}
	mlen := math.Hypot(mx, my)
	if mlen == 0 {
		return 1.0
	}
	cos := (mx*fx + my*fy) / mlen
	const cos45 = math.Sqrt2 / 2
	switch {
	case cos >= cos45-1e-9:
		return 1.0 // forward
	case cos <= -cos45+1e-9:
		return 0.5 // backpedal
	default:
		return 0.7 // strafe
	}
}

// Step advances an entity by (vx, vy) pixels/frame over dt seconds against
// the collision mask. Per-axis sliding: full move, then X-only, then
// Y-only, then stay. The final position is clamped to
// [margin, worldExtent-margin] on each axis and rounded to whole pixels.
func Step(mask *CollisionMask, x, y, vx, vy, dt, radius, margin float64) (float64, float64) {
	scale := dt * 60
	tx := x + vx*scale
	ty := y + vy*scale

	var nx, ny float64
	switch {
	case mask.CanMove(x, y, tx, ty, radius):
		nx, ny = tx, ty
	case mask.CanMove(x, y, tx, y, radius):
		nx, ny = tx, y
	case mask.CanMove(x, y, x, ty, radius):
		nx, ny = x, ty
	default:
		nx, ny = x, y
	}

	nx = clamp(nx, margin, mask.grid.PixelWidth()-margin)
	ny = clamp(ny, margin, mask.grid.PixelHeight()-margin)
	return math.Round(nx), math.Round(ny)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
