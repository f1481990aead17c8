package world

import "math"

// Melee hit shapes. Both tests are inclusive of the target's collision
// radius: grazing the edge counts, matching what clients display.

// HitRect reports whether a circle (tx, ty, tr) intersects a rectangle
// anchored at (ox, oy) on the middle of one short edge, extending length
// units along angle and width across it.
func HitRect(ox, oy, angle, width, length, tx, ty, tr float64) bool {
	// Transform the target into the rectangle's local frame.
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	dx := tx - ox
	dy := ty - oy
	lx := dx*cos + dy*sin  // along facing
	ly := -dx*sin + dy*cos // across facing

	// Closest point on the rect [0,length] x [-width/2,width/2].
	cx := clamp(lx, 0, length)
	cy := clamp(ly, -width/2, width/2)
	ddx := lx - cx
	ddy := ly - cy
	return ddx*ddx+ddy*ddy <= tr*tr
}

// HitCone reports whether a circle (tx, ty, tr) intersects a sector centred
// at (ox, oy) of the given radius, spanning angleDeg degrees around the
// direction angle.
func HitCone(ox, oy, angle, radius, angleDeg, tx, ty, tr float64) bool {
	dx := tx - ox
	dy := ty - oy
	dist := math.Hypot(dx, dy)
	if dist > radius+tr {
		return false
	}
	if dist <= tr {
		// Target overlaps the apex.
		return true
	}
	diff := math.Atan2(dy, dx) - angle
	for diff > math.Pi {
		diff -= 2 * math.Pi
	}
	for diff < -math.Pi {
		diff += 2 * math.Pi
	}
	half := angleDeg * math.Pi / 360
	// Widen by the angle the target's radius subtends at its distance.
	slack := math.Asin(math.Min(1, tr/dist))
	return math.Abs(diff) <= half+slack
}

// SegmentCircle reports whether the segment (x0,y0)-(x1,y1) passes within r
// of (cx, cy), and returns the distance from the segment start to the
// closest approach for first-hit ordering.
func SegmentCircle(x0, y0, x1, y1, cx, cy, r float64) (float64, bool) {
	dx := x1 - x0
	dy := y1 - y0
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = clamp(((cx-x0)*dx+(cy-y0)*dy)/lenSq, 0, 1)
	}
	px := x0 + dx*t
	py := y0 + dy*t
	ddx := cx - px
	ddy := cy - py
	if ddx*ddx+ddy*ddy > r*r {
		return 0, false
	}
	return t * math.Sqrt(lenSq), true
}

// QuantizeFacing converts a direction vector to the nearest of the 8
// facings. Zero vectors keep the fallback.
func QuantizeFacing(dx, dy float64, fallback string) string {
	if dx == 0 && dy == 0 {
		return fallback
	}
	angle := math.Atan2(dy, dx)
	octant := int(math.Round(angle/(math.Pi/4))) & 7
	names := [8]string{"right", "down-right", "down", "down-left", "left", "up-left", "up", "up-right"}
	return names[octant]
}
