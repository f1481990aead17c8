package world

import (
	"math"
	"math/rand"
)

// TileGrid is the immutable-after-init tile map. Coordinates are pixels;
// tiles are TileSize pixels square. Shared read-only across goroutines once
// built.
type TileGrid struct {
	Width    int // tiles
	Height   int // tiles
	TileSize int // pixels
	walkable []bool
}

func NewTileGrid(width, height, tileSize int) *TileGrid {
	g := &TileGrid{
		Width:    width,
		Height:   height,
		TileSize: tileSize,
		walkable: make([]bool, width*height),
	}
	for i := range g.walkable {
		g.walkable[i] = true
	}
	return g
}

// SetSolid marks a tile unwalkable. Only valid during init.
func (g *TileGrid) SetSolid(tx, ty int) {
	if tx < 0 || ty < 0 || tx >= g.Width || ty >= g.Height {
		return
	}
	g.walkable[ty*g.Width+tx] = false
}

// TileWalkable reports walkability by tile coordinates.
func (g *TileGrid) TileWalkable(tx, ty int) bool {
	if tx < 0 || ty < 0 || tx >= g.Width || ty >= g.Height {
		return false
	}
	return g.walkable[ty*g.Width+tx]
}

// PixelWidth returns the world width in pixels.
func (g *TileGrid) PixelWidth() float64 {
	return float64(g.Width * g.TileSize)
}

// PixelHeight returns the world height in pixels.
func (g *TileGrid) PixelHeight() float64 {
	return float64(g.Height * g.TileSize)
}

// ScatterObstacles carves a deterministic obstacle layout from the world
// seed. Clients regenerate the identical mask from the same seed, so the
// order of rand draws here is part of the wire contract.
func (g *TileGrid) ScatterObstacles(seed int64, density float64) {
	rng := rand.New(rand.NewSource(seed))
	count := int(float64(g.Width*g.Height) * density)
	for i := 0; i < count; i++ {
		tx := rng.Intn(g.Width)
		ty := rng.Intn(g.Height)
		// Keep a clear border so spawns near the edge are never boxed in.
		if tx < 2 || ty < 2 || tx >= g.Width-2 || ty >= g.Height-2 {
			continue
		}
		g.SetSolid(tx, ty)
	}
}

// CollisionMask answers walkability and movement queries against a TileGrid.
// Read-only, freely shared.
type CollisionMask struct {
	grid *TileGrid
}

func NewCollisionMask(grid *TileGrid) *CollisionMask {
	return &CollisionMask{grid: grid}
}

func (m *CollisionMask) Grid() *TileGrid { return m.grid }

// IsWalkable reports whether the pixel position is on a walkable tile.
// False outside world bounds.
func (m *CollisionMask) IsWalkable(x, y float64) bool {
	if x < 0 || y < 0 {
		return false
	}
	tx := int(x) / m.grid.TileSize
	ty := int(y) / m.grid.TileSize
	return m.grid.TileWalkable(tx, ty)
}

// CanMove reports whether a straight segment from (x0,y0) to (x1,y1) stays
// on walkable tiles. Sampled at a step no larger than min(tileSize/2,
// radius); the destination pixel is always tested. This sampling is part of
// the client-prediction contract.
func (m *CollisionMask) CanMove(x0, y0, x1, y1, radius float64) bool {
	step := float64(m.grid.TileSize) / 2
	if radius > 0 && radius < step {
		step = radius
	}
	dx := x1 - x0
	dy := y1 - y0
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return m.IsWalkable(x0, y0)
	}
	n := int(math.Ceil(dist / step))
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		if !m.IsWalkable(x0+dx*t, y0+dy*t) {
			return false
		}
	}
	return true
}

// RandomWalkablePos draws a walkable position at least margin pixels inside
// the world bounds, retrying up to tries times. The position is rounded to
// whole pixels like every other authoritative coordinate.
func (m *CollisionMask) RandomWalkablePos(rng *rand.Rand, margin float64, tries int) (float64, float64, bool) {
	w := m.grid.PixelWidth()
	h := m.grid.PixelHeight()
	for i := 0; i < tries; i++ {
		x := math.Round(margin + rng.Float64()*(w-2*margin))
		y := math.Round(margin + rng.Float64()*(h-2*margin))
		if m.IsWalkable(x, y) {
			return x, y, true
		}
	}
	return 0, 0, false
}

// ResolveSlide pushes an axis-aligned box of half-extent radius centred at
// (x,y) out of any solid tile it overlaps. Each iteration resolves along the
// smaller-overlap axis; ties are broken by preferring the axis with the
// larger incoming velocity magnitude. Returns the corrected position.
func (m *CollisionMask) ResolveSlide(x, y, radius, vx, vy float64) (float64, float64) {
	const maxIterations = 4
	ts := float64(m.grid.TileSize)
	for iter := 0; iter < maxIterations; iter++ {
		tx0 := int(math.Floor((x - radius) / ts))
		ty0 := int(math.Floor((y - radius) / ts))
		tx1 := int(math.Floor((x + radius) / ts))
		ty1 := int(math.Floor((y + radius) / ts))

		resolved := false
		for ty := ty0; ty <= ty1 && !resolved; ty++ {
			for tx := tx0; tx <= tx1 && !resolved; tx++ {
				if m.grid.TileWalkable(tx, ty) {
					continue
				}
				left := float64(tx) * ts
				top := float64(ty) * ts
				overlapX := math.Min(x+radius, left+ts) - math.Max(x-radius, left)
				overlapY := math.Min(y+radius, top+ts) - math.Max(y-radius, top)
				if overlapX <= 0 || overlapY <= 0 {
					continue
				}

				pushX := overlapX < overlapY
				if overlapX == overlapY {
					pushX = math.Abs(vx) >= math.Abs(vy)
				}
				if pushX {
					if x < left+ts/2 {
						x -= overlapX
					} else {
						x += overlapX
					}
				} else {
					if y < top+ts/2 {
						y -= overlapY
					} else {
						y += overlapY
					}
				}
				resolved = true
			}
		}
		if !resolved {
			break
		}
	}
	return x, y
}
