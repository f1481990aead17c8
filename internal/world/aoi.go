package world

// AOIGrid is a cell-based spatial index over pixel positions, shared by
// view-distance interest queries, monster aggro scans, and projectile hit
// candidate lookup. Accessed only from the game loop goroutine — no locks.

const aoiCellSize = 256.0

type cellKey struct {
	cx, cy int32
}

func toCell(v float64) int32 {
	c := int32(v / aoiCellSize)
	if v < 0 {
		c--
	}
	return c
}

type AOIGrid struct {
	cells map[cellKey]map[string]struct{}
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{cells: make(map[cellKey]map[string]struct{})}
}

func (g *AOIGrid) Add(id string, x, y float64) {
	k := cellKey{toCell(x), toCell(y)}
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[string]struct{}, 4)
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

func (g *AOIGrid) Remove(id string, x, y float64) {
	k := cellKey{toCell(x), toCell(y)}
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

func (g *AOIGrid) Move(id string, oldX, oldY, newX, newY float64) {
	oldK := cellKey{toCell(oldX), toCell(oldY)}
	newK := cellKey{toCell(newX), toCell(newY)}
	if oldK == newK {
		return
	}
	g.Remove(id, oldX, oldY)
	g.Add(id, newX, newY)
}

// QueryInto appends all ids in cells overlapping the square of half-extent
// r around (x,y) to buf and returns it. Callers do fine-grained distance
// filtering; reusing buf avoids per-tick allocation.
func (g *AOIGrid) QueryInto(x, y, r float64, buf []string) []string {
	buf = buf[:0]
	cx0 := toCell(x - r)
	cy0 := toCell(y - r)
	cx1 := toCell(x + r)
	cy1 := toCell(y + r)
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			for id := range g.cells[cellKey{cx, cy}] {
				buf = append(buf, id)
			}
		}
	}
	return buf
}
