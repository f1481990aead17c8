package world

import (
	"fmt"
	"sort"
)

// State tracks every entity in the instance: players, monsters,
// projectiles, powerups. Single-goroutine access only (game loop). Sessions
// are referenced by id; the I/O layer owns the sockets.
type State struct {
	Mask *CollisionMask
	Seed int64

	// Simulation clock: monotonic ms since process start and tick counter,
	// both advanced by the game loop at tick start.
	Now  int64
	Tick uint64

	players   map[string]*Player
	bySession map[uint64]*Player

	monsters    map[string]*Monster
	monsterList []*Monster // stable iteration order for the AI tick

	projectiles    map[string]*Projectile
	projectileList []*Projectile

	powerups map[string]*Powerup

	grid *AOIGrid

	nextMonsterID    int64
	nextProjectileID int64
	nextPowerupID    int64

	// Reusable query buffer (game loop is single-threaded).
	queryBuf []string
}

func NewState(mask *CollisionMask, seed int64) *State {
	return &State{
		Mask:        mask,
		Seed:        seed,
		players:     make(map[string]*Player),
		bySession:   make(map[uint64]*Player),
		monsters:    make(map[string]*Monster),
		projectiles: make(map[string]*Projectile),
		powerups:    make(map[string]*Powerup),
		grid:        NewAOIGrid(),
	}
}

// --- Player methods ---

func (s *State) AddPlayer(p *Player) {
	s.players[p.ID] = p
	s.bySession[p.SessionID] = p
	s.grid.Add(p.ID, p.X, p.Y)
}

func (s *State) RemovePlayer(id string) *Player {
	p, ok := s.players[id]
	if !ok {
		return nil
	}
	s.grid.Remove(p.ID, p.X, p.Y)
	delete(s.players, id)
	delete(s.bySession, p.SessionID)
	return p
}

func (s *State) GetPlayer(id string) *Player {
	return s.players[id]
}

func (s *State) GetPlayerBySession(sessionID uint64) *Player {
	return s.bySession[sessionID]
}

// UpdatePlayerPos moves a player and keeps the spatial index consistent.
// All player position changes MUST go through this method.
func (s *State) UpdatePlayerPos(p *Player, newX, newY float64) {
	s.grid.Move(p.ID, p.X, p.Y, newX, newY)
	p.X = newX
	p.Y = newY
}

func (s *State) PlayerCount() int {
	return len(s.players)
}

// PlayersOrdered returns all players sorted by id. Within a tick, ordering
// among players is by this stable order — it only matters for simultaneous
// kills, but it must be deterministic.
func (s *State) PlayersOrdered() []*Player {
	ids := make([]string, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Player, len(ids))
	for i, id := range ids {
		out[i] = s.players[id]
	}
	return out
}

// NearbyPlayers returns live or dead players within squared-Euclidean
// radius r of (x, y).
func (s *State) NearbyPlayers(x, y, r float64) []*Player {
	s.queryBuf = s.grid.QueryInto(x, y, r, s.queryBuf)
	var out []*Player
	r2 := r * r
	for _, id := range s.queryBuf {
		p := s.players[id]
		if p == nil {
			continue
		}
		dx := p.X - x
		dy := p.Y - y
		if dx*dx+dy*dy <= r2 {
			out = append(out, p)
		}
	}
	return out
}

// --- Monster methods ---

func (s *State) NextMonsterID() string {
	s.nextMonsterID++
	return fmt.Sprintf("m-%d", s.nextMonsterID)
}

func (s *State) AddMonster(m *Monster) {
	s.monsters[m.ID] = m
	s.monsterList = append(s.monsterList, m)
	s.grid.Add(m.ID, m.X, m.Y)
}

func (s *State) GetMonster(id string) *Monster {
	return s.monsters[id]
}

func (s *State) RemoveMonster(id string) *Monster {
	m, ok := s.monsters[id]
	if !ok {
		return nil
	}
	s.grid.Remove(m.ID, m.X, m.Y)
	delete(s.monsters, id)
	for i, mm := range s.monsterList {
		if mm.ID == id {
			s.monsterList[i] = s.monsterList[len(s.monsterList)-1]
			s.monsterList = s.monsterList[:len(s.monsterList)-1]
			break
		}
	}
	return m
}

// UpdateMonsterPos moves a monster and keeps the spatial index consistent.
func (s *State) UpdateMonsterPos(m *Monster, newX, newY float64) {
	s.grid.Move(m.ID, m.X, m.Y, newX, newY)
	m.X = newX
	m.Y = newY
}

// MonsterList returns the full monster list for tick iteration.
func (s *State) MonsterList() []*Monster {
	return s.monsterList
}

func (s *State) MonsterCount() int {
	return len(s.monsters)
}

// LiveMonsterCount counts monsters that are alive and not dying, for the
// spawn cap.
func (s *State) LiveMonsterCount() int {
	n := 0
	for _, m := range s.monsterList {
		if m.Targetable() {
			n++
		}
	}
	return n
}

// NearbyMonsters returns targetable monsters within radius r of (x, y).
func (s *State) NearbyMonsters(x, y, r float64) []*Monster {
	s.queryBuf = s.grid.QueryInto(x, y, r, s.queryBuf)
	var out []*Monster
	r2 := r * r
	for _, id := range s.queryBuf {
		m := s.monsters[id]
		if m == nil || !m.Targetable() {
			continue
		}
		dx := m.X - x
		dy := m.Y - y
		if dx*dx+dy*dy <= r2 {
			out = append(out, m)
		}
	}
	return out
}

// --- Projectile methods ---

func (s *State) NextProjectileID() string {
	s.nextProjectileID++
	return fmt.Sprintf("pr-%d", s.nextProjectileID)
}

func (s *State) AddProjectile(p *Projectile) {
	s.projectiles[p.ID] = p
	s.projectileList = append(s.projectileList, p)
}

func (s *State) GetProjectile(id string) *Projectile {
	return s.projectiles[id]
}

func (s *State) RemoveProjectile(id string) *Projectile {
	p, ok := s.projectiles[id]
	if !ok {
		return nil
	}
	delete(s.projectiles, id)
	for i, pp := range s.projectileList {
		if pp.ID == id {
			s.projectileList[i] = s.projectileList[len(s.projectileList)-1]
			s.projectileList = s.projectileList[:len(s.projectileList)-1]
			break
		}
	}
	return p
}

// ProjectileList returns the projectile list for tick iteration.
func (s *State) ProjectileList() []*Projectile {
	return s.projectileList
}

func (s *State) ProjectileCount() int {
	return len(s.projectiles)
}

// OldestProjectile returns the projectile with the earliest CreatedAt, for
// deterministic load shedding. Ties broken by id.
func (s *State) OldestProjectile() *Projectile {
	var oldest *Projectile
	for _, p := range s.projectileList {
		if oldest == nil || p.CreatedAt < oldest.CreatedAt ||
			(p.CreatedAt == oldest.CreatedAt && p.ID < oldest.ID) {
			oldest = p
		}
	}
	return oldest
}

// --- Powerup methods ---

func (s *State) NextPowerupID() string {
	s.nextPowerupID++
	return fmt.Sprintf("pw-%d", s.nextPowerupID)
}

func (s *State) AddPowerup(p *Powerup) {
	s.powerups[p.ID] = p
	s.grid.Add(p.ID, p.X, p.Y)
}

func (s *State) RemovePowerup(id string) *Powerup {
	p, ok := s.powerups[id]
	if !ok {
		return nil
	}
	s.grid.Remove(p.ID, p.X, p.Y)
	delete(s.powerups, id)
	return p
}

// Powerups iterates all powerups in unspecified order.
func (s *State) Powerups(fn func(*Powerup)) {
	for _, p := range s.powerups {
		fn(p)
	}
}

func (s *State) GetPowerup(id string) *Powerup {
	return s.powerups[id]
}

func (s *State) PowerupCount() int {
	return len(s.powerups)
}
