package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MonsterType is the static tuning for one monster kind. Per-instance state
// (position, hp, AI phase) lives in the world package.
type MonsterType struct {
	Name            string     `yaml:"name"`
	MaxHP           int        `yaml:"max_hp"`
	MoveSpeed       float64    `yaml:"move_speed"` // pixels/frame at 60 Hz
	AttackRange     float64    `yaml:"attack_range"`
	AggroRange      float64    `yaml:"aggro_range"`
	XPReward        int        `yaml:"xp_reward"`
	CollisionRadius float64    `yaml:"collision_radius"`
	Attack          AttackSpec `yaml:"attack"`
}

type monsterListFile struct {
	Monsters []MonsterType `yaml:"monsters"`
}

// MonsterTable holds all monster definitions indexed by name.
type MonsterTable struct {
	types map[string]*MonsterType
	names []string // load order, used for weighted-uniform spawn picks
}

// LoadMonsterTable loads monster definitions from a YAML file. A missing
// file yields the compiled-in defaults.
func LoadMonsterTable(path string) (*MonsterTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultMonsterTable(), nil
		}
		return nil, fmt.Errorf("read monster table: %w", err)
	}
	var f monsterListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse monster table: %w", err)
	}
	return newMonsterTable(f.Monsters), nil
}

func newMonsterTable(types []MonsterType) *MonsterTable {
	t := &MonsterTable{types: make(map[string]*MonsterType, len(types))}
	for i := range types {
		m := &types[i]
		t.types[m.Name] = m
		t.names = append(t.names, m.Name)
	}
	return t
}

// Get returns a monster type by name, or nil if not found.
func (t *MonsterTable) Get(name string) *MonsterType {
	return t.types[name]
}

// Count returns the number of loaded monster types.
func (t *MonsterTable) Count() int {
	return len(t.types)
}

// Names returns monster type names in load order.
func (t *MonsterTable) Names() []string {
	return t.names
}

// DefaultMonsterTable returns the built-in monster tuning.
func DefaultMonsterTable() *MonsterTable {
	return newMonsterTable([]MonsterType{
		{
			Name:            "slime",
			MaxHP:           3,
			MoveSpeed:       2,
			AttackRange:     60,
			AggroRange:      500,
			XPReward:        10,
			CollisionRadius: 24,
			Attack: AttackSpec{
				Archetype:  ArchetypeMeleeRect,
				WindupMs:   600,
				ActiveMs:   100,
				RecoveryMs: 800,
				CooldownMs: 1500,
				Damage:     1,
				Width:      50,
				Length:     70,
			},
		},
		{
			Name:            "wolf",
			MaxHP:           4,
			MoveSpeed:       4.5,
			AttackRange:     70,
			AggroRange:      700,
			XPReward:        20,
			CollisionRadius: 20,
			Attack: AttackSpec{
				Archetype:  ArchetypeMeleeCone,
				WindupMs:   400,
				ActiveMs:   100,
				RecoveryMs: 600,
				CooldownMs: 1200,
				Damage:     1,
				Range:      85,
				Angle:      90,
			},
		},
		{
			Name:            "skeleton_archer",
			MaxHP:           3,
			MoveSpeed:       3,
			AttackRange:     450,
			AggroRange:      900,
			XPReward:        30,
			CollisionRadius: 20,
			Attack: AttackSpec{
				Archetype:  ArchetypeProjectile,
				WindupMs:   700,
				ActiveMs:   50,
				RecoveryMs: 900,
				CooldownMs: 2000,
				Damage:     1,
				Speed:      400,
				ProjRange:  500,
				EffectTag:  "bone_arrow",
				Offset:     20,
				LifetimeMs: 2500,
			},
		},
		{
			Name:            "brute",
			MaxHP:           8,
			MoveSpeed:       2.5,
			AttackRange:     90,
			AggroRange:      600,
			XPReward:        50,
			CollisionRadius: 32,
			Attack: AttackSpec{
				Archetype:  ArchetypeMeleeRect,
				WindupMs:   900,
				ActiveMs:   150,
				RecoveryMs: 1200,
				CooldownMs: 2500,
				Damage:     2,
				Width:      100,
				Length:     110,
			},
		},
	})
}
