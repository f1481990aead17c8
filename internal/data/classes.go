package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClassDef holds per-class baseline stats and the attack table.
type ClassDef struct {
	Name      string                 `yaml:"name"`
	MaxHP     int                    `yaml:"max_hp"`
	MoveSpeed float64                `yaml:"move_speed"` // pixels/frame at 60 Hz
	Radius    float64                `yaml:"radius"`
	Attacks   map[string]*AttackSpec `yaml:"attacks"` // primary, secondary, roll
}

type classListFile struct {
	Classes []ClassDef `yaml:"classes"`
}

// ClassTable holds all class definitions indexed by name.
type ClassTable struct {
	classes map[string]*ClassDef
}

// LoadClassTable loads class definitions from a YAML file. A missing file
// yields the compiled-in defaults — the tables are tuning data with
// defaults, never required input.
func LoadClassTable(path string) (*ClassTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultClassTable(), nil
		}
		return nil, fmt.Errorf("read class table: %w", err)
	}
	var f classListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse class table: %w", err)
	}
	t := &ClassTable{classes: make(map[string]*ClassDef, len(f.Classes))}
	for i := range f.Classes {
		c := &f.Classes[i]
		t.classes[c.Name] = c
	}
	return t, nil
}

// Get returns a class definition by name, or nil if not found.
func (t *ClassTable) Get(name string) *ClassDef {
	return t.classes[name]
}

// Count returns the number of loaded classes.
func (t *ClassTable) Count() int {
	return len(t.classes)
}

// Names returns the known class names.
func (t *ClassTable) Names() []string {
	out := make([]string, 0, len(t.classes))
	for n := range t.classes {
		out = append(out, n)
	}
	return out
}

// DefaultClassTable returns the built-in class tuning.
func DefaultClassTable() *ClassTable {
	roll := func() *AttackSpec {
		return &AttackSpec{
			Archetype:    ArchetypeRoll,
			ActiveMs:     300,
			RecoveryMs:   100,
			CooldownMs:   2000,
			Distance:     150,
			Invulnerable: true,
		}
	}
	classes := []ClassDef{
		{
			Name:      "bladedancer",
			MaxHP:     5,
			MoveSpeed: 5,
			Radius:    20,
			Attacks: map[string]*AttackSpec{
				"primary": {
					Archetype:  ArchetypeMeleeRect,
					WindupMs:   150,
					ActiveMs:   100,
					RecoveryMs: 200,
					CooldownMs: 500,
					Damage:     1,
					Width:      60,
					Length:     90,
					LagComp:    true,
				},
				"secondary": {
					Archetype:  ArchetypeMeleeCone,
					WindupMs:   300,
					ActiveMs:   150,
					RecoveryMs: 350,
					CooldownMs: 3000,
					Damage:     2,
					Range:      120,
					Angle:      120,
					LagComp:    true,
				},
				"roll": roll(),
			},
		},
		{
			Name:      "guardian",
			MaxHP:     7,
			MoveSpeed: 4,
			Radius:    24,
			Attacks: map[string]*AttackSpec{
				"primary": {
					Archetype:  ArchetypeMeleeRect,
					WindupMs:   250,
					ActiveMs:   120,
					RecoveryMs: 350,
					CooldownMs: 800,
					Damage:     2,
					Width:      80,
					Length:     100,
					LagComp:    true,
				},
				"secondary": {
					Archetype:    ArchetypeJump,
					WindupMs:     200,
					ActiveMs:     300,
					RecoveryMs:   250,
					CooldownMs:   5000,
					Distance:     250,
					Invulnerable: true,
				},
				"roll": roll(),
			},
		},
		{
			Name:      "hunter",
			MaxHP:     4,
			MoveSpeed: 5.5,
			Radius:    18,
			Attacks: map[string]*AttackSpec{
				"primary": {
					Archetype:  ArchetypeProjectile,
					WindupMs:   100,
					ActiveMs:   50,
					RecoveryMs: 150,
					CooldownMs: 400,
					Damage:     1,
					Speed:      600,
					ProjRange:  400,
					EffectTag:  "arrow",
					Offset:     20,
					LifetimeMs: 2000,
					Aimed:      true,
				},
				"secondary": {
					Archetype:  ArchetypeDash,
					WindupMs:   0,
					ActiveMs:   200,
					RecoveryMs: 100,
					CooldownMs: 4000,
					Distance:   200,
				},
				"roll": roll(),
			},
		},
		{
			Name:      "rogue",
			MaxHP:     4,
			MoveSpeed: 6,
			Radius:    18,
			Attacks: map[string]*AttackSpec{
				"primary": {
					Archetype:  ArchetypeMeleeCone,
					WindupMs:   100,
					ActiveMs:   80,
					RecoveryMs: 150,
					CooldownMs: 400,
					Damage:     1,
					Range:      90,
					Angle:      90,
					LagComp:    true,
				},
				"secondary": {
					Archetype:    ArchetypeDash,
					WindupMs:     0,
					ActiveMs:     180,
					RecoveryMs:   80,
					CooldownMs:   3500,
					Distance:     250,
					Invulnerable: true,
				},
				"roll": roll(),
			},
		},
	}
	t := &ClassTable{classes: make(map[string]*ClassDef, len(classes))}
	for i := range classes {
		t.classes[classes[i].Name] = &classes[i]
	}
	return t
}

// MaxLevel is the level cap.
const MaxLevel = 10

// TotalXPForLevel returns the cumulative experience required to reach the
// given level. Level 1 costs nothing; each step to level l costs 25·(l−1).
func TotalXPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	total := 0
	for l := 2; l <= level; l++ {
		total += 25 * (l - 1)
	}
	return total
}
