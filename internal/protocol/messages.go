package protocol

import (
	"encoding/json"
	"fmt"
)

// Client → server message types.
const (
	CInput          = "input"
	CAbilityRequest = "ability_request"
	CPing           = "ping"
	CClassSelect    = "class_select"
	CReady          = "ready"
)

// Server → client message types.
const (
	SWorldInit        = "world_init"
	SState            = "state"
	SPong             = "pong"
	SDamageEvent      = "damage_event"
	SEntitySpawn      = "entity_spawn"
	SEntityDespawn    = "entity_despawn"
	SLevelUp          = "level_up"
	SPlayerDied       = "player_died"
	SPlayerRespawned  = "player_respawned"
	SPlayerJoined     = "player_joined"
	SPlayerLeft       = "player_left"
	SAbilityTelegraph = "ability_telegraph"
)

// Envelope is the outer frame of every message: a type tag plus the
// type-specific fields flattened alongside it. Unknown fields on incoming
// messages are dropped by encoding/json; the schema is closed.
type Envelope struct {
	Type string `json:"type"`
}

// PeekType returns the type tag of a raw message without decoding the body.
func PeekType(raw []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("missing message type")
	}
	return env.Type, nil
}

// InputMsg carries one sequenced player input.
type InputMsg struct {
	Type      string   `json:"type"`
	Sequence  uint32   `json:"sequence"`
	Timestamp int64    `json:"timestamp"`
	Keys      []string `json:"keys"` // subset of {w,a,s,d}
	Facing    string   `json:"facing"`
	DeltaTime float64  `json:"deltaTime"`
	// Ability flags ride along with movement input. They are forwarded to
	// the ability manager without being consumed as movement.
	Primary   bool `json:"primary,omitempty"`
	Secondary bool `json:"secondary,omitempty"`
	Roll      bool `json:"roll,omitempty"`
}

// AbilityRequestMsg asks to trigger an ability slot.
type AbilityRequestMsg struct {
	Type       string  `json:"type"`
	Slot       string  `json:"ability"` // "primary", "secondary", "roll"
	Angle      float64 `json:"angle,omitempty"`
	HasAngle   bool    `json:"-"`
	ClientTime int64   `json:"clientTime,omitempty"`
}

// UnmarshalJSON distinguishes a zero aim angle from an absent one: aimed
// abilities fall back to the facing direction only when no angle was sent.
func (m *AbilityRequestMsg) UnmarshalJSON(raw []byte) error {
	var shadow struct {
		Type       string   `json:"type"`
		Slot       string   `json:"ability"`
		Angle      *float64 `json:"angle"`
		ClientTime int64    `json:"clientTime"`
	}
	if err := json.Unmarshal(raw, &shadow); err != nil {
		return err
	}
	m.Type = shadow.Type
	m.Slot = shadow.Slot
	m.ClientTime = shadow.ClientTime
	if shadow.Angle != nil {
		m.Angle = *shadow.Angle
		m.HasAngle = true
	}
	return nil
}

type PingMsg struct {
	Type       string `json:"type"`
	Sequence   uint32 `json:"sequence"`
	ClientTime int64  `json:"clientTime"`
	// Round-trip time the client measured from the previous ping/pong pair,
	// in ms. Used for lag compensation, clamped server-side.
	RTT int64 `json:"rtt,omitempty"`
}

type PongMsg struct {
	Type       string `json:"type"`
	Sequence   uint32 `json:"sequence"`
	ClientTime int64  `json:"clientTime"`
	ServerTime int64  `json:"serverTime"`
}

type ClassSelectMsg struct {
	Type      string `json:"type"`
	ClassName string `json:"className"`
}

type ReadyMsg struct {
	Type string `json:"type"`
}

// WorldInitMsg is sent once after connection. Clients regenerate the
// collision mask deterministically from the seed.
type WorldInitMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Seed     int64  `json:"seed"`
	TileSize int    `json:"tileSize"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	TickRate int    `json:"tickRate"`
}

// EntityRecord is one entity's entry in a state payload.
type EntityRecord struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"` // "player", "monster", "powerup"
	UpdateType string         `json:"updateType"` // "full", "delta", "leave"
	Fields     map[string]any `json:"fields,omitempty"`
}

// StateMsg is the per-client snapshot payload.
type StateMsg struct {
	Type             string         `json:"type"`
	Tick             uint64         `json:"tick"`
	ServerTime       int64          `json:"serverTime"`
	LastProcessedSeq uint32         `json:"lastProcessedSeq"`
	Entities         []EntityRecord `json:"entities"`
	Projectiles      []EntityRecord `json:"projectiles"`
}

type DamageEventMsg struct {
	Type       string `json:"type"`
	TargetID   string `json:"targetId"`
	AttackerID string `json:"attackerId"`
	Amount     int    `json:"amount"`
}

type EntitySpawnMsg struct {
	Type       string  `json:"type"`
	EntityID   string  `json:"entityId"`
	Kind       string  `json:"kind"`
	EntityType string  `json:"entityType"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

type EntityDespawnMsg struct {
	Type     string `json:"type"`
	EntityID string `json:"entityId"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
}

type LevelUpMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Level    int    `json:"level"`
}

type PlayerDiedMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	KillerID string `json:"killerId,omitempty"`
}

type PlayerRespawnedMsg struct {
	Type     string  `json:"type"`
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type PlayerJoinedMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Class    string `json:"class"`
}

type PlayerLeftMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

type TelegraphMsg struct {
	Type      string  `json:"type"`
	SourceID  string  `json:"sourceId"`
	Archetype string  `json:"archetype"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Facing    string  `json:"facing"`
	Width     float64 `json:"width,omitempty"`
	Length    float64 `json:"length,omitempty"`
	Range     float64 `json:"range,omitempty"`
	Angle     float64 `json:"angle,omitempty"`
	WindupMs  int64   `json:"windupMs"`
}
