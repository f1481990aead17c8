package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Network   NetworkConfig   `toml:"network"`
	Game      GameConfig      `toml:"game"`
	AntiCheat AntiCheatConfig `toml:"anticheat"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type NetworkConfig struct {
	Port            int           `toml:"port"`
	TickRate        time.Duration `toml:"tick_rate"`
	InQueueSize     int           `toml:"in_queue_size"`
	OutQueueSize    int           `toml:"out_queue_size"`
	MaxMsgsPerTick  int           `toml:"max_msgs_per_tick"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	MaxMessageBytes int64         `toml:"max_message_bytes"`
}

type GameConfig struct {
	WorldWidth      int           `toml:"world_width"`  // tiles
	WorldHeight     int           `toml:"world_height"` // tiles
	TileSize        int           `toml:"tile_size"`    // pixels
	BoundsMargin    float64       `toml:"bounds_margin"`
	ViewDistance    float64       `toml:"view_distance"` // pixels
	MaxMonsters     int           `toml:"max_monsters"`
	SpawnInterval   time.Duration `toml:"spawn_interval"`
	InitialSpawns   int           `toml:"initial_spawns"`
	MaxProjectiles  int           `toml:"max_projectiles"`
	PowerupInterval time.Duration `toml:"powerup_interval"`
	RespawnDelay    time.Duration `toml:"respawn_delay"`
	SpawnProtection time.Duration `toml:"spawn_protection"`
	MinSpawnRadius  float64       `toml:"min_spawn_radius"` // pixels from any live player
	MaxSpawnRadius  float64       `toml:"max_spawn_radius"`
}

type AntiCheatConfig struct {
	MaxInputsPerSec    int     `toml:"max_inputs_per_sec"`
	MaxAbilitiesPerSec float64 `toml:"max_abilities_per_sec"`
	SoftFlagLimit      int     `toml:"soft_flag_limit"`
	MalformedLimit     int     `toml:"malformed_limit"`
	DtMin              float64 `toml:"dt_min"`
	DtMax              float64 `toml:"dt_max"`
	SpeedSafetyFactor  float64 `toml:"speed_safety_factor"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads the TOML config at path over built-in defaults, then applies
// environment overrides (PORT). A missing file is not an error — defaults
// plus environment are a complete configuration.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", p, err)
		}
		cfg.Network.Port = port
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "Emberfall",
		},
		Network: NetworkConfig{
			Port:            3000,
			TickRate:        50 * time.Millisecond, // 20 Hz
			InQueueSize:     256,
			OutQueueSize:    256,
			MaxMsgsPerTick:  64,
			WriteTimeout:    10 * time.Second,
			ReadTimeout:     60 * time.Second,
			MaxMessageBytes: 16 * 1024,
		},
		Game: GameConfig{
			WorldWidth:      100,
			WorldHeight:     100,
			TileSize:        64,
			BoundsMargin:    20,
			ViewDistance:    1500,
			MaxMonsters:     50,
			SpawnInterval:   5 * time.Second,
			InitialSpawns:   10,
			MaxProjectiles:  512,
			PowerupInterval: 20 * time.Second,
			RespawnDelay:    3 * time.Second,
			SpawnProtection: 2 * time.Second,
			MinSpawnRadius:  300,
			MaxSpawnRadius:  2500,
		},
		AntiCheat: AntiCheatConfig{
			MaxInputsPerSec:    120,
			MaxAbilitiesPerSec: 4,
			SoftFlagLimit:      20,
			MalformedLimit:     50,
			DtMin:              1.0 / 240.0,
			DtMax:              1.0 / 20.0,
			SpeedSafetyFactor:  1.25,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
