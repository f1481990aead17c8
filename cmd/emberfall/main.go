package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/emberfall/server/internal/config"
	"github.com/emberfall/server/internal/core/event"
	coresys "github.com/emberfall/server/internal/core/system"
	"github.com/emberfall/server/internal/data"
	"github.com/emberfall/server/internal/handler"
	gonet "github.com/emberfall/server/internal/net"
	"github.com/emberfall/server/internal/protocol"
	"github.com/emberfall/server/internal/system"
	"github.com/emberfall/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m           Emberfall  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     authoritative game server · Go        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("EMBERFALL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Load data tables
	printSection("data")

	classTable, err := data.LoadClassTable("data/classes.yaml")
	if err != nil {
		return fmt.Errorf("load class table: %w", err)
	}
	printStat("classes", classTable.Count())

	monsterTable, err := data.LoadMonsterTable("data/monsters.yaml")
	if err != nil {
		return fmt.Errorf("load monster table: %w", err)
	}
	printStat("monster types", monsterTable.Count())

	// 4. Build the world. The seed is generated at boot and shipped to every
	// client in world_init; the whole obstacle layout derives from it.
	seed := time.Now().UnixNano()
	grid := world.NewTileGrid(cfg.Game.WorldWidth, cfg.Game.WorldHeight, cfg.Game.TileSize)
	grid.ScatterObstacles(seed, 0.04)
	mask := world.NewCollisionMask(grid)
	worldState := world.NewState(mask, seed)
	printStat("world tiles", cfg.Game.WorldWidth*cfg.Game.WorldHeight)
	printOK("collision mask generated")
	fmt.Println()

	// 5. Wire handlers, event bus, and systems
	bus := event.NewBus()
	sessions := gonet.NewSessionTable()
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + 1))

	deps := handler.NewDeps(cfg, log, worldState, sessions, bus, classTable, monsterTable, rng)
	reg := protocol.NewRegistry(log)
	handler.RegisterAll(reg, deps)
	system.AttachBroadcaster(bus, deps)

	netServer := gonet.NewServer(&cfg.Network, cfg.AntiCheat.MaxInputsPerSec+16, log)
	go func() {
		if err := netServer.Serve(); err != nil {
			log.Error("http server", zap.Error(err))
		}
	}()

	combat := system.NewCombat(deps)
	runner := coresys.NewRunner()
	// Registration order is execution order within a phase: movement, then
	// monster AI, then projectile stepping, then ability transitions.
	runner.Register(system.NewInputSystem(deps, netServer, reg))
	runner.Register(system.NewMovementSystem(deps))
	runner.Register(system.NewMonsterAISystem(deps, combat, rng))
	runner.Register(system.NewProjectileSystem(deps, combat))
	runner.Register(system.NewAbilitySystem(deps, combat))
	runner.Register(system.NewRespawnSystem(deps))
	runner.Register(system.NewLagCompSystem(deps))
	runner.Register(system.NewPowerupSystem(deps, rng))
	runner.Register(system.NewSnapshotSystem(deps))
	runner.Register(system.NewCleanupSystem(deps))

	// 6. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("server ready")
	printReady(fmt.Sprintf("listening on :%d", cfg.Network.Port))
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	start := time.Now()
	last := start
	statsCounter := 0
	statsInterval := int(time.Second / cfg.Network.TickRate)
	if statsInterval < 1 {
		statsInterval = 1
	}

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			dt := now.Sub(last)
			last = now
			// A stalled host produces one long dt; clamp so the simulation
			// slows down instead of teleporting everything.
			if dt > 5*cfg.Network.TickRate {
				dt = 5 * cfg.Network.TickRate
			}

			worldState.Now = now.Sub(start).Milliseconds()
			worldState.Tick++

			bus.SwapBuffers()
			bus.DispatchAll()
			runner.Tick(dt)

			statsCounter++
			if statsCounter >= statsInterval {
				statsCounter = 0
				publishStats(netServer, worldState, sessions.Count(), start)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := netServer.Shutdown(ctx)
			cancel()
			sessions.Each(func(s *gonet.Session) { s.Close() })
			if err != nil {
				log.Warn("shutdown", zap.Error(err))
			}
			log.Info("server stopped")
			return nil
		}
	}
}

func publishStats(srv *gonet.Server, ws *world.State, sessionCount int, start time.Time) {
	snap, err := json.Marshal(map[string]any{
		"tick":        ws.Tick,
		"uptimeSec":   int(time.Since(start).Seconds()),
		"sessions":    sessionCount,
		"players":     ws.PlayerCount(),
		"monsters":    ws.MonsterCount(),
		"projectiles": ws.ProjectileCount(),
	})
	if err != nil {
		return
	}
	srv.PublishStats(snap)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
