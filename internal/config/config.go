// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all gameplay and service settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// SIMULATION TUNING
// =============================================================================

// SimConfig holds the per-client simulation tuning. Both players run the same
// numbers; they are part of the game contract, not per-user preference.
type SimConfig struct {
	Lanes       []float64 // X coordinate of each lane, left to right
	LaneBlend   float64   // Per-frame blend factor toward the target lane X
	LaneSnap    float64   // Distance below which the avatar snaps onto the lane
	Gravity     float64   // Downward acceleration in units/s^2
	JumpHeight  float64   // Configured jump peak height in units
	SpawnZ      float64   // Far spawn plane (entities appear here)
	DespawnZ    float64   // Near despawn plane (entities past this are removed)
	MinSpawnGap float64   // Minimum Z gap between spawns of one kind (solo mode only)

	// Scoring
	CoinScore        int
	CoinFragments    int
	PowerupGoodScore int
	PowerupBadScore  int // Negative; total score never drops below zero
	DistanceScore    int
	DistanceInterval time.Duration // Wall-clock interval between distance credits
	DistanceSyncStep int           // Publish score every Nth distance point

	// Collision tolerances along Z, by entity class
	HazardTolerance      float64
	CollectibleTolerance float64
	LaneTolerance        float64 // |dX| bound shared by every entity kind
}

// DefaultSim returns the default simulation tuning.
func DefaultSim() SimConfig {
	return SimConfig{
		Lanes:       []float64{-3, 0, 3},
		LaneBlend:   0.15,
		LaneSnap:    0.01,
		Gravity:     20,
		JumpHeight:  3,
		SpawnZ:      -80,
		DespawnZ:    20,
		MinSpawnGap: 15,

		CoinScore:        100,
		CoinFragments:    10,
		PowerupGoodScore: 500,
		PowerupBadScore:  -1000,
		DistanceScore:    1,
		DistanceInterval: 100 * time.Millisecond,
		DistanceSyncStep: 10,

		HazardTolerance:      2.0,
		CollectibleTolerance: 1.5,
		LaneTolerance:        1.0,
	}
}

// =============================================================================
// SYNC CONFIGURATION
// =============================================================================

// SyncConfig controls the outbound publish rates of a match session.
type SyncConfig struct {
	PositionMinInterval time.Duration // Wall-clock gate on position writes
	NetworkTick         time.Duration // Fixed-rate pump interval (decoupled path)
	StartWait           time.Duration // How long to wait for the room to start
}

// DefaultSync returns the default sync configuration.
func DefaultSync() SyncConfig {
	return SyncConfig{
		PositionMinInterval: 16 * time.Millisecond,
		NetworkTick:         50 * time.Millisecond,
		StartWait:           10 * time.Second,
	}
}

// SyncFromEnv returns sync configuration with environment variable overrides.
func SyncFromEnv() SyncConfig {
	cfg := DefaultSync()

	if ms := getEnvInt("SYNC_POSITION_MIN_INTERVAL_MS", 0); ms > 0 {
		cfg.PositionMinInterval = time.Duration(ms) * time.Millisecond
	}
	if ms := getEnvInt("SYNC_NETWORK_TICK_MS", 0); ms > 0 {
		cfg.NetworkTick = time.Duration(ms) * time.Millisecond
	}
	if s := getEnvInt("SYNC_START_WAIT_SECONDS", 0); s > 0 {
		cfg.StartWait = time.Duration(s) * time.Second
	}

	return cfg
}

// =============================================================================
// ROOM STORE CONFIGURATION
// =============================================================================

// RoomsConfig controls room lifecycle housekeeping.
type RoomsConfig struct {
	MaxAge          time.Duration // Rooms older than this are swept
	JanitorInterval time.Duration // How often the sweep runs
}

// DefaultRooms returns the default room housekeeping configuration.
func DefaultRooms() RoomsConfig {
	return RoomsConfig{
		MaxAge:          60 * time.Minute,
		JanitorInterval: 5 * time.Minute,
	}
}

// RoomsFromEnv returns room configuration with environment variable overrides.
func RoomsFromEnv() RoomsConfig {
	cfg := DefaultRooms()

	if m := getEnvInt("ROOM_MAX_AGE_MINUTES", 0); m > 0 {
		cfg.MaxAge = time.Duration(m) * time.Minute
	}
	if m := getEnvInt("ROOM_JANITOR_MINUTES", 0); m > 0 {
		cfg.JanitorInterval = time.Duration(m) * time.Minute
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int
	FrameRate int // Session loop tick rate when this process hosts a session
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      3000,
		FrameRate: 60,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if fr := getEnvInt("FRAME_RATE", 0); fr > 0 {
		cfg.FrameRate = fr
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim    SimConfig
	Sync   SyncConfig
	Rooms  RoomsConfig
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:    DefaultSim(),
		Sync:   SyncFromEnv(),
		Rooms:  RoomsFromEnv(),
		Server: ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
