// Package levels is the static level configuration table. Each level supplies
// a visual theme, a scroll speed, and the per-entity-kind spawn probabilities
// consumed read-only by the simulation and the remote presenter.
package levels

// Kind identifies a spawnable entity class.
type Kind string

const (
	KindObstacle    Kind = "obstacle"
	KindCoin        Kind = "coin"
	KindPowerupGood Kind = "powerupGood"
	KindPowerupBad  Kind = "powerupBad"
	KindBomb        Kind = "bomb"
)

// Kinds lists every spawnable kind in spawn-scheduling order.
var Kinds = []Kind{KindObstacle, KindCoin, KindPowerupGood, KindPowerupBad, KindBomb}

// Theme holds the visual palette of a level. The match core never reads it;
// it is served to clients verbatim.
type Theme struct {
	Road       string `json:"road"`
	Grass      string `json:"grass"`
	Lines      string `json:"lines"`
	FogColor   string `json:"fogColor"`
	Background string `json:"background"`
}

// Config is one level's full configuration.
type Config struct {
	Level       int              `json:"level"`
	Name        string           `json:"name"`
	Theme       Theme            `json:"theme"`
	ScrollSpeed float64          `json:"scrollSpeed"` // Z units per frame
	SpawnRates  map[Kind]float64 `json:"spawnRates"`  // per-frame Bernoulli probability
}

const (
	MinLevel = 1
	MaxLevel = 3
)

var table = map[int]Config{
	1: {
		Level: 1,
		Name:  "Mystic Forest",
		Theme: Theme{
			Road:       "#8B4513",
			Grass:      "#228B22",
			Lines:      "#FFFFFF",
			FogColor:   "#87CEEB",
			Background: "sky",
		},
		ScrollSpeed: 0.25,
		SpawnRates: map[Kind]float64{
			KindObstacle:    0.01,
			KindCoin:        0.025,
			KindPowerupGood: 0.0015,
			KindPowerupBad:  0.0005,
			KindBomb:        0.0008,
		},
	},
	2: {
		Level: 2,
		Name:  "Neon City",
		Theme: Theme{
			Road:       "#2C3E50",
			Grass:      "#34495E",
			Lines:      "#00FFFF",
			FogColor:   "#1a1a2e",
			Background: "city",
		},
		ScrollSpeed: 0.30,
		SpawnRates: map[Kind]float64{
			KindObstacle:    0.015,
			KindCoin:        0.025,
			KindPowerupGood: 0.001,
			KindPowerupBad:  0.001,
			KindBomb:        0.001,
		},
	},
	3: {
		Level: 3,
		Name:  "Infernal Volcano",
		Theme: Theme{
			Road:       "#3D0000",
			Grass:      "#8B0000",
			Lines:      "#FF4500",
			FogColor:   "#FF4500",
			Background: "volcano",
		},
		ScrollSpeed: 0.35,
		SpawnRates: map[Kind]float64{
			KindObstacle:    0.02,
			KindCoin:        0.025,
			KindPowerupGood: 0.001,
			KindPowerupBad:  0.0015,
			KindBomb:        0.0012,
		},
	},
}

// Get returns the configuration for the given level. Unknown levels fall back
// to level 1.
func Get(level int) Config {
	if cfg, ok := table[level]; ok {
		return cfg
	}
	return table[1]
}

// Valid reports whether level is a playable level number.
func Valid(level int) bool {
	_, ok := table[level]
	return ok
}

// All returns every level config in ascending level order.
func All() []Config {
	out := make([]Config, 0, len(table))
	for lvl := MinLevel; lvl <= MaxLevel; lvl++ {
		out = append(out, table[lvl])
	}
	return out
}
