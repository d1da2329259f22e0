package sim

import (
	"hash/fnv"

	"sky-sprint/internal/levels"
)

// Entity is one spawned obstacle or collectible on the local track.
type Entity struct {
	Kind levels.Kind
	Lane int
	X    float64
	Z    float64
}

// SeedFromRoomID derives a deterministic RNG seed from the room id. Both
// clients of a room seed their simulations with the same value, making the
// two hazard fields reproducibly identical.
func SeedFromRoomID(roomID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(roomID))
	return int64(h.Sum64())
}

// spawn draws one Bernoulli sample per entity kind per frame against the
// level's spawn rates. Draw order is fixed so that identical seeds yield
// identical fields. The solo path additionally refuses a spawn while the
// previous entity of the same kind is still within the minimum gap of the
// spawn plane; the multiplayer path runs without that gap.
func (s *Simulation) spawn() {
	for _, kind := range levels.Kinds {
		p, ok := s.level.SpawnRates[kind]
		if !ok {
			continue
		}
		// One draw per kind per frame, spawn or not: keeps the RNG stream
		// aligned between peers regardless of gap decisions.
		sample := s.rng.Float64()
		laneDraw := s.rng.Intn(len(s.cfg.Lanes))

		if sample >= p {
			continue
		}
		if s.mode == Solo && !s.gapClear(kind) {
			continue
		}
		s.entities = append(s.entities, Entity{
			Kind: kind,
			Lane: laneDraw,
			X:    s.cfg.Lanes[laneDraw],
			Z:    s.cfg.SpawnZ,
		})
	}
}

// gapClear reports whether no entity of the kind is still within the minimum
// spawn gap of the spawn plane.
func (s *Simulation) gapClear(kind levels.Kind) bool {
	for _, e := range s.entities {
		if e.Kind == kind && e.Z < s.cfg.SpawnZ+s.cfg.MinSpawnGap {
			return false
		}
	}
	return true
}

// SpawnAt places an entity directly. Scenario setup for tests and replays;
// normal play spawns only through the scheduler.
func (s *Simulation) SpawnAt(kind levels.Kind, lane int, z float64) {
	if lane < 0 || lane >= len(s.cfg.Lanes) {
		return
	}
	s.entities = append(s.entities, Entity{
		Kind: kind,
		Lane: lane,
		X:    s.cfg.Lanes[lane],
		Z:    z,
	})
}
