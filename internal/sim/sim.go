// Package sim is the per-client local simulation: lane movement, jump
// physics, spawn scheduling, and collision detection. Each client runs its
// own Simulation for its own avatar only; the opponent is never simulated,
// only rendered from inbound snapshots.
package sim

import (
	"math"
	"math/rand"
	"time"

	"sky-sprint/internal/config"
	"sky-sprint/internal/levels"
)

// Mode selects between the multiplayer and solo spawn paths. The solo path
// enforces a minimum spawn gap per kind; the multiplayer path is a pure
// per-frame Bernoulli process. The divergence is inherited behavior, kept
// deliberately.
type Mode int

const (
	Multiplayer Mode = iota
	Solo
)

// Avatar is the locally owned runner state. The room record's copy of this
// is a lagging, throttled projection published by the sync channel.
type Avatar struct {
	X, Y, Z      float64
	GroundY      float64
	Lane         int
	TargetLaneX  float64
	JumpVelocity float64
	IsJumping    bool
	IsAlive      bool
	Score        int
	Fragments    int
}

// Direction is a lane-change direction.
type Direction int

const (
	Left Direction = iota
	Right
)

// Callbacks let the session react to simulation outcomes without the
// simulation knowing about sync channels or state machines.
type Callbacks struct {
	// OnDeath fires exactly once, at the fatal collision.
	OnDeath func()
	// OnPickup fires on every collectible consumption with the new totals.
	OnPickup func(score, fragments int)
	// OnDistanceSync fires on every Nth distance point (bandwidth sampling).
	OnDistanceSync func(score, fragments int)
}

// Simulation advances one avatar and its hazard field frame by frame.
// It is driven from a single loop goroutine and is not safe for concurrent
// use; the session serializes all access.
type Simulation struct {
	cfg   config.SimConfig
	level levels.Config
	mode  Mode
	rng   *rand.Rand
	cb    Callbacks

	avatar   Avatar
	entities []Entity

	started       bool
	over          bool
	sinceDistance time.Duration
}

// New creates a simulation with the avatar placed on startLane. The seed
// drives every random draw; two simulations with the same seed and level
// produce identical hazard fields.
func New(cfg config.SimConfig, level levels.Config, seed int64, startLane int, mode Mode, cb Callbacks) *Simulation {
	if startLane < 0 || startLane >= len(cfg.Lanes) {
		startLane = 0
	}
	return &Simulation{
		cfg:   cfg,
		level: level,
		mode:  mode,
		rng:   rand.New(rand.NewSource(seed)),
		cb:    cb,
		avatar: Avatar{
			X:           cfg.Lanes[startLane],
			Z:           5,
			Lane:        startLane,
			TargetLaneX: cfg.Lanes[startLane],
			IsAlive:     true,
		},
	}
}

// Start releases the simulation; before it, Advance is a no-op and jumps are
// refused (the countdown phase).
func (s *Simulation) Start() {
	s.started = true
}

// End freezes the simulation. Called when the match finishes for any reason,
// including a remotely declared winner.
func (s *Simulation) End() {
	s.over = true
}

// Avatar returns a copy of the current avatar state.
func (s *Simulation) Avatar() Avatar {
	return s.avatar
}

// Entities returns a copy of the live entity set.
func (s *Simulation) Entities() []Entity {
	out := make([]Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// Over reports whether the simulation has been frozen.
func (s *Simulation) Over() bool {
	return s.over
}

// StartJump launches a jump when the avatar is grounded, alive, and the
// match has started. The initial velocity is the exact projectile-motion
// value for the configured peak height.
func (s *Simulation) StartJump() {
	if s.avatar.IsJumping || !s.started || !s.avatar.IsAlive || s.over {
		return
	}
	s.avatar.IsJumping = true
	s.avatar.JumpVelocity = math.Sqrt(2 * s.cfg.Gravity * s.cfg.JumpHeight)
}

// ChangeLane retargets the avatar one lane over, clamped at the track edges.
func (s *Simulation) ChangeLane(dir Direction) {
	if !s.avatar.IsAlive || s.over {
		return
	}
	switch dir {
	case Left:
		if s.avatar.Lane > 0 {
			s.avatar.Lane--
		}
	case Right:
		if s.avatar.Lane < len(s.cfg.Lanes)-1 {
			s.avatar.Lane++
		}
	}
	s.avatar.TargetLaneX = s.cfg.Lanes[s.avatar.Lane]
}

// Advance runs one frame with elapsed time delta.
func (s *Simulation) Advance(delta time.Duration) {
	if !s.started || s.over {
		return
	}
	dt := delta.Seconds()

	s.updateLane()
	s.updateJump(dt)
	s.spawn()
	s.updateEntities()
	s.updateDistance(delta)
}

// updateLane blends the avatar's X toward the target lane at a fixed factor
// per frame. Frame-rate dependent by design.
func (s *Simulation) updateLane() {
	a := &s.avatar
	if math.Abs(a.X-a.TargetLaneX) > s.cfg.LaneSnap {
		a.X += (a.TargetLaneX - a.X) * s.cfg.LaneBlend
	} else {
		a.X = a.TargetLaneX
	}
}

func (s *Simulation) updateJump(dt float64) {
	a := &s.avatar
	if !a.IsJumping {
		return
	}
	a.JumpVelocity -= s.cfg.Gravity * dt
	a.Y += a.JumpVelocity * dt
	if a.Y <= a.GroundY {
		a.Y = a.GroundY
		a.IsJumping = false
		a.JumpVelocity = 0
	}
}

// updateEntities advances every entity by the level's scroll speed, resolves
// collisions against the local avatar, and despawns entities past the near
// plane.
func (s *Simulation) updateEntities() {
	n := 0
	for i := range s.entities {
		e := s.entities[i]
		e.Z += s.level.ScrollSpeed

		if s.resolveCollision(e) {
			continue // consumed or fatal; drop the entity
		}
		if e.Z > s.cfg.DespawnZ {
			continue
		}
		s.entities[n] = e
		n++
	}
	s.entities = s.entities[:n]
}

// resolveCollision applies one entity's collision outcome. Returns true when
// the entity should be removed.
func (s *Simulation) resolveCollision(e Entity) bool {
	a := &s.avatar
	if !a.IsAlive || s.over {
		return false
	}

	switch e.Kind {
	case levels.KindObstacle, levels.KindBomb:
		// Hazards only connect while grounded; airborne avatars clear them.
		if a.IsJumping {
			return false
		}
		if !collides(e.X, e.Z, a.X, a.Z, s.cfg.HazardTolerance, s.cfg.LaneTolerance) {
			return false
		}
		a.IsAlive = false
		s.over = true
		if s.cb.OnDeath != nil {
			s.cb.OnDeath()
		}
		return true

	case levels.KindCoin:
		if !collides(e.X, e.Z, a.X, a.Z, s.cfg.CollectibleTolerance, s.cfg.LaneTolerance) {
			return false
		}
		s.credit(s.cfg.CoinScore, s.cfg.CoinFragments)
		return true

	case levels.KindPowerupGood:
		if !collides(e.X, e.Z, a.X, a.Z, s.cfg.CollectibleTolerance, s.cfg.LaneTolerance) {
			return false
		}
		s.credit(s.cfg.PowerupGoodScore, 0)
		return true

	case levels.KindPowerupBad:
		if !collides(e.X, e.Z, a.X, a.Z, s.cfg.CollectibleTolerance, s.cfg.LaneTolerance) {
			return false
		}
		s.credit(s.cfg.PowerupBadScore, 0)
		return true
	}
	return false
}

func (s *Simulation) credit(score, fragments int) {
	s.avatar.Score += score
	if s.avatar.Score < 0 {
		s.avatar.Score = 0
	}
	s.avatar.Fragments += fragments
	if s.cb.OnPickup != nil {
		s.cb.OnPickup(s.avatar.Score, s.avatar.Fragments)
	}
}

// updateDistance credits survival points on a wall-clock interval and
// samples every Nth point for a score sync.
func (s *Simulation) updateDistance(delta time.Duration) {
	if !s.avatar.IsAlive {
		return
	}
	s.sinceDistance += delta
	for s.sinceDistance >= s.cfg.DistanceInterval {
		s.sinceDistance -= s.cfg.DistanceInterval
		s.avatar.Score += s.cfg.DistanceScore
		if s.cb.OnDistanceSync != nil && s.avatar.Score%s.cfg.DistanceSyncStep == 0 {
			s.cb.OnDistanceSync(s.avatar.Score, s.avatar.Fragments)
		}
	}
}
