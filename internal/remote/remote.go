// Package remote drives the remote avatar's presented state from inbound
// snapshots. The remote avatar is never simulated: position is smoothed
// between throttled updates, discrete fields are applied directly.
package remote

import (
	"sync"

	"sky-sprint/internal/store"
)

// DefaultBlend is the per-update exponential blend factor toward a new
// snapshot position. Applied once per received update, not per frame.
const DefaultBlend = 0.3

// Presenter is the client-side shadow of the opponent. It is mutated only by
// the sync channel's receive path and read by rendering and HUD code, hence
// the lock.
type Presenter struct {
	mu sync.Mutex

	blend       float64
	initialized bool

	x, y, z   float64
	lane      int
	isJumping bool
	score     int
	fragments int
	isAlive   bool
	name      string
}

// NewPresenter creates a presenter with the given blend factor; zero selects
// DefaultBlend.
func NewPresenter(blend float64) *Presenter {
	if blend <= 0 {
		blend = DefaultBlend
	}
	return &Presenter{blend: blend, isAlive: true}
}

// Apply folds one inbound remote snapshot into the presented state. The
// first snapshot snaps the position directly; later ones move the presented
// position a fixed fraction toward the snapshot.
func (p *Presenter) Apply(rec store.PlayerRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		p.x, p.y, p.z = rec.Position.X, rec.Position.Y, rec.Position.Z
		p.initialized = true
	} else {
		p.x += (rec.Position.X - p.x) * p.blend
		p.y += (rec.Position.Y - p.y) * p.blend
		p.z += (rec.Position.Z - p.z) * p.blend
	}

	p.lane = rec.Lane
	p.isJumping = rec.IsJumping
	p.score = rec.Score
	p.fragments = rec.Fragments
	p.isAlive = rec.IsAlive
	p.name = rec.Name
}

// Position returns the smoothed presented position.
func (p *Presenter) Position() (x, y, z float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x, p.y, p.z
}

// Lane returns the directly applied lane index.
func (p *Presenter) Lane() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lane
}

// IsJumping returns the directly applied jump flag.
func (p *Presenter) IsJumping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isJumping
}

// HUD returns the unsmoothed display fields.
func (p *Presenter) HUD() (name string, score, fragments int, isAlive bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name, p.score, p.fragments, p.isAlive
}
