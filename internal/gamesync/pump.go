package gamesync

import (
	"context"
	"sync"
	"time"
)

// positionUpdate is one pending outbound position sample.
type positionUpdate struct {
	x, y, z   float64
	lane      int
	isJumping bool
}

// PositionPump publishes position at a fixed network tick rate, decoupled
// from the render loop's variable frame rate. The frame loop offers samples
// as fast as it likes; the pump keeps only the latest and flushes it each
// tick, so network volume is independent of client performance.
type PositionPump struct {
	ch       *Channel
	interval time.Duration

	mu      sync.Mutex
	pending *positionUpdate
}

// NewPositionPump creates a pump flushing through ch every interval.
func NewPositionPump(ch *Channel, interval time.Duration) *PositionPump {
	return &PositionPump{ch: ch, interval: interval}
}

// Offer replaces the pending sample with the given one. Latest wins.
func (p *PositionPump) Offer(x, y, z float64, lane int, isJumping bool) {
	p.mu.Lock()
	p.pending = &positionUpdate{x: x, y: y, z: z, lane: lane, isJumping: isJumping}
	p.mu.Unlock()
}

// Run flushes the pending sample on every tick until ctx is cancelled.
func (p *PositionPump) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.flush()
		case <-ctx.Done():
			return
		}
	}
}

func (p *PositionPump) flush() {
	p.mu.Lock()
	u := p.pending
	p.pending = nil
	p.mu.Unlock()

	if u == nil {
		return
	}
	p.ch.publishPosition(u.x, u.y, u.z, u.lane, u.isJumping)
}
