// Package gamesync is the per-room bidirectional channel between one client's
// simulation and the shared room record. It throttles and publishes local
// avatar state, and subscribes to remote avatar state and room-status
// changes. One Channel exists per session; construct it explicitly and call
// Cleanup when the session ends.
package gamesync

import (
	"log"
	"math"
	"sync"

	"golang.org/x/time/rate"

	"sky-sprint/internal/config"
	"sky-sprint/internal/store"
)

// Store is the slice of the room store the sync channel needs.
type Store interface {
	UpdatePlayerPosition(roomID, userID string, pos store.Position) error
	UpdatePlayerMovement(roomID, userID string, lane int, isJumping bool) error
	UpdatePlayerScore(roomID, userID string, score, fragments int) error
	SetPlayerAlive(roomID, userID string, isAlive bool) error
	DeclareWinner(roomID, winnerID string) error
	WatchRoom(roomID string, cb func(store.Room)) (store.CancelFunc, error)
	WatchPlayer(roomID, playerID string, cb func(store.PlayerRecord)) (store.CancelFunc, error)
}

// Channel publishes local state and receives remote state for one room.
// Publish methods are fire-and-forget: write failures are logged and dropped,
// because the next frame's write supersedes them.
type Channel struct {
	store    Store
	roomID   string
	localID  string
	remoteID string

	// Wall-clock gate bounding position write volume under fast frame
	// rates. One token per PositionMinInterval, no burst.
	limiter *rate.Limiter

	mu      sync.Mutex
	cancels []store.CancelFunc
	closed  bool
}

// New creates a sync channel for the given room and player pair.
func New(st Store, roomID, localID, remoteID string, cfg config.SyncConfig) *Channel {
	return &Channel{
		store:    st,
		roomID:   roomID,
		localID:  localID,
		remoteID: remoteID,
		limiter:  rate.NewLimiter(rate.Every(cfg.PositionMinInterval), 1),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// UpdateLocalPosition publishes the local avatar's position, lane, and jump
// flag, at most once per the configured interval. Position and movement are
// two logical writes, not one atomic record.
func (c *Channel) UpdateLocalPosition(x, y, z float64, lane int, isJumping bool) {
	if !c.limiter.Allow() {
		return
	}

	pos := store.Position{X: round2(x), Y: round2(y), Z: round2(z)}
	if err := c.store.UpdatePlayerPosition(c.roomID, c.localID, pos); err != nil {
		log.Printf("position sync dropped: %v", err)
		return
	}
	if err := c.store.UpdatePlayerMovement(c.roomID, c.localID, lane, isJumping); err != nil {
		log.Printf("movement sync dropped: %v", err)
	}
}

// publishPosition is the unthrottled write path used by the fixed-rate pump.
func (c *Channel) publishPosition(x, y, z float64, lane int, isJumping bool) {
	pos := store.Position{X: round2(x), Y: round2(y), Z: round2(z)}
	if err := c.store.UpdatePlayerPosition(c.roomID, c.localID, pos); err != nil {
		log.Printf("position sync dropped: %v", err)
		return
	}
	if err := c.store.UpdatePlayerMovement(c.roomID, c.localID, lane, isJumping); err != nil {
		log.Printf("movement sync dropped: %v", err)
	}
}

// UpdateLocalScore publishes score and fragment totals. Unthrottled; callers
// push on pickup events and sampled distance points, not every frame.
func (c *Channel) UpdateLocalScore(score, fragments int) {
	if err := c.store.UpdatePlayerScore(c.roomID, c.localID, score, fragments); err != nil {
		log.Printf("score sync dropped: %v", err)
	}
}

// UpdateLocalAliveStatus publishes the alive flag. Called exactly once at
// local death.
func (c *Channel) UpdateLocalAliveStatus(isAlive bool) {
	if err := c.store.SetPlayerAlive(c.roomID, c.localID, isAlive); err != nil {
		log.Printf("alive sync dropped: %v", err)
	}
}

// DeclareWinner finishes the room in favor of winnerID. The store applies it
// conditionally, so when both peers race only the first declaration sticks;
// losing the race is not an error worth surfacing.
func (c *Channel) DeclareWinner(winnerID string) {
	err := c.store.DeclareWinner(c.roomID, winnerID)
	switch err {
	case nil:
		log.Printf("winner declared: %s", winnerID)
	case store.ErrMatchFinished:
		// Peer got there first.
	default:
		log.Printf("winner declaration failed: %v", err)
	}
}

// ListenToRemotePlayer invokes cb with the full remote player snapshot on
// every change to the remote player's record.
func (c *Channel) ListenToRemotePlayer(cb func(store.PlayerRecord)) error {
	cancel, err := c.store.WatchPlayer(c.roomID, c.remoteID, cb)
	if err != nil {
		return err
	}
	c.track(cancel)
	return nil
}

// ListenToRoomStatus invokes cb on every change to the room record. Used to
// detect the finished status and opponent departure.
func (c *Channel) ListenToRoomStatus(cb func(store.Room)) error {
	cancel, err := c.store.WatchRoom(c.roomID, cb)
	if err != nil {
		return err
	}
	c.track(cancel)
	return nil
}

func (c *Channel) track(cancel store.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		cancel()
		return
	}
	c.cancels = append(c.cancels, cancel)
}

// Cleanup detaches every subscription for the room. Must be called when the
// local session ends; safe to call more than once.
func (c *Channel) Cleanup() {
	c.mu.Lock()
	cancels := c.cancels
	c.cancels = nil
	c.closed = true
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
