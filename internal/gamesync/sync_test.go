package gamesync

import (
	"context"
	"sync"
	"testing"
	"time"

	"sky-sprint/internal/config"
	"sky-sprint/internal/store"
)

// fakeStore counts writes and records the last values, standing in for the
// real room store.
type fakeStore struct {
	mu sync.Mutex

	positionWrites int
	movementWrites int
	scoreWrites    int
	aliveWrites    int

	lastPos       store.Position
	lastLane      int
	lastJumping   bool
	lastScore     int
	lastFragments int
	lastAlive     bool

	declared      []string
	declareErr    error
	watchCancels  int
	playerWatches int
	roomWatches   int
}

func (f *fakeStore) UpdatePlayerPosition(roomID, userID string, pos store.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positionWrites++
	f.lastPos = pos
	return nil
}

func (f *fakeStore) UpdatePlayerMovement(roomID, userID string, lane int, isJumping bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movementWrites++
	f.lastLane = lane
	f.lastJumping = isJumping
	return nil
}

func (f *fakeStore) UpdatePlayerScore(roomID, userID string, score, fragments int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreWrites++
	f.lastScore = score
	f.lastFragments = fragments
	return nil
}

func (f *fakeStore) SetPlayerAlive(roomID, userID string, isAlive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aliveWrites++
	f.lastAlive = isAlive
	return nil
}

func (f *fakeStore) DeclareWinner(roomID, winnerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, winnerID)
	return nil
}

func (f *fakeStore) WatchRoom(roomID string, cb func(store.Room)) (store.CancelFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomWatches++
	return func() {
		f.mu.Lock()
		f.watchCancels++
		f.mu.Unlock()
	}, nil
}

func (f *fakeStore) WatchPlayer(roomID, playerID string, cb func(store.PlayerRecord)) (store.CancelFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playerWatches++
	return func() {
		f.mu.Lock()
		f.watchCancels++
		f.mu.Unlock()
	}, nil
}

func (f *fakeStore) counts() (pos, mov int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.positionWrites, f.movementWrites
}

func (f *fakeStore) lastPosition() store.Position {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPos
}

func newTestChannel(f *fakeStore, minInterval time.Duration) *Channel {
	cfg := config.DefaultSync()
	cfg.PositionMinInterval = minInterval
	return New(f, "room_1", "me", "them", cfg)
}

// TestPositionThrottle verifies at most one position write per interval.
func TestPositionThrottle(t *testing.T) {
	f := &fakeStore{}
	c := newTestChannel(f, time.Hour)

	for i := 0; i < 50; i++ {
		c.UpdateLocalPosition(float64(i), 0, 5, 0, false)
	}

	pos, mov := f.counts()
	if pos != 1 {
		t.Errorf("position writes = %d, want 1 (throttled)", pos)
	}
	if mov != 1 {
		t.Errorf("movement writes = %d, want 1", mov)
	}
	// The first call's values went through, not the last's.
	if f.lastPos.X != 0 {
		t.Errorf("published X = %.2f, want 0 (first call wins)", f.lastPos.X)
	}
}

// TestPositionRoundsToTwoDecimals verifies coordinate rounding on publish.
func TestPositionRoundsToTwoDecimals(t *testing.T) {
	f := &fakeStore{}
	c := newTestChannel(f, 0)

	c.UpdateLocalPosition(-2.987654, 1.23456, 5.5555, 2, true)

	want := store.Position{X: -2.99, Y: 1.23, Z: 5.56}
	if f.lastPos != want {
		t.Errorf("published position = %+v, want %+v", f.lastPos, want)
	}
	if f.lastLane != 2 || !f.lastJumping {
		t.Errorf("movement = lane %d jumping %v, want 2/true", f.lastLane, f.lastJumping)
	}
}

// TestScoreAndAliveWritesPassThrough verifies the unthrottled paths.
func TestScoreAndAliveWritesPassThrough(t *testing.T) {
	f := &fakeStore{}
	c := newTestChannel(f, time.Hour)

	c.UpdateLocalScore(450, 12)
	c.UpdateLocalAliveStatus(false)

	if f.scoreWrites != 1 || f.lastScore != 450 || f.lastFragments != 12 {
		t.Errorf("score write = %d (%d/%d), want 1 (450/12)", f.scoreWrites, f.lastScore, f.lastFragments)
	}
	if f.aliveWrites != 1 || f.lastAlive {
		t.Errorf("alive write = %d (%v), want 1 (false)", f.aliveWrites, f.lastAlive)
	}
}

// TestDeclareWinnerLosingRaceIsQuiet verifies ErrMatchFinished from the
// store is treated as the peer winning the declaration race.
func TestDeclareWinnerLosingRaceIsQuiet(t *testing.T) {
	f := &fakeStore{}
	c := newTestChannel(f, 0)

	c.DeclareWinner("me")
	if len(f.declared) != 1 || f.declared[0] != "me" {
		t.Fatalf("declared = %v, want [me]", f.declared)
	}

	f.declareErr = store.ErrMatchFinished
	c.DeclareWinner("me") // must not panic or misbehave
	if len(f.declared) != 1 {
		t.Errorf("declared = %v, want unchanged", f.declared)
	}
}

// TestCleanupCancelsAllWatches verifies every subscription is detached and
// a second Cleanup is harmless.
func TestCleanupCancelsAllWatches(t *testing.T) {
	f := &fakeStore{}
	c := newTestChannel(f, 0)

	if err := c.ListenToRemotePlayer(func(store.PlayerRecord) {}); err != nil {
		t.Fatalf("ListenToRemotePlayer: %v", err)
	}
	if err := c.ListenToRoomStatus(func(store.Room) {}); err != nil {
		t.Fatalf("ListenToRoomStatus: %v", err)
	}

	c.Cleanup()
	if f.watchCancels != 2 {
		t.Errorf("cancels = %d, want 2", f.watchCancels)
	}

	c.Cleanup()
	if f.watchCancels != 2 {
		t.Errorf("cancels after second Cleanup = %d, want still 2", f.watchCancels)
	}

	// Subscriptions attached after Cleanup are cancelled immediately.
	if err := c.ListenToRoomStatus(func(store.Room) {}); err != nil {
		t.Fatalf("ListenToRoomStatus: %v", err)
	}
	if f.watchCancels != 3 {
		t.Errorf("late subscription not cancelled, cancels = %d", f.watchCancels)
	}
}

// TestPositionPumpLatestWins verifies the pump flushes only the newest
// offered sample per tick.
func TestPositionPumpLatestWins(t *testing.T) {
	f := &fakeStore{}
	c := newTestChannel(f, 0)
	p := NewPositionPump(c, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	for i := 0; i < 100; i++ {
		p.Offer(float64(i), 0, 5, 0, false)
	}

	// Give the pump a few ticks to flush the single pending sample.
	time.Sleep(50 * time.Millisecond)

	pos, _ := f.counts()
	if pos == 0 {
		t.Fatal("pump never flushed")
	}
	if pos > 2 {
		t.Errorf("position writes = %d, want the 100 offers collapsed", pos)
	}
	if got := f.lastPosition(); got.X != 99 {
		t.Errorf("published X = %.0f, want 99 (latest wins)", got.X)
	}
}

// TestPositionPumpIdleTicksWriteNothing verifies empty ticks are free.
func TestPositionPumpIdleTicksWriteNothing(t *testing.T) {
	f := &fakeStore{}
	c := newTestChannel(f, 0)
	p := NewPositionPump(c, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	time.Sleep(40 * time.Millisecond)

	if pos, _ := f.counts(); pos != 0 {
		t.Errorf("position writes = %d, want 0 with nothing offered", pos)
	}
}
