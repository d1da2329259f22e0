package store

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sky-sprint/internal/match"
)

// watcher delivers snapshots to one subscriber on its own goroutine,
// preserving per-path FIFO order. The inbox is bounded; when the subscriber
// falls behind, the newest pending update is dropped; the next write carries
// fresher state anyway.
type watcher[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

func newWatcher[T any](cb func(T)) *watcher[T] {
	w := &watcher[T]{
		ch:   make(chan T, 64),
		done: make(chan struct{}),
	}
	go func() {
		for {
			select {
			case v := <-w.ch:
				cb(v)
			case <-w.done:
				return
			}
		}
	}()
	return w
}

func (w *watcher[T]) send(v T) {
	select {
	case w.ch <- v:
	default:
	}
}

func (w *watcher[T]) cancel() {
	w.once.Do(func() { close(w.done) })
}

// detach removes w from the registry slice under key, dropping the key once
// the slice empties. Callers hold the store lock.
func detach[T any](m map[string][]*watcher[T], key string, w *watcher[T]) {
	ws := m[key]
	for i, cur := range ws {
		if cur == w {
			m[key] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(m[key]) == 0 {
		delete(m, key)
	}
}

// MemoryStore is the in-process Store implementation. A single instance is
// shared by every session in the process; all methods are safe for concurrent
// use.
type MemoryStore struct {
	mu             sync.RWMutex
	rooms          map[string]*Room
	roomWatchers   map[string][]*watcher[Room]
	playerWatchers map[string][]*watcher[PlayerRecord]

	// OnFinish, when set before use, runs after each successful winner
	// declaration with the winner id (or "draw"). Used to feed metrics
	// without the store knowing about the metrics package.
	OnFinish func(winner string)
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:          make(map[string]*Room),
		roomWatchers:   make(map[string][]*watcher[Room]),
		playerWatchers: make(map[string][]*watcher[PlayerRecord]),
	}
}

func playerPath(roomID, playerID string) string {
	return roomID + "/" + playerID
}

func copyRoom(r *Room) Room {
	cp := *r
	cp.Players = make(map[string]PlayerRecord, len(r.Players))
	for id, p := range r.Players {
		cp.Players[id] = p
	}
	return cp
}

func newPlayerRecord(uid, name, email, color string, lane int, pos Position) PlayerRecord {
	return PlayerRecord{
		UID:      uid,
		Name:     name,
		Email:    email,
		IsAlive:  true,
		Color:    color,
		Position: pos,
		Lane:     lane,
		JoinedAt: time.Now().UnixMilli(),
	}
}

// CreateRoom writes a fresh waiting room holding only the creator (blue,
// left lane) and returns its globally unique id.
func (s *MemoryStore) CreateRoom(userID, name, email string, level int) (string, error) {
	roomID := fmt.Sprintf("room_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])

	room := &Room{
		RoomID:     roomID,
		CreatedAt:  time.Now().UnixMilli(),
		CreatedBy:  userID,
		Level:      level,
		Status:     StatusWaiting,
		MaxPlayers: MaxPlayers,
		Players: map[string]PlayerRecord{
			userID: newPlayerRecord(userID, name, email, ColorBlue, 0, Position{X: -3, Y: 0, Z: 5}),
		},
	}

	s.mu.Lock()
	s.rooms[roomID] = room
	s.mu.Unlock()

	log.Printf("room created: %s (level %d, by %s)", roomID, level, userID)
	return roomID, nil
}

// FindAvailableRooms scans every room and returns those still waiting with a
// free slot, optionally filtered by level (0 means any). No pagination; the
// room population is expected to stay small.
func (s *MemoryStore) FindAvailableRooms(level int) []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Room
	for _, r := range s.rooms {
		if r.Status != StatusWaiting || r.PlayerCount() >= r.MaxPlayers {
			continue
		}
		if level != 0 && r.Level != level {
			continue
		}
		out = append(out, copyRoom(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

// JoinRoom inserts the second player (red, middle lane). It does not start
// the match; that is an explicit StartGame call.
func (s *MemoryStore) JoinRoom(roomID, userID, name, email string) error {
	err := s.mutateRoom(roomID, func(r *Room) error {
		if r.PlayerCount() >= r.MaxPlayers {
			return ErrRoomFull
		}
		if r.Status != StatusWaiting {
			return ErrRoomStarted
		}
		r.Players[userID] = newPlayerRecord(userID, name, email, ColorRed, 1, Position{X: 0, Y: 0, Z: 5})
		return nil
	})
	if err == nil {
		log.Printf("player %s joined room %s", userID, roomID)
	}
	return err
}

// GetRoom returns a snapshot of the room.
func (s *MemoryStore) GetRoom(roomID string) (Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	return copyRoom(r), nil
}

func (s *MemoryStore) SetPlayerReady(roomID, userID string, ready bool) error {
	return s.mutatePlayer(roomID, userID, func(p *PlayerRecord) {
		p.Ready = ready
	})
}

// StartGame flips the room to playing. Starting an already playing room is a
// no-op; a finished room cannot be restarted.
func (s *MemoryStore) StartGame(roomID string) error {
	return s.mutateRoom(roomID, func(r *Room) error {
		switch r.Status {
		case StatusWaiting:
			r.Status = StatusPlaying
			r.StartedAt = time.Now().UnixMilli()
			return nil
		case StatusPlaying:
			return nil
		default:
			return ErrMatchFinished
		}
	})
}

// UpdatePlayerPosition writes the position fields only. Lane and jump state
// travel in a separate UpdatePlayerMovement write; the two are not atomic.
func (s *MemoryStore) UpdatePlayerPosition(roomID, userID string, pos Position) error {
	return s.mutatePlayer(roomID, userID, func(p *PlayerRecord) {
		p.Position = pos
	})
}

func (s *MemoryStore) UpdatePlayerMovement(roomID, userID string, lane int, isJumping bool) error {
	return s.mutatePlayer(roomID, userID, func(p *PlayerRecord) {
		p.Lane = lane
		p.IsJumping = isJumping
	})
}

func (s *MemoryStore) UpdatePlayerScore(roomID, userID string, score, fragments int) error {
	return s.mutatePlayer(roomID, userID, func(p *PlayerRecord) {
		p.Score = score
		p.Fragments = fragments
	})
}

// SetPlayerAlive writes the alive flag and nothing else. This is the sync
// channel's path; it deliberately does not run the winner check.
func (s *MemoryStore) SetPlayerAlive(roomID, userID string, isAlive bool) error {
	return s.mutatePlayer(roomID, userID, func(p *PlayerRecord) {
		p.IsAlive = isAlive
	})
}

// SetPlayerDead marks the player dead with a timestamp and then runs the
// server-side winner check.
func (s *MemoryStore) SetPlayerDead(roomID, userID string) error {
	err := s.mutatePlayer(roomID, userID, func(p *PlayerRecord) {
		p.IsAlive = false
		p.DiedAt = time.Now().UnixMilli()
	})
	if err != nil {
		return err
	}
	_, err = s.CheckForWinner(roomID)
	return err
}

// DeclareWinner finishes the room with the given winner. The write is
// conditional: once a room is finished, later declarations are rejected with
// ErrMatchFinished, so the first declaration wins when both clients race.
// A room that never started cannot finish; the waiting status is kept and
// ErrRoomNotStarted is returned.
func (s *MemoryStore) DeclareWinner(roomID, winnerID string) error {
	err := s.mutateRoom(roomID, func(r *Room) error {
		if r.Status == StatusFinished {
			return ErrMatchFinished
		}
		if r.Status != StatusPlaying {
			return ErrRoomNotStarted
		}
		r.Status = StatusFinished
		r.Winner = winnerID
		if p, ok := r.Players[winnerID]; ok {
			r.WinnerName = p.Name
		}
		r.FinishedAt = time.Now().UnixMilli()
		return nil
	})
	if err == nil && s.OnFinish != nil {
		s.OnFinish(winnerID)
	}
	return err
}

// RoomCount returns the number of live rooms.
func (s *MemoryStore) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// CheckForWinner reads the current players and resolves the match with the
// same DecideWinner policy the clients use. With both players still alive it
// takes no action. Returns the recorded winner, "" when undecided.
func (s *MemoryStore) CheckForWinner(roomID string) (string, error) {
	room, err := s.GetRoom(roomID)
	if err != nil {
		return "", err
	}
	if room.Status == StatusFinished {
		return room.Winner, nil
	}

	var results []match.PlayerResult
	for id, p := range room.Players {
		results = append(results, match.PlayerResult{ID: id, IsAlive: p.IsAlive, Score: p.Score})
	}

	var winner string
	switch len(results) {
	case 2:
		winner = match.DecideWinner(results[0], results[1])
	case 1:
		if results[0].IsAlive {
			winner = results[0].ID
		}
	}
	if winner == "" {
		return "", nil
	}

	if err := s.DeclareWinner(roomID, winner); err != nil {
		if err == ErrMatchFinished {
			// Lost the race to a client declaration; report what stuck.
			room, _ = s.GetRoom(roomID)
			return room.Winner, nil
		}
		return "", err
	}
	log.Printf("room %s finished, winner: %s", roomID, winner)
	return winner, nil
}

// LeaveRoom deletes the player's record. An emptied room is deleted outright;
// otherwise the remaining player's record is left untouched and abandonment
// is detected client-side through the player-count watch.
func (s *MemoryStore) LeaveRoom(roomID, userID string) error {
	s.mu.Lock()
	r, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	if _, ok := r.Players[userID]; !ok {
		s.mu.Unlock()
		return ErrPlayerNotFound
	}
	delete(r.Players, userID)

	if r.PlayerCount() == 0 {
		delete(s.rooms, roomID)
		s.dropWatchersLocked(roomID)
		s.mu.Unlock()
		log.Printf("room %s deleted (empty)", roomID)
		return nil
	}

	snap := copyRoom(r)
	ws := append([]*watcher[Room](nil), s.roomWatchers[roomID]...)
	s.mu.Unlock()

	for _, w := range ws {
		w.send(snap)
	}
	return nil
}

// WatchRoom subscribes cb to every change of the room record, including
// writes under its player sub-paths.
func (s *MemoryStore) WatchRoom(roomID string, cb func(Room)) (CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return nil, ErrRoomNotFound
	}
	w := newWatcher(cb)
	s.roomWatchers[roomID] = append(s.roomWatchers[roomID], w)
	return func() {
		w.cancel()
		s.mu.Lock()
		detach(s.roomWatchers, roomID, w)
		s.mu.Unlock()
	}, nil
}

// WatchPlayer subscribes cb to every change of one player's record. The
// callback receives the full record, not a diff.
func (s *MemoryStore) WatchPlayer(roomID, playerID string, cb func(PlayerRecord)) (CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if _, ok := r.Players[playerID]; !ok {
		return nil, ErrPlayerNotFound
	}
	w := newWatcher(cb)
	path := playerPath(roomID, playerID)
	s.playerWatchers[path] = append(s.playerWatchers[path], w)
	return func() {
		w.cancel()
		s.mu.Lock()
		detach(s.playerWatchers, path, w)
		s.mu.Unlock()
	}, nil
}

// CleanOldRooms removes finished rooms and rooms older than maxAge. Returns
// the number removed.
func (s *MemoryStore) CleanOldRooms(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge).UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, r := range s.rooms {
		if r.Status == StatusFinished || r.CreatedAt < cutoff {
			delete(s.rooms, id)
			s.dropWatchersLocked(id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("room janitor: swept %d room(s)", removed)
	}
	return removed
}

// RunJanitor sweeps old rooms on a fixed interval until ctx is cancelled.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanOldRooms(maxAge)
		case <-ctx.Done():
			return
		}
	}
}

// dropWatchersLocked cancels and unregisters every watcher attached under a
// deleted room, both the room path and its player sub-paths. Callers hold
// the store lock.
func (s *MemoryStore) dropWatchersLocked(roomID string) {
	for _, w := range s.roomWatchers[roomID] {
		w.cancel()
	}
	delete(s.roomWatchers, roomID)

	prefix := roomID + "/"
	for path, ws := range s.playerWatchers {
		if strings.HasPrefix(path, prefix) {
			for _, w := range ws {
				w.cancel()
			}
			delete(s.playerWatchers, path)
		}
	}
}

// mutateRoom applies fn to the room under the lock and fans the resulting
// snapshot out to room watchers.
func (s *MemoryStore) mutateRoom(roomID string, fn func(*Room) error) error {
	s.mu.Lock()
	r, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	if err := fn(r); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := copyRoom(r)
	ws := append([]*watcher[Room](nil), s.roomWatchers[roomID]...)
	s.mu.Unlock()

	for _, w := range ws {
		w.send(snap)
	}
	return nil
}

// mutatePlayer applies fn to one player record and notifies both the player's
// watchers and the room's watchers, mirroring a realtime database where a
// child write fires listeners on the child path and every ancestor.
func (s *MemoryStore) mutatePlayer(roomID, userID string, fn func(*PlayerRecord)) error {
	s.mu.Lock()
	r, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	p, ok := r.Players[userID]
	if !ok {
		s.mu.Unlock()
		return ErrPlayerNotFound
	}
	fn(&p)
	r.Players[userID] = p

	roomSnap := copyRoom(r)
	roomWs := append([]*watcher[Room](nil), s.roomWatchers[roomID]...)
	playerWs := append([]*watcher[PlayerRecord](nil), s.playerWatchers[playerPath(roomID, userID)]...)
	s.mu.Unlock()

	for _, w := range playerWs {
		w.send(p)
	}
	for _, w := range roomWs {
		w.send(roomSnap)
	}
	return nil
}
