// Package store owns the shared room records that coordinate a two-player
// match. Records are path-addressable (rooms/{roomId} and
// rooms/{roomId}/players/{playerId}) and change-subscribable, mirroring a
// realtime database: watchers receive full snapshots in per-path FIFO order,
// with no cross-path ordering guarantee.
package store

import "errors"

// Room status values. Transitions are monotonic: waiting -> playing ->
// finished, never backwards.
const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// Player colors, assigned by join order and immutable for the room's
// lifetime.
const (
	ColorBlue = "blue" // creator, starts in the left lane
	ColorRed  = "red"  // joiner, starts in the middle lane
)

// MaxPlayers is the fixed room capacity.
const MaxPlayers = 2

var (
	ErrRoomNotFound   = errors.New("store: room not found")
	ErrRoomFull       = errors.New("store: room is full")
	ErrRoomStarted    = errors.New("store: match already started")
	ErrPlayerNotFound = errors.New("store: player not found in room")
	ErrRoomNotStarted = errors.New("store: match has not started")
	ErrMatchFinished  = errors.New("store: match already finished")
)

// Position is a point in the shared track space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlayerRecord is one player's persisted slice of the room. Each client
// writes only its own record; the opponent's copy is a lagging, throttled
// projection of that client's local simulation.
type PlayerRecord struct {
	UID       string   `json:"uid"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Ready     bool     `json:"ready"`
	Score     int      `json:"score"`
	Fragments int      `json:"fragments"`
	IsAlive   bool     `json:"isAlive"`
	Color     string   `json:"color"`
	Position  Position `json:"position"`
	Lane      int      `json:"lane"`
	IsJumping bool     `json:"isJumping"`
	JoinedAt  int64    `json:"joinedAt"` // unix milliseconds
	DiedAt    int64    `json:"diedAt,omitempty"`
}

// Room is the shared record coordinating exactly two players for one match.
type Room struct {
	RoomID     string                  `json:"roomId"`
	CreatedAt  int64                   `json:"createdAt"`
	CreatedBy  string                  `json:"createdBy"`
	Level      int                     `json:"level"`
	Status     string                  `json:"status"`
	MaxPlayers int                     `json:"maxPlayers"`
	Players    map[string]PlayerRecord `json:"players"`
	Winner     string                  `json:"winner,omitempty"` // player id or "draw"
	WinnerName string                  `json:"winnerName,omitempty"`
	StartedAt  int64                   `json:"startedAt,omitempty"`
	FinishedAt int64                   `json:"finishedAt,omitempty"`
}

// PlayerCount returns the number of player entries.
func (r *Room) PlayerCount() int {
	return len(r.Players)
}

// Opponent returns the record of the player other than uid, if present.
func (r *Room) Opponent(uid string) (PlayerRecord, bool) {
	for id, p := range r.Players {
		if id != uid {
			return p, true
		}
	}
	return PlayerRecord{}, false
}

// CancelFunc detaches a watcher. Safe to call more than once.
type CancelFunc func()

// Store is the realtime backend contract. The in-memory implementation backs
// tests and single-process deployments; the interface keeps a hosted realtime
// database swappable behind it.
type Store interface {
	CreateRoom(userID, name, email string, level int) (string, error)
	FindAvailableRooms(level int) []Room // level 0 means any
	JoinRoom(roomID, userID, name, email string) error
	GetRoom(roomID string) (Room, error)

	SetPlayerReady(roomID, userID string, ready bool) error
	StartGame(roomID string) error
	UpdatePlayerPosition(roomID, userID string, pos Position) error
	UpdatePlayerMovement(roomID, userID string, lane int, isJumping bool) error
	UpdatePlayerScore(roomID, userID string, score, fragments int) error
	SetPlayerDead(roomID, userID string) error
	SetPlayerAlive(roomID, userID string, isAlive bool) error

	DeclareWinner(roomID, winnerID string) error
	CheckForWinner(roomID string) (string, error)
	LeaveRoom(roomID, userID string) error

	WatchRoom(roomID string, cb func(Room)) (CancelFunc, error)
	WatchPlayer(roomID, playerID string, cb func(PlayerRecord)) (CancelFunc, error)
}
