// Package match tracks the alive/dead status of both avatars and owns the
// single game-over transition. One Machine exists per session; it is the only
// component allowed to decide that the match is finished.
package match

import (
	"errors"
	"sync"
)

// ErrStartTimeout is returned when the room never reaches the playing state
// within the configured wait window.
var ErrStartTimeout = errors.New("match: room did not start within the wait window")

// State is the lifecycle phase of a match.
type State int

const (
	Waiting State = iota
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Machine is the per-session match state machine. All methods are safe for
// concurrent use: the session loop and the sync-channel callbacks both touch
// it.
//
// The terminal state is sticky. Once a winner (or draw) is recorded, every
// later transition attempt reports declared=false and changes nothing.
type Machine struct {
	mu sync.Mutex

	localID  string
	remoteID string

	state  State
	winner string

	localAlive  bool
	remoteAlive bool
	localScore  int
	remoteScore int
}

// NewMachine creates a match machine for the given player pair.
func NewMachine(localID, remoteID string) *Machine {
	return &Machine{
		localID:     localID,
		remoteID:    remoteID,
		state:       Waiting,
		localAlive:  true,
		remoteAlive: true,
	}
}

// Begin moves the machine from Waiting to Playing. A second call is a no-op.
func (m *Machine) Begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Waiting {
		m.state = Playing
	}
}

// SetLocalScore records the local avatar's current score for the double-death
// tiebreak.
func (m *Machine) SetLocalScore(score int) {
	m.mu.Lock()
	m.localScore = score
	m.mu.Unlock()
}

// LocalDeath records the local avatar's death and resolves the match. The
// returned winner is the remote player when the opponent is still alive, or
// the score-tiebreak outcome when both are down. declared is true only on the
// first terminal transition; callers must issue exactly one winner
// declaration when it is.
func (m *Machine) LocalDeath() (winner string, declared bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Finished {
		return m.winner, false
	}
	m.localAlive = false

	winner = DecideWinner(
		PlayerResult{ID: m.localID, IsAlive: false, Score: m.localScore},
		PlayerResult{ID: m.remoteID, IsAlive: m.remoteAlive, Score: m.remoteScore},
	)
	m.finishLocked(winner)
	return winner, true
}

// RemoteUpdate folds an inbound remote snapshot into the machine. When the
// remote avatar's death completes a double-death, the score tiebreak resolves
// the match and declared is true exactly once.
func (m *Machine) RemoteUpdate(isAlive bool, score int) (winner string, declared bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.remoteScore = score
	wasAlive := m.remoteAlive
	m.remoteAlive = isAlive

	if m.state == Finished || isAlive || !wasAlive {
		return m.winner, false
	}

	winner = DecideWinner(
		PlayerResult{ID: m.localID, IsAlive: m.localAlive, Score: m.localScore},
		PlayerResult{ID: m.remoteID, IsAlive: false, Score: score},
	)
	if winner == "" {
		return "", false
	}
	m.finishLocked(winner)
	return winner, true
}

// RoomFinished applies an inbound room-status update carrying a final winner.
// Returns true when the update actually ended the match locally.
func (m *Machine) RoomFinished(winner string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Finished || winner == "" {
		return false
	}
	m.finishLocked(winner)
	return true
}

// OpponentLeft resolves the match in the local player's favor after the
// opponent's record disappeared from the room. Ignored when the match is not
// in play or the local avatar is already dead: a departure while the room is
// still waiting is a lobby event, not a forfeit.
func (m *Machine) OpponentLeft() (winner string, declared bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Playing || !m.localAlive {
		return m.winner, false
	}
	m.finishLocked(m.localID)
	return m.localID, true
}

func (m *Machine) finishLocked(winner string) {
	m.state = Finished
	m.winner = winner
}

// State returns the current lifecycle phase.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsOver reports whether the terminal state has been reached.
func (m *Machine) IsOver() bool {
	return m.State() == Finished
}

// Winner returns the recorded winner id, Draw, or "" while undecided.
func (m *Machine) Winner() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winner
}

// LocalWon reports whether the local player won the finished match.
func (m *Machine) LocalWon() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Finished && m.winner == m.localID
}
