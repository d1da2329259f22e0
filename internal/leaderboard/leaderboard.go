// Package leaderboard records finished-run scores and serves ranked views.
// The backing store is in-memory behind a small interface so a SQL
// implementation can slot in without touching the handlers.
package leaderboard

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sky-sprint/internal/levels"
)

const (
	MinNameLen = 2
	MaxNameLen = 100
	TopSize    = 5
	UserRecent = 20
)

var (
	ErrInvalidName  = errors.New("leaderboard: name must be 2 to 100 characters")
	ErrInvalidLevel = errors.New("leaderboard: level out of range")
	ErrInvalidScore = errors.New("leaderboard: score must be non-negative")
)

// Submission is one finished run sent by a client. UserID is the client's
// external account id; anonymous runs may omit it and carry only an email.
type Submission struct {
	Name      string `json:"nombre"`
	UserID    string `json:"externalUserId,omitempty"`
	Email     string `json:"email,omitempty"`
	Score     int    `json:"puntuacion"`
	Fragments int    `json:"fragmentos"`
	Level     int    `json:"nivel"`
}

// Entry is a stored score row.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"nombre"`
	UserID    string    `json:"externalUserId,omitempty"`
	Email     string    `json:"email,omitempty"`
	Score     int       `json:"puntuacion"`
	Fragments int       `json:"fragmentos"`
	Level     int       `json:"nivel"`
	CreatedAt time.Time `json:"fecha"`
}

// Result reports where a submission landed.
type Result struct {
	ID          string `json:"id"`
	Rank        int    `json:"rank"`
	MadeTopFive bool   `json:"madeTopFive"`
}

// Board is the score store the HTTP handlers talk to.
type Board interface {
	Submit(sub Submission) (Result, error)
	TopByLevel(level int) ([]Entry, error)
	AllTop() map[int][]Entry
	ByUser(userID string) []Entry
}

// Validate checks a submission against the accepted bounds. The name is
// trimmed before the length check, so whitespace padding cannot smuggle a
// short name through.
func (s *Submission) Validate() error {
	name := strings.TrimSpace(s.Name)
	if len(name) < MinNameLen || len(name) > MaxNameLen {
		return ErrInvalidName
	}
	if !levels.Valid(s.Level) {
		return ErrInvalidLevel
	}
	if s.Score < 0 {
		return ErrInvalidScore
	}
	return nil
}

// MemoryBoard is the in-process Board implementation.
type MemoryBoard struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryBoard creates an empty board.
func NewMemoryBoard() *MemoryBoard {
	return &MemoryBoard{}
}

// Submit validates and stores a run, returning its id and rank within its
// level. Rank is one plus the number of stored entries on the same level
// with a strictly higher score, so ties share a rank.
func (b *MemoryBoard) Submit(sub Submission) (Result, error) {
	if err := sub.Validate(); err != nil {
		return Result{}, err
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(sub.Name),
		UserID:    strings.TrimSpace(sub.UserID),
		Email:     strings.TrimSpace(sub.Email),
		Score:     sub.Score,
		Fragments: sub.Fragments,
		Level:     sub.Level,
		CreatedAt: time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry)

	rank := 1
	for _, e := range b.entries {
		if e.Level == entry.Level && e.Score > entry.Score {
			rank++
		}
	}
	return Result{ID: entry.ID, Rank: rank, MadeTopFive: rank <= TopSize}, nil
}

// TopByLevel returns the top five entries for one level, best first. Ties
// break toward the earlier submission.
func (b *MemoryBoard) TopByLevel(level int) ([]Entry, error) {
	if !levels.Valid(level) {
		return nil, ErrInvalidLevel
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.topLocked(level), nil
}

// AllTop returns the top five for every level, keyed by level.
func (b *MemoryBoard) AllTop() map[int][]Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[int][]Entry, levels.MaxLevel)
	for lvl := levels.MinLevel; lvl <= levels.MaxLevel; lvl++ {
		out[lvl] = b.topLocked(lvl)
	}
	return out
}

func (b *MemoryBoard) topLocked(level int) []Entry {
	var rows []Entry
	for _, e := range b.entries {
		if e.Level == level {
			rows = append(rows, e)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})
	if len(rows) > TopSize {
		rows = rows[:TopSize]
	}
	return rows
}

// ByUser returns the user's most recent runs, newest first, capped at
// twenty. The history is keyed on the external user id; runs stored without
// one fall back to matching by email.
func (b *MemoryBoard) ByUser(userID string) []Entry {
	if userID == "" {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var rows []Entry
	for _, e := range b.entries {
		if e.UserID == userID || (e.UserID == "" && e.Email == userID) {
			rows = append(rows, e)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	if len(rows) > UserRecent {
		rows = rows[:UserRecent]
	}
	return rows
}
