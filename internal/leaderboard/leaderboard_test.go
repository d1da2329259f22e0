package leaderboard

import (
	"fmt"
	"strings"
	"testing"
)

// TestSubmissionValidation covers the acceptance bounds for name, level,
// and score.
func TestSubmissionValidation(t *testing.T) {
	tests := []struct {
		name    string
		sub     Submission
		wantErr error
	}{
		{"valid", Submission{Name: "Ana", Score: 100, Level: 1}, nil},
		{"two-char name is the minimum", Submission{Name: "Jo", Score: 0, Level: 1}, nil},
		{"hundred-char name is the maximum", Submission{Name: strings.Repeat("a", 100), Score: 1, Level: 2}, nil},
		{"one-char name", Submission{Name: "J", Score: 100, Level: 1}, ErrInvalidName},
		{"empty name", Submission{Name: "", Score: 100, Level: 1}, ErrInvalidName},
		{"101-char name", Submission{Name: strings.Repeat("a", 101), Score: 100, Level: 1}, ErrInvalidName},
		{"whitespace-padded short name", Submission{Name: "  J  ", Score: 100, Level: 1}, ErrInvalidName},
		{"level zero", Submission{Name: "Ana", Score: 100, Level: 0}, ErrInvalidLevel},
		{"level four", Submission{Name: "Ana", Score: 100, Level: 4}, ErrInvalidLevel},
		{"negative score", Submission{Name: "Ana", Score: -1, Level: 1}, ErrInvalidScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.sub.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestSubmitRanks verifies rank is one plus the count of strictly higher
// scores on the same level.
func TestSubmitRanks(t *testing.T) {
	b := NewMemoryBoard()

	for i, score := range []int{500, 300, 700} {
		if _, err := b.Submit(Submission{Name: fmt.Sprintf("Player%d", i), Score: score, Level: 1}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	res, err := b.Submit(Submission{Name: "Newcomer", Score: 400, Level: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Rank != 3 {
		t.Errorf("rank = %d, want 3 (behind 700 and 500)", res.Rank)
	}
	if !res.MadeTopFive {
		t.Error("rank 3 should make the top five")
	}

	// Ties share a rank.
	res, _ = b.Submit(Submission{Name: "Twin", Score: 700, Level: 1})
	if res.Rank != 1 {
		t.Errorf("tied rank = %d, want 1", res.Rank)
	}

	// Other levels do not affect the rank.
	res, _ = b.Submit(Submission{Name: "Other", Score: 1, Level: 2})
	if res.Rank != 1 {
		t.Errorf("cross-level rank = %d, want 1", res.Rank)
	}
}

// TestTopByLevel verifies the five-entry cap and ordering.
func TestTopByLevel(t *testing.T) {
	b := NewMemoryBoard()

	for i := 0; i < 8; i++ {
		b.Submit(Submission{Name: fmt.Sprintf("Player%d", i), Score: i * 100, Level: 3})
	}

	top, err := b.TopByLevel(3)
	if err != nil {
		t.Fatalf("TopByLevel: %v", err)
	}
	if len(top) != TopSize {
		t.Fatalf("top size = %d, want %d", len(top), TopSize)
	}
	for i := 1; i < len(top); i++ {
		if top[i].Score > top[i-1].Score {
			t.Fatalf("top not sorted: %d before %d", top[i-1].Score, top[i].Score)
		}
	}
	if top[0].Score != 700 {
		t.Errorf("best score = %d, want 700", top[0].Score)
	}

	if _, err := b.TopByLevel(9); err != ErrInvalidLevel {
		t.Errorf("invalid level: got %v, want ErrInvalidLevel", err)
	}
}

// TestAllTop verifies every level is present even when empty.
func TestAllTop(t *testing.T) {
	b := NewMemoryBoard()
	b.Submit(Submission{Name: "Ana", Score: 100, Level: 2})

	all := b.AllTop()
	if len(all) != 3 {
		t.Fatalf("levels = %d, want 3", len(all))
	}
	if len(all[2]) != 1 {
		t.Errorf("level 2 rows = %d, want 1", len(all[2]))
	}
	if len(all[1]) != 0 {
		t.Errorf("level 1 rows = %d, want 0", len(all[1]))
	}
}

// TestByUser verifies the per-user history: newest first, capped at twenty,
// and never matching the empty email.
func TestByUser(t *testing.T) {
	b := NewMemoryBoard()

	for i := 0; i < 25; i++ {
		b.Submit(Submission{Name: "Ana", Email: "ana@example.com", Score: i, Level: 1})
	}
	b.Submit(Submission{Name: "Bob", Email: "bob@example.com", Score: 9, Level: 1})
	b.Submit(Submission{Name: "Anon", Score: 50, Level: 1})

	rows := b.ByUser("ana@example.com")
	if len(rows) != UserRecent {
		t.Fatalf("rows = %d, want %d", len(rows), UserRecent)
	}
	for _, r := range rows {
		if r.Email != "ana@example.com" {
			t.Fatalf("foreign row leaked: %q", r.Email)
		}
	}

	if rows := b.ByUser(""); len(rows) != 0 {
		t.Errorf("empty email matched %d rows, want 0", len(rows))
	}
}

// TestByUserKeyedOnExternalID verifies the history follows the external
// account id, so an email change does not orphan a user's runs, and email
// matching only applies to runs stored without an id.
func TestByUserKeyedOnExternalID(t *testing.T) {
	b := NewMemoryBoard()

	b.Submit(Submission{Name: "Ana", UserID: "uid-1", Email: "ana@old.example.com", Score: 10, Level: 1})
	b.Submit(Submission{Name: "Ana", UserID: "uid-1", Email: "ana@new.example.com", Score: 20, Level: 2})
	b.Submit(Submission{Name: "Bob", UserID: "uid-2", Email: "bob@example.com", Score: 30, Level: 1})
	b.Submit(Submission{Name: "Guest", Email: "guest@example.com", Score: 40, Level: 1})

	rows := b.ByUser("uid-1")
	if len(rows) != 2 {
		t.Fatalf("uid-1 rows = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.UserID != "uid-1" {
			t.Fatalf("foreign row leaked: %q", r.UserID)
		}
	}

	// Identified runs are not reachable through their email.
	if rows := b.ByUser("ana@new.example.com"); len(rows) != 0 {
		t.Errorf("email lookup matched %d identified rows, want 0", len(rows))
	}

	// Runs submitted without an id still match by email.
	if rows := b.ByUser("guest@example.com"); len(rows) != 1 {
		t.Errorf("guest rows = %d, want 1", len(rows))
	}
}
