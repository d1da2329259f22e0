package match

import "testing"

// TestDecideWinner covers the full outcome policy for two players.
func TestDecideWinner(t *testing.T) {
	tests := []struct {
		name string
		a, b PlayerResult
		want string
	}{
		{
			"both alive is undecided",
			PlayerResult{ID: "p1", IsAlive: true, Score: 100},
			PlayerResult{ID: "p2", IsAlive: true, Score: 200},
			"",
		},
		{
			"sole survivor wins regardless of score",
			PlayerResult{ID: "p1", IsAlive: true, Score: 50},
			PlayerResult{ID: "p2", IsAlive: false, Score: 900},
			"p1",
		},
		{
			"sole survivor wins from the other side",
			PlayerResult{ID: "p1", IsAlive: false, Score: 900},
			PlayerResult{ID: "p2", IsAlive: true, Score: 50},
			"p2",
		},
		{
			"both dead, higher score wins",
			PlayerResult{ID: "p1", IsAlive: false, Score: 300},
			PlayerResult{ID: "p2", IsAlive: false, Score: 200},
			"p1",
		},
		{
			"both dead, higher score wins either way",
			PlayerResult{ID: "p1", IsAlive: false, Score: 200},
			PlayerResult{ID: "p2", IsAlive: false, Score: 300},
			"p2",
		},
		{
			"both dead with equal scores is a draw",
			PlayerResult{ID: "p1", IsAlive: false, Score: 500},
			PlayerResult{ID: "p2", IsAlive: false, Score: 500},
			Draw,
		},
		{
			"both dead with zero scores is a draw",
			PlayerResult{ID: "p1", IsAlive: false, Score: 0},
			PlayerResult{ID: "p2", IsAlive: false, Score: 0},
			Draw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideWinner(tt.a, tt.b); got != tt.want {
				t.Errorf("DecideWinner() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestMachineLocalDeathDeclaresOpponent verifies that a local death while the
// opponent lives declares the opponent winner exactly once.
func TestMachineLocalDeathDeclaresOpponent(t *testing.T) {
	m := NewMachine("me", "them")
	m.Begin()

	winner, declared := m.LocalDeath()
	if !declared {
		t.Fatal("expected a declaration on local death")
	}
	if winner != "them" {
		t.Errorf("winner = %q, want %q", winner, "them")
	}
	if !m.IsOver() {
		t.Error("machine should be over after local death")
	}

	// Second death report must not declare again.
	if _, declared := m.LocalDeath(); declared {
		t.Error("second LocalDeath must not declare")
	}
}

// TestMachineRemoteDeathDeclaresLocal verifies the remote alive edge.
func TestMachineRemoteDeathDeclaresLocal(t *testing.T) {
	m := NewMachine("me", "them")
	m.Begin()

	// Alive updates carry no declaration.
	if _, declared := m.RemoteUpdate(true, 100); declared {
		t.Fatal("alive update must not declare")
	}

	winner, declared := m.RemoteUpdate(false, 100)
	if !declared {
		t.Fatal("expected a declaration on remote death")
	}
	if winner != "me" {
		t.Errorf("winner = %q, want %q", winner, "me")
	}

	// Repeated dead updates must not fire again.
	if _, declared := m.RemoteUpdate(false, 100); declared {
		t.Error("repeated dead update must not declare")
	}
}

// TestMachineSurvivorBeatsScore verifies death resolves toward the living
// opponent even when the dead player holds the higher score.
func TestMachineSurvivorBeatsScore(t *testing.T) {
	m := NewMachine("me", "them")
	m.Begin()
	m.SetLocalScore(900)

	if _, declared := m.RemoteUpdate(true, 100); declared {
		t.Fatal("unexpected declaration")
	}

	winner, declared := m.LocalDeath()
	if !declared || winner != "them" {
		t.Fatalf("LocalDeath = (%q, %v), want (them, true)", winner, declared)
	}
}

// TestMachineStickyTerminalState verifies nothing changes the winner once
// the match is finished.
func TestMachineStickyTerminalState(t *testing.T) {
	m := NewMachine("me", "them")
	m.Begin()

	if !m.RoomFinished("them") {
		t.Fatal("RoomFinished should apply on a live match")
	}
	if m.Winner() != "them" {
		t.Fatalf("winner = %q, want them", m.Winner())
	}

	// Later signals must all be ignored.
	if m.RoomFinished("me") {
		t.Error("second RoomFinished must be ignored")
	}
	if _, declared := m.LocalDeath(); declared {
		t.Error("LocalDeath after finish must not declare")
	}
	if _, declared := m.RemoteUpdate(false, 999); declared {
		t.Error("RemoteUpdate after finish must not declare")
	}
	if _, declared := m.OpponentLeft(); declared {
		t.Error("OpponentLeft after finish must not declare")
	}
	if m.Winner() != "them" {
		t.Errorf("winner changed to %q after finish", m.Winner())
	}
}

// TestMachineOpponentLeft verifies the departure path.
func TestMachineOpponentLeft(t *testing.T) {
	m := NewMachine("me", "them")
	m.Begin()

	winner, declared := m.OpponentLeft()
	if !declared || winner != "me" {
		t.Fatalf("OpponentLeft = (%q, %v), want (me, true)", winner, declared)
	}
	if !m.LocalWon() {
		t.Error("local player should have won")
	}
}

// TestMachineOpponentLeftBeforeStart verifies a lobby departure does not
// finish a match that never began.
func TestMachineOpponentLeftBeforeStart(t *testing.T) {
	m := NewMachine("me", "them")

	if winner, declared := m.OpponentLeft(); declared {
		t.Fatalf("OpponentLeft while waiting declared %q", winner)
	}
	if m.State() != Waiting {
		t.Errorf("state = %v, want Waiting", m.State())
	}

	// The same departure after the start is a forfeit.
	m.Begin()
	if winner, declared := m.OpponentLeft(); !declared || winner != "me" {
		t.Errorf("OpponentLeft = (%q, %v), want (me, true)", winner, declared)
	}
}

// TestMachineOpponentLeftAfterLocalDeath verifies a departure seen after the
// local player already died does not hand the local player the win.
func TestMachineOpponentLeftAfterLocalDeath(t *testing.T) {
	m := NewMachine("me", "them")
	m.Begin()

	if _, declared := m.LocalDeath(); !declared {
		t.Fatal("expected declaration on local death")
	}
	if _, declared := m.OpponentLeft(); declared {
		t.Error("OpponentLeft after local death must not declare")
	}
	if m.Winner() != "them" {
		t.Errorf("winner = %q, want them", m.Winner())
	}
}
