package match

// Draw is the winner value recorded when both players finish with the same
// score.
const Draw = "draw"

// PlayerResult is the slice of a player's state that winner determination
// needs. Both the room store's server-side check and the client-side fallback
// build it from their own view and call DecideWinner, so the two paths cannot
// diverge.
type PlayerResult struct {
	ID      string
	IsAlive bool
	Score   int
}

// DecideWinner returns the winning player id, Draw, or "" when the match is
// still undecided (both players alive).
//
// Policy: a sole survivor wins outright; with both players dead the higher
// score wins and equal scores draw.
func DecideWinner(a, b PlayerResult) string {
	switch {
	case a.IsAlive && b.IsAlive:
		return ""
	case a.IsAlive:
		return a.ID
	case b.IsAlive:
		return b.ID
	}
	if a.Score > b.Score {
		return a.ID
	}
	if b.Score > a.Score {
		return b.ID
	}
	return Draw
}
