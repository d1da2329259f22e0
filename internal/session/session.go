// Package session wires one client's simulation, sync channel, match state
// machine, and remote presenter into an explicitly constructed object. No
// package-level state: a process can host any number of concurrent sessions
// against one store, which is also how the integration tests drive full
// matches.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sky-sprint/internal/config"
	"sky-sprint/internal/gamesync"
	"sky-sprint/internal/levels"
	"sky-sprint/internal/match"
	"sky-sprint/internal/remote"
	"sky-sprint/internal/sim"
	"sky-sprint/internal/store"
)

// Setup failures are fatal to the session: the caller is expected to bail
// back to the lobby, not retry.
var (
	ErrNotInRoom  = errors.New("session: local player is not in the room")
	ErrNoOpponent = errors.New("session: no second player in the room")
)

// Session is one client's view of a running match.
type Session struct {
	st      store.Store
	syncCh  *gamesync.Channel
	sim     *sim.Simulation
	machine *match.Machine
	remote  *remote.Presenter
	pump    *gamesync.PositionPump

	roomID   string
	localID  string
	remoteID string
	color    string

	frameRate int
	startWait time.Duration
}

// Join builds a session for the local player in an existing room. The room
// must already hold both players; a missing room, a missing local record, or
// a missing opponent all fail the session outright.
func Join(st store.Store, roomID, localID string, cfg config.AppConfig) (*Session, error) {
	room, err := st.GetRoom(roomID)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	local, ok := room.Players[localID]
	if !ok {
		return nil, ErrNotInRoom
	}
	opponent, ok := room.Opponent(localID)
	if !ok {
		return nil, ErrNoOpponent
	}

	s := &Session{
		st:        st,
		roomID:    roomID,
		localID:   localID,
		remoteID:  opponent.UID,
		color:     local.Color,
		frameRate: cfg.Server.FrameRate,
		startWait: cfg.Sync.StartWait,
	}
	s.syncCh = gamesync.New(st, roomID, localID, opponent.UID, cfg.Sync)
	s.machine = match.NewMachine(localID, opponent.UID)
	s.remote = remote.NewPresenter(0)
	s.pump = gamesync.NewPositionPump(s.syncCh, cfg.Sync.NetworkTick)

	s.sim = sim.New(
		cfg.Sim,
		levels.Get(room.Level),
		sim.SeedFromRoomID(roomID),
		local.Lane,
		sim.Multiplayer,
		sim.Callbacks{
			OnDeath:        s.onLocalDeath,
			OnPickup:       s.onScoreChange,
			OnDistanceSync: s.onScoreChange,
		},
	)

	log.Printf("session ready: room=%s local=%s (%s) remote=%s",
		roomID, localID, local.Color, opponent.UID)
	return s, nil
}

// onLocalDeath runs the fatal-collision path: publish alive=false once, then
// immediately declare the opponent winner without waiting for the store's
// own check.
func (s *Session) onLocalDeath() {
	s.syncCh.UpdateLocalAliveStatus(false)
	s.machine.SetLocalScore(s.sim.Avatar().Score)
	if winner, declared := s.machine.LocalDeath(); declared {
		s.syncCh.DeclareWinner(winner)
	}
}

func (s *Session) onScoreChange(score, fragments int) {
	s.machine.SetLocalScore(score)
	s.syncCh.UpdateLocalScore(score, fragments)
}

// onRemoteUpdate consumes one inbound remote snapshot.
func (s *Session) onRemoteUpdate(rec store.PlayerRecord) {
	s.remote.Apply(rec)
	if winner, declared := s.machine.RemoteUpdate(rec.IsAlive, rec.Score); declared {
		s.syncCh.DeclareWinner(winner)
	}
}

// onRoomUpdate consumes one inbound room snapshot: a finished status ends
// the match, and a player count of one means the opponent left.
func (s *Session) onRoomUpdate(room store.Room) {
	if room.Status == store.StatusFinished && room.Winner != "" {
		if s.machine.RoomFinished(room.Winner) {
			log.Printf("room %s finished remotely, winner: %s", s.roomID, room.Winner)
		}
		return
	}
	if room.PlayerCount() == 1 {
		if winner, declared := s.machine.OpponentLeft(); declared {
			log.Printf("opponent left room %s, local player wins", s.roomID)
			s.syncCh.DeclareWinner(winner)
		}
	}
}

// MarkReady publishes the local player's ready flag.
func (s *Session) MarkReady() error {
	return s.st.SetPlayerReady(s.roomID, s.localID, true)
}

// Jump and ChangeLane forward player input to the simulation. They are
// called from the same goroutine that runs the loop in tests; real frontends
// funnel input through their own frame callback, matching the original's
// single-threaded model.
func (s *Session) Jump()                      { s.sim.StartJump() }
func (s *Session) ChangeLane(d sim.Direction) { s.sim.ChangeLane(d) }

// Machine exposes the match state machine for HUD and result screens.
func (s *Session) Machine() *match.Machine { return s.machine }

// Remote exposes the remote presenter for rendering the opponent.
func (s *Session) Remote() *remote.Presenter { return s.remote }

// Avatar returns the local avatar's current state.
func (s *Session) Avatar() sim.Avatar { return s.sim.Avatar() }

// waitForStart blocks until the room reaches the playing status, the wait
// window expires, or ctx is cancelled.
func (s *Session) waitForStart(ctx context.Context) error {
	started := make(chan struct{}, 1)
	cancel, err := s.st.WatchRoom(s.roomID, func(r store.Room) {
		if r.Status == store.StatusPlaying {
			select {
			case started <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		return err
	}
	defer cancel()

	// The flip may already have happened before the watch attached.
	if room, err := s.st.GetRoom(s.roomID); err == nil && room.Status == store.StatusPlaying {
		return nil
	}

	select {
	case <-started:
		return nil
	case <-time.After(s.startWait):
		return match.ErrStartTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the whole match: waits for the start, then ticks the simulation
// at the configured frame rate until the match finishes or ctx is cancelled.
// Subscriptions are detached before returning no matter how the loop exits.
func (s *Session) Run(ctx context.Context) error {
	defer s.syncCh.Cleanup()

	if err := s.syncCh.ListenToRemotePlayer(s.onRemoteUpdate); err != nil {
		return err
	}
	if err := s.syncCh.ListenToRoomStatus(s.onRoomUpdate); err != nil {
		return err
	}

	if err := s.waitForStart(ctx); err != nil {
		return err
	}

	s.machine.Begin()
	s.sim.Start()

	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	go s.pump.Run(pumpCtx)

	frame := time.Second / time.Duration(s.frameRate)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.step(frame)
			if s.machine.IsOver() {
				s.sim.End()
				log.Printf("match over in room %s: winner=%s", s.roomID, s.machine.Winner())
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// step advances one frame and offers the avatar's state to the outbound
// pump. The pump flushes at the network tick rate regardless of how fast
// frames come in.
func (s *Session) step(frame time.Duration) {
	s.sim.Advance(frame)

	a := s.sim.Avatar()
	s.machine.SetLocalScore(a.Score)
	if a.IsAlive {
		s.pump.Offer(a.X, a.Y, a.Z, a.Lane, a.IsJumping)
	}
}

// Leave abandons the room: detaches subscriptions and removes the local
// player's record. The opponent detects the departure through the
// player-count watch.
func (s *Session) Leave() error {
	s.syncCh.Cleanup()
	return s.st.LeaveRoom(s.roomID, s.localID)
}
