package arena

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/chess-arena/internal/obslog"
	"github.com/kapu/chess-arena/internal/oracle"
)

// Session is the per-room aggregate: seats, spectators, position, move
// history and challenge state. Every mutating operation is serialized by one
// mutex, including challenge promotion, so no two operations for the same
// room ever interleave.
type Session struct {
	mu sync.Mutex

	id        string
	createdAt time.Time
	startedAt time.Time

	white *Participant
	black *Participant
	// insertion order, unique by connection id
	spectators []Participant

	// display names last seen in each seat. A vacated seat keeps its name
	// so a game finishing afterwards still credits both players.
	whiteName string
	blackName string

	board   *oracle.Board
	history []MoveRecord
	started bool
	// finished latches once the oracle reports a terminal outcome
	finished bool

	challenge challengeState

	notice NoticeFunc
}

// NewSession returns an empty session for a room. The creator becomes White
// on its first Join; the Black seat is only filled through the challenge
// protocol.
func NewSession(roomID string, notice NoticeFunc) *Session {
	return &Session{
		id:        roomID,
		createdAt: time.Now(),
		board:     oracle.NewBoard(),
		notice:    notice,
	}
}

// ID returns the room identifier.
func (s *Session) ID() string { return s.id }

// FEN returns the serialized current position.
func (s *Session) FEN() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.FEN()
}

// Join assigns a role to the participant and returns the effects to deliver.
// Joining again with the same connection id re-states the current role
// without duplicating seat occupancy or spectator entries.
func (s *Session) Join(p Participant) []Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if role, ok := s.roleOf(p.ConnID); ok {
		return []Effect{
			toConn(p.ConnID, EvtRoleAssigned, RoleAssignedPayload{Role: role}),
			toConn(p.ConnID, EvtNamesUpdated, s.namesPayload()),
		}
	}

	var effects []Effect
	switch {
	case s.white == nil:
		w := p
		s.white = &w
		s.whiteName = p.Name
		effects = append(effects,
			toConn(p.ConnID, EvtRoleAssigned, RoleAssignedPayload{Role: RoleWhite}),
		)
		effects = s.appendNotice(effects, "join.white", map[string]any{"Name": p.Name})
	case s.black == nil:
		// Deliberately not seated: the incumbent must approve an opponent.
		effects = append(effects,
			toConn(p.ConnID, EvtRoleAssigned, RoleAssignedPayload{Role: RoleNone}),
		)
	default:
		s.spectators = append(s.spectators, p)
		effects = append(effects,
			toConn(p.ConnID, EvtRoleAssigned, RoleAssignedPayload{Role: RoleSpectator}),
			toConn(p.ConnID, EvtBoardState, BoardStatePayload{FEN: s.board.FEN()}),
			toConn(p.ConnID, EvtMoveHistory, MoveHistoryPayload{Moves: s.historyCopy()}),
		)
		effects = s.appendNotice(effects, "join.spectator", map[string]any{"Name": p.Name})
	}

	effects = append(effects, toRoom(EvtNamesUpdated, s.namesPayload()))
	obslog.L().Info("room_join",
		zap.String("room_id", s.id),
		zap.String("conn_id", p.ConnID),
		zap.String("name", p.Name),
	)
	return effects
}

// Leave removes whatever the connection held in this room: its seat, its
// spectator entry, or its place in the challenge queue. Seats become open
// again; in-progress games are left with an empty seat, not terminated.
func (s *Session) Leave(connID string) []Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	var effects []Effect
	switch {
	case s.white != nil && s.white.ConnID == connID:
		name := s.white.Name
		s.white = nil
		// No incumbent is left to decide: fail every outstanding challenge
		// so no challenger waits forever on a vacated seat.
		effects = append(effects, s.failAllChallengesLocked()...)
		effects = s.appendNotice(effects, "leave.seat", map[string]any{"Name": name})
		effects = append(effects, toRoom(EvtNamesUpdated, s.namesPayload()))
	case s.black != nil && s.black.ConnID == connID:
		name := s.black.Name
		s.black = nil
		effects = s.appendNotice(effects, "leave.seat", map[string]any{"Name": name})
		effects = append(effects, toRoom(EvtNamesUpdated, s.namesPayload()))
	default:
		s.removeSpectatorLocked(connID)
		effects = append(effects, s.dropChallengerLocked(connID)...)
	}

	obslog.L().Info("room_leave", zap.String("room_id", s.id), zap.String("conn_id", connID))
	return effects
}

// StartGame flips the session to started. Only the White occupant may
// trigger it, and only once both seats are filled.
func (s *Session) StartGame(connID string) []Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.white == nil || s.white.ConnID != connID {
		return []Effect{toConn(connID, EvtActionRejected, ActionRejectedPayload{
			Code:    CodeNotAuthorized,
			Message: "only the white player may start the game",
		})}
	}
	if s.black == nil {
		return []Effect{toConn(connID, EvtNoOpponentYet, struct{}{})}
	}
	if s.started {
		return []Effect{toConn(connID, EvtActionRejected, ActionRejectedPayload{
			Code:    CodeSeatUnavailable,
			Message: "game already started",
		})}
	}

	s.started = true
	s.startedAt = time.Now()
	effects := []Effect{toRoom(EvtGameStarted, struct{}{})}
	effects = s.appendNotice(effects, "game.started", map[string]any{
		"White": s.white.Name,
		"Black": s.black.Name,
	})
	obslog.L().Info("game_start", zap.String("room_id", s.id))
	return effects
}

// SubmitMove relays a move through the oracle. Spectators and unseated
// participants are dropped silently; every other rejection is a targeted
// notification to the mover and leaves the session untouched. When the
// applied move ends the game, the terminal Result is returned for archiving.
func (s *Session) SubmitMove(connID string, mv oracle.Move) ([]Effect, *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	side, seated := s.sideOf(connID)
	if !seated {
		return nil, nil
	}
	if s.finished {
		return []Effect{toConn(connID, EvtMoveRejected, MoveRejectedPayload{Move: mv, Reason: CodeGameOver})}, nil
	}
	if !s.started {
		return []Effect{toConn(connID, EvtMoveRejected, MoveRejectedPayload{Move: mv, Reason: CodeGameNotStarted})}, nil
	}
	if s.board.TurnOwner() != side {
		return []Effect{toConn(connID, EvtMoveRejected, MoveRejectedPayload{Move: mv, Reason: CodeNotYourTurn})}, nil
	}

	san, err := s.board.Apply(mv)
	if err != nil {
		if !errors.Is(err, oracle.ErrIllegalMove) {
			obslog.L().Error("oracle_apply_error", zap.String("room_id", s.id), zap.Error(err))
		}
		return []Effect{toConn(connID, EvtMoveRejected, MoveRejectedPayload{Move: mv, Reason: CodeIllegalMove})}, nil
	}

	s.history = append(s.history, MoveRecord{Move: mv, SAN: san, Side: side})
	effects := []Effect{
		toRoom(EvtMoveApplied, MoveAppliedPayload{Move: mv, SAN: san, Side: side}),
		toRoom(EvtBoardState, BoardStatePayload{FEN: s.board.FEN()}),
	}
	obslog.L().Info("move_applied",
		zap.String("room_id", s.id),
		zap.String("side", string(side)),
		zap.String("uci", mv.UCI()),
		zap.String("san", san),
	)

	outcome := s.board.Outcome()
	if outcome == oracle.OutcomeNone {
		return effects, nil
	}

	s.finished = true
	res := &Result{
		RoomID:    s.id,
		WhiteName: s.whiteName,
		BlackName: s.blackName,
		Outcome:   outcome,
		FEN:       s.board.FEN(),
		History:   s.historyCopy(),
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
	}
	effects = append(effects, toRoom(EvtGameOver, GameOverPayload{Outcome: outcome, Winner: res.Winner()}))
	effects = s.appendNotice(effects, "game.over", map[string]any{
		"Outcome": string(outcome),
		"Winner":  res.Winner(),
	})
	obslog.L().Info("game_over", zap.String("room_id", s.id), zap.String("outcome", string(outcome)))
	return effects, res
}

// Chat is a pure relay: the message is broadcast and nothing is retained.
func (s *Session) Chat(connID, displayName, text string) []Effect {
	if text == "" {
		return nil
	}
	return []Effect{toRoom(EvtChatMessage, ChatMessagePayload{DisplayName: displayName, Text: text})}
}

func (s *Session) roleOf(connID string) (Role, bool) {
	if s.white != nil && s.white.ConnID == connID {
		return RoleWhite, true
	}
	if s.black != nil && s.black.ConnID == connID {
		return RoleBlack, true
	}
	for _, sp := range s.spectators {
		if sp.ConnID == connID {
			return RoleSpectator, true
		}
	}
	return RoleNone, false
}

func (s *Session) sideOf(connID string) (oracle.Side, bool) {
	if s.white != nil && s.white.ConnID == connID {
		return oracle.SideWhite, true
	}
	if s.black != nil && s.black.ConnID == connID {
		return oracle.SideBlack, true
	}
	return "", false
}

func (s *Session) namesPayload() NamesUpdatedPayload {
	p := NamesUpdatedPayload{WhiteName: WaitingName, BlackName: WaitingName}
	if s.white != nil {
		p.WhiteName = s.white.Name
	}
	if s.black != nil {
		p.BlackName = s.black.Name
	}
	return p
}

func (s *Session) removeSpectatorLocked(connID string) {
	for i, sp := range s.spectators {
		if sp.ConnID == connID {
			s.spectators = append(s.spectators[:i], s.spectators[i+1:]...)
			return
		}
	}
}

func (s *Session) historyCopy() []MoveRecord {
	return append([]MoveRecord(nil), s.history...)
}

func (s *Session) appendNotice(effects []Effect, key string, data map[string]any) []Effect {
	if s.notice == nil {
		return effects
	}
	text := s.notice(key, data)
	if text == "" {
		return effects
	}
	return append(effects, toRoom(EvtRoomNotice, RoomNoticePayload{Text: text}))
}
