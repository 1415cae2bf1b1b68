// Package arena implements the per-room game session coordinator: role
// assignment, turn enforcement, challenge serialization and move relay.
// Sessions produce lists of outbound effects; delivering them is the
// transport's job.
package arena

import (
	"time"

	"github.com/kapu/chess-arena/internal/oracle"
)

// Role is what a participant is allowed to do in a room.
type Role string

const (
	RoleWhite     Role = "white"
	RoleBlack     Role = "black"
	RoleSpectator Role = "spectator"
	// RoleNone is assigned while only the Black seat is open: the joiner is
	// neither seated nor a spectator until the incumbent resolves a
	// challenge. Black is never taken first-come-first-served.
	RoleNone Role = "none"
)

// Participant is one live connection in a room. ConnID is supplied by the
// transport, unique per connection, and never reused.
type Participant struct {
	ConnID string `json:"connectionId"`
	Name   string `json:"displayName"`
}

// WaitingName is broadcast in place of an empty seat's occupant name.
const WaitingName = "waiting"

// MoveRecord is one applied move; the history replayed in order reproduces
// the live position.
type MoveRecord struct {
	Move oracle.Move `json:"move"`
	SAN  string      `json:"san"`
	Side oracle.Side `json:"side"`
}

// Result is the terminal summary of a finished game, handed to archival
// sinks once the oracle reports an outcome.
type Result struct {
	RoomID    string          `json:"roomId"`
	WhiteName string          `json:"whiteName"`
	BlackName string          `json:"blackName"`
	Outcome   oracle.Outcome  `json:"outcome"`
	FEN       string          `json:"fen"`
	History   []MoveRecord    `json:"history"`
	StartedAt time.Time       `json:"startedAt"`
	EndedAt   time.Time       `json:"endedAt"`
}

// MovesSAN returns the history in algebraic notation, in play order.
func (r *Result) MovesSAN() []string {
	out := make([]string, 0, len(r.History))
	for _, h := range r.History {
		out = append(out, h.SAN)
	}
	return out
}

// MovesUCI returns the history in coordinate notation, in play order.
func (r *Result) MovesUCI() []string {
	out := make([]string, 0, len(r.History))
	for _, h := range r.History {
		out = append(out, h.Move.UCI())
	}
	return out
}

// Winner names the winning side's occupant, empty on a draw.
func (r *Result) Winner() string {
	switch r.Outcome {
	case oracle.OutcomeWhite:
		return r.WhiteName
	case oracle.OutcomeBlack:
		return r.BlackName
	}
	return ""
}

// NoticeFunc renders a human-readable room notice from a catalog key and
// template data. A nil NoticeFunc disables notices.
type NoticeFunc func(key string, data map[string]any) string

// Rejection codes carried on targeted error effects. Expected, recoverable
// conditions only: they never broadcast and never mutate session state.
const (
	CodeNotYourTurn     = "NotYourTurn"
	CodeIllegalMove     = "IllegalMove"
	CodeSeatUnavailable = "SeatUnavailable"
	CodeUnknownRoom     = "UnknownRoom"
	CodeNotAuthorized   = "NotAuthorizedForAction"
	CodeGameNotStarted  = "GameNotStarted"
	CodeGameOver        = "GameOver"
)
