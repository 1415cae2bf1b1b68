package arena

import "github.com/kapu/chess-arena/internal/oracle"

// Outbound event names. Inbound names live with the transport dispatcher;
// these are the ones sessions emit.
const (
	EvtRoleAssigned       = "roleAssigned"
	EvtNamesUpdated       = "namesUpdated"
	EvtBoardState         = "boardState"
	EvtMoveHistory        = "moveHistory"
	EvtChallengePresented = "challengePresented"
	EvtChallengeAccepted  = "challengeAccepted"
	EvtChallengeRejected  = "challengeRejected"
	EvtGameStarted        = "gameStarted"
	EvtNoOpponentYet      = "noOpponentYet"
	EvtMoveApplied        = "moveApplied"
	EvtMoveRejected       = "moveRejected"
	EvtChatMessage        = "chatMessage"
	EvtRoomNotice         = "roomNotice"
	EvtGameOver           = "gameOver"
	EvtActionRejected     = "actionRejected"
)

// Effect is one outbound delivery: a named event with its payload, targeted
// at a single participant or, with an empty To, the whole room.
type Effect struct {
	To      string
	Event   string
	Payload any
}

func toRoom(event string, payload any) Effect {
	return Effect{Event: event, Payload: payload}
}

func toConn(connID, event string, payload any) Effect {
	return Effect{To: connID, Event: event, Payload: payload}
}

// Payload shapes. Named fields only; no positional arguments threaded
// through event variants.

type RoleAssignedPayload struct {
	Role Role `json:"role"`
}

type NamesUpdatedPayload struct {
	WhiteName string `json:"whiteName"`
	BlackName string `json:"blackName"`
}

type BoardStatePayload struct {
	FEN string `json:"fen"`
}

type MoveHistoryPayload struct {
	Moves []MoveRecord `json:"moves"`
}

type ChallengePresentedPayload struct {
	ChallengerConnectionID string `json:"challengerConnectionId"`
	ChallengerName         string `json:"challengerName"`
}

type MoveAppliedPayload struct {
	Move oracle.Move `json:"move"`
	SAN  string      `json:"san"`
	Side oracle.Side `json:"side"`
}

type MoveRejectedPayload struct {
	Move   oracle.Move `json:"move"`
	Reason string      `json:"reason"`
}

type ChatMessagePayload struct {
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
}

type RoomNoticePayload struct {
	Text string `json:"text"`
}

type GameOverPayload struct {
	Outcome oracle.Outcome `json:"outcome"`
	Winner  string         `json:"winner,omitempty"`
}

type ActionRejectedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
