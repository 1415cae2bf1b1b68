package ws

import (
	"encoding/json"

	"github.com/kapu/chess-arena/internal/oracle"
)

// Inbound event names. One envelope per frame, named event plus a single
// structured payload.
const (
	evtJoin               = "join"
	evtChallengeIncumbent = "challengeIncumbent"
	evtAcceptChallenge    = "acceptChallenge"
	evtRejectChallenge    = "rejectChallenge"
	evtStartGame          = "startGame"
	evtSubmitMove         = "submitMove"
	evtChatMessage        = "chatMessage"
)

// Envelope frames one inbound client event.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outEnvelope frames one outbound event.
type outEnvelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

type joinPayload struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

type challengePayload struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

type acceptChallengePayload struct {
	RoomID                 string `json:"roomId"`
	ChallengerConnectionID string `json:"challengerConnectionId"`
	ChallengerName         string `json:"challengerName"`
}

type rejectChallengePayload struct {
	ChallengerConnectionID string `json:"challengerConnectionId"`
}

type startGamePayload struct {
	RoomID string `json:"roomId"`
}

type submitMovePayload struct {
	RoomID string      `json:"roomId"`
	Move   oracle.Move `json:"move"`
}

type chatPayload struct {
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
}
