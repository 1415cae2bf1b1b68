package ws

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/kapu/chess-arena/internal/arena"
	"github.com/kapu/chess-arena/internal/obslog"
)

// Sender delivers outbound events and tracks which room a connection can
// receive broadcasts for. The hub implements it over live websocket
// connections; tests substitute a recorder.
type Sender interface {
	Bind(connID, roomID string)
	SendTo(connID, event string, payload any)
	Broadcast(roomID, event string, payload any)
}

// ResultSink receives terminal game results.
type ResultSink interface {
	Archive(res *arena.Result)
}

// Dispatcher routes inbound envelopes to session methods and delivers the
// returned effects. It owns the conn→room binding: the room a connection
// joined is recorded here and trusted over any event payload, including at
// disconnect.
type Dispatcher struct {
	registry *arena.Registry
	sender   Sender
	sink     ResultSink
}

func NewDispatcher(registry *arena.Registry, sender Sender, sink ResultSink) *Dispatcher {
	return &Dispatcher{registry: registry, sender: sender, sink: sink}
}

// HandleEvent processes one inbound envelope for a connection. boundRoom is
// the room id recorded at join, empty before the first join. It returns the
// (possibly updated) binding. A panic anywhere below is caught here: the
// session's lock discipline means a failed operation left no partial state,
// so the connection survives and the fault is logged.
func (d *Dispatcher) HandleEvent(connID, boundRoom string, env Envelope) (room string) {
	room = boundRoom
	defer func() {
		if r := recover(); r != nil {
			obslog.L().Error("dispatch_panic",
				zap.String("conn_id", connID),
				zap.String("event", env.Event),
				zap.Any("panic", r),
			)
		}
	}()

	if env.Event == evtJoin {
		return d.handleJoin(connID, boundRoom, env.Payload)
	}

	if boundRoom == "" {
		d.sender.SendTo(connID, arena.EvtActionRejected, arena.ActionRejectedPayload{
			Code:    arena.CodeUnknownRoom,
			Message: "join a room first",
		})
		return room
	}
	sess, ok := d.registry.Get(boundRoom)
	if !ok {
		d.sender.SendTo(connID, arena.EvtActionRejected, arena.ActionRejectedPayload{
			Code:    arena.CodeUnknownRoom,
			Message: "room not found",
		})
		return room
	}

	switch env.Event {
	case evtChallengeIncumbent:
		var p challengePayload
		if !d.decode(connID, env, &p) {
			return room
		}
		d.deliver(boundRoom, sess.Challenge(connID, p.DisplayName))
	case evtAcceptChallenge:
		var p acceptChallengePayload
		if !d.decode(connID, env, &p) {
			return room
		}
		d.deliver(boundRoom, sess.Accept(connID, p.ChallengerConnectionID))
	case evtRejectChallenge:
		var p rejectChallengePayload
		if !d.decode(connID, env, &p) {
			return room
		}
		d.deliver(boundRoom, sess.Reject(connID, p.ChallengerConnectionID))
	case evtStartGame:
		d.deliver(boundRoom, sess.StartGame(connID))
	case evtSubmitMove:
		var p submitMovePayload
		if !d.decode(connID, env, &p) {
			return room
		}
		effects, res := sess.SubmitMove(connID, p.Move)
		d.deliver(boundRoom, effects)
		if res != nil && d.sink != nil {
			go d.sink.Archive(res)
		}
	case evtChatMessage:
		var p chatPayload
		if !d.decode(connID, env, &p) {
			return room
		}
		d.deliver(boundRoom, sess.Chat(connID, p.DisplayName, p.Text))
	default:
		obslog.L().Warn("unknown_event", zap.String("conn_id", connID), zap.String("event", env.Event))
	}
	return room
}

// HandleDisconnect clears whatever the connection held in its bound room.
func (d *Dispatcher) HandleDisconnect(connID, boundRoom string) {
	if boundRoom == "" {
		return
	}
	sess, ok := d.registry.Get(boundRoom)
	if !ok {
		return
	}
	d.deliver(boundRoom, sess.Leave(connID))
}

func (d *Dispatcher) handleJoin(connID, boundRoom string, raw json.RawMessage) string {
	var p joinPayload
	if raw == nil || json.Unmarshal(raw, &p) != nil || p.RoomID == "" {
		d.sender.SendTo(connID, arena.EvtActionRejected, arena.ActionRejectedPayload{
			Code:    arena.CodeUnknownRoom,
			Message: "join requires a room id",
		})
		return boundRoom
	}
	if boundRoom != "" && boundRoom != p.RoomID {
		// One room per connection; switching requires a new connection.
		d.sender.SendTo(connID, arena.EvtActionRejected, arena.ActionRejectedPayload{
			Code:    arena.CodeNotAuthorized,
			Message: "connection already joined a room",
		})
		return boundRoom
	}
	sess := d.registry.GetOrCreate(p.RoomID)
	// Membership must exist before the join effects go out, or the joiner
	// misses its own join's broadcasts.
	d.sender.Bind(connID, p.RoomID)
	d.deliver(p.RoomID, sess.Join(arena.Participant{ConnID: connID, Name: p.DisplayName}))
	return p.RoomID
}

func (d *Dispatcher) decode(connID string, env Envelope, dst any) bool {
	if env.Payload == nil {
		d.sender.SendTo(connID, arena.EvtActionRejected, arena.ActionRejectedPayload{
			Code:    arena.CodeNotAuthorized,
			Message: "missing payload for " + env.Event,
		})
		return false
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		obslog.L().Warn("payload_decode_error", zap.String("conn_id", connID), zap.String("event", env.Event), zap.Error(err))
		d.sender.SendTo(connID, arena.EvtActionRejected, arena.ActionRejectedPayload{
			Code:    arena.CodeNotAuthorized,
			Message: "malformed payload for " + env.Event,
		})
		return false
	}
	return true
}

func (d *Dispatcher) deliver(roomID string, effects []arena.Effect) {
	for _, eff := range effects {
		if eff.To == "" {
			d.sender.Broadcast(roomID, eff.Event, eff.Payload)
		} else {
			d.sender.SendTo(eff.To, eff.Event, eff.Payload)
		}
	}
}
