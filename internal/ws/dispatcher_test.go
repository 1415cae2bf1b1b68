package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/kapu/chess-arena/internal/arena"
	"github.com/kapu/chess-arena/internal/oracle"
)

func mv(from, to string) oracle.Move {
	return oracle.Move{From: from, To: to}
}

type delivery struct {
	To      string // conn id, empty for broadcast
	Room    string
	Event   string
	Payload any
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []delivery
	bound map[string]string

	panicOnSend bool
}

func (f *fakeSender) Bind(connID, roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bound == nil {
		f.bound = make(map[string]string)
	}
	f.bound[connID] = roomID
}

func (f *fakeSender) SendTo(connID, event string, payload any) {
	if f.panicOnSend {
		panic("sender blew up")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, delivery{To: connID, Event: event, Payload: payload})
}

func (f *fakeSender) Broadcast(roomID, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, delivery{Room: roomID, Event: event, Payload: payload})
}

func (f *fakeSender) events(connID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, d := range f.sent {
		if d.To == connID {
			out = append(out, d.Event)
		}
	}
	return out
}

func mkenv(t *testing.T, event string, payload any) Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return Envelope{Event: event, Payload: raw}
}

func newTestDispatcher() (*Dispatcher, *fakeSender, *arena.Registry) {
	reg := arena.NewRegistry(nil)
	sender := &fakeSender{}
	return NewDispatcher(reg, sender, nil), sender, reg
}

func TestJoinBindsRoomAndAssignsWhite(t *testing.T) {
	d, sender, reg := newTestDispatcher()
	room := reg.Create().ID()

	bound := d.HandleEvent("c1", "", mkenv(t, evtJoin, joinPayload{RoomID: room, DisplayName: "Alice"}))
	if bound != room {
		t.Fatalf("bound = %q, want %q", bound, room)
	}
	evts := sender.events("c1")
	if len(evts) == 0 || evts[0] != arena.EvtRoleAssigned {
		t.Fatalf("expected roleAssigned to joiner, got %v", evts)
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if sender.bound["c1"] != room {
		t.Fatalf("sender binding = %q, want %q", sender.bound["c1"], room)
	}
}

func TestJoinCreatesRoomOnDemand(t *testing.T) {
	d, _, reg := newTestDispatcher()
	bound := d.HandleEvent("c1", "", mkenv(t, evtJoin, joinPayload{RoomID: "fresh-room", DisplayName: "A"}))
	if bound != "fresh-room" {
		t.Fatalf("bound = %q", bound)
	}
	if !reg.Exists("fresh-room") {
		t.Fatalf("room not created by join")
	}
}

func TestEventBeforeJoinRejected(t *testing.T) {
	d, sender, _ := newTestDispatcher()
	bound := d.HandleEvent("c1", "", mkenv(t, evtStartGame, startGamePayload{}))
	if bound != "" {
		t.Fatalf("bound = %q, want empty", bound)
	}
	evts := sender.events("c1")
	if len(evts) != 1 || evts[0] != arena.EvtActionRejected {
		t.Fatalf("expected actionRejected, got %v", evts)
	}
}

func TestMalformedPayloadRejected(t *testing.T) {
	d, sender, reg := newTestDispatcher()
	room := reg.Create().ID()
	d.HandleEvent("c1", "", mkenv(t, evtJoin, joinPayload{RoomID: room, DisplayName: "A"}))

	env := Envelope{Event: evtSubmitMove, Payload: json.RawMessage(`{"move":"not an object"}`)}
	d.HandleEvent("c1", room, env)
	evts := sender.events("c1")
	if evts[len(evts)-1] != arena.EvtActionRejected {
		t.Fatalf("expected actionRejected for malformed payload, got %v", evts)
	}
}

func TestRoomSwitchRejected(t *testing.T) {
	d, sender, reg := newTestDispatcher()
	a, b := reg.Create().ID(), reg.Create().ID()
	bound := d.HandleEvent("c1", "", mkenv(t, evtJoin, joinPayload{RoomID: a, DisplayName: "A"}))
	bound = d.HandleEvent("c1", bound, mkenv(t, evtJoin, joinPayload{RoomID: b, DisplayName: "A"}))
	if bound != a {
		t.Fatalf("binding changed to %q", bound)
	}
	evts := sender.events("c1")
	if evts[len(evts)-1] != arena.EvtActionRejected {
		t.Fatalf("expected actionRejected on room switch, got %v", evts)
	}
}

func TestFullMatchFlowRouting(t *testing.T) {
	d, sender, reg := newTestDispatcher()
	room := reg.Create().ID()

	d.HandleEvent("white", "", mkenv(t, evtJoin, joinPayload{RoomID: room, DisplayName: "Alice"}))
	d.HandleEvent("black", "", mkenv(t, evtJoin, joinPayload{RoomID: room, DisplayName: "Bob"}))

	d.HandleEvent("black", room, mkenv(t, evtChallengeIncumbent, challengePayload{RoomID: room, DisplayName: "Bob"}))
	evts := sender.events("white")
	if evts[len(evts)-1] != arena.EvtChallengePresented {
		t.Fatalf("incumbent did not receive challengePresented: %v", evts)
	}

	d.HandleEvent("white", room, mkenv(t, evtAcceptChallenge, acceptChallengePayload{RoomID: room, ChallengerConnectionID: "black", ChallengerName: "Bob"}))
	d.HandleEvent("white", room, mkenv(t, evtStartGame, startGamePayload{RoomID: room}))
	d.HandleEvent("white", room, mkenv(t, evtSubmitMove, submitMovePayload{RoomID: room, Move: mv("e2", "e4")}))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	var sawStart, sawMove bool
	for _, del := range sender.sent {
		if del.Room == room && del.Event == arena.EvtGameStarted {
			sawStart = true
		}
		if del.Room == room && del.Event == arena.EvtMoveApplied {
			sawMove = true
		}
	}
	if !sawStart || !sawMove {
		t.Fatalf("missing broadcasts: started=%v move=%v", sawStart, sawMove)
	}
}

func TestDisconnectClearsSeat(t *testing.T) {
	d, sender, reg := newTestDispatcher()
	room := reg.Create().ID()
	d.HandleEvent("c1", "", mkenv(t, evtJoin, joinPayload{RoomID: room, DisplayName: "Alice"}))

	d.HandleDisconnect("c1", room)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	last := sender.sent[len(sender.sent)-1]
	if last.Room != room || last.Event != arena.EvtNamesUpdated {
		t.Fatalf("expected namesUpdated broadcast after disconnect, got %+v", last)
	}
	names := last.Payload.(arena.NamesUpdatedPayload)
	if names.WhiteName != arena.WaitingName {
		t.Fatalf("white seat not cleared: %+v", names)
	}
}

func TestPanicIsolatedAtDispatchBoundary(t *testing.T) {
	reg := arena.NewRegistry(nil)
	sender := &fakeSender{panicOnSend: true}
	d := NewDispatcher(reg, sender, nil)
	room := reg.Create().ID()

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic escaped the dispatch boundary: %v", r)
		}
	}()
	bound := d.HandleEvent("c1", "", mkenv(t, evtJoin, joinPayload{RoomID: room, DisplayName: "A"}))
	_ = bound
}
