package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/chess-arena/internal/arena"
)

// The joiner itself must receive the broadcasts its own join produces:
// its room membership has to exist before the join effects are delivered.
func TestJoinerReceivesOwnJoinBroadcasts(t *testing.T) {
	reg := arena.NewRegistry(nil)
	hub := NewHub()
	srv := NewServer(hub, NewDispatcher(reg, hub, nil), nil)
	ts := httptest.NewServer(http.HandlerFunc(srv.Handle))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	raw, err := json.Marshal(joinPayload{RoomID: "room-x", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("marshal join: %v", err)
	}
	if err := wsjson.Write(ctx, conn, Envelope{Event: evtJoin, Payload: raw}); err != nil {
		t.Fatalf("write join: %v", err)
	}

	seen := map[string]json.RawMessage{}
	for len(seen) < 2 {
		var out Envelope
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read after %v: %v", eventNames(seen), err)
		}
		seen[out.Event] = out.Payload
	}

	if _, ok := seen[arena.EvtRoleAssigned]; !ok {
		t.Fatalf("missing roleAssigned, got %v", eventNames(seen))
	}
	rawNames, ok := seen[arena.EvtNamesUpdated]
	if !ok {
		t.Fatalf("missing namesUpdated, got %v", eventNames(seen))
	}
	var names arena.NamesUpdatedPayload
	if err := json.Unmarshal(rawNames, &names); err != nil {
		t.Fatalf("decode names: %v", err)
	}
	if names.WhiteName != "Alice" || names.BlackName != arena.WaitingName {
		t.Fatalf("names = %+v", names)
	}
}

func eventNames(seen map[string]json.RawMessage) []string {
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}
