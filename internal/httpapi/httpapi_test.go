package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kapu/chess-arena/internal/arena"
	"github.com/kapu/chess-arena/internal/boardimg"
)

func newTestAPI(t *testing.T) (*API, *arena.Registry) {
	t.Helper()
	reg := arena.NewRegistry(nil)
	return New(reg, boardimg.New(), nil), reg
}

func TestCreateRoomReturnsID(t *testing.T) {
	api, reg := newTestAPI(t)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/game/create", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body createRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RoomID == "" {
		t.Fatalf("empty room id")
	}
	if !reg.Exists(body.RoomID) {
		t.Fatalf("created room %q not registered", body.RoomID)
	}
}

func TestRoomInfo(t *testing.T) {
	api, reg := newTestAPI(t)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	sess := reg.Create()
	resp, err := http.Get(srv.URL + "/game/" + sess.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body roomInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RoomID != sess.ID() || !strings.HasPrefix(body.FEN, "rnbqkbnr/") {
		t.Fatalf("body = %+v", body)
	}
}

func TestRoomInfoUnknown(t *testing.T) {
	api, _ := newTestAPI(t)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/game/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestBoardPNG(t *testing.T) {
	api, reg := newTestAPI(t)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	sess := reg.Create()
	resp, err := http.Get(srv.URL + "/game/" + sess.ID() + "/board.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestBoardPNGUnknownRoom(t *testing.T) {
	api, _ := newTestAPI(t)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/game/nope/board.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
