// Package httpapi exposes the room lifecycle over HTTP: creating rooms,
// checking that a shared room link resolves, snapshotting a board as PNG,
// and mounting the websocket endpoint.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kapu/chess-arena/internal/arena"
	"github.com/kapu/chess-arena/internal/boardimg"
	"github.com/kapu/chess-arena/internal/obslog"
)

type API struct {
	registry *arena.Registry
	renderer *boardimg.Renderer
	ws       http.HandlerFunc
}

func New(registry *arena.Registry, renderer *boardimg.Renderer, ws http.HandlerFunc) *API {
	return &API{registry: registry, renderer: renderer, ws: ws}
}

// Router builds the route table. The websocket endpoint lives beside the
// REST routes so one listener serves both.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/game/create", a.createRoom).Methods(http.MethodPost)
	r.HandleFunc("/game/{roomID}", a.roomInfo).Methods(http.MethodGet)
	r.HandleFunc("/game/{roomID}/board.png", a.boardPNG).Methods(http.MethodGet)
	r.HandleFunc("/healthz", a.health).Methods(http.MethodGet)
	if a.ws != nil {
		r.HandleFunc("/ws", a.ws)
	}
	return r
}

type createRoomResponse struct {
	RoomID string `json:"roomId"`
}

type roomInfoResponse struct {
	RoomID string `json:"roomId"`
	FEN    string `json:"fen"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) createRoom(w http.ResponseWriter, r *http.Request) {
	sess := a.registry.Create()
	obslog.L().Info("http_room_create", zap.String("room_id", sess.ID()))
	writeJSON(w, http.StatusCreated, createRoomResponse{RoomID: sess.ID()})
}

// roomInfo validates a shared room link before the client opens a socket.
func (a *API) roomInfo(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	sess, ok := a.registry.Get(roomID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "room not found"})
		return
	}
	writeJSON(w, http.StatusOK, roomInfoResponse{RoomID: sess.ID(), FEN: sess.FEN()})
}

func (a *API) boardPNG(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	sess, ok := a.registry.Get(roomID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "room not found"})
		return
	}

	data, err := a.renderer.RenderPNG(r.Context(), sess.FEN(), boardimg.Options{})
	if err != nil {
		obslog.L().Error("board_render_error", zap.String("room_id", roomID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "render failed"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		obslog.L().Warn("http_write_error", zap.Error(err))
	}
}
