package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/chess-arena/internal/obslog"
)

// Server accepts websocket connections and runs one read loop per
// connection. Events from one connection are processed in delivery order;
// cross-connection ordering is left to the session's mutex.
type Server struct {
	hub            *Hub
	dispatcher     *Dispatcher
	originPatterns []string
}

func NewServer(hub *Hub, dispatcher *Dispatcher, originPatterns []string) *Server {
	return &Server{hub: hub, dispatcher: dispatcher, originPatterns: originPatterns}
}

// Handle upgrades the request and serves the connection until it drops.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.originPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	s.hub.add(connID, conn)
	obslog.L().Info("ws_connect", zap.String("conn_id", connID))

	boundRoom := ""
	defer func() {
		s.hub.remove(connID)
		s.dispatcher.HandleDisconnect(connID, boundRoom)
		_ = conn.Close(websocket.StatusNormalClosure, "")
		obslog.L().Info("ws_disconnect", zap.String("conn_id", connID), zap.String("room_id", boundRoom))
	}()

	ctx := r.Context()
	for {
		var env Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			status := websocket.CloseStatus(err)
			if status == -1 && !errors.Is(err, context.Canceled) {
				obslog.L().Warn("ws_read_error", zap.String("conn_id", connID), zap.Error(err))
			}
			return
		}
		boundRoom = s.dispatcher.HandleEvent(connID, boundRoom, env)
	}
}
