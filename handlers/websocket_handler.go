package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/arenaforge/esports-platform/live"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS middleware at the router.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// LeaderboardStreamHandler handles GET /ws/tournaments/{tournamentID},
// attaching the spectator to the tournament's room for live standings.
func (h *WebSocketHandler) LeaderboardStreamHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, strconv.Itoa(tournamentID))
	client.Register()
}
