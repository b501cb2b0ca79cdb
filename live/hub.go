package live

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"github.com/arenaforge/esports-platform/models"
)

// Message is the envelope pushed to spectators.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

const typeLeaderboardUpdated = "LEADERBOARD_UPDATED"

// Hub fans leaderboard updates out to websocket clients grouped into
// per-tournament rooms. Slow clients are skipped, never waited on.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()
			h.logger.Debug("spectator joined", slog.String("room", client.room))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, present := clients[client]; present {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("spectator left", slog.String("room", client.room))
		}
	}
}

// BroadcastLeaderboard pushes the new standings to every spectator of the
// tournament. Implements the result service's broadcaster interface.
func (h *Hub) BroadcastLeaderboard(tournamentID int, entries []models.LeaderboardEntry) {
	h.broadcastToRoom(strconv.Itoa(tournamentID), Message{
		Type:    typeLeaderboardUpdated,
		Payload: entries,
		RoomID:  strconv.Itoa(tournamentID),
	})
}

func (h *Hub) broadcastToRoom(roomID string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message",
			slog.String("room", roomID), slog.Any("error", err))
		return
	}

	for client := range clients {
		client.trySend(data)
	}
}
