package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Event is the envelope pushed to subscribed clients. Type names follow the
// service layer's notification events: status_changed, result_submitted,
// round_advanced, rewards_distributed and friends.
type Event struct {
	Type         string      `json:"type"`
	TournamentID int         `json:"tournament_id"`
	Payload      interface{} `json:"payload,omitempty"`
}

// Hub fans service-layer events out to websocket subscribers, one room per
// tournament. It doubles as the services.Notifier implementation, so
// everything the services announce reaches the room without extra glue.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func roomKey(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}

// Run owns the room membership maps. Start it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			slog.Debug("live client joined", "room", client.room, "clients", len(h.rooms[client.room]))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, member := clients[client]; member {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
					slog.Debug("live client left", "room", client.room, "clients", len(clients))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Notify satisfies services.Notifier. Marshalling or delivery problems are
// logged and swallowed: live updates must never fail a transaction.
func (h *Hub) Notify(tournamentID int, event string, payload interface{}) {
	raw, err := json.Marshal(Event{
		Type:         event,
		TournamentID: tournamentID,
		Payload:      payload,
	})
	if err != nil {
		slog.Error("marshalling live event", "event", event, "tournament_id", tournamentID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomKey(tournamentID)] {
		client.trySend(raw)
	}
}
