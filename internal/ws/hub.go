package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/savora-food/api/internal/database"
)

// GlobalRoom receives every restaurant's events. Super-admins join it.
var GlobalRoom = uuid.Nil

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// roomEvent routes an event to one restaurant's room
type roomEvent struct {
	RestaurantID uuid.UUID
	Event        Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by restaurant (admin) ID
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomEvent

	// done is closed once Run has returned.
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every client's send channel.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				log.Printf("ERROR: marshal ws event: %v", err)
				continue
			}
			h.mu.Lock()
			h.deliver(event.RestaurantID, message)
			if event.RestaurantID != GlobalRoom {
				h.deliver(GlobalRoom, message)
			}
			h.mu.Unlock()
		}
	}
}

// join registers client. It reports false once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters client; a no-op once the hub has stopped.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// deliver sends message to every client in room. Slow clients are dropped.
// Caller holds h.mu.
func (h *Hub) deliver(room uuid.UUID, message []byte) {
	for client := range h.rooms[room] {
		select {
		case client.send <- message:
		default:
			h.remove(client)
		}
	}
}

// remove closes and forgets client. Caller holds h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

// BroadcastToRestaurant sends an event to the restaurant's room and the
// global room. The event is dropped if the hub is saturated.
func (h *Hub) BroadcastToRestaurant(restaurantID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &roomEvent{RestaurantID: restaurantID, Event: event}:
	default:
		log.Printf("WARNING: ws broadcast buffer full, dropping %s for %s", event.Type, restaurantID)
	}
}

// PublishOrder broadcasts an order event. Satisfies service.EventPublisher.
func (h *Hub) PublishOrder(restaurantID uuid.UUID, eventType string, order database.Order) {
	payload, err := json.Marshal(order)
	if err != nil {
		log.Printf("ERROR: marshal order %s for ws: %v", order.ID, err)
		return
	}
	h.BroadcastToRestaurant(restaurantID, Event{Type: eventType, Payload: payload})
}
