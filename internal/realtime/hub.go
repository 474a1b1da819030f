package realtime

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
)

// Client is one live websocket subscription to a user's notification
// stream, keyed by the user's email.
type Client struct {
	ID    string
	Email string
	Conn  *WebSocketConn
	Send  chan []byte
}

// Hub tracks connected notification listeners. A user may hold several
// connections (multiple tabs); all of them receive each push.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// SendToEmail pushes data to every connection held by the given email.
func (h *Hub) SendToEmail(email string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("realtime: error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if strings.EqualFold(client.Email, email) {
			select {
			case client.Send <- payload:
			default:
				// slow consumer, drop rather than block
			}
		}
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("realtime: client registered: %s (%s)", client.ID, client.Email)

		case client := <-h.unregister:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(old.Send)
				log.Printf("realtime: client unregistered: %s", client.ID)
			}
			h.mu.Unlock()
		}
	}
}
