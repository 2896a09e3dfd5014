package sse

import (
	"encoding/json"
	"sync"

	"azure-face-go/internal/core/events"

	log "github.com/sirupsen/logrus"
)

// Client represents a single connected SSE client
type Client chan []byte

// Hub tracks the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients
	clients map[Client]bool

	// Incoming messages from the application
	broadcast chan []byte

	// Registration requests from clients
	register chan Client

	// Unregistration requests from clients
	unregister chan Client

	// Guards concurrent access to the clients map
	mu sync.Mutex
}

// NewHub creates a new hub instance
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 100), // buffers 100 messages
		register:   make(chan Client),
		unregister: make(chan Client),
		clients:    make(map[Client]bool),
	}
}

// Run starts the hub's processing loop.
// This should be executed in a separate goroutine.
func (h *Hub) Run() {
	log.Info("SSE Hub started and running")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			log.Infof("SSE client registered. Total clients: %d", clientCount)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
				clientCount := len(h.clients)
				log.Infof("SSE client unregistered. Total clients: %d", clientCount)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			log.Debugf("Broadcasting message to %d SSE clients", len(h.clients))

			for client := range h.clients {
				select {
				case client <- message:
					// Message delivered
				default:
					// Client channel is full or closed
					log.Warn("SSE client channel full or closed, removing client")
					delete(h.clients, client)
					close(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client Client) {
	h.register <- client
}

// ClientCount returns the number of currently connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client Client) {
	h.unregister <- client
}

// Broadcast sends a message to all registered clients
func (h *Hub) Broadcast(message []byte) {
	// Avoid blocking when the broadcast channel is full
	select {
	case h.broadcast <- message:
		// Message queued for delivery
	default:
		log.Warn("SSE broadcast channel full, message dropped")
	}
}

// BroadcastEvent serializes an event envelope and sends it to all clients
func (h *Hub) BroadcastEvent(envelope events.Envelope) {
	jsonData, err := json.Marshal(envelope)
	if err != nil {
		log.Errorf("Failed to marshal event %s for SSE: %v", envelope.Type, err)
		return
	}
	h.Broadcast(jsonData)
}
