package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType represents the type of SSE event
type EventType string

const (
	EventCrewChanged     EventType = "crew_changed"
	EventHostageChanged  EventType = "hostage_changed"
	EventResourceChanged EventType = "resource_changed"
	EventPhaseChanged    EventType = "phase_changed"

	// EventResourceCritical is sent when the set of critical resources changes
	EventResourceCritical EventType = "resource_critical"

	EventConnected EventType = "connected"
	EventHeartbeat EventType = "heartbeat"
)

// DefaultHeartbeat is the interval between heartbeat events
const DefaultHeartbeat = 30 * time.Second

// Event represents an SSE event to be sent to clients
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID       string
	Messages chan []byte
}

// Broker manages SSE client connections and event broadcasting
type Broker struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	stopOnce   sync.Once
	heartbeat  time.Duration
	mu         sync.RWMutex
}

// NewBroker creates a new SSE broker with the default heartbeat
func NewBroker() *Broker {
	return NewBrokerWithHeartbeat(DefaultHeartbeat)
}

// NewBrokerWithHeartbeat creates a new SSE broker that sends a heartbeat every interval
func NewBrokerWithHeartbeat(interval time.Duration) *Broker {
	b := &Broker{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 100),
		done:       make(chan struct{}),
		heartbeat:  interval,
	}
	go b.run()
	return b
}

// run handles client registration and event broadcasting
func (b *Broker) run() {
	heartbeatTicker := time.NewTicker(b.heartbeat)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-b.done:
			b.mu.Lock()
			for _, client := range b.clients {
				close(client.Messages)
			}
			b.clients = make(map[string]*Client)
			b.mu.Unlock()
			log.Debug().Msg("SSE broker stopped")
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client.ID] = client
			total := len(b.clients)
			b.mu.Unlock()
			log.Debug().Str("client_id", client.ID).Int("total_clients", total).Msg("SSE client connected")

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client.ID]; ok {
				delete(b.clients, client.ID)
				close(client.Messages)
			}
			total := len(b.clients)
			b.mu.Unlock()
			log.Debug().Str("client_id", client.ID).Int("total_clients", total).Msg("SSE client disconnected")

		case event := <-b.broadcast:
			b.deliver(event)

		case <-heartbeatTicker.C:
			b.deliver(Event{Type: EventHeartbeat, Data: map[string]any{"time": time.Now().Unix()}})
		}
	}
}

func (b *Broker) deliver(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}

	message := formatSSEMessage(string(event.Type), data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, client := range b.clients {
		select {
		case client.Messages <- message:
		default:
			log.Warn().Str("client_id", client.ID).Msg("SSE client buffer full, dropping message")
		}
	}
}

// Broadcast sends an event to all connected clients. It never blocks; events are
// dropped when the queue is full.
func (b *Broker) Broadcast(event Event) {
	select {
	case b.broadcast <- event:
	default:
		log.Warn().Str("event_type", string(event.Type)).Msg("SSE broadcast channel full, dropping event")
	}
}

// Publish is shorthand for Broadcast with a typed payload
func (b *Broker) Publish(eventType EventType, data any) {
	b.Broadcast(Event{Type: eventType, Data: data})
}

// Stop gracefully shuts down the broker
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.done) })
}

// ServeHTTP handles SSE connections
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	client := &Client{
		ID:       fmt.Sprintf("%p-%d", r, time.Now().UnixNano()),
		Messages: make(chan []byte, 32),
	}

	select {
	case b.register <- client:
	case <-b.done:
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}

	// Non-blocking during shutdown
	defer func() {
		select {
		case b.unregister <- client:
		case <-b.done:
		}
	}()

	data, _ := json.Marshal(Event{
		Type: EventConnected,
		Data: map[string]any{
			"client_id": client.ID,
			"time":      time.Now().Unix(),
		},
	})
	_, _ = w.Write(formatSSEMessage(string(EventConnected), data))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-client.Messages:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

// ClientCount returns the number of connected clients
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// formatSSEMessage formats an SSE message with event type and data
func formatSSEMessage(eventType string, data []byte) []byte {
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", eventType, data)
}
