// Package notification delivers resource alerts to outbound webhooks.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType represents the type of event that can trigger a notification
type EventType string

const (
	EventResourceCritical  EventType = "resource_critical"
	EventResourceRecovered EventType = "resource_recovered"
	EventTest              EventType = "test"
)

// DefaultSendTimeout bounds one delivery to one provider
const DefaultSendTimeout = 10 * time.Second

// queueSize is the number of events held while providers are slow
const queueSize = 32

// Event represents a notification event
type Event struct {
	Type      EventType
	Title     string
	Message   string
	Fields    map[string]string
	Timestamp time.Time
}

// Provider delivers events to one destination
type Provider interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

// Manager queues events and fans them out to every provider on a single
// dispatcher goroutine.
type Manager struct {
	providers []Provider
	timeout   time.Duration
	events    chan Event

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewManager creates a manager for the given providers
func NewManager(timeout time.Duration, providers ...Provider) *Manager {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Manager{
		providers: providers,
		timeout:   timeout,
		events:    make(chan Event, queueSize),
	}
}

// Enabled reports whether any provider is configured
func (m *Manager) Enabled() bool {
	return m != nil && len(m.providers) > 0
}

// Start starts the dispatcher. It returns false when there is nothing to send to.
func (m *Manager) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return true
	}
	if len(m.providers) == 0 {
		return false
	}

	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("Notification dispatcher panicked")
			}
		}()
		m.dispatcher(stop)
	})

	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.Name())
	}
	log.Info().Strs("providers", names).Msg("Notification manager started")
	return true
}

// Stop stops the dispatcher after the event in flight is delivered. Queued
// events that were not yet picked up are dropped.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	m.mu.Unlock()

	m.wg.Wait()
	log.Info().Msg("Notification manager stopped")
}

// Notify queues an event without blocking. It is a no-op when no provider is
// configured and drops the event when the queue is full.
func (m *Manager) Notify(event Event) {
	if !m.Enabled() {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case m.events <- event:
	default:
		log.Warn().Str("type", string(event.Type)).Msg("Notification queue full, dropping event")
	}
}

func (m *Manager) dispatcher(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case event := <-m.events:
			m.dispatch(event)
		}
	}
}

// dispatch sends an event to every provider. A failing provider does not stop
// delivery to the others.
func (m *Manager) dispatch(event Event) {
	for _, provider := range m.providers {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		err := provider.Send(ctx, event)
		cancel()

		if err != nil {
			log.Error().
				Err(err).
				Str("provider", provider.Name()).
				Str("event", string(event.Type)).
				Msg("Failed to send notification")
			continue
		}
		log.Debug().
			Str("provider", provider.Name()).
			Str("event", string(event.Type)).
			Msg("Notification sent")
	}
}

// Test sends a test event synchronously to every provider and returns the
// first error.
func (m *Manager) Test(ctx context.Context) error {
	event := Event{
		Type:      EventTest,
		Title:     "Test Notification",
		Message:   "Heistops alerts are working.",
		Timestamp: time.Now(),
	}
	for _, provider := range m.providers {
		if err := provider.Send(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
