package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/serverwatch/notifier/pkg/logger"
)

// EventType represents the type of event
type EventType string

const (
	// Subscription events
	EventFilterAdded    EventType = "filter.added"
	EventFilterRemoved  EventType = "filter.removed"
	EventFiltersCleared EventType = "filter.cleared"

	// Delivery events
	EventMatchDelivered EventType = "match.delivered"
	EventMatchFailed    EventType = "match.failed"

	// Directory events
	EventFetchExhausted EventType = "directory.fetch_exhausted"
	EventAlertRaised    EventType = "alert.raised"
)

// Event represents a system event
type Event struct {
	ID           string                 `json:"id"`
	Type         EventType              `json:"type"`
	Timestamp    time.Time              `json:"timestamp"`
	Source       string                 `json:"source"` // e.g. "dispatcher", "subscription_store"
	ServerName   string                 `json:"server_name,omitempty"`
	SubscriberID string                 `json:"subscriber_id,omitempty"`
	Data         map[string]interface{} `json:"data"`
}

// EventHandler is a function that handles events
type EventHandler func(event Event)

// EventBus manages event publishing and subscription
type EventBus struct {
	subscribers map[EventType][]EventHandler
	mu          sync.RWMutex
	storage     EventStorage
}

// EventStorage defines the interface for storing events
type EventStorage interface {
	Store(event Event) error
	Query(filters EventFilters) ([]Event, error)
}

// EventFilters for querying events
type EventFilters struct {
	Types        []EventType
	ServerName   string
	SubscriberID string
	StartTime    time.Time
	EndTime      time.Time
	Limit        int
}

var (
	globalBus     *EventBus
	globalBusOnce sync.Once
)

// GetEventBus returns the global event bus instance (singleton)
func GetEventBus() *EventBus {
	globalBusOnce.Do(func() {
		globalBus = NewEventBus(nil)
	})
	return globalBus
}

// SetEventStorage sets the event storage backend of the global bus
func SetEventStorage(storage EventStorage) {
	GetEventBus().SetStorage(storage)
}

// NewEventBus creates a new event bus
func NewEventBus(storage EventStorage) *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]EventHandler),
		storage:     storage,
	}
}

// SetStorage replaces the storage backend
func (eb *EventBus) SetStorage(storage EventStorage) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.storage = storage
}

// Subscribe registers a handler for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], handler)
	logger.Debug("Event handler subscribed", map[string]interface{}{
		"event_type": eventType,
	})
}

// Publish stores an event and hands it to every subscriber. Handlers run in
// their own goroutines; a panicking handler is logged and dropped.
func (eb *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	eb.mu.RLock()
	storage := eb.storage
	handlers := append([]EventHandler(nil), eb.subscribers[event.Type]...)
	eb.mu.RUnlock()

	if storage != nil {
		if err := storage.Store(event); err != nil {
			logger.Error("Failed to store event", err, map[string]interface{}{
				"event_id":   event.ID,
				"event_type": event.Type,
			})
		}
	}

	for _, handler := range handlers {
		go func(h EventHandler) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Event handler panicked", nil, map[string]interface{}{
						"event_type": event.Type,
						"panic":      r,
					})
				}
			}()
			h(event)
		}(handler)
	}

	logger.Debug("Event published", map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"source":     event.Source,
	})
}

// Query retrieves events based on filters
func (eb *EventBus) Query(filters EventFilters) ([]Event, error) {
	eb.mu.RLock()
	storage := eb.storage
	eb.mu.RUnlock()

	if storage == nil {
		return nil, nil
	}
	return storage.Query(filters)
}
