package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingStatusChanged = "booking_status_changed"
	EventBookingDeleted       = "booking_deleted"
	EventTourCreated          = "tour_created"
	EventTourUpdated          = "tour_updated"
	EventTourDeleted          = "tour_deleted"
	EventCategoryDeleted      = "category_deleted"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []string{
	EventBookingCreated,
	EventBookingStatusChanged,
	EventBookingDeleted,
	EventTourCreated,
	EventTourUpdated,
	EventTourDeleted,
	EventCategoryDeleted,
}

// BookingEventPayload describes the booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID      string    `json:"booking_id"`
	UserID         string    `json:"user_id"`
	TourID         string    `json:"tour_id"`
	NumberOfGuests int       `json:"number_of_guests"`
	TotalPrice     float64   `json:"total_price"`
	BookingDate    time.Time `json:"booking_date"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	PrevStatus     string    `json:"prev_status,omitempty"`
	PrevPayment    string    `json:"prev_payment_status,omitempty"`
	ChangedBy      string    `json:"changed_by,omitempty"`
}

// CatalogEventPayload describes a tour or category change.
type CatalogEventPayload struct {
	TourID       string `json:"tour_id,omitempty"`
	CategoryID   string `json:"category_id,omitempty"`
	Title        string `json:"title,omitempty"`
	ToursRemoved int    `json:"tours_removed,omitempty"`
	ChangedBy    string `json:"changed_by,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs the subscribers of the event type synchronously and returns
// their joined errors. Every handler runs even if an earlier one fails.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	ev, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&ev)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
