package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// Event types
	EventTypeItemCreated = "items.created"
	EventTypeItemUpdated = "items.updated"
	EventTypeItemDeleted = "items.deleted"

	eventVersion = "1.0.0"
)

// Event represents a domain event
type Event struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	EventVersion  string                 `json:"event_version"`
	Timestamp     string                 `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
}

type correlationIDKey struct{}

// WithCorrelationID attaches a correlation id that published events will carry
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the correlation id stored in ctx, if any
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// NewEvent builds an event envelope of the given type
func NewEvent(ctx context.Context, eventType string, payload map[string]interface{}) Event {
	return Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		CorrelationID: CorrelationID(ctx),
		Payload:       payload,
	}
}

// ItemCreatedEvent builds the items.created event
func ItemCreatedEvent(ctx context.Context, id int64, name, description string) Event {
	return NewEvent(ctx, EventTypeItemCreated, map[string]interface{}{
		"id":          id,
		"name":        name,
		"description": description,
	})
}

// ItemUpdatedEvent builds the items.updated event, updates holds the new field values
func ItemUpdatedEvent(ctx context.Context, id int64, fieldsChanged []string, updates map[string]interface{}) Event {
	payload := map[string]interface{}{
		"id":             id,
		"fields_changed": fieldsChanged,
	}
	for k, v := range updates {
		payload[k] = v
	}
	return NewEvent(ctx, EventTypeItemUpdated, payload)
}

// ItemDeletedEvent builds the items.deleted event
func ItemDeletedEvent(ctx context.Context, id int64) Event {
	return NewEvent(ctx, EventTypeItemDeleted, map[string]interface{}{
		"id": id,
	})
}

// NopPublisher drops every event, used when events are disabled
type NopPublisher struct{}

func (NopPublisher) PublishItemCreated(ctx context.Context, id int64, name, description string) error {
	return nil
}

func (NopPublisher) PublishItemUpdated(ctx context.Context, id int64, fieldsChanged []string, updates map[string]interface{}) error {
	return nil
}

func (NopPublisher) PublishItemDeleted(ctx context.Context, id int64) error {
	return nil
}

func (NopPublisher) IsHealthy() bool {
	return true
}

func (NopPublisher) Close() error {
	return nil
}
