package events

import (
	"encoding/json"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// BaseEvent carries the fields shared by every protocol message.
type BaseEvent struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`
}

// NewBaseEvent builds the envelope for an outbound message with a fresh id.
func NewBaseEvent(eventType string) BaseEvent {
	id, err := nanoid.New()
	if err != nil {
		// nanoid only fails when the system entropy source is broken
		panic(err)
	}
	return BaseEvent{EventID: id, Type: eventType}
}

// Parse decodes an inbound message into a concrete event struct.
func Parse[T any](data []byte) (*T, error) {
	var x T
	if err := json.Unmarshal(data, &x); err != nil {
		return nil, err
	}
	return &x, nil
}
