package kafka

import (
	"context"
	"strconv"
)

const (
	EventBookingForwarded = "booking.forwarded"
	EventBookingFailed    = "booking.failed"
	EventLeadReceived     = "lead.event"

	SchemaVersion = "1"
	Source        = "amokanban"
)

// NewLeadEvent builds an event keyed by the CRM lead id, so every event of
// one lead lands on the same partition.
func NewLeadEvent(eventType string, leadID int64, payload any, correlationID string) Message {
	return NewMessage().
		WithKey(strconv.FormatInt(leadID, 10)).
		WithValue(payload).
		WithEventType(eventType).
		WithEventID("").
		WithCorrelationID(correlationID).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
}

// NopPublisher drops every message. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Message) error {
	return nil
}
