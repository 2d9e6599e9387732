package notifier

import (
	"context"
	"time"
)

// Message is what leaves the outbox for an external delivery channel
type Message struct {
	Key           string            `json:"key"`
	EventID       string            `json:"event_id"`
	ApplicationID uint              `json:"application_id"`
	Recipient     string            `json:"recipient"`
	Text          string            `json:"text"`
	Extra         map[string]string `json:"extra,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// Notifier delivers one message. Implementations must not retry on their own;
// the dispatcher attempts each message at most once.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}
