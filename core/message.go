package core

import (
	"context"
	"time"
)

// MessageMetadata is stamped onto every EventMessage at publish time.
// CorrelationID is unique per message instance, not per logical action.
type MessageMetadata struct {
	SourceAgent   AgentID   `json:"source_agent,omitempty"`
	Priority      int       `json:"priority"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
	RetryCount    int       `json:"retry_count,omitempty"`
}

// EventMessage is the unit of communication on the event bus. After publish
// it must be treated as immutable; retries carry copies with an incremented
// RetryCount rather than mutating the original.
type EventMessage struct {
	Topic    string          `json:"topic"`
	Payload  map[string]any  `json:"payload,omitempty"`
	Metadata MessageMetadata `json:"metadata"`
}

// Handler processes a delivered event message. Returning an error triggers
// the bus's retry-with-backoff path for this subscriber only.
type Handler func(ctx context.Context, msg EventMessage) error

// Subscriber binds a handler to one or more topic patterns. Patterns support
// `*` as a full-segment wildcard: "agent.*" matches "agent.complete" but not
// "agent.complete.extra".
type Subscriber struct {
	ID         string   `json:"id"`
	Topics     []string `json:"topics"`
	Handler    Handler  `json:"-"`
	MaxRetries int      `json:"max_retries,omitempty"`
	BatchSize  int      `json:"batch_size,omitempty"`
}
