package core

import "github.com/google/uuid"

// NewID generates a new unique identifier used for correlation IDs on event
// messages and interaction IDs in the conversation history.
//
// Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }
