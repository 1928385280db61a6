package core

import "time"

// ActionKind classifies the origin of an inbound action.
type ActionKind string

const (
	// ActionClick is a UI interaction (tap, button press, navigation).
	ActionClick ActionKind = "click"
	// ActionChat is a free-text conversational message.
	ActionChat ActionKind = "chat"
	// ActionWebhook is a callback from an external system.
	ActionWebhook ActionKind = "webhook"
	// ActionAPICall is a programmatic request from a first-party client.
	ActionAPICall ActionKind = "api_call"
)

// ActionContext carries request-scoped signals attached by the caller
// (the excluded web/API layer) that the planner folds into its reasoning.
type ActionContext struct {
	CurrentPage string `json:"current_page,omitempty"`
	UserType    string `json:"user_type,omitempty"`
	TrustLevel  string `json:"trust_level,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Action is one inbound user/system event analyzed by the engine. Exactly one
// Action is created per inbound request and it must be treated as immutable
// after construction.
type Action struct {
	Kind      ActionKind     `json:"kind"`
	Path      string         `json:"path,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Context   ActionContext  `json:"context"`
}

// NewAction constructs an Action stamped with the current UTC time.
func NewAction(kind ActionKind, userID, sessionID string) Action {
	return Action{
		Kind:      kind,
		UserID:    userID,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   map[string]any{},
	}
}

// NewChatAction is a convenience constructor for a conversational message,
// the most common action kind in practice.
func NewChatAction(userID, sessionID, message string) Action {
	a := NewAction(ActionChat, userID, sessionID)
	a.Payload["message"] = message
	return a
}

// Message returns the conversational text of the action, if any.
func (a Action) Message() string {
	if s, ok := a.Payload["message"].(string); ok {
		return s
	}
	return ""
}
