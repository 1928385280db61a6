package core

// Decision is the planner's structured output for one analyzed action:
// free-text reasoning, the workflows to run, context updates to fold into the
// session state and event messages to publish.
//
// A Decision handed to callers is always structurally valid: Workflows,
// ContextUpdates and EventMessages are never nil. Absence is represented by
// an empty list or map, never a missing field. Use Normalize after decoding
// untrusted input to enforce this.
type Decision struct {
	Reasoning      string          `json:"reasoning"`
	Workflows      []AgentWorkflow `json:"workflows"`
	ContextUpdates map[string]any  `json:"context_updates"`
	EventMessages  []EventMessage  `json:"event_messages"`
}

// Normalize replaces nil collections with empty ones so downstream code can
// range without nil checks.
func (d *Decision) Normalize() {
	if d.Workflows == nil {
		d.Workflows = []AgentWorkflow{}
	}
	if d.ContextUpdates == nil {
		d.ContextUpdates = map[string]any{}
	}
	if d.EventMessages == nil {
		d.EventMessages = []EventMessage{}
	}
}

// FallbackDecision is the defined recovery value substituted when the oracle
// returns output that cannot be parsed or repaired into a valid Decision.
func FallbackDecision() *Decision {
	return &Decision{
		Reasoning:      "fallback",
		Workflows:      []AgentWorkflow{},
		ContextUpdates: map[string]any{},
		EventMessages:  []EventMessage{},
	}
}

// SkippedDecision marks an action whose orchestration was skipped because the
// planning oracle was unreachable. The caller's own flow proceeds unaffected.
func SkippedDecision() *Decision {
	d := FallbackDecision()
	d.Reasoning = "orchestration skipped"
	return d
}
