package core

import "fmt"

// PlannerUnavailableError indicates the planning oracle was unreachable or
// timed out. This is the only planner error allowed to reach the facade,
// which must degrade to "orchestration skipped" rather than fail the request.
type PlannerUnavailableError struct {
	Provider string // oracle provider name, e.g. "openai"
	Err      error  // underlying transport error
}

func (e *PlannerUnavailableError) Error() string {
	return fmt.Sprintf("planner unavailable (provider %s): %v", e.Provider, e.Err)
}

func (e *PlannerUnavailableError) Unwrap() error { return e.Err }

// PlannerMalformedError indicates the oracle's response failed schema
// validation even after repair. It is always recovered locally by
// substituting the fallback decision and never surfaces past the planner.
type PlannerMalformedError struct {
	Reason string // what was missing or unparseable
	Raw    string // raw oracle output, truncated for logging
}

func (e *PlannerMalformedError) Error() string {
	return fmt.Sprintf("planner response malformed: %s", e.Reason)
}

// UnknownCapabilityError indicates a workflow referenced an agent ID or
// action the invoker registry does not know. Handled as a per-workflow
// failure; siblings continue.
type UnknownCapabilityError struct {
	AgentID AgentID
	Action  string
}

func (e *UnknownCapabilityError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("unknown capability: agent %q does not accept action %q", e.AgentID, e.Action)
	}
	return fmt.Sprintf("unknown capability: no invoker registered for agent %q", e.AgentID)
}

// AgentInvocationError wraps a downstream collaborator failure. Handled as a
// per-workflow failure and reported via an agent.workflow.error event.
type AgentInvocationError struct {
	AgentID AgentID
	Action  string
	Err     error
}

func (e *AgentInvocationError) Error() string {
	return fmt.Sprintf("agent %q failed action %q: %v", e.AgentID, e.Action, e.Err)
}

func (e *AgentInvocationError) Unwrap() error { return e.Err }

// DeliveryError records a subscriber handler failure after the bus has
// exhausted its retries for a message. Reported via an error.subscriber
// event; other subscribers are unaffected.
type DeliveryError struct {
	SubscriberID string
	Topic        string
	Attempts     int
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to subscriber %q failed after %d attempts on topic %q: %v",
		e.SubscriberID, e.Attempts, e.Topic, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
