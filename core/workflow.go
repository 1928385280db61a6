package core

import "time"

// AgentID names a downstream capability reachable through the invoker
// registry. The set is fixed; the planner drops workflows referencing
// anything else during validation.
type AgentID string

const (
	// AgentEscrow handles payment escrow operations (hold, release, refund).
	AgentEscrow AgentID = "escrow"
	// AgentDiscovery handles catalog/feed search and recommendations.
	AgentDiscovery AgentID = "discovery"
	// AgentRouting handles logistics and transport routing.
	AgentRouting AgentID = "routing"
	// AgentPlanning handles itinerary parsing and trip planning.
	AgentPlanning AgentID = "planning"
)

// KnownAgents enumerates the fixed capability set.
var KnownAgents = []AgentID{AgentEscrow, AgentDiscovery, AgentRouting, AgentPlanning}

// IsKnownAgent reports whether id belongs to the fixed capability set.
func IsKnownAgent(id AgentID) bool {
	for _, a := range KnownAgents {
		if a == id {
			return true
		}
	}
	return false
}

// Priority orders workflow execution. Critical runs before high, high before
// medium, medium before low; ties keep the planner's original order.
type Priority string

const (
	// PriorityCritical workflows run first.
	PriorityCritical Priority = "critical"
	// PriorityHigh workflows run after critical.
	PriorityHigh Priority = "high"
	// PriorityMedium is the default for planner output with an unknown priority.
	PriorityMedium Priority = "medium"
	// PriorityLow workflows run last.
	PriorityLow Priority = "low"
)

// Rank maps a priority to a sortable integer; lower runs earlier. Unknown
// values rank as medium so a sloppy oracle cannot starve a workflow.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Valid reports whether p is one of the four defined priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// AgentWorkflow is one planned call to a named downstream capability. It is
// produced by the planner, consumed by the executor and immutable in between.
//
// Dependencies lists agent IDs that must settle (succeed or fail) within the
// same batch before this workflow starts. A dependency absent from the batch
// is treated as already satisfied; there is no cross-batch blocking.
type AgentWorkflow struct {
	AgentID          AgentID        `json:"agent_id"`
	Action           string         `json:"action"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	Priority         Priority       `json:"priority"`
	Dependencies     []AgentID      `json:"dependencies,omitempty"`
	ExpectedDuration time.Duration  `json:"expected_duration_ms,omitempty"`
}
