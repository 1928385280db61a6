package planner

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/wayfarelabs/orchestra/core"
)

// rawDecision mirrors the document shape the oracle is asked to emit.
// Workflows are decoded loosely so a single bad entry can be dropped without
// rejecting the whole decision.
type rawDecision struct {
	Reasoning      *string        `json:"reasoning"`
	Workflows      []rawWorkflow  `json:"workflows"`
	ContextUpdates map[string]any `json:"context_updates"`
	EventMessages  []rawEventMsg  `json:"event_messages"`
}

type rawWorkflow struct {
	AgentID          string         `json:"agent_id"`
	Action           string         `json:"action"`
	Parameters       map[string]any `json:"parameters"`
	Priority         string         `json:"priority"`
	Dependencies     []string       `json:"dependencies"`
	ExpectedDuration int64          `json:"expected_duration_ms"`
}

type rawEventMsg struct {
	Topic       string         `json:"topic"`
	Payload     map[string]any `json:"payload"`
	Priority    int            `json:"priority"`
	SourceAgent string         `json:"source_agent"`
}

// ParseDecision turns the oracle's raw textual output into a validated
// Decision. Free-text JSON is inherently untrusted: code fences are stripped,
// unparseable documents are run through jsonrepair once, workflows naming
// unknown agents are dropped (never guessed at), and unknown priorities are
// coerced to medium. A *core.PlannerMalformedError is returned when no valid
// Decision can be recovered; the planner substitutes the fallback then.
func ParseDecision(output string) (*core.Decision, []string, error) {
	text := stripFences(output)
	if strings.TrimSpace(text) == "" {
		return nil, nil, &core.PlannerMalformedError{Reason: "empty oracle output", Raw: truncate(output)}
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		repaired, repErr := jsonrepair.JSONRepair(text)
		if repErr != nil {
			return nil, nil, &core.PlannerMalformedError{Reason: "unparseable JSON: " + err.Error(), Raw: truncate(output)}
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return nil, nil, &core.PlannerMalformedError{Reason: "JSON invalid after repair: " + err.Error(), Raw: truncate(output)}
		}
	}

	if raw.Reasoning == nil {
		return nil, nil, &core.PlannerMalformedError{Reason: "missing required field: reasoning", Raw: truncate(output)}
	}

	decision := &core.Decision{Reasoning: *raw.Reasoning}
	var dropped []string

	for _, w := range raw.Workflows {
		agentID := core.AgentID(w.AgentID)
		if !core.IsKnownAgent(agentID) {
			dropped = append(dropped, w.AgentID)
			continue
		}
		priority := core.Priority(w.Priority)
		if !priority.Valid() {
			priority = core.PriorityMedium
		}
		deps := make([]core.AgentID, 0, len(w.Dependencies))
		for _, d := range w.Dependencies {
			deps = append(deps, core.AgentID(d))
		}
		if len(deps) == 0 {
			deps = nil
		}
		decision.Workflows = append(decision.Workflows, core.AgentWorkflow{
			AgentID:          agentID,
			Action:           w.Action,
			Parameters:       w.Parameters,
			Priority:         priority,
			Dependencies:     deps,
			ExpectedDuration: durationMs(w.ExpectedDuration),
		})
	}

	decision.ContextUpdates = raw.ContextUpdates
	for _, em := range raw.EventMessages {
		if em.Topic == "" {
			continue
		}
		decision.EventMessages = append(decision.EventMessages, core.EventMessage{
			Topic:   em.Topic,
			Payload: em.Payload,
			Metadata: core.MessageMetadata{
				Priority:    em.Priority,
				SourceAgent: core.AgentID(em.SourceAgent),
			},
		})
	}

	decision.Normalize()
	return decision, dropped, nil
}

func stripFences(s string) string {
	text := strings.TrimSpace(s)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func durationMs(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func truncate(s string) string {
	const max = 512
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
