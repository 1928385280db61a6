package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarelabs/orchestra/core"
)

func TestParseDecision_WellFormed(t *testing.T) {
	raw := `{
		"reasoning": "user wants transport",
		"workflows": [
			{"agent_id": "routing", "action": "plan_route", "parameters": {"destination": "airport"}, "priority": "high", "expected_duration_ms": 1500}
		],
		"context_updates": {"intent": "travel"},
		"event_messages": [
			{"topic": "user.travel.requested", "payload": {"destination": "airport"}, "priority": 2}
		]
	}`
	d, dropped, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Equal(t, "user wants transport", d.Reasoning)
	require.Len(t, d.Workflows, 1)
	assert.Equal(t, core.AgentRouting, d.Workflows[0].AgentID)
	assert.Equal(t, core.PriorityHigh, d.Workflows[0].Priority)
	assert.Equal(t, "travel", d.ContextUpdates["intent"])
	require.Len(t, d.EventMessages, 1)
	assert.Equal(t, "user.travel.requested", d.EventMessages[0].Topic)
}

func TestParseDecision_NeverNilCollections(t *testing.T) {
	d, _, err := ParseDecision(`{"reasoning": "nothing to do"}`)
	require.NoError(t, err)
	assert.NotNil(t, d.Workflows)
	assert.NotNil(t, d.ContextUpdates)
	assert.NotNil(t, d.EventMessages)
}

func TestParseDecision_StripsCodeFences(t *testing.T) {
	raw := "```json\n{\"reasoning\": \"fenced\", \"workflows\": []}\n```"
	d, _, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, "fenced", d.Reasoning)
}

func TestParseDecision_RepairsSloppyJSON(t *testing.T) {
	// Trailing comma and single quotes: typical oracle sloppiness.
	raw := `{'reasoning': 'repaired', 'workflows': [],}`
	d, _, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, "repaired", d.Reasoning)
}

func TestParseDecision_DropsUnknownAgents(t *testing.T) {
	raw := `{
		"reasoning": "mixed",
		"workflows": [
			{"agent_id": "timetravel", "action": "jump", "priority": "high"},
			{"agent_id": "discovery", "action": "search", "priority": "low"}
		]
	}`
	d, dropped, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"timetravel"}, dropped)
	require.Len(t, d.Workflows, 1)
	assert.Equal(t, core.AgentDiscovery, d.Workflows[0].AgentID)
}

func TestParseDecision_CoercesUnknownPriority(t *testing.T) {
	raw := `{"reasoning": "odd priority", "workflows": [{"agent_id": "escrow", "action": "hold", "priority": "urgent"}]}`
	d, _, err := ParseDecision(raw)
	require.NoError(t, err)
	require.Len(t, d.Workflows, 1)
	assert.Equal(t, core.PriorityMedium, d.Workflows[0].Priority)
}

func TestParseDecision_MalformedInput(t *testing.T) {
	for _, raw := range []string{"", "not json at all {{{", `{"workflows": []}`} {
		_, _, err := ParseDecision(raw)
		var malformed *core.PlannerMalformedError
		assert.ErrorAs(t, err, &malformed, "input %q", raw)
	}
}
