package orchestra

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarelabs/orchestra/core"
	"github.com/wayfarelabs/orchestra/planner"
)

const transportDecision = `{
	"reasoning": "user needs transport to the airport",
	"workflows": [
		{"agent_id": "routing", "action": "plan_route", "parameters": {"destination": "airport"}, "priority": "high"}
	],
	"context_updates": {"last_intent": "transport"},
	"event_messages": [
		{"topic": "travel.route.requested", "payload": {"destination": "airport"}, "priority": 1}
	]
}`

func TestAnalyze_TransportRequest(t *testing.T) {
	oracle := planner.NewMockOracle().AddRule("airport", transportDecision)
	o := New(func(opts *Options) { opts.Oracle = oracle })

	ctx := context.Background()
	decision, err := o.Analyze(ctx, core.NewChatAction("u1", "s1", "book me transport to the airport"))
	require.NoError(t, err)
	require.Len(t, decision.Workflows, 1)
	assert.Equal(t, core.AgentRouting, decision.Workflows[0].AgentID)

	// The turn is recorded with settled per-agent results and merged state.
	mem, err := o.Store().GetOrCreate(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Len(t, mem.Conversation, 1)
	turn := mem.Conversation[0]
	require.Contains(t, turn.AgentResults, core.AgentRouting)
	result := turn.AgentResults[core.AgentRouting].(map[string]any)
	assert.Equal(t, "rt-1", result["route_id"])
	assert.Equal(t, "transport", mem.State["last_intent"])
}

func TestAnalyze_PublishesDecisionEvents(t *testing.T) {
	oracle := planner.NewMockOracle().AddRule("airport", transportDecision)
	o := New(func(opts *Options) { opts.Oracle = oracle })

	var mu sync.Mutex
	var topics []string
	o.Bus().OnPublish(func(msg core.EventMessage) {
		mu.Lock()
		defer mu.Unlock()
		topics = append(topics, msg.Topic)
	})

	_, err := o.Analyze(context.Background(), core.NewChatAction("u1", "s1", "book me transport to the airport"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, topics, "travel.route.requested")
	assert.Contains(t, topics, "agent.workflow.complete")

	// travel.* is a significant family, so the decision event was also queued
	// for analytics.
	assert.Equal(t, 1, o.Aggregator().BacklogDepth())
}

func TestAnalyze_PlannerUnavailableSkipsOrchestration(t *testing.T) {
	oracle := planner.NewMockOracle().FailWith(errors.New("connection refused"))
	o := New(func(opts *Options) { opts.Oracle = oracle })

	decision, err := o.Analyze(context.Background(), core.NewChatAction("u1", "s1", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "orchestration skipped", decision.Reasoning)
	assert.Empty(t, decision.Workflows)
}

func TestAnalyze_MalformedOracleOutputFallsBack(t *testing.T) {
	oracle := planner.NewMockOracle().SetDefault("sorry, I cannot help with that")
	o := New(func(opts *Options) { opts.Oracle = oracle })

	decision, err := o.Analyze(context.Background(), core.NewChatAction("u1", "s1", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "fallback", decision.Reasoning)
}

func TestAnalyze_ConversationAccumulates(t *testing.T) {
	o := New()

	ctx := context.Background()
	for _, msg := range []string{"hi", "show me boots", "thanks"} {
		_, err := o.Analyze(ctx, core.NewChatAction("u1", "s1", msg))
		require.NoError(t, err)
	}

	mem, err := o.Store().GetOrCreate(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Len(t, mem.Conversation, 3)

	// A different session starts clean.
	other, err := o.Store().GetOrCreate(ctx, "u1", "s2")
	require.NoError(t, err)
	assert.Empty(t, other.Conversation)
}

func TestStartStop(t *testing.T) {
	o := New()
	o.Start()
	o.Stop()
	o.Stop() // idempotent
}
