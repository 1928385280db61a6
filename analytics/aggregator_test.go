package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarelabs/orchestra/core"
)

func msg(topic string, payload map[string]any, source core.AgentID) core.EventMessage {
	return core.EventMessage{
		Topic:   topic,
		Payload: payload,
		Metadata: core.MessageMetadata{
			SourceAgent:   source,
			Timestamp:     time.Now(),
			CorrelationID: core.NewID(),
		},
	}
}

func TestSignificant(t *testing.T) {
	agg := New()
	assert.True(t, agg.Significant(msg("transaction.completed", nil, "")))
	assert.True(t, agg.Significant(msg("user.signup", nil, "")))
	assert.True(t, agg.Significant(msg("travel.route.planned", nil, "")))
	assert.False(t, agg.Significant(msg("agent.workflow.complete", nil, "")))
	assert.False(t, agg.Significant(msg("heartbeat", nil, "")))
}

func TestSignificant_CustomFamilies(t *testing.T) {
	agg := New(func(o *Options) { o.SignificantFamilies = []string{"agent"} })
	assert.True(t, agg.Significant(msg("agent.workflow.error", nil, "")))
	assert.False(t, agg.Significant(msg("transaction.completed", nil, "")))
}

func TestRunBatchCycle_EmptyBacklog(t *testing.T) {
	sink := NewMockSink()
	agg := New(func(o *Options) { o.Sink = sink })

	result, err := agg.RunBatchCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.ProcessedCount)
	assert.Empty(t, result.Insights)
	assert.False(t, result.Timestamp.IsZero())
	assert.Empty(t, sink.Batches(), "empty backlog must not touch the sink")
}

func TestRunBatchCycle_GroupsAndInsights(t *testing.T) {
	sink := NewMockSink()
	agg := New(func(o *Options) { o.Sink = sink })

	agg.QueueForAnalytics(msg("transaction.completed", map[string]any{"location": "lisbon"}, core.AgentEscrow))
	agg.QueueForAnalytics(msg("transaction.refunded", nil, core.AgentEscrow))
	agg.QueueForAnalytics(msg("travel.route.planned", map[string]any{"location": "lisbon"}, core.AgentRouting))
	agg.QueueForAnalytics(msg("user.signup", nil, ""))

	result, err := agg.RunBatchCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.ProcessedCount)

	counts := result.Insights["event_counts"].(map[string]int)
	assert.Equal(t, map[string]int{"transaction": 2, "travel": 1, "user": 1}, counts)

	locations := result.Insights["location_activity"].(map[string]int)
	assert.Equal(t, map[string]int{"lisbon": 2}, locations)

	utilization := result.Insights["capability_utilization"].(map[string]float64)
	assert.InDelta(t, 2.0/3.0, utilization["escrow"], 1e-9)
	assert.InDelta(t, 1.0/3.0, utilization["routing"], 1e-9)

	require.Len(t, sink.Batches(), 1)
	batch := sink.Batches()[0]
	assert.Len(t, batch.Groups["transaction"], 2)
	assert.Len(t, batch.Groups["travel"], 1)

	assert.Zero(t, agg.BacklogDepth(), "cycle clears the backlog")
}

func TestRunBatchCycle_SinkFailure(t *testing.T) {
	sink := NewMockSink().FailWith(errors.New("warehouse offline"))
	agg := New(func(o *Options) { o.Sink = sink })

	agg.QueueForAnalytics(msg("transaction.completed", nil, core.AgentEscrow))

	result, err := agg.RunBatchCycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, result.ProcessedCount, "insights still derived")
	assert.Zero(t, agg.BacklogDepth(), "failed batch is dropped, not replayed")
}

func TestScheduler_RunsCycles(t *testing.T) {
	sink := NewMockSink()
	agg := New(func(o *Options) {
		o.Sink = sink
		o.CycleInterval = 10 * time.Millisecond
	})
	defer agg.Stop()

	agg.QueueForAnalytics(msg("transaction.completed", nil, core.AgentEscrow))
	agg.StartScheduler()

	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}
