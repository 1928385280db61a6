package executor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarelabs/orchestra/capability"
	"github.com/wayfarelabs/orchestra/core"
	"github.com/wayfarelabs/orchestra/eventbus"
)

// orderInvoker records the order agents were invoked in across a registry.
type orderInvoker struct {
	id  core.AgentID
	mu  *sync.Mutex
	log *[]core.AgentID
}

func (o *orderInvoker) AgentID() core.AgentID            { return o.id }
func (o *orderInvoker) Actions() []string                { return []string{"run"} }
func (o *orderInvoker) Parameters(string) map[string]any { return nil }

func (o *orderInvoker) Invoke(_ context.Context, _ capability.Request) (map[string]any, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	*o.log = append(*o.log, o.id)
	return map[string]any{"ok": true}, nil
}

func orderRegistry(log *[]core.AgentID, mu *sync.Mutex) *capability.Registry {
	r := capability.NewRegistry()
	for _, id := range core.KnownAgents {
		r.Register(&orderInvoker{id: id, mu: mu, log: log})
	}
	return r
}

func wf(id core.AgentID, prio core.Priority, deps ...core.AgentID) core.AgentWorkflow {
	return core.AgentWorkflow{AgentID: id, Action: "run", Priority: prio, Dependencies: deps}
}

func TestExecute_PriorityOrderIsStable(t *testing.T) {
	var mu sync.Mutex
	var log []core.AgentID
	ex := New(orderRegistry(&log, &mu), nil, func(o *Options) { o.MaxParallel = 1 })

	results := ex.Execute(context.Background(), []core.AgentWorkflow{
		wf(core.AgentEscrow, core.PriorityLow),
		wf(core.AgentDiscovery, core.PriorityHigh),
		wf(core.AgentRouting, core.PriorityCritical),
		wf(core.AgentPlanning, core.PriorityHigh),
	})

	// critical first, the two high workflows keep their relative order.
	assert.Equal(t, []core.AgentID{core.AgentRouting, core.AgentDiscovery, core.AgentPlanning, core.AgentEscrow}, log)
	assert.Len(t, results, 4)
}

func TestExecute_DependencyGating(t *testing.T) {
	var mu sync.Mutex
	var log []core.AgentID
	ex := New(orderRegistry(&log, &mu), nil)

	ex.Execute(context.Background(), []core.AgentWorkflow{
		wf(core.AgentPlanning, core.PriorityCritical, core.AgentRouting),
		wf(core.AgentRouting, core.PriorityLow),
	})

	// Planning outranks routing but must wait for it.
	assert.Equal(t, []core.AgentID{core.AgentRouting, core.AgentPlanning}, log)
}

func TestExecute_DependencyOnFailedWorkflowStillRuns(t *testing.T) {
	registry := capability.NewRegistry()
	registry.Register(capability.NewMockInvoker(core.AgentEscrow).AddError("run", errors.New("escrow down")))
	registry.Register(capability.NewMockInvoker(core.AgentDiscovery).AddResponse("run", map[string]any{"ok": true}))
	ex := New(registry, nil)

	results := ex.Execute(context.Background(), []core.AgentWorkflow{
		wf(core.AgentEscrow, core.PriorityHigh),
		wf(core.AgentDiscovery, core.PriorityMedium, core.AgentEscrow),
	})

	require.Len(t, results, 2)
	failed, ok := results[core.AgentEscrow].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, failed["error"], "escrow down")
	assert.Equal(t, map[string]any{"ok": true}, results[core.AgentDiscovery])
}

func TestExecute_AbsentDependencyIsSatisfied(t *testing.T) {
	var mu sync.Mutex
	var log []core.AgentID
	ex := New(orderRegistry(&log, &mu), nil)

	results := ex.Execute(context.Background(), []core.AgentWorkflow{
		wf(core.AgentPlanning, core.PriorityMedium, core.AgentEscrow),
	})

	assert.Len(t, results, 1)
	assert.Equal(t, []core.AgentID{core.AgentPlanning}, log)
}

func TestExecute_CycleRunsAnyway(t *testing.T) {
	var mu sync.Mutex
	var log []core.AgentID
	ex := New(orderRegistry(&log, &mu), nil)

	results := ex.Execute(context.Background(), []core.AgentWorkflow{
		wf(core.AgentEscrow, core.PriorityMedium, core.AgentDiscovery),
		wf(core.AgentDiscovery, core.PriorityMedium, core.AgentEscrow),
	})

	assert.Len(t, results, 2)
	assert.Len(t, log, 2)
}

func TestExecute_PublishesLifecycleEvents(t *testing.T) {
	registry := capability.NewRegistry()
	registry.Register(capability.NewMockInvoker(core.AgentRouting).AddResponse("run", map[string]any{"ok": true}))
	registry.Register(capability.NewMockInvoker(core.AgentEscrow).AddError("run", errors.New("escrow down")))

	bus := eventbus.New()
	var mu sync.Mutex
	events := make(map[string]core.EventMessage)
	bus.OnPublish(func(msg core.EventMessage) {
		mu.Lock()
		defer mu.Unlock()
		events[msg.Topic] = msg
	})

	ex := New(registry, bus)
	ex.Execute(context.Background(), []core.AgentWorkflow{
		wf(core.AgentRouting, core.PriorityHigh),
		wf(core.AgentEscrow, core.PriorityHigh),
	})

	mu.Lock()
	defer mu.Unlock()
	complete, ok := events[TopicWorkflowComplete]
	require.True(t, ok)
	assert.Equal(t, "routing", complete.Payload["agent_id"])
	assert.Equal(t, core.AgentRouting, complete.Metadata.SourceAgent)

	failed, ok := events[TopicWorkflowError]
	require.True(t, ok)
	assert.Equal(t, "escrow", failed.Payload["agent_id"])
	assert.Contains(t, failed.Payload["error"], "escrow down")
	assert.Equal(t, 2, failed.Metadata.Priority)
}

func TestExecute_UnknownCapabilityRecordedAsError(t *testing.T) {
	ex := New(capability.NewRegistry(), nil)

	results := ex.Execute(context.Background(), []core.AgentWorkflow{
		wf(core.AgentRouting, core.PriorityHigh),
	})

	failed, ok := results[core.AgentRouting].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, failed["error"], "routing")
}
