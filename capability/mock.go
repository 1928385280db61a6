package capability

import (
	"context"
	"sync"

	"github.com/wayfarelabs/orchestra/core"
)

// MockInvoker is a lightweight in-memory Invoker useful for tests and
// examples. Responses are canned per action; unknown actions fail the same
// way a real invoker would.
type MockInvoker struct {
	mu        sync.Mutex
	agentID   core.AgentID
	responses map[string]map[string]any
	errs      map[string]error
	calls     []Request
}

// NewMockInvoker constructs a MockInvoker for the given capability.
func NewMockInvoker(agentID core.AgentID) *MockInvoker {
	return &MockInvoker{
		agentID:   agentID,
		responses: make(map[string]map[string]any),
		errs:      make(map[string]error),
	}
}

// AddResponse registers a canned result for an action.
func (m *MockInvoker) AddResponse(action string, result map[string]any) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[action] = result
	return m
}

// AddError makes an action fail with the given error.
func (m *MockInvoker) AddError(action string, err error) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[action] = err
	// The action still counts as accepted so the failure surfaces as an
	// invocation error, not an unknown capability.
	if _, ok := m.responses[action]; !ok {
		m.responses[action] = nil
	}
	return m
}

// Calls returns the requests observed so far.
func (m *MockInvoker) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// AgentID implements Invoker.
func (m *MockInvoker) AgentID() core.AgentID { return m.agentID }

// Actions implements Invoker.
func (m *MockInvoker) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, 0, len(m.responses))
	for a := range m.responses {
		actions = append(actions, a)
	}
	return actions
}

// Parameters implements Invoker; mocks declare no parameter contract.
func (m *MockInvoker) Parameters(string) map[string]any { return nil }

// Invoke implements Invoker.
func (m *MockInvoker) Invoke(_ context.Context, req Request) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if err, ok := m.errs[req.Action]; ok {
		return nil, err
	}
	result, ok := m.responses[req.Action]
	if !ok {
		return nil, &core.UnknownCapabilityError{AgentID: m.agentID, Action: req.Action}
	}
	if result == nil {
		return map[string]any{}, nil
	}
	return result, nil
}

var _ Invoker = (*MockInvoker)(nil)

// NewMockRegistry returns a registry with mock invokers for the whole fixed
// capability set, each canned with a generic success result. Handy default
// for examples and the scenario harness.
func NewMockRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewMockInvoker(core.AgentEscrow).
		AddResponse("hold", map[string]any{"escrow_id": "esc-1", "status": "held"}).
		AddResponse("release", map[string]any{"status": "released"}).
		AddResponse("refund", map[string]any{"status": "refunded"}))
	r.Register(NewMockInvoker(core.AgentDiscovery).
		AddResponse("search", map[string]any{"results": []any{}}).
		AddResponse("recommend", map[string]any{"items": []any{}}))
	r.Register(NewMockInvoker(core.AgentRouting).
		AddResponse("plan_route", map[string]any{"route_id": "rt-1", "eta_minutes": 12.0}).
		AddResponse("estimate_arrival", map[string]any{"eta_minutes": 12.0}))
	r.Register(NewMockInvoker(core.AgentPlanning).
		AddResponse("parse_itinerary", map[string]any{"stops": []any{}}).
		AddResponse("build_itinerary", map[string]any{"itinerary_id": "it-1"}))
	return r
}
