package planner

import (
	"context"
	"strings"
	"sync"
)

// Request captures the normalized oracle input produced by the planner.
type Request struct {
	Instructions string `json:"instructions"` // fixed system contract
	Prompt       string `json:"prompt"`       // the context bundle
}

// Info contains metadata about an oracle implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Oracle is the minimal interface the planner needs to drive intent
// reasoning. Implementations call a hosted model; MockOracle serves tests.
type Oracle interface {
	// Complete returns the oracle's raw textual response for the request.
	Complete(ctx context.Context, req Request) (string, error)

	// Info returns information about the oracle implementation.
	Info() Info
}

// MockOracle is a lightweight in-memory Oracle useful for tests & examples.
// Exact-match responses are checked first, then substring rules in
// registration order, then the default response.
type MockOracle struct {
	mu        sync.Mutex
	responses map[string]string
	rules     []mockRule
	fallback  string
	err       error
	calls     []Request
}

type mockRule struct {
	substring string
	response  string
}

// NewMockOracle constructs a MockOracle whose default response is an empty
// decision document.
func NewMockOracle() *MockOracle {
	return &MockOracle{
		responses: make(map[string]string),
		fallback:  `{"reasoning":"no rule matched","workflows":[],"context_updates":{},"event_messages":[]}`,
	}
}

// AddResponse registers a deterministic canned response for an exact prompt.
func (m *MockOracle) AddResponse(prompt, response string) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
	return m
}

// AddRule registers a response returned whenever the prompt contains the
// given substring. Rules are evaluated in registration order.
func (m *MockOracle) AddRule(substring, response string) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{substring: substring, response: response})
	return m
}

// SetDefault overrides the response used when nothing matches.
func (m *MockOracle) SetDefault(response string) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
	return m
}

// FailWith makes every Complete call return err, simulating an unreachable
// oracle.
func (m *MockOracle) FailWith(err error) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Calls returns the requests observed so far.
func (m *MockOracle) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Complete implements Oracle.
func (m *MockOracle) Complete(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return "", m.err
	}
	if resp, ok := m.responses[req.Prompt]; ok {
		return resp, nil
	}
	for _, rule := range m.rules {
		if strings.Contains(req.Prompt, rule.substring) {
			return rule.response, nil
		}
	}
	return m.fallback, nil
}

// Info implements Oracle.
func (m *MockOracle) Info() Info { return Info{Name: "mock", Provider: "mock"} }

var _ Oracle = (*MockOracle)(nil)
