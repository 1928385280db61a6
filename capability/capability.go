package capability

import (
	"context"
	"sync"

	"github.com/wayfarelabs/orchestra/core"
	"github.com/wayfarelabs/orchestra/internal/util"
)

// Request is the narrow invocation contract between the executor and a
// downstream capability: an action name plus an opaque parameter map.
type Request struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Invoker adapts one downstream capability service to the invocation
// contract. Implementations should:
//   - Declare the action names they accept
//   - Expose a JSON-schema shaped parameter contract per action
//   - Dispatch to the collaborator without embedding business logic
//   - Be thread-safe; the executor invokes concurrently
type Invoker interface {
	// AgentID returns the capability name this invoker serves.
	AgentID() core.AgentID

	// Actions returns the accepted action names.
	Actions() []string

	// Parameters returns the parameter contract for an action, or nil if the
	// action takes no declared parameters.
	Parameters(action string) map[string]any

	// Invoke performs the downstream call and returns an opaque result map.
	Invoke(ctx context.Context, req Request) (map[string]any, error)
}

// Registry maps agent IDs to invokers. It is the only place new capabilities
// are added; the executor never changes when one is.
type Registry struct {
	mu       sync.RWMutex
	invokers map[core.AgentID]Invoker
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{invokers: make(map[core.AgentID]Invoker)}
}

// Register adds an invoker, replacing any previous one for the same agent ID.
func (r *Registry) Register(inv Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invokers[inv.AgentID()] = inv
}

// Get retrieves an invoker by agent ID.
func (r *Registry) Get(id core.AgentID) (Invoker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invokers[id]
	return inv, ok
}

// AgentIDs lists the registered capability names.
func (r *Registry) AgentIDs() []core.AgentID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]core.AgentID, 0, len(r.invokers))
	for id := range r.invokers {
		ids = append(ids, id)
	}
	return ids
}

// Invoke dispatches a request to the invoker registered for agentID.
// Unknown agent/action combinations return *core.UnknownCapabilityError;
// collaborator failures are wrapped in *core.AgentInvocationError.
func (r *Registry) Invoke(ctx context.Context, agentID core.AgentID, req Request) (map[string]any, error) {
	inv, ok := r.Get(agentID)
	if !ok {
		return nil, &core.UnknownCapabilityError{AgentID: agentID}
	}

	if !acceptsAction(inv, req.Action) {
		return nil, &core.UnknownCapabilityError{AgentID: agentID, Action: req.Action}
	}

	if schema := inv.Parameters(req.Action); schema != nil {
		if err := util.ValidateParameters(req.Parameters, schema); err != nil {
			return nil, &core.AgentInvocationError{AgentID: agentID, Action: req.Action, Err: err}
		}
	}

	result, err := inv.Invoke(ctx, req)
	if err != nil {
		// Preserve typed errors raised by the invoker itself.
		switch err.(type) {
		case *core.UnknownCapabilityError, *core.AgentInvocationError:
			return nil, err
		}
		return nil, &core.AgentInvocationError{AgentID: agentID, Action: req.Action, Err: err}
	}
	return result, nil
}

func acceptsAction(inv Invoker, action string) bool {
	for _, a := range inv.Actions() {
		if a == action {
			return true
		}
	}
	return false
}
