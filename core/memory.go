package core

import (
	"context"
	"sync"
	"time"
)

// Interaction is one completed turn in a session: the inbound action, the
// decision the planner produced for it and the per-agent results the executor
// collected. Interactions are appended only after every workflow in the turn
// has settled, so a turn is never visible half-updated.
type Interaction struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Action       Action          `json:"action"`
	Decision     *Decision       `json:"decision,omitempty"`
	AgentResults map[AgentID]any `json:"agent_results,omitempty"`
}

// UserProfile is the snapshot fetched from the profile collaborator exactly
// once, when a session's context memory is first created.
type UserProfile struct {
	Preferences        map[string]any   `json:"preferences,omitempty"`
	TrustNetwork       []string         `json:"trust_network,omitempty"`
	TransactionHistory []map[string]any `json:"transaction_history,omitempty"`
	TravelPatterns     []map[string]any `json:"travel_patterns,omitempty"`
}

// ContextMemory accumulates per-(user, session) reasoning state: an
// append-only conversation history, the user profile snapshot, currently
// active workflows, auxiliary signal records and a merged key/value state
// that decision context updates land in. It is safe for concurrent access.
//
// Contract:
//   - Conversation is append-only within a session
//   - AppendInteraction and MergeState update the Updated timestamp
//   - Clone performs deep copies of maps/slices for safe divergence
type ContextMemory struct {
	UserID           string           `json:"user_id"`
	SessionID        string           `json:"session_id"`
	Conversation     []Interaction    `json:"conversation"`
	Profile          UserProfile      `json:"profile"`
	ActiveWorkflows  []AgentWorkflow  `json:"active_workflows"`
	AuxiliarySignals []map[string]any `json:"auxiliary_signals"`
	State            map[string]any   `json:"state"`
	Created          time.Time        `json:"created"`
	Updated          time.Time        `json:"updated"`
	mu               sync.RWMutex
}

// NewContextMemory creates an empty memory for the given user and session.
func NewContextMemory(userID, sessionID string) *ContextMemory {
	now := time.Now().UTC()
	return &ContextMemory{
		UserID:           userID,
		SessionID:        sessionID,
		Conversation:     []Interaction{},
		ActiveWorkflows:  []AgentWorkflow{},
		AuxiliarySignals: []map[string]any{},
		State:            map[string]any{},
		Created:          now,
		Updated:          now,
	}
}

// AppendInteraction appends a completed turn and replaces the active workflow
// list with the turn's workflows in a single critical section, so readers
// never observe the turn without its workflow bookkeeping.
func (m *ContextMemory) AppendInteraction(in Interaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Conversation = append(m.Conversation, in)
	if in.Decision != nil {
		m.ActiveWorkflows = append([]AgentWorkflow{}, in.Decision.Workflows...)
	}
	m.Updated = time.Now().UTC()
}

// MergeState folds the provided key/value delta into the memory state.
func (m *ContextMemory) MergeState(delta map[string]any) {
	if len(delta) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range delta {
		m.State[k] = v
	}
	m.Updated = time.Now().UTC()
}

// AddSignals appends auxiliary signal records (opaque to the engine).
func (m *ContextMemory) AddSignals(signals ...map[string]any) {
	if len(signals) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuxiliarySignals = append(m.AuxiliarySignals, signals...)
	m.Updated = time.Now().UTC()
}

// LastActivity returns the timestamp of the most recent conversation turn, or
// the creation time for a session that has not completed a turn yet. The
// sweep uses this to decide eviction.
func (m *ContextMemory) LastActivity() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n := len(m.Conversation); n > 0 {
		return m.Conversation[n-1].Timestamp
	}
	return m.Created
}

// RecentTurns returns up to n most recent completed turns, oldest first.
func (m *ContextMemory) RecentTurns(n int) []Interaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || len(m.Conversation) == 0 {
		return nil
	}
	start := len(m.Conversation) - n
	if start < 0 {
		start = 0
	}
	out := make([]Interaction, len(m.Conversation)-start)
	copy(out, m.Conversation[start:])
	return out
}

// Clone returns a deep copy of the memory safe for independent mutation.
func (m *ContextMemory) Clone() *ContextMemory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clone := &ContextMemory{
		UserID:           m.UserID,
		SessionID:        m.SessionID,
		Conversation:     make([]Interaction, len(m.Conversation)),
		Profile:          m.Profile,
		ActiveWorkflows:  make([]AgentWorkflow, len(m.ActiveWorkflows)),
		AuxiliarySignals: make([]map[string]any, len(m.AuxiliarySignals)),
		State:            make(map[string]any, len(m.State)),
		Created:          m.Created,
		Updated:          m.Updated,
	}
	copy(clone.Conversation, m.Conversation)
	copy(clone.ActiveWorkflows, m.ActiveWorkflows)
	copy(clone.AuxiliarySignals, m.AuxiliarySignals)
	for k, v := range m.State {
		clone.State[k] = v
	}
	return clone
}

// ContextStore is the single allocation and mutation path for context
// memories. Implementations must guarantee that concurrent GetOrCreate calls
// for the same (userID, sessionID) never produce divergent instances.
type ContextStore interface {
	// GetOrCreate returns the memory for (userID, sessionID), creating it on
	// first use. Creation fetches the user profile and auxiliary signal
	// snapshots from their collaborators exactly once per session.
	GetOrCreate(ctx context.Context, userID, sessionID string) (*ContextMemory, error)

	// Append records a completed turn and merges the decision's context
	// updates in one step (all-or-nothing per turn).
	Append(userID, sessionID string, in Interaction, contextUpdates map[string]any) error

	// Sweep evicts every memory whose last activity is older than maxAge and
	// returns the number of evicted entries. Safe to call concurrently with
	// reads and writes, and idempotent.
	Sweep(maxAge time.Duration) int

	// Len returns the number of live context memories.
	Len() int
}

// ProfileProvider fetches the initial user profile snapshot when a session is
// created. It is an external collaborator boundary.
type ProfileProvider interface {
	FetchProfile(ctx context.Context, userID string) (UserProfile, error)
}

// SignalProvider fetches the initial auxiliary signal snapshot when a session
// is created. It is an external collaborator boundary.
type SignalProvider interface {
	FetchSignals(ctx context.Context, userID string) ([]map[string]any, error)
}
