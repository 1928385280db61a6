package contextstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wayfarelabs/orchestra/core"
	"github.com/wayfarelabs/orchestra/logging"
)

// DefaultMaxAge is the inactivity threshold after which a context memory is
// evicted by the janitor.
const DefaultMaxAge = 24 * time.Hour

// DefaultSweepInterval is how often the janitor runs.
const DefaultSweepInterval = time.Hour

// Options configures an InMemoryStore.
type Options struct {
	// Profiles supplies the one-time user profile snapshot at session
	// creation. Defaults to a provider returning an empty profile.
	Profiles core.ProfileProvider

	// Signals supplies the one-time auxiliary signal snapshot at session
	// creation. Defaults to a provider returning no signals.
	Signals core.SignalProvider

	// MaxAge is the inactivity threshold used by the janitor.
	MaxAge time.Duration

	// SweepInterval is the janitor period.
	SweepInterval time.Duration

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// InMemoryStore is a volatile ContextStore keeping memories in a process
// local map keyed by "userID:sessionID". It is safe for concurrent access.
// GetOrCreate is the only allocation path; concurrent calls for the same key
// converge on a single instance.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*core.ContextMemory

	profiles core.ProfileProvider
	signals  core.SignalProvider
	logger   logging.Logger

	maxAge        time.Duration
	sweepInterval time.Duration

	janitorOnce sync.Once
	done        chan struct{}
}

var _ core.ContextStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory context store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{
		Profiles:      StaticProfileProvider{},
		Signals:       StaticSignalProvider{},
		MaxAge:        DefaultMaxAge,
		SweepInterval: DefaultSweepInterval,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{
		entries:       make(map[string]*core.ContextMemory),
		profiles:      opts.Profiles,
		signals:       opts.Signals,
		logger:        opts.Logger,
		maxAge:        opts.MaxAge,
		sweepInterval: opts.SweepInterval,
		done:          make(chan struct{}),
	}
}

func key(userID, sessionID string) string { return userID + ":" + sessionID }

// GetOrCreate returns the memory for (userID, sessionID), creating it lazily
// on first use. The collaborator snapshots are fetched outside the lock and
// installed with an atomic upsert: if another goroutine won the race the
// already installed memory is returned and the freshly built one discarded.
func (s *InMemoryStore) GetOrCreate(ctx context.Context, userID, sessionID string) (*core.ContextMemory, error) {
	k := key(userID, sessionID)

	s.mu.RLock()
	mem, ok := s.entries[k]
	s.mu.RUnlock()
	if ok {
		return mem, nil
	}

	fresh := core.NewContextMemory(userID, sessionID)

	profile, err := s.profiles.FetchProfile(ctx, userID)
	if err != nil {
		// A session without a profile snapshot is still usable; the planner
		// simply reasons with less context.
		s.logger.Warn("context store: profile fetch failed user=%s: %v", userID, err)
	} else {
		fresh.Profile = profile
	}

	signals, err := s.signals.FetchSignals(ctx, userID)
	if err != nil {
		s.logger.Warn("context store: signal fetch failed user=%s: %v", userID, err)
	} else {
		fresh.AddSignals(signals...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[k]; ok {
		return existing, nil
	}
	s.entries[k] = fresh
	s.logger.Debug("context store: created memory user=%s session=%s", userID, sessionID)
	return fresh, nil
}

// Append records a completed turn and merges the decision's context updates.
// The state delta is merged before the interaction is appended, so a reader
// that observes the turn also observes its context updates.
func (s *InMemoryStore) Append(userID, sessionID string, in core.Interaction, contextUpdates map[string]any) error {
	s.mu.RLock()
	mem, ok := s.entries[key(userID, sessionID)]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("context store: no memory for user %q session %q", userID, sessionID)
	}
	mem.MergeState(contextUpdates)
	mem.AppendInteraction(in)
	return nil
}

// Sweep evicts every memory whose last activity is older than maxAge and
// returns how many were evicted. Running it twice in a row is harmless; the
// second pass finds nothing to evict.
func (s *InMemoryStore) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for k, mem := range s.entries {
		if mem.LastActivity().Before(cutoff) {
			delete(s.entries, k)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Info("context store: swept %d stale memories", evicted)
	}
	return evicted
}

// Len returns the number of live context memories.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartJanitor launches the periodic sweep goroutine. Safe to call once;
// subsequent calls are no-ops.
func (s *InMemoryStore) StartJanitor() {
	s.janitorOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(s.sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-s.done:
					return
				case <-ticker.C:
					s.Sweep(s.maxAge)
				}
			}
		}()
	})
}

// Stop terminates the janitor goroutine if it was started.
func (s *InMemoryStore) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// StaticProfileProvider returns a fixed profile for every user. The zero
// value returns an empty profile, which is the default collaborator when the
// surrounding product has not wired a real profile service.
type StaticProfileProvider struct {
	Profile core.UserProfile
}

// FetchProfile implements core.ProfileProvider.
func (p StaticProfileProvider) FetchProfile(_ context.Context, _ string) (core.UserProfile, error) {
	return p.Profile, nil
}

// StaticSignalProvider returns a fixed signal snapshot for every user. The
// zero value returns no signals.
type StaticSignalProvider struct {
	Signals []map[string]any
}

// FetchSignals implements core.SignalProvider.
func (p StaticSignalProvider) FetchSignals(_ context.Context, _ string) ([]map[string]any, error) {
	return p.Signals, nil
}

var (
	_ core.ProfileProvider = StaticProfileProvider{}
	_ core.SignalProvider  = StaticSignalProvider{}
)
