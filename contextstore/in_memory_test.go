package contextstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarelabs/orchestra/core"
)

func TestGetOrCreate_FetchesSnapshotsOnce(t *testing.T) {
	profile := core.UserProfile{Preferences: map[string]any{"lang": "en"}}
	signals := []map[string]any{{"kind": "weather", "value": "sunny"}}
	store := NewInMemoryStore(func(o *Options) {
		o.Profiles = StaticProfileProvider{Profile: profile}
		o.Signals = StaticSignalProvider{Signals: signals}
	})

	mem, err := store.GetOrCreate(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "en", mem.Profile.Preferences["lang"])
	assert.Len(t, mem.AuxiliarySignals, 1)

	again, err := store.GetOrCreate(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Same(t, mem, again)
	assert.Equal(t, 1, store.Len())
}

func TestGetOrCreate_ConcurrentSingleInstance(t *testing.T) {
	store := NewInMemoryStore()

	const n = 32
	results := make([]*core.ContextMemory, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			mem, err := store.GetOrCreate(context.Background(), "u1", "s1")
			assert.NoError(t, err)
			results[i] = mem
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i], "divergent memory at index %d", i)
	}
	assert.Equal(t, 1, store.Len())
}

func TestAppend_MergesUpdatesWithTurn(t *testing.T) {
	store := NewInMemoryStore()
	mem, err := store.GetOrCreate(context.Background(), "u1", "s1")
	require.NoError(t, err)

	in := core.Interaction{
		ID:        core.NewID(),
		Timestamp: time.Now().UTC(),
		Action:    core.NewChatAction("u1", "s1", "hi"),
		Decision:  core.FallbackDecision(),
	}
	err = store.Append("u1", "s1", in, map[string]any{"mood": "curious"})
	require.NoError(t, err)

	assert.Len(t, mem.Conversation, 1)
	assert.Equal(t, "curious", mem.State["mood"])
}

func TestAppend_UnknownSession(t *testing.T) {
	store := NewInMemoryStore()
	err := store.Append("nobody", "nowhere", core.Interaction{}, nil)
	assert.Error(t, err)
}

func TestSweep_EvictsStaleOnly(t *testing.T) {
	store := NewInMemoryStore()
	stale, err := store.GetOrCreate(context.Background(), "u1", "old")
	require.NoError(t, err)
	stale.AppendInteraction(core.Interaction{
		ID:        core.NewID(),
		Timestamp: time.Now().UTC().Add(-48 * time.Hour),
	})

	fresh, err := store.GetOrCreate(context.Background(), "u1", "new")
	require.NoError(t, err)
	fresh.AppendInteraction(core.Interaction{
		ID:        core.NewID(),
		Timestamp: time.Now().UTC(),
	})

	evicted := store.Sweep(24 * time.Hour)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, store.Len())
}

func TestSweep_IdempotentOnEmptyStore(t *testing.T) {
	store := NewInMemoryStore()
	assert.Equal(t, 0, store.Sweep(0))
	assert.Equal(t, 0, store.Sweep(0))
}

func TestSweep_ZeroAgeEvictsEverythingOnce(t *testing.T) {
	store := NewInMemoryStore()
	mem, err := store.GetOrCreate(context.Background(), "u1", "s1")
	require.NoError(t, err)
	mem.AppendInteraction(core.Interaction{ID: core.NewID(), Timestamp: time.Now().UTC().Add(-time.Second)})

	assert.Equal(t, 1, store.Sweep(0))
	assert.Equal(t, 0, store.Sweep(0))
}
