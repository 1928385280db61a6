package executor

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wayfarelabs/orchestra/capability"
	"github.com/wayfarelabs/orchestra/core"
	"github.com/wayfarelabs/orchestra/eventbus"
	"github.com/wayfarelabs/orchestra/logging"
)

// Lifecycle topics published for every executed workflow.
const (
	TopicWorkflowComplete = "agent.workflow.complete"
	TopicWorkflowError    = "agent.workflow.error"
)

// DefaultMaxParallel bounds how many workflows of one stage run concurrently.
const DefaultMaxParallel = 4

// Options configures an Executor.
type Options struct {
	// MaxParallel bounds concurrent workflow execution within a stage.
	MaxParallel int

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Executor dispatches agent workflows against a capability registry and
// publishes lifecycle events on the bus.
type Executor struct {
	registry *capability.Registry
	bus      *eventbus.Bus
	opts     Options
	logger   logging.Logger
}

// New constructs an Executor. The bus may be nil when lifecycle events are
// not wired.
func New(registry *capability.Registry, bus *eventbus.Bus, optFns ...func(o *Options)) *Executor {
	opts := Options{
		MaxParallel: DefaultMaxParallel,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	return &Executor{registry: registry, bus: bus, opts: opts, logger: opts.Logger}
}

// Execute runs one batch of workflows and returns the per-agent results.
// Failed workflows contribute an {"error": ...} entry instead of an output;
// the error itself has already been published as TopicWorkflowError.
//
// Ordering: the batch is stable-sorted by priority rank, then executed in
// stages. A stage holds every not-yet-run workflow whose in-batch
// dependencies have all settled; dependencies naming agents outside the batch
// are trivially satisfied. When no workflow is ready but some remain (a
// dependency cycle), the remainder runs as a final stage.
func (e *Executor) Execute(ctx context.Context, workflows []core.AgentWorkflow) map[core.AgentID]any {
	sorted := make([]core.AgentWorkflow, len(workflows))
	copy(sorted, workflows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority.Rank() < sorted[j].Priority.Rank()
	})

	inBatch := make(map[core.AgentID]bool, len(sorted))
	for _, w := range sorted {
		inBatch[w.AgentID] = true
	}

	var mu sync.Mutex
	results := make(map[core.AgentID]any, len(sorted))
	settled := make(map[core.AgentID]bool, len(sorted))

	remaining := sorted
	for len(remaining) > 0 {
		var stage, blocked []core.AgentWorkflow
		for _, w := range remaining {
			if depsSettled(w, inBatch, settled) {
				stage = append(stage, w)
			} else {
				blocked = append(blocked, w)
			}
		}
		if len(stage) == 0 {
			e.logger.Warn("executor: dependency cycle among %d workflows, running them anyway", len(blocked))
			stage, blocked = blocked, nil
		}

		g := new(errgroup.Group)
		g.SetLimit(e.opts.MaxParallel)
		for _, w := range stage {
			g.Go(func() error {
				out := e.runOne(ctx, w)
				mu.Lock()
				results[w.AgentID] = out
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		for _, w := range stage {
			settled[w.AgentID] = true
		}
		remaining = blocked
	}

	return results
}

func depsSettled(w core.AgentWorkflow, inBatch, settled map[core.AgentID]bool) bool {
	for _, dep := range w.Dependencies {
		if inBatch[dep] && !settled[dep] {
			return false
		}
	}
	return true
}

func (e *Executor) runOne(ctx context.Context, w core.AgentWorkflow) any {
	start := time.Now()
	out, err := e.registry.Invoke(ctx, w.AgentID, capability.Request{
		Action:     w.Action,
		Parameters: w.Parameters,
	})
	if err != nil {
		e.logger.Warn("executor: workflow failed agent=%s action=%s duration=%s: %v",
			w.AgentID, w.Action, time.Since(start), err)
		e.publish(TopicWorkflowError, map[string]any{
			"agent_id": string(w.AgentID),
			"action":   w.Action,
			"error":    err.Error(),
		}, w.AgentID, 2)
		return map[string]any{"error": err.Error()}
	}

	e.logger.Debug("executor: workflow complete agent=%s action=%s duration=%s",
		w.AgentID, w.Action, time.Since(start))
	e.publish(TopicWorkflowComplete, map[string]any{
		"agent_id":    string(w.AgentID),
		"action":      w.Action,
		"duration_ms": time.Since(start).Milliseconds(),
	}, w.AgentID, 0)
	return out
}

func (e *Executor) publish(topic string, payload map[string]any, source core.AgentID, priority int) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(topic, payload, &core.MessageMetadata{SourceAgent: source, Priority: priority})
}
