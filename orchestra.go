// Package orchestra provides a high-level façade over the action
// orchestration engine: per-session context memory, oracle-backed intent
// planning, prioritized workflow execution against the capability registry,
// and the event bus / analytics plumbing around them. Most applications
// interact with this package by:
//  1. Creating an Orchestra via New() (optionally overriding the default
//     in-memory services and the mock oracle)
//  2. Calling Start() to begin background maintenance (drain ticker,
//     context janitor, analytics scheduler)
//  3. Feeding inbound actions through Analyze()
//
// All defaults are safe for local development and testing; production
// deployments supply a real oracle (planner/openai or planner/anthropic),
// real capability invokers and a structured logger.
package orchestra

import (
	"context"
	"errors"
	"time"

	"github.com/wayfarelabs/orchestra/analytics"
	"github.com/wayfarelabs/orchestra/capability"
	"github.com/wayfarelabs/orchestra/contextstore"
	"github.com/wayfarelabs/orchestra/core"
	"github.com/wayfarelabs/orchestra/eventbus"
	"github.com/wayfarelabs/orchestra/executor"
	"github.com/wayfarelabs/orchestra/logging"
	"github.com/wayfarelabs/orchestra/planner"
)

// Options configures the Orchestra instance.
type Options struct {
	// Store holds per-session context memory. Defaults to the in-memory
	// implementation with a 24h retention sweep.
	Store core.ContextStore

	// Oracle powers intent planning. Defaults to a MockOracle so the engine
	// runs without credentials; supply planner/openai or planner/anthropic
	// for real reasoning.
	Oracle planner.Oracle

	// Registry resolves workflows to capability invokers. Defaults to the
	// mock registry covering the fixed capability set.
	Registry *capability.Registry

	// Bus carries event messages. Defaults to a fresh bus.
	Bus *eventbus.Bus

	// Aggregator batches significant events for analytics. Defaults to an
	// aggregator without a sink.
	Aggregator *analytics.Aggregator

	// MaxParallel bounds concurrent workflow execution per batch.
	MaxParallel int

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Orchestra is the high-level façade aggregating the engine's services.
type Orchestra struct {
	opts       Options
	store      core.ContextStore
	planner    *planner.Planner
	executor   *executor.Executor
	bus        *eventbus.Bus
	aggregator *analytics.Aggregator
	logger     logging.Logger
}

// New creates a new Orchestra with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Orchestra {
	opts := Options{
		Oracle:      planner.NewMockOracle(),
		Registry:    capability.NewMockRegistry(),
		MaxParallel: executor.DefaultMaxParallel,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = contextstore.NewInMemoryStore(func(o *contextstore.Options) {
			o.Logger = opts.Logger
		})
	}
	if opts.Bus == nil {
		opts.Bus = eventbus.New(func(o *eventbus.Options) {
			o.Logger = opts.Logger
		})
	}
	if opts.Aggregator == nil {
		opts.Aggregator = analytics.New(func(o *analytics.Options) {
			o.Logger = opts.Logger
		})
	}

	return &Orchestra{
		opts:  opts,
		store: opts.Store,
		planner: planner.New(opts.Oracle, func(o *planner.Options) {
			o.Logger = opts.Logger
		}),
		executor: executor.New(opts.Registry, opts.Bus, func(o *executor.Options) {
			o.MaxParallel = opts.MaxParallel
			o.Logger = opts.Logger
		}),
		bus:        opts.Bus,
		aggregator: opts.Aggregator,
		logger:     opts.Logger,
	}
}

// Bus exposes the event bus so callers can subscribe to engine events.
func (o *Orchestra) Bus() *eventbus.Bus { return o.bus }

// Store exposes the context store.
func (o *Orchestra) Store() core.ContextStore { return o.store }

// Aggregator exposes the analytics aggregator.
func (o *Orchestra) Aggregator() *analytics.Aggregator { return o.aggregator }

// Start begins background maintenance: the bus drain ticker, the context
// store janitor (when the store supports one) and the analytics scheduler.
func (o *Orchestra) Start() {
	o.bus.Start()
	if j, ok := o.store.(interface{ StartJanitor() }); ok {
		j.StartJanitor()
	}
	o.aggregator.StartScheduler()
}

// Stop halts background maintenance. Safe to call more than once.
func (o *Orchestra) Stop() {
	o.bus.Stop()
	if s, ok := o.store.(interface{ Stop() }); ok {
		s.Stop()
	}
	o.aggregator.Stop()
}

// Analyze runs one inbound action through the full pipeline: load (or
// create) the session's context memory, plan, execute the decided workflows,
// record the interaction, then publish the decision's event messages.
//
// An unreachable oracle degrades instead of failing: the action is answered
// with an "orchestration skipped" decision and a nil error. Workflow
// failures never surface here either; they are captured per-agent in the
// interaction record and as agent.workflow.error events.
func (o *Orchestra) Analyze(ctx context.Context, action core.Action) (*core.Decision, error) {
	mem, err := o.store.GetOrCreate(ctx, action.UserID, action.SessionID)
	if err != nil {
		return nil, err
	}

	decision, err := o.planner.Plan(ctx, action, mem)
	if err != nil {
		var unavailable *core.PlannerUnavailableError
		if errors.As(err, &unavailable) {
			o.logger.Warn("orchestra: planner unavailable (provider=%s), skipping orchestration: %v",
				unavailable.Provider, unavailable.Err)
			return core.SkippedDecision(), nil
		}
		return nil, err
	}

	results := o.executor.Execute(ctx, decision.Workflows)

	// The interaction is recorded only after every workflow has settled so
	// the history never shows a half-finished turn.
	interaction := core.Interaction{
		ID:           core.NewID(),
		Timestamp:    time.Now().UTC(),
		Action:       action,
		Decision:     decision,
		AgentResults: results,
	}
	if err := o.store.Append(action.UserID, action.SessionID, interaction, decision.ContextUpdates); err != nil {
		o.logger.Error("orchestra: failed to record interaction user=%s session=%s: %v",
			action.UserID, action.SessionID, err)
	}

	for _, em := range decision.EventMessages {
		published := o.bus.PublishEvent(em)
		if o.aggregator.Significant(published) {
			o.aggregator.QueueForAnalytics(published)
		}
	}

	return decision, nil
}
