package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wayfarelabs/orchestra/core"
	"github.com/wayfarelabs/orchestra/logging"
)

// DefaultInstructions is the fixed system contract sent with every oracle
// call. The oracle must answer with a single JSON document; anything else is
// handled by the repair/fallback path.
const DefaultInstructions = `You are the action orchestration planner for a social commerce platform.
Given the provided action and session context, decide which capability agents should run.
Available agents: escrow (payment escrow), discovery (catalog search and recommendations), routing (transport and logistics), planning (itinerary parsing and trip planning).
Respond with a single JSON object and nothing else:
{"reasoning": "...", "workflows": [{"agent_id": "...", "action": "...", "parameters": {}, "priority": "critical|high|medium|low", "dependencies": [], "expected_duration_ms": 0}], "context_updates": {}, "event_messages": [{"topic": "...", "payload": {}, "priority": 1}]}
Workflows, context_updates and event_messages may be empty but must be present.`

// DefaultHistoryTurns bounds how many recent conversation turns the context
// bundle carries.
const DefaultHistoryTurns = 5

// Options configures a Planner.
type Options struct {
	// Instructions overrides the fixed system contract.
	Instructions string

	// HistoryTurns bounds the conversation excerpt in the context bundle.
	HistoryTurns int

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Planner builds context bundles, consults the oracle and guarantees a
// structurally valid Decision (or a typed PlannerUnavailable error when the
// oracle cannot be reached at all).
type Planner struct {
	oracle Oracle
	opts   Options
	logger logging.Logger
}

// New constructs a Planner around the given oracle.
func New(oracle Oracle, optFns ...func(o *Options)) *Planner {
	opts := Options{
		Instructions: DefaultInstructions,
		HistoryTurns: DefaultHistoryTurns,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Planner{oracle: oracle, opts: opts, logger: opts.Logger}
}

// Plan analyzes one action against the session's context memory.
//
// Failure semantics: transport errors surface as *core.PlannerUnavailableError
// so the facade can skip orchestration; malformed oracle output is recovered
// locally by substituting the fallback Decision. The returned Decision is
// never nil when err is nil.
func (p *Planner) Plan(ctx context.Context, action core.Action, mem *core.ContextMemory) (*core.Decision, error) {
	bundle := p.BuildBundle(action, mem)

	start := time.Now()
	output, err := p.oracle.Complete(ctx, Request{Instructions: p.opts.Instructions, Prompt: bundle})
	if err != nil {
		p.logger.Warn("planner: oracle unreachable provider=%s after %s: %v",
			p.oracle.Info().Provider, time.Since(start), err)
		return nil, &core.PlannerUnavailableError{Provider: p.oracle.Info().Provider, Err: err}
	}
	p.logger.Debug("planner: oracle responded provider=%s duration=%s bytes=%d",
		p.oracle.Info().Provider, time.Since(start), len(output))

	decision, dropped, perr := ParseDecision(output)
	if perr != nil {
		p.logger.Warn("planner: degraded to fallback decision: %v", perr)
		return core.FallbackDecision(), nil
	}
	if len(dropped) > 0 {
		p.logger.Warn("planner: dropped workflows with unknown agents: %s", strings.Join(dropped, ", "))
	}
	return decision, nil
}

// BuildBundle renders the bounded textual summary the oracle reasons over:
// the action, the last N conversation turns, the user profile, active
// workflows and auxiliary signals.
func (p *Planner) BuildBundle(action core.Action, mem *core.ContextMemory) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Action\nkind: %s\npath: %s\n", action.Kind, action.Path)
	if msg := action.Message(); msg != "" {
		fmt.Fprintf(&b, "message: %s\n", msg)
	}
	fmt.Fprintf(&b, "page: %s\nuser_type: %s\ntrust_level: %s\n",
		action.Context.CurrentPage, action.Context.UserType, action.Context.TrustLevel)
	if action.Context.Location != "" {
		fmt.Fprintf(&b, "location: %s\n", action.Context.Location)
	}

	if mem == nil {
		return b.String()
	}

	turns := mem.RecentTurns(p.opts.HistoryTurns)
	if len(turns) > 0 {
		b.WriteString("\n## Recent conversation\n")
		for _, turn := range turns {
			line := turn.Action.Message()
			if line == "" {
				line = string(turn.Action.Kind) + " " + turn.Action.Path
			}
			fmt.Fprintf(&b, "- user: %s\n", line)
			if turn.Decision != nil && turn.Decision.Reasoning != "" {
				fmt.Fprintf(&b, "  planner: %s\n", turn.Decision.Reasoning)
			}
		}
	}

	if len(mem.Profile.Preferences) > 0 || len(mem.Profile.TravelPatterns) > 0 {
		b.WriteString("\n## User profile\n")
		for k, v := range mem.Profile.Preferences {
			fmt.Fprintf(&b, "- %s: %v\n", k, v)
		}
		if n := len(mem.Profile.TravelPatterns); n > 0 {
			fmt.Fprintf(&b, "- travel patterns on record: %d\n", n)
		}
		if n := len(mem.Profile.TransactionHistory); n > 0 {
			fmt.Fprintf(&b, "- transactions on record: %d\n", n)
		}
	}

	if len(mem.ActiveWorkflows) > 0 {
		b.WriteString("\n## Active workflows\n")
		for _, w := range mem.ActiveWorkflows {
			fmt.Fprintf(&b, "- %s/%s (%s)\n", w.AgentID, w.Action, w.Priority)
		}
	}

	if len(mem.AuxiliarySignals) > 0 {
		fmt.Fprintf(&b, "\n## Auxiliary signals\n")
		for _, sig := range mem.AuxiliarySignals {
			fmt.Fprintf(&b, "- %v\n", sig)
		}
	}

	return b.String()
}
