package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wayfarelabs/orchestra"
	"github.com/wayfarelabs/orchestra/core"
	"github.com/wayfarelabs/orchestra/eventbus"
	"github.com/wayfarelabs/orchestra/logging"
)

// Scenario is one declarative acceptance case.
type Scenario struct {
	// ID names the scenario in reports.
	ID string `json:"id"`

	// ActionText is the conversational message fed through the engine.
	ActionText string `json:"action_text"`

	// UserType is attached to the action context when non-empty.
	UserType string `json:"user_type,omitempty"`

	// ExpectedAgents must all appear among the decision's workflows.
	ExpectedAgents []core.AgentID `json:"expected_agents,omitempty"`

	// ExpectedPatterns are topic patterns (`*` = one segment) that must each
	// match at least one event published while the scenario ran.
	ExpectedPatterns []string `json:"expected_patterns,omitempty"`
}

// Result records one scenario's outcome.
type Result struct {
	ScenarioID string         `json:"scenario_id"`
	Passed     bool           `json:"passed"`
	Failures   []string       `json:"failures,omitempty"`
	Duration   time.Duration  `json:"duration"`
	Decision   *core.Decision `json:"decision,omitempty"`
}

// Report aggregates the results of a scenario run.
type Report struct {
	Results []Result `json:"results"`
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
}

// AllPassed reports whether every scenario passed.
func (r Report) AllPassed() bool { return r.Failed == 0 }

// Options configures a Harness.
type Options struct {
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Harness runs scenarios against an Orchestra instance. Each scenario uses a
// fresh session so runs cannot contaminate each other's context memory.
type Harness struct {
	engine *orchestra.Orchestra
	logger logging.Logger

	mu     sync.Mutex
	topics []string
}

// NewHarness wraps an engine. The harness observes the engine's bus, so it
// must be created before any scenario runs.
func NewHarness(engine *orchestra.Orchestra, optFns ...func(o *Options)) *Harness {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	h := &Harness{engine: engine, logger: opts.Logger}
	engine.Bus().OnPublish(func(msg core.EventMessage) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.topics = append(h.topics, msg.Topic)
	})
	return h
}

// Run executes one scenario and evaluates its expectations.
func (h *Harness) Run(ctx context.Context, sc Scenario) Result {
	action := core.NewChatAction("scenario-user", "scenario-"+core.NewID(), sc.ActionText)
	action.Context.UserType = sc.UserType

	h.mu.Lock()
	mark := len(h.topics)
	h.mu.Unlock()

	start := time.Now()
	decision, err := h.engine.Analyze(ctx, action)
	result := Result{ScenarioID: sc.ID, Duration: time.Since(start), Decision: decision}
	if err != nil {
		result.Failures = append(result.Failures, fmt.Sprintf("analyze failed: %v", err))
		return result
	}

	h.mu.Lock()
	seen := make([]string, len(h.topics)-mark)
	copy(seen, h.topics[mark:])
	h.mu.Unlock()

	triggered := make(map[core.AgentID]bool, len(decision.Workflows))
	for _, w := range decision.Workflows {
		triggered[w.AgentID] = true
	}
	for _, agent := range sc.ExpectedAgents {
		if !triggered[agent] {
			result.Failures = append(result.Failures, fmt.Sprintf("expected agent %q was not triggered", agent))
		}
	}

	for _, pattern := range sc.ExpectedPatterns {
		matched := false
		for _, topic := range seen {
			if eventbus.MatchTopic(pattern, topic) {
				matched = true
				break
			}
		}
		if !matched {
			result.Failures = append(result.Failures, fmt.Sprintf("no published event matched %q", pattern))
		}
	}

	result.Passed = len(result.Failures) == 0
	return result
}

// RunAll executes every scenario in order and aggregates a report.
func (h *Harness) RunAll(ctx context.Context, scenarios []Scenario) Report {
	report := Report{Results: make([]Result, 0, len(scenarios))}
	for _, sc := range scenarios {
		result := h.Run(ctx, sc)
		report.Results = append(report.Results, result)
		if result.Passed {
			report.Passed++
			h.logger.Info("scenario %s passed in %s", sc.ID, result.Duration)
		} else {
			report.Failed++
			h.logger.Warn("scenario %s failed: %v", sc.ID, result.Failures)
		}
	}
	return report
}
