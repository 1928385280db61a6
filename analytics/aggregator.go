package analytics

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wayfarelabs/orchestra/core"
	"github.com/wayfarelabs/orchestra/logging"
)

// DefaultCycleInterval is how often the scheduler runs a batch cycle.
const DefaultCycleInterval = time.Hour

// defaultSignificantFamilies name the topic families considered worth
// batching when callers ask Significant.
var defaultSignificantFamilies = []string{"transaction", "user", "travel"}

// Options configures an Aggregator.
type Options struct {
	// Sink receives grouped batches. Nil means insights are derived but the
	// batch is not shipped anywhere.
	Sink Sink

	// SignificantFamilies overrides the topic families Significant accepts.
	SignificantFamilies []string

	// CycleInterval drives the optional scheduler.
	CycleInterval time.Duration

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// BatchResult summarizes one batch cycle.
type BatchResult struct {
	ProcessedCount int            `json:"processed_count"`
	Insights       map[string]any `json:"insights"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Aggregator accumulates explicitly queued event messages and periodically
// turns them into grouped batches with summary insights.
type Aggregator struct {
	mu          sync.Mutex
	backlog     []core.EventMessage
	significant map[string]bool
	opts        Options
	logger      logging.Logger

	done    chan struct{}
	once    sync.Once
	ticking bool
}

// New constructs an Aggregator.
func New(optFns ...func(o *Options)) *Aggregator {
	opts := Options{
		SignificantFamilies: defaultSignificantFamilies,
		CycleInterval:       DefaultCycleInterval,
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	significant := make(map[string]bool, len(opts.SignificantFamilies))
	for _, f := range opts.SignificantFamilies {
		significant[f] = true
	}
	return &Aggregator{
		significant: significant,
		opts:        opts,
		logger:      opts.Logger,
		done:        make(chan struct{}),
	}
}

// Significant reports whether a message belongs to a topic family the
// aggregator considers worth batching.
func (a *Aggregator) Significant(msg core.EventMessage) bool {
	return a.significant[topicFamily(msg.Topic)]
}

// QueueForAnalytics appends a message to the backlog. Callers decide what to
// queue; Significant is a helper, not a gate.
func (a *Aggregator) QueueForAnalytics(msg core.EventMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.backlog = append(a.backlog, msg)
}

// BacklogDepth returns the number of queued messages.
func (a *Aggregator) BacklogDepth() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.backlog)
}

// RunBatchCycle drains the backlog into one grouped batch. An empty backlog
// yields a zero-valued result without touching the Sink. The backlog is
// cleared before the Sink runs, so a Sink failure drops the batch rather
// than replaying it next cycle.
func (a *Aggregator) RunBatchCycle(ctx context.Context) (*BatchResult, error) {
	a.mu.Lock()
	backlog := a.backlog
	a.backlog = nil
	a.mu.Unlock()

	now := time.Now()
	if len(backlog) == 0 {
		return &BatchResult{Insights: map[string]any{}, Timestamp: now}, nil
	}

	groups := make(map[string][]core.EventMessage)
	for _, msg := range backlog {
		family := topicFamily(msg.Topic)
		groups[family] = append(groups[family], msg)
	}

	result := &BatchResult{
		ProcessedCount: len(backlog),
		Insights:       deriveInsights(backlog, groups),
		Timestamp:      now,
	}

	if a.opts.Sink != nil {
		if err := a.opts.Sink.WriteBatch(ctx, Batch{Groups: groups, Timestamp: now}); err != nil {
			a.logger.Error("analytics: sink rejected batch of %d messages: %v", len(backlog), err)
			return result, fmt.Errorf("analytics sink: %w", err)
		}
	}

	a.logger.Info("analytics: batch cycle processed=%d groups=%d", len(backlog), len(groups))
	return result, nil
}

// StartScheduler runs RunBatchCycle on the configured interval until Stop.
func (a *Aggregator) StartScheduler() {
	a.mu.Lock()
	if a.ticking {
		a.mu.Unlock()
		return
	}
	a.ticking = true
	a.mu.Unlock()

	go func() {
		ticker := time.NewTicker(a.opts.CycleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := a.RunBatchCycle(context.Background()); err != nil {
					a.logger.Warn("analytics: scheduled batch cycle failed: %v", err)
				}
			case <-a.done:
				return
			}
		}
	}()
}

// Stop halts the scheduler. Safe to call more than once.
func (a *Aggregator) Stop() {
	a.once.Do(func() { close(a.done) })
}

func topicFamily(topic string) string {
	if idx := strings.IndexByte(topic, '.'); idx >= 0 {
		return topic[:idx]
	}
	return topic
}

// deriveInsights computes the summary handed back with each batch: message
// counts per family, activity per payload location, and the share of agent
// lifecycle traffic each capability accounts for.
func deriveInsights(backlog []core.EventMessage, groups map[string][]core.EventMessage) map[string]any {
	counts := make(map[string]int, len(groups))
	for family, msgs := range groups {
		counts[family] = len(msgs)
	}

	locations := make(map[string]int)
	agentTraffic := make(map[string]int)
	agentTotal := 0
	for _, msg := range backlog {
		if loc, ok := msg.Payload["location"].(string); ok && loc != "" {
			locations[loc]++
		}
		if msg.Metadata.SourceAgent != "" {
			agentTraffic[string(msg.Metadata.SourceAgent)]++
			agentTotal++
		}
	}

	insights := map[string]any{"event_counts": counts}
	if len(locations) > 0 {
		insights["location_activity"] = locations
	}
	if agentTotal > 0 {
		utilization := make(map[string]float64, len(agentTraffic))
		for agent, n := range agentTraffic {
			utilization[agent] = float64(n) / float64(agentTotal)
		}
		insights["capability_utilization"] = utilization
	}
	return insights
}
