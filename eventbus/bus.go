package eventbus

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/wayfarelabs/orchestra/core"
	"github.com/wayfarelabs/orchestra/logging"
)

// TopicSubscriberError is published after a subscriber exhausts its retries
// for a message. The payload carries the subscriber id, the original message
// and the final error.
const TopicSubscriberError = "error.subscriber"

// DefaultConfig values for bus behavior.
const (
	// DefaultDrainInterval is the period of the batch drain ticker.
	DefaultDrainInterval = 5 * time.Second
	// DefaultDrainBatchSize caps how many queued messages one drain pops.
	DefaultDrainBatchSize = 50
	// DefaultImmediateThreshold is the priority at or above which a message
	// is delivered synchronously at publish time.
	DefaultImmediateThreshold = 3
	// DefaultMaxRetries bounds redelivery attempts per subscriber.
	DefaultMaxRetries = 3
	// DefaultRetryBaseDelay is the base of the exponential backoff.
	DefaultRetryBaseDelay = 100 * time.Millisecond
)

// Options configures a Bus instance.
type Options struct {
	// DrainInterval is the period of the batch drain ticker started by Start.
	DrainInterval time.Duration

	// DrainBatchSize caps how many queued messages one drain cycle pops.
	DrainBatchSize int

	// ImmediateThreshold is the priority at or above which publish delivers
	// synchronously to matching subscribers before returning.
	ImmediateThreshold int

	// MaxRetries is the per-subscriber retry bound applied when a subscriber
	// does not declare its own.
	MaxRetries int

	// RetryBaseDelay is the backoff base; retry n waits 2^n * base.
	RetryBaseDelay time.Duration

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Status is a point-in-time observability snapshot of the bus.
type Status struct {
	QueueDepth        int           `json:"queue_depth"`
	BatchBacklogDepth int           `json:"batch_backlog_depth"`
	SubscriberCount   int           `json:"subscriber_count"`
	Uptime            time.Duration `json:"uptime"`
}

// subscription binds a subscriber to its compiled topic patterns.
type subscription struct {
	sub      core.Subscriber
	patterns []*regexp.Regexp
	exact    map[string]bool
}

func (s *subscription) matches(topic string) bool {
	if s.exact[topic] {
		return true
	}
	for _, re := range s.patterns {
		if re.MatchString(topic) {
			return true
		}
	}
	return false
}

// Bus is the in-process event bus. All shared state is guarded by a single
// RWMutex; handler invocations happen outside the lock so a slow subscriber
// cannot block publishes.
type Bus struct {
	opts   Options
	logger logging.Logger

	mu     sync.RWMutex
	queue  []core.EventMessage
	subs   map[string]*subscription
	notify []func(core.EventMessage)

	created time.Time
	done    chan struct{}
	once    sync.Once
	ticking bool
}

// New constructs a Bus with defaults suitable for tests and local use.
// Call Start to begin batch draining; publish and immediate delivery work
// without it.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{
		DrainInterval:      DefaultDrainInterval,
		DrainBatchSize:     DefaultDrainBatchSize,
		ImmediateThreshold: DefaultImmediateThreshold,
		MaxRetries:         DefaultMaxRetries,
		RetryBaseDelay:     DefaultRetryBaseDelay,
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bus{
		opts:    opts,
		logger:  opts.Logger,
		subs:    make(map[string]*subscription),
		created: time.Now(),
		done:    make(chan struct{}),
	}
}

// Start launches the batch drain ticker. Calling Start twice is a no-op.
func (b *Bus) Start() {
	b.mu.Lock()
	if b.ticking {
		b.mu.Unlock()
		return
	}
	b.ticking = true
	b.mu.Unlock()

	go func() {
		ticker := time.NewTicker(b.opts.DrainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-b.done:
				return
			case <-ticker.C:
				b.DrainOnce()
			}
		}
	}()
}

// Stop terminates the drain ticker and cancels pending retry timers.
func (b *Bus) Stop() {
	b.once.Do(func() { close(b.done) })
}

// Subscribe registers a subscriber and binds its handler to every declared
// topic pattern. A subscriber with MaxRetries == 0 inherits the bus default.
func (b *Bus) Subscribe(sub core.Subscriber) error {
	s := &subscription{sub: sub, exact: make(map[string]bool)}
	for _, pattern := range sub.Topics {
		if !containsWildcard(pattern) {
			s.exact[pattern] = true
			continue
		}
		re, err := compilePattern(pattern)
		if err != nil {
			return err
		}
		s.patterns = append(s.patterns, re)
	}
	if s.sub.MaxRetries == 0 {
		s.sub.MaxRetries = b.opts.MaxRetries
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub.ID] = s
	b.logger.Debug("eventbus: subscribed id=%s topics=%v", sub.ID, sub.Topics)
	return nil
}

// Unsubscribe removes all bindings for the subscriber id.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// OnPublish registers a same-process notification hook invoked synchronously
// for every published message regardless of priority. Intended for real-time
// listeners (websocket fan-out, tracing) that must not miss low-priority
// traffic waiting on the batch drain.
func (b *Bus) OnPublish(fn func(core.EventMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notify = append(b.notify, fn)
}

// Publish stamps metadata onto the message (default priority 1, fresh
// timestamp, fresh correlation id), queues it, and delivers it synchronously
// to matching subscribers when its priority reaches the immediate threshold.
// The stamped message is returned.
func (b *Bus) Publish(topic string, payload map[string]any, meta *core.MessageMetadata) core.EventMessage {
	msg := core.EventMessage{
		Topic:   topic,
		Payload: payload,
		Metadata: core.MessageMetadata{
			Priority:      1,
			Timestamp:     time.Now().UTC(),
			CorrelationID: core.NewID(),
		},
	}
	if meta != nil {
		msg.Metadata.SourceAgent = meta.SourceAgent
		if meta.Priority != 0 {
			msg.Metadata.Priority = meta.Priority
		}
	}

	b.mu.Lock()
	b.queue = append(b.queue, msg)
	targets := b.matchingLocked(topic)
	notify := make([]func(core.EventMessage), len(b.notify))
	copy(notify, b.notify)
	b.mu.Unlock()

	for _, fn := range notify {
		fn(msg)
	}

	if msg.Metadata.Priority >= b.opts.ImmediateThreshold {
		for _, s := range targets {
			b.deliver(s, msg, 0)
		}
	}

	b.logger.Debug("eventbus: published topic=%s correlation_id=%s priority=%d",
		topic, msg.Metadata.CorrelationID, msg.Metadata.Priority)
	return msg
}

// PublishEvent re-publishes a pre-built message, preserving its topic,
// payload and source agent while stamping fresh delivery metadata.
func (b *Bus) PublishEvent(msg core.EventMessage) core.EventMessage {
	return b.Publish(msg.Topic, msg.Payload, &msg.Metadata)
}

// DrainOnce pops up to DrainBatchSize queued messages and delivers the
// non-immediate ones to matching subscribers. Immediate messages were already
// delivered at publish time and are simply discarded from the queue. Exposed
// so tests and callers can drive the drain deterministically.
func (b *Bus) DrainOnce() int {
	b.mu.Lock()
	n := len(b.queue)
	if n > b.opts.DrainBatchSize {
		n = b.opts.DrainBatchSize
	}
	batch := make([]core.EventMessage, n)
	copy(batch, b.queue[:n])
	b.queue = b.queue[n:]
	b.mu.Unlock()

	delivered := 0
	for _, msg := range batch {
		if msg.Metadata.Priority >= b.opts.ImmediateThreshold {
			continue
		}
		b.mu.RLock()
		targets := b.matchingLocked(msg.Topic)
		b.mu.RUnlock()
		for _, s := range targets {
			b.deliver(s, msg, 0)
		}
		delivered++
	}
	return delivered
}

// Status returns an observability snapshot.
func (b *Bus) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	backlog := 0
	for _, msg := range b.queue {
		if msg.Metadata.Priority < b.opts.ImmediateThreshold {
			backlog++
		}
	}
	return Status{
		QueueDepth:        len(b.queue),
		BatchBacklogDepth: backlog,
		SubscriberCount:   len(b.subs),
		Uptime:            time.Since(b.created),
	}
}

// matchingLocked returns subscriptions matching the topic. Caller holds at
// least a read lock.
func (b *Bus) matchingLocked(topic string) []*subscription {
	var out []*subscription
	for _, s := range b.subs {
		if s.matches(topic) {
			out = append(out, s)
		}
	}
	return out
}

// deliver invokes the subscriber handler; on failure it schedules a retry
// with exponential backoff (2^attempt * base) until the subscriber's retry
// bound is exhausted, then publishes an error.subscriber message and gives
// up on this message for this subscriber. Other subscribers are unaffected.
func (b *Bus) deliver(s *subscription, msg core.EventMessage, attempt int) {
	attemptMsg := msg
	attemptMsg.Metadata.RetryCount = attempt

	err := s.sub.Handler(context.Background(), attemptMsg)
	if err == nil {
		return
	}

	if attempt < s.sub.MaxRetries {
		delay := b.opts.RetryBaseDelay << uint(attempt)
		b.logger.Debug("eventbus: retrying subscriber=%s topic=%s attempt=%d delay=%s",
			s.sub.ID, msg.Topic, attempt+1, delay)
		time.AfterFunc(delay, func() {
			select {
			case <-b.done:
				return
			default:
			}
			b.deliver(s, msg, attempt+1)
		})
		return
	}

	derr := &core.DeliveryError{
		SubscriberID: s.sub.ID,
		Topic:        msg.Topic,
		Attempts:     attempt + 1,
		Err:          err,
	}
	b.logger.Warn("eventbus: %v", derr)

	// Failures on the error topic itself are only logged; publishing another
	// error.subscriber here could bounce between two broken subscribers
	// forever.
	if msg.Topic == TopicSubscriberError {
		return
	}
	b.Publish(TopicSubscriberError, map[string]any{
		"subscriber_id": s.sub.ID,
		"message":       msg,
		"error":         err.Error(),
	}, &core.MessageMetadata{Priority: 2})
}

func containsWildcard(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' {
			return true
		}
	}
	return false
}
