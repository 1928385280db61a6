// Package eventbus implements the topic-based publish/subscribe layer:
// immediate synchronous delivery for high-priority messages, a timed batch
// drain for the rest, segment-wise wildcard subscription matching and
// per-subscriber retry with exponential backoff.
package eventbus
