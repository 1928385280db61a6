// Package scenario provides a declarative acceptance harness over the
// orchestration façade. A scenario names an inbound action and what the
// engine is expected to do with it: which capability agents run and which
// event topics get published. The harness feeds the action through Analyze
// and compares.
package scenario
