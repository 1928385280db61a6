// Package executor runs the agent workflows a planner decision names.
//
// Workflows in a batch are ordered by priority (stable for equal ranks) and
// gated on their same-batch dependencies: a workflow starts once every
// dependency has settled, whether that dependency succeeded or failed.
// Workflows are otherwise isolated from each other; one failure never stops
// its siblings.
package executor
