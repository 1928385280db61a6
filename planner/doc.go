// Package planner implements the intent planner: it builds a bounded textual
// context bundle from an action and the session's context memory, sends it to
// an external oracle, and validates/repairs the oracle's structured response
// into a Decision. Callers always receive a structurally valid Decision; when
// the oracle's output is beyond repair the documented fallback Decision is
// substituted and the degradation logged.
package planner
