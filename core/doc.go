// Package core contains the shared domain types of the orchestration engine:
// inbound actions, per-session context memory, planner decisions, agent
// workflows, event bus messages and the typed error taxonomy. All other
// packages depend on core; core itself depends only on the standard library
// and uuid.
package core
