// Package contextstore provides the in-memory ContextStore implementation:
// lazy per-(user, session) memory creation with one-time collaborator
// snapshots, all-or-nothing turn appends and a time-based eviction sweep.
package contextstore
