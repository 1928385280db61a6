// Package logging provides a tiny abstraction over slog so engine code can
// depend on a minimal interface (Logger) while allowing callers to plug any
// structured logger. It also offers a richer EngineLogger with contextual
// helpers (session, component) and domain specific helpers for oracle calls,
// capability invocations and batch cycles.
package logging
