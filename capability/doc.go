// Package capability implements the agent invoker registry: the single seam
// between the orchestration engine and the downstream capability services
// (escrow, discovery, routing, planning). Invokers validate parameters and
// dispatch; they carry no business logic of their own.
package capability
