// Package session provides the in-memory conversation store.
//
// Conversations are keyed by caller identity (the client network origin),
// bounded to a fixed message capacity with FIFO eviction, and removed when
// stale. State is ephemeral: nothing survives a process restart.
package session
