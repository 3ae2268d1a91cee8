// Package snapshot renders derived balances into a persisted, human-readable
// wallet artifact, one per calendar day. Snapshots are views: they are never
// read back into the engine and never act as a source of truth.
package snapshot
