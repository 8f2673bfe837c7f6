// ABOUTME: Package doc for the local conversation cache.
// ABOUTME: Describes the SQLite-backed offline copy of agents and histories.

// Package store persists a local copy of the agent directory and
// conversation histories in SQLite. The cache is read when the backend
// is unreachable; the server stays authoritative and every successful
// fetch overwrites the cached rows.
package store
