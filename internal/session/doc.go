// SPDX-License-Identifier: MPL-2.0

// Package session implements the in-memory session registry: admission
// control, activity tracking, and expiry calculation for per-user,
// per-challenge container sessions.
//
// A Manager is the single source of truth for which sessions are active.
// All state lives behind one mutex; no I/O happens while it is held —
// container and database operations are always performed by callers
// outside the lock, using the container id / challenge id returned by
// Manager methods.
package session
