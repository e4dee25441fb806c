// SPDX-License-Identifier: MPL-2.0

// Package terminal implements the TerminalGateway: a WebSocket upgrade
// endpoint that authenticates a caller, attaches to a challenge
// container's PTY, and relays bytes verbatim in both directions.
//
// Gateway embeds internal/core/serverbase.Base for its own Start/Stop
// lifecycle. Its connection registry is a second, separate mutex-guarded
// map — it must not share a lock with session.Manager's registry, so a
// slow PTY attach can never block session admission or vice versa.
package terminal
