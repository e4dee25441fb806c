// SPDX-License-Identifier: MPL-2.0

package terminal

import (
	"context"

	"github.com/google/uuid"

	"github.com/jamesyoung-15/SudoOpsCode/internal/container"
	"github.com/jamesyoung-15/SudoOpsCode/internal/session"
)

// TokenVerifier decodes and validates a bearer token, returning the
// authenticated user id.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// SessionLookup is the subset of session.Manager the gateway needs.
type SessionLookup interface {
	Get(id session.ID) (session.Session, error)
	UpdateActivity(id session.ID)
}

// PTYAttacher is the subset of container.Manager the gateway needs.
type PTYAttacher interface {
	AttachPTY(ctx context.Context, containerID string) (execID string, stream *container.HijackedStream, err error)
}

// parseSessionID parses the sessionId query parameter into a session.ID.
func parseSessionID(raw string) (session.ID, error) {
	return uuid.Parse(raw)
}
