// SPDX-License-Identifier: MPL-2.0

package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of a Session.
type Status string

const (
	// StatusActive indicates the session has a live container and is usable.
	StatusActive Status = "active"
	// StatusExpired indicates the cleanup loop reclaimed the session due to
	// idle or absolute timeout.
	StatusExpired Status = "expired"
	// StatusEnded indicates the session was ended deliberately (user action
	// or a successful validation).
	StatusEnded Status = "ended"
)

// ID is a session's opaque 128-bit identifier.
type ID = uuid.UUID

// Session is the central entity: a bound user/challenge/container tuple
// with a bounded lifetime.
type Session struct {
	ID            ID
	UserID        string
	ChallengeID   string
	ContainerID   string
	Status        Status
	CreatedAt     time.Time
	LastActivity  time.Time
	ExpiresAt     time.Time
}

// Decision is the result of an admission check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Errors returned by Manager methods. These are matched by the HTTP layer
// to translate into status codes per the error handling design.
var (
	// ErrNotFound is returned when a session id has no registry entry.
	ErrNotFound = fmt.Errorf("session not found")
)

// AdmissionDeniedError reports why admission was refused.
type AdmissionDeniedError struct {
	Reason string
}

func (e *AdmissionDeniedError) Error() string { return e.Reason }

// DuplicatePendingError is returned when a (user, challenge) pair already
// has an in-flight creation in progress.
type DuplicatePendingError struct {
	UserID      string
	ChallengeID string
}

func (e *DuplicatePendingError) Error() string {
	return fmt.Sprintf("session creation already pending for user %s challenge %s", e.UserID, e.ChallengeID)
}
