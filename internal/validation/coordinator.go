// SPDX-License-Identifier: MPL-2.0

package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/jamesyoung-15/SudoOpsCode/internal/progress"
	"github.com/jamesyoung-15/SudoOpsCode/internal/session"
)

// ErrNotActive is returned when validation is attempted against a
// session that is no longer active (already ended or expired).
var ErrNotActive = errors.New("session is not active")

// ErrNotOwner is returned when the caller's verified identity does not
// match the session's owner.
var ErrNotOwner = errors.New("caller does not own session")

// SessionStore is the subset of session.Manager the coordinator needs.
type SessionStore interface {
	Get(id session.ID) (session.Session, error)
	End(id session.ID) (session.Session, error)
}

// ContainerValidator is the subset of container.Manager the coordinator
// needs.
type ContainerValidator interface {
	Validate(ctx context.Context, containerID string) bool
	Remove(ctx context.Context, containerID string) error
}

// PointsLookup is the subset of catalog.Catalog the coordinator needs.
type PointsLookup interface {
	Points(challengeID string) (int, error)
}

// Result reports the outcome of a validation attempt.
type Result struct {
	Success bool   `json:"success"`
	Points  int    `json:"points,omitempty"`
	Message string `json:"message"`
}

// Coordinator implements the ValidationCoordinator use case.
type Coordinator struct {
	sessions   SessionStore
	containers ContainerValidator
	progress   progress.Store
	points     PointsLookup
	logger     *log.Logger
}

// NewCoordinator wires a Coordinator's dependencies.
func NewCoordinator(sessions SessionStore, containers ContainerValidator, store progress.Store, points PointsLookup) *Coordinator {
	return &Coordinator{
		sessions:   sessions,
		containers: containers,
		progress:   store,
		points:     points,
		logger:     log.NewWithOptions(nil, log.Options{Prefix: "validation"}),
	}
}

// Validate runs the challenge's validation script for the session's
// container and records the outcome. The script always runs and an
// attempt is always recorded, even if the challenge was already solved
// by this user — only the solve row and the awarded points are
// conditional on this being the first solve. userID is the caller's
// verified identity; it must match the session's owner.
func (c *Coordinator) Validate(ctx context.Context, id session.ID, userID string) (Result, error) {
	sess, err := c.sessions.Get(id)
	if err != nil {
		return Result{}, err
	}
	if sess.UserID != userID {
		return Result{}, ErrNotOwner
	}
	if sess.Status != session.StatusActive {
		return Result{}, ErrNotActive
	}

	alreadySolved, err := c.progress.HasSolved(ctx, sess.UserID, sess.ChallengeID)
	if err != nil {
		return Result{}, fmt.Errorf("check prior solve: %w", err)
	}

	success := c.containers.Validate(ctx, sess.ContainerID)

	firstSolve, err := c.progress.RecordValidation(ctx, sess.UserID, sess.ChallengeID, success)
	if err != nil {
		return Result{}, fmt.Errorf("record validation: %w", err)
	}

	if !success {
		return Result{Success: false, Message: "Validation failed"}, nil
	}

	points := 0
	if firstSolve {
		points, err = c.points.Points(sess.ChallengeID)
		if err != nil {
			c.logger.Warn("failed to look up challenge points", "challenge_id", sess.ChallengeID, "error", err)
		}
	}

	if err := c.containers.Remove(ctx, sess.ContainerID); err != nil {
		c.logger.Error("failed to remove container after solve", "session_id", id, "container_id", sess.ContainerID, "error", err)
	}
	if _, err := c.sessions.End(id); err != nil {
		c.logger.Warn("failed to end session after solve", "session_id", id, "error", err)
	}

	message := "Challenge solved"
	if alreadySolved {
		message = "Challenge already solved"
	}
	return Result{Success: true, Points: points, Message: message}, nil
}
