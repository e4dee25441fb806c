// SPDX-License-Identifier: MPL-2.0

package validation

import (
	"context"
	"testing"

	"github.com/jamesyoung-15/SudoOpsCode/internal/progress"
	"github.com/jamesyoung-15/SudoOpsCode/internal/session"
)

type fakeSessions struct {
	sess  session.Session
	ended bool
}

func (f *fakeSessions) Get(id session.ID) (session.Session, error) { return f.sess, nil }
func (f *fakeSessions) End(id session.ID) (session.Session, error) {
	f.ended = true
	f.sess.Status = session.StatusEnded
	return f.sess, nil
}

type fakeContainers struct {
	valid   bool
	removed bool
}

func (f *fakeContainers) Validate(ctx context.Context, containerID string) bool { return f.valid }
func (f *fakeContainers) Remove(ctx context.Context, containerID string) error {
	f.removed = true
	return nil
}

type fakePoints struct{ points int }

func (f *fakePoints) Points(challengeID string) (int, error) { return f.points, nil }

func newSession() session.Session {
	return session.Session{
		ID:          session.ID{},
		UserID:      "u1",
		ChallengeID: "c1",
		ContainerID: "cont1",
		Status:      session.StatusActive,
	}
}

func TestValidate_SuccessEndsSessionAndAwardsPoints(t *testing.T) {
	sessions := &fakeSessions{sess: newSession()}
	containers := &fakeContainers{valid: true}
	points := &fakePoints{points: 100}
	store := progress.NewMemoryStore()

	coord := NewCoordinator(sessions, containers, store, points)

	result, err := coord.Validate(context.Background(), sessions.sess.ID, "u1")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Success || result.Points != 100 {
		t.Fatalf("expected success with 100 points, got %+v", result)
	}
	if !sessions.ended {
		t.Fatalf("expected session to be ended on solve")
	}
	if !containers.removed {
		t.Fatalf("expected container to be removed on solve")
	}
}

func TestValidate_FailureKeepsSessionActive(t *testing.T) {
	sessions := &fakeSessions{sess: newSession()}
	containers := &fakeContainers{valid: false}
	points := &fakePoints{points: 100}
	store := progress.NewMemoryStore()

	coord := NewCoordinator(sessions, containers, store, points)

	result, err := coord.Validate(context.Background(), sessions.sess.ID, "u1")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure result")
	}
	if sessions.ended {
		t.Fatalf("expected session to remain active after failed validation")
	}
}

func TestValidate_AlreadySolvedStillRunsAndEndsSessionWithZeroPoints(t *testing.T) {
	sessions := &fakeSessions{sess: newSession()}
	containers := &fakeContainers{valid: true}
	points := &fakePoints{points: 100}
	store := progress.NewMemoryStore()
	if _, err := store.RecordValidation(context.Background(), "u1", "c1", true); err != nil {
		t.Fatalf("seed RecordValidation: %v", err)
	}

	coord := NewCoordinator(sessions, containers, store, points)

	result, err := coord.Validate(context.Background(), sessions.sess.ID, "u1")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Success || result.Points != 0 {
		t.Fatalf("expected already-solved re-validation with 0 points, got %+v", result)
	}
	if !containers.removed {
		t.Fatalf("expected container to be removed even on an already-solved re-validation")
	}
	if !sessions.ended {
		t.Fatalf("expected session to be ended even on an already-solved re-validation")
	}
}

type countingStore struct {
	progress.Store
	recordCalls int
}

func (c *countingStore) RecordValidation(ctx context.Context, userID, challengeID string, success bool) (bool, error) {
	c.recordCalls++
	return c.Store.RecordValidation(ctx, userID, challengeID, success)
}

func TestValidate_AlwaysRunsContainerValidateAndRecordsAttempt(t *testing.T) {
	sessions := &fakeSessions{sess: newSession()}
	containers := &fakeContainers{valid: true}
	points := &fakePoints{points: 100}
	store := &countingStore{Store: progress.NewMemoryStore()}
	if _, err := store.Store.RecordValidation(context.Background(), "u1", "c1", true); err != nil {
		t.Fatalf("seed RecordValidation: %v", err)
	}

	coord := NewCoordinator(sessions, containers, store, points)

	if _, err := coord.Validate(context.Background(), sessions.sess.ID, "u1"); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if store.recordCalls != 1 {
		t.Fatalf("expected RecordValidation to be called even for an already-solved challenge, got %d calls", store.recordCalls)
	}
}

func TestValidate_NotActiveSessionRejected(t *testing.T) {
	sess := newSession()
	sess.Status = session.StatusEnded
	sessions := &fakeSessions{sess: sess}
	containers := &fakeContainers{valid: true}
	points := &fakePoints{points: 100}
	store := progress.NewMemoryStore()

	coord := NewCoordinator(sessions, containers, store, points)

	if _, err := coord.Validate(context.Background(), sess.ID, "u1"); err != ErrNotActive {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestValidate_WrongOwnerRejected(t *testing.T) {
	sessions := &fakeSessions{sess: newSession()}
	containers := &fakeContainers{valid: true}
	points := &fakePoints{points: 100}
	store := progress.NewMemoryStore()

	coord := NewCoordinator(sessions, containers, store, points)

	if _, err := coord.Validate(context.Background(), sessions.sess.ID, "someone-else"); err != ErrNotOwner {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if containers.removed || sessions.ended {
		t.Fatalf("expected no side effects when caller does not own the session")
	}
}
