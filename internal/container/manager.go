// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ChallengeDirResolver resolves a challenge id to the absolute path of its
// on-disk directory. internal/catalog.Catalog satisfies this.
type ChallengeDirResolver interface {
	Dir(challengeID string) (string, error)
}

// ResourceProfile bounds the resources granted to every challenge
// container.
type ResourceProfile struct {
	MemoryBytes  int64
	CPUNanocores int64
	PidsLimit    int64
	NetworkMode  string
}

// Manager layers challenge lifecycle policy on top of a Driver: idempotent
// image builds, the challenge container lifecycle, the drain-before-inspect
// invariant, and mandatory-TTY PTY attachment.
type Manager struct {
	driver    Driver
	catalog   ChallengeDirResolver
	image     string
	resources ResourceProfile

	buildOnce sync.Once
	buildErr  error
}

// NewManager wires a Driver and ChallengeDirResolver into a Manager
// targeting the given image name and resource profile.
func NewManager(driver Driver, catalog ChallengeDirResolver, image string, resources ResourceProfile) *Manager {
	return &Manager{
		driver:    driver,
		catalog:   catalog,
		image:     image,
		resources: resources,
	}
}

// EnsureImage builds the configured image if it does not already exist.
// Concurrent callers collapse onto a single build via sync.Once; all
// observe the same result.
func (m *Manager) EnsureImage(ctx context.Context) error {
	m.buildOnce.Do(func() {
		m.buildErr = m.ensureImageOnce(ctx)
	})
	return m.buildErr
}

func (m *Manager) ensureImageOnce(ctx context.Context) error {
	exists, err := m.driver.ImageExists(ctx, m.image)
	if err != nil {
		return &ImageBuildError{Image: m.image, Err: err}
	}
	if exists {
		return nil
	}

	buildCtx, err := buildContextFor(defaultDockerfile)
	if err != nil {
		return &ImageBuildError{Image: m.image, Err: err}
	}

	err = RetryWithBackoff(ctx, 3, 2*time.Second, func(attempt int) (bool, error) {
		if err := m.driver.BuildImage(ctx, m.image, buildCtx); err != nil {
			var be *BuildError
			if errors.As(err, &be) {
				return false, err // permanent: a broken Dockerfile won't fix itself on retry
			}
			return true, err
		}
		return false, nil
	})
	if err != nil {
		return &ImageBuildError{Image: m.image, Err: err}
	}
	return nil
}

// CreateForChallenge creates, starts, and (if the challenge defines one)
// runs the setup script for a fresh container bound to challengeID.
func (m *Manager) CreateForChallenge(ctx context.Context, challengeID, userID string) (string, error) {
	dir, err := m.catalog.Dir(challengeID)
	if err != nil {
		return "", &ChallengeNotFoundError{ChallengeID: challengeID}
	}

	spec := ContainerSpec{
		Image: m.image,
		Mounts: []BindMount{
			{Source: dir, Target: "/challenge", ReadOnly: true},
		},
		MemoryBytes:  m.resources.MemoryBytes,
		CPUNanocores: m.resources.CPUNanocores,
		PidsLimit:    m.resources.PidsLimit,
		NetworkMode:  m.resources.NetworkMode,
		Labels: map[string]string{
			"challenges.user_id":      userID,
			"challenges.challenge_id": challengeID,
			"challenges.created_at":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	id, err := m.driver.CreateContainer(ctx, spec)
	if err != nil {
		return "", err
	}
	if err := m.driver.StartContainer(ctx, id); err != nil {
		return "", err
	}

	if hasSetupScript(dir) {
		if err := m.runSetupScript(ctx, id); err != nil {
			return "", err
		}
	}

	return id, nil
}

func (m *Manager) runSetupScript(ctx context.Context, containerID string) error {
	execID, err := m.driver.ExecCreate(ctx, containerID, ExecSpec{
		Cmd:          []string{"/bin/bash", "/challenge/setup.sh"},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return err
	}

	stream, err := m.driver.ExecStart(ctx, execID, false)
	if err != nil {
		return err
	}
	defer stream.Close()

	if _, err := io.Copy(io.Discard, stream.Reader); err != nil {
		return &EngineError{Op: "setup_script_drain", Err: err}
	}
	return nil
}

// Validate runs the challenge's validate.sh and reports whether it
// succeeded. The exec output is always drained to completion before the
// exit code is inspected: on many engines exec_inspect's exit code is
// undefined until the stream has been fully consumed.
func (m *Manager) Validate(ctx context.Context, containerID string) bool {
	execID, err := m.driver.ExecCreate(ctx, containerID, ExecSpec{
		Cmd:          []string{"/bin/bash", "/challenge/validate.sh"},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return false
	}

	stream, err := m.driver.ExecStart(ctx, execID, false)
	if err != nil {
		return false
	}
	defer stream.Close()

	if _, err := io.Copy(io.Discard, stream.Reader); err != nil {
		return false
	}

	status, err := m.driver.ExecInspect(ctx, execID)
	if err != nil {
		return false
	}
	return status.ExitCode == 0
}

// AttachPTY opens an interactive, TTY-backed exec session against
// containerID. TTY is mandatory on both ExecCreate and ExecStart: without
// it the engine multiplexes stdout/stderr with an 8-byte framing header
// that breaks terminal rendering.
func (m *Manager) AttachPTY(ctx context.Context, containerID string) (string, *HijackedStream, error) {
	execID, err := m.driver.ExecCreate(ctx, containerID, ExecSpec{
		Cmd:          []string{"/bin/bash"},
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		TTY:          true,
	})
	if err != nil {
		return "", nil, err
	}

	stream, err := m.driver.ExecStart(ctx, execID, true)
	if err != nil {
		return "", nil, err
	}
	return execID, stream, nil
}

// Remove stops containerID with a 5-second grace period, then force
// removes it. Stop failures are swallowed — the container may already be
// dead — but remove failures propagate.
func (m *Manager) Remove(ctx context.Context, containerID string) error {
	_ = m.driver.StopContainer(ctx, containerID, 5)

	if err := m.driver.RemoveContainer(ctx, containerID, true); err != nil {
		return &RemoveError{ContainerID: containerID, Err: err}
	}
	return nil
}

// CleanupAll removes every container labeled with a challenges.user_id,
// continuing past individual failures but returning the first error seen.
func (m *Manager) CleanupAll(ctx context.Context) error {
	ids, err := m.driver.ListContainers(ctx, "challenges.user_id")
	if err != nil {
		return err
	}

	var firstErr error
	for _, id := range ids {
		if err := m.Remove(ctx, id); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cleanup_all: %w", err)
		}
	}
	return firstErr
}
