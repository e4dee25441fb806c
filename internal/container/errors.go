// SPDX-License-Identifier: MPL-2.0

package container

import "fmt"

// NotFoundError reports that an image, container, or exec id does not
// exist on the engine.
type NotFoundError struct {
	Kind string // "image", "container", or "exec"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// AlreadyExistsError reports a name collision on create.
type AlreadyExistsError struct {
	Kind string
	ID   string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Kind, e.ID)
}

// BuildError reports an image build failure.
type BuildError struct {
	Tag    string
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build image %s: %s", e.Tag, e.Reason)
}

// EngineError wraps any other engine-reported failure.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error during %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// ChallengeNotFoundError reports that a challenge's directory could not be
// resolved by the ChallengeCatalog.
type ChallengeNotFoundError struct {
	ChallengeID string
}

func (e *ChallengeNotFoundError) Error() string {
	return fmt.Sprintf("challenge %s not found", e.ChallengeID)
}

// ImageBuildError reports that ensure_image's idempotent build failed.
type ImageBuildError struct {
	Image string
	Err   error
}

func (e *ImageBuildError) Error() string {
	return fmt.Sprintf("ensure image %s: %v", e.Image, e.Err)
}

func (e *ImageBuildError) Unwrap() error { return e.Err }

// RemoveError reports that removing a container failed (stop failures are
// swallowed upstream; this only covers the force-remove step).
type RemoveError struct {
	ContainerID string
	Err         error
}

func (e *RemoveError) Error() string {
	return fmt.Sprintf("remove container %s: %v", e.ContainerID, e.Err)
}

func (e *RemoveError) Unwrap() error { return e.Err }
