// SPDX-License-Identifier: MPL-2.0

// Package container isolates every call into the container engine behind a
// thin Driver interface, and layers challenge-specific lifecycle policy
// (image management, resource limits, PTY attachment, cleanup) on top in
// Manager.
//
// Driver wraps the Docker Engine SDK client directly: it performs no
// retries and translates engine errors into a small taxonomy (NotFound,
// AlreadyExists, BuildError, EngineError). Manager owns everything
// policy-shaped — idempotent image builds, the challenge container
// lifecycle, the drain-before-inspect invariant on exec output, and the
// mandatory-TTY requirement for PTY attachment.
package container
