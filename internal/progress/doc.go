// SPDX-License-Identifier: MPL-2.0

// Package progress implements the ProgressStore capability: recording
// validation attempts and first-solve events for (user, challenge) pairs.
// ValidationCoordinator requires both writes to land in one transaction so
// a crash between them can never produce an attempt with no corresponding
// solve bookkeeping.
package progress
