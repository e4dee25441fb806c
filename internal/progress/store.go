// SPDX-License-Identifier: MPL-2.0

package progress

import "context"

// Store is the ProgressStore capability: attempt/solve bookkeeping for
// validation results.
type Store interface {
	// HasSolved reports whether userID has a recorded solve of challengeID.
	HasSolved(ctx context.Context, userID, challengeID string) (bool, error)

	// RecordValidation appends an attempt row, and — if success is true and
	// no solve row exists yet — inserts one, all within a single
	// transaction. Returns whether this call produced the first solve.
	RecordValidation(ctx context.Context, userID, challengeID string, success bool) (firstSolve bool, err error)
}
