// SPDX-License-Identifier: MPL-2.0

// Package validation implements the ValidationCoordinator use case: it
// runs a challenge's validate.sh inside the session's container,
// records the outcome, and on every successful run ends the session and
// removes its container. Points are reported only on a first solve.
package validation
