// SPDX-License-Identifier: MPL-2.0

// Package cleanup implements the CleanupLoop (C5): a ticker-driven
// background task that reclaims expired challenge sessions. It runs
// once immediately on start, then on a fixed interval, until stopped.
package cleanup
