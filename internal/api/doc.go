// SPDX-License-Identifier: MPL-2.0

// Package api implements the HTTP/JSON session surface: starting,
// validating, inspecting, listing, and ending challenge sessions. It
// is a thin transport layer over session.Manager, container.Manager,
// and validation.Coordinator — all policy lives in those packages.
package api
