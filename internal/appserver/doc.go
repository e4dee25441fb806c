// SPDX-License-Identifier: MPL-2.0

// Package appserver wires the session, container, progress, catalog,
// terminal, cleanup, and api packages into one running application and
// sequences its graceful shutdown.
package appserver
