// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with TOML
// as the file format.
//
// Configuration is loaded from ~/.config/sudoopscode/config.toml (or the
// XDG/macOS/Windows equivalent), with every field also overridable by
// SUDOOPSCODE_-prefixed environment variables. It covers the container
// resource profile, session admission and timeout budgets, the cleanup
// loop interval, and the HTTP/WebSocket bind address.
package config
