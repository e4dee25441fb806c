// SPDX-License-Identifier: MPL-2.0

package config

import "time"

// Config holds the application configuration for the session/container core.
type Config struct {
	// Container configures the container engine and the resource profile
	// applied to every per-challenge container.
	Container ContainerConfig `toml:"container" mapstructure:"container"`
	// Session configures admission control and timeout budgets.
	Session SessionConfig `toml:"session" mapstructure:"session"`
	// Cleanup configures the periodic reclamation loop.
	Cleanup CleanupConfig `toml:"cleanup" mapstructure:"cleanup"`
	// Shutdown configures graceful-shutdown bounds.
	Shutdown ShutdownConfig `toml:"shutdown" mapstructure:"shutdown"`
	// HTTP configures the bind address for the session/terminal surface.
	HTTP HTTPConfig `toml:"http" mapstructure:"http"`
	// Auth configures verification of externally-minted tokens.
	Auth AuthConfig `toml:"auth" mapstructure:"auth"`
}

// ContainerConfig configures the container engine profile.
type ContainerConfig struct {
	// ImageName is the tag of the base image to ensure/build.
	ImageName string `toml:"image_name" mapstructure:"image_name"`
	// MemoryBytes is the per-container memory limit.
	MemoryBytes int64 `toml:"memory_bytes" mapstructure:"memory_bytes"`
	// CPUNanocores is the per-container CPU quota in nanocores.
	CPUNanocores int64 `toml:"cpu_nanocores" mapstructure:"cpu_nanocores"`
	// PidsLimit caps the number of processes inside the container.
	PidsLimit int64 `toml:"pids_limit" mapstructure:"pids_limit"`
	// NetworkMode is the Docker network mode ("none" by default).
	NetworkMode string `toml:"network_mode" mapstructure:"network_mode"`
	// Host is loaded from configuration but not used: the Docker client is
	// always configured from the process environment (DOCKER_HOST and friends).
	Host string `toml:"host" mapstructure:"host"`
}

// SessionConfig configures SessionManager admission and timeout budgets.
type SessionConfig struct {
	// MaxPerUser caps concurrently active sessions per user (default 1).
	MaxPerUser int `toml:"max_per_user" mapstructure:"max_per_user"`
	// MaxTotal caps concurrently active sessions system-wide (default 15).
	MaxTotal int `toml:"max_total" mapstructure:"max_total"`
	// IdleTimeout is the inactivity bound before a session is eligible for expiry.
	IdleTimeout time.Duration `toml:"idle_timeout" mapstructure:"idle_timeout"`
	// MaxDuration is the absolute session lifetime bound.
	MaxDuration time.Duration `toml:"max_duration" mapstructure:"max_duration"`
}

// CleanupConfig configures the CleanupLoop.
type CleanupConfig struct {
	// Interval is the period between expiry scans (default 5m).
	Interval time.Duration `toml:"interval" mapstructure:"interval"`
}

// ShutdownConfig configures graceful-shutdown bounds.
type ShutdownConfig struct {
	// DrainTimeout is how long to wait for terminal streams to drain
	// before forcing container removal on shutdown.
	DrainTimeout time.Duration `toml:"drain_timeout" mapstructure:"drain_timeout"`
}

// HTTPConfig configures the bind address for the session/terminal surface.
type HTTPConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `toml:"addr" mapstructure:"addr"`
	// MetricsAddr is the listen address for the Prometheus /metrics endpoint.
	MetricsAddr string `toml:"metrics_addr" mapstructure:"metrics_addr"`
}

// AuthConfig configures verification of tokens minted by an external
// authentication service. Token minting itself is out of scope; this core
// only verifies signatures and decodes claims.
type AuthConfig struct {
	// SigningKey is the shared HMAC key used to verify JWTs.
	SigningKey string `toml:"signing_key" mapstructure:"signing_key"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Container: ContainerConfig{
			ImageName:    "sudoopscode/challenge-shell:latest",
			MemoryBytes:  256 * 1024 * 1024,
			CPUNanocores: 1_000_000_000,
			PidsLimit:    100,
			NetworkMode:  "none",
		},
		Session: SessionConfig{
			MaxPerUser:  1,
			MaxTotal:    15,
			IdleTimeout: 10 * time.Minute,
			MaxDuration: 15 * time.Minute,
		},
		Cleanup: CleanupConfig{
			Interval: 5 * time.Minute,
		},
		Shutdown: ShutdownConfig{
			DrainTimeout: time.Second,
		},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
		},
	}
}
