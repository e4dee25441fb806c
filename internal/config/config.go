// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for the default config directory.
	AppName = "sudoopscode"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// EnvPrefix namespaces environment variable overrides.
	EnvPrefix = "SUDOOPSCODE"
)

// Dir returns the application's configuration directory, honoring
// SetConfigDirOverride for tests.
func Dir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("get home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, AppName), nil
}

// loadWithOptions builds a Viper instance honoring LoadOptions, applies
// defaults, reads the config file if present, and unmarshals into a Config.
// It returns the resolved file path (empty if no file was found).
func loadWithOptions(opts LoadOptions) (*Config, string, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)

		if opts.ConfigDirPath != "" {
			v.AddConfigPath(opts.ConfigDirPath)
		} else {
			cfgDir, err := Dir()
			if err != nil {
				return nil, "", err
			}
			v.AddConfigPath(cfgDir)
		}
		v.AddConfigPath(".")
	}

	applyDefaults(v, DefaultConfig())

	var usedPath string
	if err := v.ReadInConfig(); err != nil {
		if !isConfigFileNotFound(err) {
			return nil, "", fmt.Errorf("read config file: %w", err)
		}
		// No config file: defaults (plus any env overrides) apply.
	} else {
		usedPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("parse config: %w", err)
	}

	return &cfg, usedPath, nil
}

func isConfigFileNotFound(err error) bool {
	_, ok := err.(viper.ConfigFileNotFoundError) //nolint:errorlint // viper returns this by value
	return ok
}

func applyDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("container.image_name", d.Container.ImageName)
	v.SetDefault("container.memory_bytes", d.Container.MemoryBytes)
	v.SetDefault("container.cpu_nanocores", d.Container.CPUNanocores)
	v.SetDefault("container.pids_limit", d.Container.PidsLimit)
	v.SetDefault("container.network_mode", d.Container.NetworkMode)
	v.SetDefault("container.host", d.Container.Host)

	v.SetDefault("session.max_per_user", d.Session.MaxPerUser)
	v.SetDefault("session.max_total", d.Session.MaxTotal)
	v.SetDefault("session.idle_timeout", d.Session.IdleTimeout)
	v.SetDefault("session.max_duration", d.Session.MaxDuration)

	v.SetDefault("cleanup.interval", d.Cleanup.Interval)
	v.SetDefault("shutdown.drain_timeout", d.Shutdown.DrainTimeout)

	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.metrics_addr", d.HTTP.MetricsAddr)

	v.SetDefault("auth.signing_key", d.Auth.SigningKey)
}

// EnsureDir creates the config directory if it doesn't exist.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
