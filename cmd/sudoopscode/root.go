// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the sudoopscode CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jamesyoung-15/SudoOpsCode/internal/config"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var (
	verbose bool
	cfgFile string

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))
	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))
)

var rootCmd = &cobra.Command{
	Use:   "sudoopscode",
	Short: "A containerized shell-challenge practice core",
	Long: titleStyle.Render("sudoopscode") + subtitleStyle.Render(" - runs sandboxed shell challenges in per-session containers") + `

sudoopscode provisions an isolated Docker container per practice session,
streams an interactive terminal to it over WebSocket, and validates
progress by running each challenge's own validate.sh inside the container.

` + subtitleStyle.Render("Quick Start:") + `
  sudoopscode serve          Start the session/terminal/API core`,
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/sudoopscode/config.toml)")

	rootCmd.AddCommand(serveCmd)
}

func initRootConfig() {
	if _, err := config.NewProvider().Load(config.LoadOptions{ConfigFilePath: cfgFile}); err != nil && verbose {
		fmt.Fprintln(os.Stderr, warningStyle.Render("Warning: ")+fmt.Sprintf("Failed to load config: %v", err))
	}
}
