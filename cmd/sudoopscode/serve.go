// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jamesyoung-15/SudoOpsCode/internal/appserver"
	"github.com/jamesyoung-15/SudoOpsCode/internal/config"
)

var (
	serveChallengeRoot string
	serveProgressDSN   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session, terminal, and API core",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveChallengeRoot, "challenge-root", "./challenges", "directory containing challenge subdirectories")
	serveCmd.Flags().StringVar(&serveProgressDSN, "progress-dsn", "", "PostgreSQL DSN for solve/attempt tracking (in-memory store if unset)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "sudoopscode"})

	cfg, err := config.NewProvider().Load(config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		logger.Warn("using default configuration", "error", err)
		cfg = config.DefaultConfig()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := appserver.New(ctx, cfg, appserver.Deps{
		ChallengeRoot: serveChallengeRoot,
		ProgressDSN:   serveProgressDSN,
	})
	if err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return app.Stop()
}
