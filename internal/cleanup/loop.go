// SPDX-License-Identifier: MPL-2.0

package cleanup

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jamesyoung-15/SudoOpsCode/internal/core/serverbase"
	"github.com/jamesyoung-15/SudoOpsCode/internal/session"
)

// SessionReaper is the subset of session.Manager the loop needs.
type SessionReaper interface {
	ListExpired() []session.Session
	MarkExpired(id session.ID) (session.Session, error)
}

// ContainerReaper is the subset of container.Manager the loop needs.
type ContainerReaper interface {
	Remove(ctx context.Context, containerID string) error
}

// Config configures a Loop.
type Config struct {
	Interval time.Duration
	// OnReclaim, if set, is called with the number of sessions reclaimed
	// by each sweep (including zero-length sweeps).
	OnReclaim func(count int)
}

// Loop is the CleanupLoop: it embeds serverbase.Base for its own
// lifecycle and periodically reclaims sessions that have gone idle or
// exceeded their maximum duration.
type Loop struct {
	*serverbase.Base

	cfg        Config
	sessions   SessionReaper
	containers ContainerReaper
	logger     *log.Logger
}

// NewLoop wires a Loop's dependencies, applying the default 5-minute
// sweep interval when cfg.Interval is unset.
func NewLoop(cfg Config, sessions SessionReaper, containers ContainerReaper) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Loop{
		Base:       serverbase.NewBase(),
		cfg:        cfg,
		sessions:   sessions,
		containers: containers,
		logger:     log.NewWithOptions(nil, log.Options{Prefix: "cleanup-loop"}),
	}
}

// Start runs one sweep immediately, then launches the ticking
// background goroutine.
func (l *Loop) Start(ctx context.Context) error {
	if err := l.TransitionToStarting(ctx); err != nil {
		return err
	}

	l.sweep()

	l.AddGoroutine()
	go l.run()

	l.TransitionToRunning()
	return nil
}

func (l *Loop) run() {
	defer l.DoneGoroutine()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.Context().Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep reclaims every expired session. Container removal failures are
// logged, never surfaced, and the session is still marked expired, which
// removes it from the registry: it stops counting against admission caps
// and later sweeps do not try to remove its container again.
func (l *Loop) sweep() {
	expired := l.sessions.ListExpired()
	if len(expired) == 0 {
		if l.cfg.OnReclaim != nil {
			l.cfg.OnReclaim(0)
		}
		return
	}

	l.logger.Info("reclaiming expired sessions", "count", len(expired))

	for _, s := range expired {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := l.containers.Remove(ctx, s.ContainerID); err != nil {
			l.logger.Error("failed to remove container for expired session", "session_id", s.ID, "container_id", s.ContainerID, "error", err)
		}
		cancel()

		if _, err := l.sessions.MarkExpired(s.ID); err != nil {
			l.logger.Warn("session already reclaimed", "session_id", s.ID, "error", err)
		}
	}

	if l.cfg.OnReclaim != nil {
		l.cfg.OnReclaim(len(expired))
	}
}

// Stop cancels the ticker and waits for any in-flight sweep to finish.
func (l *Loop) Stop() error {
	if !l.TransitionToStopping() {
		return nil
	}
	l.WaitForShutdown()
	l.TransitionToStopped()
	l.CloseErrChannel()
	return nil
}
