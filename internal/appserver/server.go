// SPDX-License-Identifier: MPL-2.0

package appserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jamesyoung-15/SudoOpsCode/internal/api"
	"github.com/jamesyoung-15/SudoOpsCode/internal/catalog"
	"github.com/jamesyoung-15/SudoOpsCode/internal/cleanup"
	"github.com/jamesyoung-15/SudoOpsCode/internal/config"
	"github.com/jamesyoung-15/SudoOpsCode/internal/container"
	"github.com/jamesyoung-15/SudoOpsCode/internal/progress"
	"github.com/jamesyoung-15/SudoOpsCode/internal/session"
	"github.com/jamesyoung-15/SudoOpsCode/internal/terminal"
	"github.com/jamesyoung-15/SudoOpsCode/internal/validation"
)

var (
	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sudoopscode",
		Name:      "sessions_active",
		Help:      "Number of currently active challenge sessions.",
	})
	cleanupReclaims = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sudoopscode",
		Name:      "cleanup_reclaims_total",
		Help:      "Total number of sessions reclaimed by the cleanup loop.",
	})
)

func init() {
	prometheus.MustRegister(sessionsActive, cleanupReclaims)
}

// Deps are the external resources an App needs beyond its own config:
// a challenge catalog root and, optionally, a progress database DSN.
type Deps struct {
	ChallengeRoot string
	ProgressDSN   string
}

// App is the fully wired application: it owns every long-lived
// component's lifecycle and sequences startup/shutdown.
type App struct {
	cfg *config.Config

	containerDriver container.Driver
	containers      *container.Manager
	sessions        *session.Manager
	catalogStore    *catalog.Catalog
	progressStore   progress.Store
	progressCloser  func() error

	gateway *terminal.Gateway
	reaper  *cleanup.Loop
	api     *api.Server

	metricsServer *http.Server
	apiServer     *http.Server

	metricsCancel context.CancelFunc

	logger *log.Logger
}

// New constructs an App from cfg and deps. The Docker driver and,
// optionally, a PostgreSQL connection are established eagerly, so New
// can fail before any component starts.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	logger := log.NewWithOptions(nil, log.Options{Prefix: "appserver"})

	driver, err := container.NewDockerDriver()
	if err != nil {
		return nil, fmt.Errorf("connect to container engine: %w", err)
	}

	catalogStore := catalog.New(deps.ChallengeRoot)

	containerManager := container.NewManager(driver, catalogStore, cfg.Container.ImageName, container.ResourceProfile{
		MemoryBytes:  cfg.Container.MemoryBytes,
		CPUNanocores: cfg.Container.CPUNanocores,
		PidsLimit:    cfg.Container.PidsLimit,
		NetworkMode:  cfg.Container.NetworkMode,
	})

	sessionManager := session.NewManager(session.Config{
		MaxPerUser:  cfg.Session.MaxPerUser,
		MaxTotal:    cfg.Session.MaxTotal,
		IdleTimeout: cfg.Session.IdleTimeout,
		MaxDuration: cfg.Session.MaxDuration,
	})

	var progressStore progress.Store
	var progressCloser func() error
	if deps.ProgressDSN != "" {
		pg, err := progress.Open(ctx, deps.ProgressDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to progress database: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate progress database: %w", err)
		}
		progressStore = pg
		progressCloser = pg.Close
	} else {
		progressStore = progress.NewMemoryStore()
	}

	verifier := terminal.NewJWTVerifier([]byte(cfg.Auth.SigningKey))
	gateway := terminal.NewGateway(terminal.Config{
		Addr:         cfg.HTTP.Addr,
		DrainTimeout: cfg.Shutdown.DrainTimeout,
	}, verifier, sessionManager, containerManager)

	reaper := cleanup.NewLoop(cleanup.Config{
		Interval: cfg.Cleanup.Interval,
		OnReclaim: func(count int) {
			if count > 0 {
				cleanupReclaims.Add(float64(count))
			}
		},
	}, sessionManager, containerManager)

	coordinator := validation.NewCoordinator(sessionManager, containerManager, progressStore, catalogStore)
	apiServer := api.NewServer(sessionManager, containerManager, catalogStore, coordinator, verifier)

	return &App{
		cfg:             cfg,
		containerDriver: driver,
		containers:      containerManager,
		sessions:        sessionManager,
		catalogStore:    catalogStore,
		progressStore:   progressStore,
		progressCloser:  progressCloser,
		gateway:         gateway,
		reaper:          reaper,
		api:             apiServer,
		logger:          logger,
	}, nil
}

// Start brings up every long-lived component: the base challenge image
// is ensured first since the API and terminal surfaces depend on it,
// then the cleanup loop and terminal gateway are started in turn, and the
// API server and metrics endpoint are served on background goroutines.
func (a *App) Start(ctx context.Context) error {
	if err := a.containers.EnsureImage(ctx); err != nil {
		return fmt.Errorf("ensure base challenge image: %w", err)
	}

	if err := a.reaper.Start(ctx); err != nil {
		return fmt.Errorf("start cleanup loop: %w", err)
	}
	if err := a.gateway.Start(ctx); err != nil {
		return fmt.Errorf("start terminal gateway: %w", err)
	}

	a.apiServer = &http.Server{Addr: a.cfg.HTTP.Addr, Handler: a.api.Routes()}
	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("api server exited", "error", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metricsServer = &http.Server{Addr: a.cfg.HTTP.MetricsAddr, Handler: mux}
	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server exited", "error", err)
		}
	}()

	metricsCtx, metricsCancel := context.WithCancel(context.Background())
	a.metricsCancel = metricsCancel
	go a.observeSessionCount(metricsCtx)

	a.logger.Info("sudoopscode started", "http_addr", a.cfg.HTTP.Addr, "metrics_addr", a.cfg.HTTP.MetricsAddr)
	return nil
}

// Stop shuts down every component in reverse startup order, within
// cfg.Shutdown.DrainTimeout, then releases the container engine
// connection and progress store.
func (a *App) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.DrainTimeout)
	defer cancel()

	if a.metricsCancel != nil {
		a.metricsCancel()
	}

	if a.metricsServer != nil {
		_ = a.metricsServer.Shutdown(ctx)
	}
	if a.apiServer != nil {
		_ = a.apiServer.Shutdown(ctx)
	}
	if err := a.gateway.Stop(); err != nil {
		a.logger.Warn("terminal gateway did not drain cleanly", "error", err)
	}
	if err := a.reaper.Stop(); err != nil {
		a.logger.Warn("cleanup loop did not stop cleanly", "error", err)
	}

	if err := a.containers.CleanupAll(ctx); err != nil {
		a.logger.Warn("failed to clean up all containers on shutdown", "error", err)
	}

	if a.progressCloser != nil {
		if err := a.progressCloser(); err != nil {
			a.logger.Warn("failed to close progress store", "error", err)
		}
	}
	_ = a.containerDriver.Close()

	return nil
}

// observeSessionCount periodically refreshes the sessions_active gauge.
// It is a simple polling loop rather than instrumenting every mutation
// site, matching how the teacher scopes metrics around a loop rather
// than threading a recorder through every call site.
func (a *App) observeSessionCount(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessionsActive.Set(float64(len(a.sessions.ListActive())))
		}
	}
}
