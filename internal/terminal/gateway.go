// SPDX-License-Identifier: MPL-2.0

package terminal

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/jamesyoung-15/SudoOpsCode/internal/core/serverbase"
	"github.com/jamesyoung-15/SudoOpsCode/internal/session"
)

// WebSocket close codes. handleUpgrade answers auth failures with HTTP
// errors before upgrading, so closePolicyViolation is not sent.
const (
	closePolicyViolation = 1008
	closeInternalError   = 1011
	closeNormal          = 1000
)

// Config configures a Gateway.
type Config struct {
	Addr         string
	DrainTimeout time.Duration
	CheckOrigin  func(r *http.Request) bool
}

// Gateway is the TerminalGateway (C4): it upgrades a fixed path into a
// WebSocket, authenticates and authorizes the caller, attaches to the
// challenge container's PTY, and relays bytes verbatim in both
// directions until either end closes.
type Gateway struct {
	*serverbase.Base

	cfg      Config
	verifier TokenVerifier
	sessions SessionLookup
	ptys     PTYAttacher
	logger   *log.Logger
	upgrader websocket.Upgrader

	listener   net.Listener
	httpServer *http.Server

	regMu sync.Mutex
	conns map[session.ID]*connection
}

// NewGateway wires a Gateway's external dependencies.
func NewGateway(cfg Config, verifier TokenVerifier, sessions SessionLookup, ptys PTYAttacher) *Gateway {
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = time.Second
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	g := &Gateway{
		Base:     serverbase.NewBase(),
		cfg:      cfg,
		verifier: verifier,
		sessions: sessions,
		ptys:     ptys,
		logger:   log.NewWithOptions(nil, log.Options{Prefix: "terminal-gateway"}),
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		conns:    make(map[session.ID]*connection),
	}
	return g
}

// Start begins accepting WebSocket upgrades on cfg.Addr. Blocks until the
// listener is ready or ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.TransitionToStarting(ctx); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", g.cfg.Addr)
	if err != nil {
		g.TransitionToFailed(fmt.Errorf("listen on %s: %w", g.cfg.Addr, err))
		return g.LastError()
	}
	g.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/terminal", g.handleUpgrade)
	g.httpServer = &http.Server{Handler: mux}

	g.AddGoroutine()
	go func() {
		defer g.DoneGoroutine()
		if err := g.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			g.SendError(err)
		}
	}()

	g.TransitionToRunning()
	g.logger.Info("terminal gateway started", "address", listener.Addr().String())
	return nil
}

// Stop drains and closes every registered connection, then shuts down the
// HTTP server within the configured drain timeout.
func (g *Gateway) Stop() error {
	if !g.TransitionToStopping() {
		return nil
	}

	g.regMu.Lock()
	conns := make([]*connection, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.regMu.Unlock()

	for _, c := range conns {
		c.writeClose(closeNormal, "Session ended")
		c.cleanup()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), g.cfg.DrainTimeout)
	defer cancel()
	err := g.httpServer.Shutdown(shutdownCtx)

	g.WaitForShutdown()
	g.TransitionToStopped()
	g.CloseErrChannel()
	return err
}

// CloseSession closes the connection registered for id, if any. Idempotent.
func (g *Gateway) CloseSession(id session.ID) {
	g.regMu.Lock()
	c, ok := g.conns[id]
	g.regMu.Unlock()
	if !ok {
		return
	}
	c.writeClose(closeNormal, "Session ended")
	c.cleanup()
	g.unregister(id)
}

func (g *Gateway) register(id session.ID, c *connection) {
	g.regMu.Lock()
	g.conns[id] = c
	g.regMu.Unlock()
}

func (g *Gateway) unregister(id session.ID) {
	g.regMu.Lock()
	delete(g.conns, id)
	g.regMu.Unlock()
}

func (g *Gateway) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	// authn
	token := r.URL.Query().Get("token")
	userID, err := g.verifier.Verify(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// authz
	sessionIDRaw := r.URL.Query().Get("sessionId")
	sid, err := parseSessionID(sessionIDRaw)
	if err != nil {
		http.Error(w, "missing or invalid sessionId", http.StatusBadRequest)
		return
	}
	sess, err := g.sessions.Get(sid)
	if err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if sess.UserID != userID || sess.Status != session.StatusActive {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	socket, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "session_id", sid, "error", err)
		return
	}

	// attaching
	_, stream, err := g.ptys.AttachPTY(r.Context(), sess.ContainerID)
	if err != nil {
		g.logger.Error("pty attach failed", "session_id", sid, "error", err)
		closeMsg := websocket.FormatCloseMessage(closeInternalError, "attach failed")
		_ = socket.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = socket.Close()
		return
	}

	conn := &connection{sessionID: sid, socket: socket, stream: stream}
	g.register(sid, conn)

	// streaming
	g.AddGoroutine()
	go func() {
		defer g.DoneGoroutine()
		defer g.finishStreaming(sid, conn)

		errCh := make(chan error, 2)
		go func() { errCh <- conn.relaySocketToPTY(func() { g.sessions.UpdateActivity(sid) }) }()
		go func() { errCh <- conn.relayPTYToSocket() }()
		<-errCh
	}()
}

// finishStreaming performs the once-only teardown when either relay
// direction reports an error or closure, then removes the connection
// from the registry.
func (g *Gateway) finishStreaming(id session.ID, conn *connection) {
	conn.cleanup()
	g.unregister(id)
}
