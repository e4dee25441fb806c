// SPDX-License-Identifier: MPL-2.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jamesyoung-15/SudoOpsCode/internal/catalog"
	"github.com/jamesyoung-15/SudoOpsCode/internal/session"
	"github.com/jamesyoung-15/SudoOpsCode/internal/validation"
)

// TokenVerifier decodes and validates a bearer token, returning the
// authenticated user id. It is satisfied by *terminal.JWTVerifier.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// SessionAdmitter is the subset of session.Manager the server needs for
// starting sessions.
type SessionAdmitter interface {
	Admit(userID string) session.Decision
	MarkPending(userID, challengeID string) bool
	ClearPending(userID, challengeID string)
	Create(userID, challengeID, containerID string) *session.Session
	FindActiveForChallenge(userID, challengeID string) (session.Session, bool)
	Get(id session.ID) (session.Session, error)
	End(id session.ID) (session.Session, error)
	ListUser(userID string) []session.Session
}

// ContainerProvisioner is the subset of container.Manager the server
// needs for starting and ending sessions.
type ContainerProvisioner interface {
	CreateForChallenge(ctx context.Context, challengeID, userID string) (string, error)
	Remove(ctx context.Context, containerID string) error
}

// ChallengeResolver is the subset of catalog.Catalog the server needs
// to reject unknown challenge ids before provisioning a container.
type ChallengeResolver interface {
	Dir(challengeID string) (string, error)
}

// Validator runs a session's validation flow.
type Validator interface {
	Validate(ctx context.Context, id session.ID, userID string) (validation.Result, error)
}

// Server is the HTTP/JSON session surface (spec.md §6). It is a thin
// transport layer: all policy decisions live in the session, container,
// and validation packages it wires together. Every route requires a
// verified bearer token; the caller's identity is never taken from the
// request body or query string.
type Server struct {
	sessions   SessionAdmitter
	containers ContainerProvisioner
	challenges ChallengeResolver
	validator  Validator
	verifier   TokenVerifier
	logger     *log.Logger
}

// NewServer wires a Server's dependencies; Routes builds its chi router.
func NewServer(sessions SessionAdmitter, containers ContainerProvisioner, challenges ChallengeResolver, validator Validator, verifier TokenVerifier) *Server {
	return &Server{
		sessions:   sessions,
		containers: containers,
		challenges: challenges,
		validator:  validator,
		verifier:   verifier,
		logger:     log.NewWithOptions(nil, log.Options{Prefix: "api"}),
	}
}

// Routes builds the chi router for the session surface.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions/start", s.handleStart)
	r.Post("/sessions/{id}/validate", s.handleValidate)
	r.Get("/sessions/{id}", s.handleGet)
	r.Delete("/sessions/{id}", s.handleEnd)
	r.Get("/sessions", s.handleList)
	return r
}

// authenticate extracts and verifies the bearer token from the
// Authorization header, returning the caller's identity. The REST
// surface never trusts a client-supplied user id.
func (s *Server) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errors.New("missing bearer token")
	}
	token := strings.TrimPrefix(header, prefix)
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return s.verifier.Verify(token)
}

type startRequest struct {
	ChallengeID string `json:"challengeId"`
}

type startResponse struct {
	SessionID session.ID `json:"sessionId"`
	ExpiresAt time.Time  `json:"expiresAt"`
	Message   string     `json:"message,omitempty"`
}

type sessionDescriptor struct {
	ID          session.ID     `json:"id"`
	UserID      string         `json:"userId"`
	ChallengeID string         `json:"challengeId"`
	Status      session.Status `json:"status"`
	ExpiresAt   time.Time      `json:"expiresAt"`
}

func toDescriptor(s session.Session) sessionDescriptor {
	return sessionDescriptor{
		ID:          s.ID,
		UserID:      s.UserID,
		ChallengeID: s.ChallengeID,
		Status:      s.Status,
		ExpiresAt:   s.ExpiresAt,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type listResponse struct {
	Sessions []sessionDescriptor `json:"sessions"`
}

// handleStart implements POST /sessions/start. If the caller already has
// an active session for the requested challenge, that session is
// returned as-is rather than denying admission — see the duplicate-start
// Open Question decision.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChallengeID == "" {
		writeError(w, http.StatusBadRequest, "challengeId is required")
		return
	}

	if existing, ok := s.sessions.FindActiveForChallenge(userID, req.ChallengeID); ok {
		writeJSON(w, http.StatusOK, startResponse{
			SessionID: existing.ID,
			ExpiresAt: existing.ExpiresAt,
			Message:   "Existing session found",
		})
		return
	}

	if _, err := s.challenges.Dir(req.ChallengeID); err != nil {
		var notFound *catalog.NotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusBadRequest, "unknown challenge")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to resolve challenge")
		return
	}

	if !s.sessions.MarkPending(userID, req.ChallengeID) {
		writeError(w, http.StatusConflict, "session creation already in progress")
		return
	}
	defer s.sessions.ClearPending(userID, req.ChallengeID)

	decision := s.sessions.Admit(userID)
	if !decision.Allowed {
		writeError(w, http.StatusTooManyRequests, decision.Reason)
		return
	}

	containerID, err := s.containers.CreateForChallenge(r.Context(), req.ChallengeID, userID)
	if err != nil {
		s.logger.Error("failed to provision container", "user_id", userID, "challenge_id", req.ChallengeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start challenge")
		return
	}

	sess := s.sessions.Create(userID, req.ChallengeID, containerID)
	writeJSON(w, http.StatusOK, startResponse{SessionID: sess.ID, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	result, err := s.validator.Validate(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if errors.Is(err, validation.ErrNotOwner) {
			writeError(w, http.StatusForbidden, "not owner")
			return
		}
		if errors.Is(err, validation.ErrNotActive) {
			writeError(w, http.StatusBadRequest, "session is not active")
			return
		}
		s.logger.Error("validation failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "validation failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if sess.UserID != userID {
		writeError(w, http.StatusForbidden, "not owner")
		return
	}
	writeJSON(w, http.StatusOK, toDescriptor(sess))
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}

	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if sess.UserID != userID {
		writeError(w, http.StatusForbidden, "not owner")
		return
	}

	if err := s.containers.Remove(r.Context(), sess.ContainerID); err != nil {
		s.logger.Error("failed to remove container on session end", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	if _, err := s.sessions.End(id); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Session ended"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}

	sessions := s.sessions.ListUser(userID)
	resp := listResponse{Sessions: make([]sessionDescriptor, 0, len(sessions))}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, toDescriptor(sess))
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseID(r *http.Request) (session.ID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}
