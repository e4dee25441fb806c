// SPDX-License-Identifier: MPL-2.0

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds the admission and timeout budgets enforced by a Manager.
type Config struct {
	// MaxPerUser caps concurrently active sessions per user.
	MaxPerUser int
	// MaxTotal caps concurrently active sessions system-wide.
	MaxTotal int
	// IdleTimeout is the inactivity bound before a session is eligible for expiry.
	IdleTimeout time.Duration
	// MaxDuration is the absolute session lifetime bound.
	MaxDuration time.Duration
}

type pendingKey struct {
	userID      string
	challengeID string
}

// Manager is the in-memory session registry. All exported methods are
// safe for concurrent use. now is overridable for deterministic tests.
type Manager struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	sessions map[ID]*Session
	pending  map[pendingKey]struct{}
}

// NewManager creates a Manager with the given configuration, applying the
// spec defaults for any zero-valued field.
func NewManager(cfg Config) *Manager {
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = 1
	}
	if cfg.MaxTotal <= 0 {
		cfg.MaxTotal = 15
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 15 * time.Minute
	}

	return &Manager{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[ID]*Session),
		pending:  make(map[pendingKey]struct{}),
	}
}

// Admit decides whether a new session may be created for userID, based on
// the live count of that user's active sessions and the system-wide total.
// It performs no mutation; callers still must win the pending-key race via
// MarkPending before allocating a container.
func (m *Manager) Admit(userID string) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	userActive := 0
	totalActive := 0
	for _, s := range m.sessions {
		if s.Status != StatusActive {
			continue
		}
		totalActive++
		if s.UserID == userID {
			userActive++
		}
	}

	if userActive >= m.cfg.MaxPerUser {
		return Decision{Allowed: false, Reason: fmt.Sprintf("Maximum %d active session(s) per user", m.cfg.MaxPerUser)}
	}
	if totalActive >= m.cfg.MaxTotal {
		return Decision{Allowed: false, Reason: "System at capacity"}
	}
	return Decision{Allowed: true}
}

// MarkPending records an advisory (user, challenge) marker. Returns false
// if a marker already exists for that pair.
func (m *Manager) MarkPending(userID, challengeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pendingKey{userID, challengeID}
	if _, exists := m.pending[key]; exists {
		return false
	}
	m.pending[key] = struct{}{}
	return true
}

// ClearPending removes the (user, challenge) marker. Safe to call even if
// no marker exists.
func (m *Manager) ClearPending(userID, challengeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, pendingKey{userID, challengeID})
}

// IsPending reports whether a (user, challenge) creation is in flight.
func (m *Manager) IsPending(userID, challengeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.pending[pendingKey{userID, challengeID}]
	return exists
}

// Create inserts a new active session bound to containerID. Callers must
// have already won admission and the pending-key race.
func (m *Manager) Create(userID, challengeID, containerID string) *Session {
	now := m.now()

	s := &Session{
		ID:           uuid.New(),
		UserID:       userID,
		ChallengeID:  challengeID,
		ContainerID:  containerID,
		Status:       StatusActive,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(m.cfg.MaxDuration),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s
}

// Get returns a copy of the session with the given id, or ErrNotFound.
func (m *Manager) Get(id ID) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return *s, nil
}

// UpdateActivity advances last_activity_at to now. A no-op if the session
// is absent. Monotonic: the timestamp is only advanced when now is after
// the stored value, so a clock that reads earlier never regresses it.
func (m *Manager) UpdateActivity(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	now := m.now()
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
}

// End transitions a session to StatusEnded and removes it from the
// registry. Returns the removed session (so callers can notify the
// terminal gateway and remove the container) or ErrNotFound if the
// session was already gone — making End idempotent under double calls.
func (m *Manager) End(id ID) (Session, error) {
	return m.terminate(id, StatusEnded)
}

// MarkExpired transitions a session to StatusExpired and removes it from
// the registry, for use by the cleanup loop.
func (m *Manager) MarkExpired(id ID) (Session, error) {
	return m.terminate(id, StatusExpired)
}

func (m *Manager) terminate(id ID, status Status) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	s.Status = status
	delete(m.sessions, id)
	return *s, nil
}

// ListActive returns all sessions currently active.
func (m *Manager) ListActive() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			out = append(out, *s)
		}
	}
	return out
}

// ListUser returns all active sessions owned by userID.
func (m *Manager) ListUser(userID string) []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == StatusActive {
			out = append(out, *s)
		}
	}
	return out
}

// ListExpired returns sessions whose idle or absolute timeout has elapsed
// at the moment of the call.
func (m *Manager) ListExpired() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var out []Session
	for _, s := range m.sessions {
		if s.Status != StatusActive {
			continue
		}
		if now.Sub(s.LastActivity) > m.cfg.IdleTimeout || now.After(s.ExpiresAt) {
			out = append(out, *s)
		}
	}
	return out
}

// FindActiveForChallenge returns the caller's active session for a
// specific challenge, if one exists. Used to resolve the duplicate-start
// race: a second start for the same (user, challenge) should return the
// existing session rather than a fresh admission denial.
func (m *Manager) FindActiveForChallenge(userID, challengeID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.UserID == userID && s.ChallengeID == challengeID && s.Status == StatusActive {
			return *s, true
		}
	}
	return Session{}, false
}
