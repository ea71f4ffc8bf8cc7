package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

// AdminVerifier is the part of the auth gate the session needs.
type AdminVerifier interface {
	VerifyAdmin(ctx context.Context, electionID int64, password string) bool
	Verify(password, hash string) bool
}

// SessionManager hands out the single voting session of the process.
type SessionManager struct {
	mu       sync.Mutex
	active   *Session
	ledger   ports.LedgerService
	auth     AdminVerifier
	lockdown ports.LockdownController
	notifier ports.Notifier
	l        *zap.Logger
}

var _ ports.SessionService = (*SessionManager)(nil)

func NewSessionManager(ledger ports.LedgerService, auth AdminVerifier, lockdown ports.LockdownController, notifier ports.Notifier, l *zap.Logger) *SessionManager {
	if l == nil {
		l = zap.NewNop()
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &SessionManager{
		ledger:   ledger,
		auth:     auth,
		lockdown: lockdown,
		notifier: notifier,
		l:        l,
	}
}

// Start verifies the admin password and returns an armed session. The
// already-active check runs first so a busy kiosk never reveals whether a
// password was right.
func (m *SessionManager) Start(ctx context.Context, electionID int64, password string) (ports.VotingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.State().Live() {
		return nil, domain.ErrSessionAlreadyActive
	}
	if !m.auth.VerifyAdmin(ctx, electionID, password) {
		m.l.Warn("session start rejected", zap.Int64("election_id", electionID))
		return nil, fmt.Errorf("election %d: %w", electionID, domain.ErrAuthFailed)
	}
	if err := m.ledger.CheckReadiness(ctx, electionID); err != nil {
		return nil, err
	}
	election, err := m.ledger.GetElection(ctx, electionID)
	if err != nil {
		return nil, err
	}

	s := newSession(electionID, election.AdminPasswordHash, m.ledger, m.auth, m.lockdown, m.notifier, m.l)
	m.active = s
	m.l.Info("session armed", zap.Stringer("session_id", s.id), zap.Int64("election_id", electionID))
	s.notify(domain.Notification{Type: domain.NotifyStateChanged, State: domain.StateArmed})
	return s, nil
}

func (m *SessionManager) Active() (ports.VotingSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || !m.active.State().Live() {
		return nil, false
	}
	return m.active, true
}

// DeleteElection removes an election unless the live session runs on it.
func (m *SessionManager) DeleteElection(ctx context.Context, electionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.electionID == electionID && m.active.State().Live() {
		return fmt.Errorf("election %d is in use: %w", electionID, domain.ErrSessionAlreadyActive)
	}
	return m.ledger.DeleteElection(ctx, electionID)
}

func (m *SessionManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	s := m.active
	m.mu.Unlock()

	if s != nil {
		s.terminate(ctx, "shutdown")
	}
}

type discardNotifier struct{}

func (discardNotifier) Notify(domain.Notification) {}
