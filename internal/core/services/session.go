package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

// detachedTimeout bounds ledger and lockdown calls made on behalf of an
// event. They do not follow the caller's cancellation: a client that goes
// away must not decide how a ballot ends.
const detachedTimeout = 15 * time.Second

// Session is the kiosk controller of one election. Dispatch runs one event
// at a time to completion; notifications are emitted in transition order.
type Session struct {
	mu         sync.Mutex
	id         uuid.UUID
	electionID int64
	adminHash  string
	state      domain.SessionState
	prior      domain.SessionState
	selected   *int64
	lockdown   bool
	lastVoteID *int64
	ballot     []domain.Candidate

	ledger   ports.LedgerService
	auth     AdminVerifier
	lockCtl  ports.LockdownController
	notifier ports.Notifier
	l        *zap.Logger
}

var _ ports.VotingSession = (*Session)(nil)

func newSession(electionID int64, adminHash string, ledger ports.LedgerService, auth AdminVerifier, lockCtl ports.LockdownController, notifier ports.Notifier, l *zap.Logger) *Session {
	id := uuid.New()
	return &Session{
		id:         id,
		electionID: electionID,
		adminHash:  adminHash,
		state:      domain.StateArmed,
		ledger:     ledger,
		auth:       auth,
		lockCtl:    lockCtl,
		notifier:   notifier,
		l:          l.With(zap.Stringer("session_id", id), zap.Int64("election_id", electionID)),
	}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		ID:         s.id,
		ElectionID: s.electionID,
		State:      s.state,
		Lockdown:   s.lockdown,
		Ballot:     append([]domain.Candidate(nil), s.ballot...),
	}
	if s.selected != nil {
		c := *s.selected
		snap.Selected = &c
	}
	if s.lastVoteID != nil {
		v := *s.lastVoteID
		snap.LastVoteID = &v
	}
	return snap
}

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), detachedTimeout)
}

// interrupted reports errors that say nothing about the health of the store.
func interrupted(err error) bool {
	return errors.Is(err, domain.ErrBusy) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (s *Session) notify(n domain.Notification) {
	n.SessionID = s.id
	n.ElectionID = s.electionID
	s.notifier.Notify(n)
}

func (s *Session) setState(state domain.SessionState) {
	if s.state == state {
		return
	}
	s.state = state
	s.notify(domain.Notification{Type: domain.NotifyStateChanged, State: state})
}

// Engage loads the ballot and locks the kiosk down. Lockdown is best-effort:
// a controller failure is logged and the session continues.
func (s *Session) Engage(ctx context.Context) (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateArmed {
		return s.snapshot(), fmt.Errorf("engage from %s: %w", s.state, domain.ErrInvalidTransition)
	}

	ballot, err := s.ledger.Candidates(ctx, s.electionID)
	if err != nil {
		return s.snapshot(), fmt.Errorf("failed to load ballot: %w", err)
	}
	s.ballot = ballot

	if s.lockCtl != nil {
		if err := s.lockCtl.Engage(ctx); err != nil {
			s.l.Warn("lockdown engage failed, continuing without host key suppression", zap.Error(err))
		}
	}
	s.lockdown = true
	s.setState(domain.StateBallotOpen)
	s.l.Info("session engaged", zap.Int("ballot_size", len(ballot)))
	return s.snapshot(), nil
}

// Abort drops an armed session that never locked down.
func (s *Session) Abort(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateArmed {
		return fmt.Errorf("abort from %s: %w", s.state, domain.ErrInvalidTransition)
	}
	s.setState(domain.StateIdle)
	s.notify(domain.Notification{Type: domain.NotifySessionEnded})
	s.l.Info("session aborted")
	return nil
}

func (s *Session) Dispatch(ctx context.Context, ev domain.Event) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ev.Type.Valid() {
		return s.outcome(), fmt.Errorf("event %q: %w", ev.Type, domain.ErrInvalidInput)
	}

	switch s.state {
	case domain.StateIdle:
		return s.outcome(), domain.ErrNoActiveSession
	case domain.StateArmed:
		return s.outcome(), fmt.Errorf("%s before engage: %w", ev.Type, domain.ErrInvalidTransition)
	case domain.StateExitPending:
		return s.dispatchExitPending(ctx, ev)
	}

	switch ev.Type {
	case domain.EventSelect:
		return s.selectCandidate(ev)
	case domain.EventConfirm:
		return s.confirm(ctx, ev)
	case domain.EventNextBallot:
		if s.state != domain.StateCast {
			return s.swallowed(), nil
		}
		s.selected = nil
		s.setState(domain.StateBallotOpen)
		return s.outcome(), nil
	case domain.EventUndo:
		return s.undo(ctx, ev)
	case domain.EventEmergencyExit:
		s.prior = s.state
		s.setState(domain.StateExitPending)
		if ev.Password == "" {
			return s.outcome(), nil
		}
		return s.tryExit(ctx, ev)
	}
	// host_shortcut and exit_cancel outside the exit prompt
	return s.swallowed(), nil
}

func (s *Session) dispatchExitPending(ctx context.Context, ev domain.Event) (domain.Outcome, error) {
	switch ev.Type {
	case domain.EventEmergencyExit:
		if ev.Password == "" {
			return s.outcome(), nil
		}
		return s.tryExit(ctx, ev)
	case domain.EventExitCancel:
		s.setState(s.prior)
		return s.outcome(), nil
	}
	return s.swallowed(), nil
}

func (s *Session) selectCandidate(ev domain.Event) (domain.Outcome, error) {
	if s.state == domain.StateCast {
		return s.swallowed(), nil
	}
	if ev.CandidateID <= 0 {
		return s.outcome(), fmt.Errorf("candidate id %d: %w", ev.CandidateID, domain.ErrInvalidInput)
	}
	c := ev.CandidateID
	s.selected = &c
	s.setState(domain.StateSelected)
	return s.outcome(), nil
}

func (s *Session) confirm(ctx context.Context, ev domain.Event) (domain.Outcome, error) {
	if s.state != domain.StateSelected || s.selected == nil {
		return s.outcome(), nil
	}
	candidateID := *s.selected

	lctx, cancel := detached(ctx)
	defer cancel()

	voteID, err := s.ledger.CastVote(lctx, s.electionID, candidateID)
	if errors.Is(err, domain.ErrBusy) {
		s.l.Warn("cast vote busy, retrying once")
		voteID, err = s.ledger.CastVote(lctx, s.electionID, candidateID)
	}
	if err != nil {
		if interrupted(err) || errors.Is(err, domain.ErrInvalidCandidate) {
			s.l.Warn("vote not recorded", zap.Int64("candidate_id", candidateID), zap.Error(err))
			return s.failed(ev, err), err
		}
		return s.storeFailure(ctx, ev, err)
	}

	s.lastVoteID = &voteID
	s.notify(domain.Notification{Type: domain.NotifyVoteCast, CandidateID: candidateID, VoteID: voteID})
	s.setState(domain.StateCast)

	out := s.outcome()
	out.VoteID = &voteID
	return out, nil
}

func (s *Session) undo(ctx context.Context, ev domain.Event) (domain.Outcome, error) {
	if !ev.Role.Privileged() {
		err := fmt.Errorf("undo needs the operator role: %w", domain.ErrAuthFailed)
		return s.failed(ev, err), err
	}

	lctx, cancel := detached(ctx)
	defer cancel()

	voteID, ok, err := s.ledger.UndoLastVote(lctx, s.electionID)
	if err != nil {
		if interrupted(err) {
			return s.failed(ev, err), err
		}
		return s.storeFailure(ctx, ev, err)
	}

	s.selected = nil
	s.lastVoteID = nil
	if ok {
		s.l.Info("last vote undone", zap.Int64("vote_id", voteID))
		s.notify(domain.Notification{Type: domain.NotifyVoteUndone, VoteID: voteID})
	}
	s.setState(domain.StateBallotOpen)

	out := s.outcome()
	if ok {
		out.VoteID = &voteID
	}
	return out, nil
}

// tryExit checks the admin password against the hash captured at Start, so
// the exit keeps working whatever happens to the stored election. A wrong
// password keeps the prompt open and may be retried without limit. On success
// the final results travel with the outcome and the session_ended
// notification.
func (s *Session) tryExit(ctx context.Context, ev domain.Event) (domain.Outcome, error) {
	if !s.auth.Verify(ev.Password, s.adminHash) {
		s.l.Warn("emergency exit rejected")
		s.notify(domain.Notification{Type: domain.NotifyError, Error: domain.KindAuthFailed})
		out := s.outcome()
		out.Error = domain.KindAuthFailed
		return out, domain.ErrAuthFailed
	}
	lctx, cancel := detached(ctx)
	defer cancel()

	results, err := s.ledger.Results(lctx, s.electionID)
	if err != nil {
		s.l.Warn("final results unavailable", zap.Error(err))
	}
	s.teardown(ctx, "emergency exit", results)

	out := s.outcome()
	out.Results = results
	return out, nil
}

// storeFailure ends the session after a ledger error the voter cannot
// recover from. Committed votes stay.
func (s *Session) storeFailure(ctx context.Context, ev domain.Event, err error) (domain.Outcome, error) {
	s.l.Error("ledger failure, ending session", zap.String("event", string(ev.Type)), zap.Error(err))
	out := s.failed(ev, err)
	s.teardown(ctx, "store failure", nil)
	out.State = s.state
	return out, err
}

func (s *Session) failed(ev domain.Event, err error) domain.Outcome {
	kind := domain.KindTryAgain
	if ev.Role.Privileged() {
		kind = domain.KindOf(err)
	}
	s.notify(domain.Notification{Type: domain.NotifyError, Error: kind})
	out := s.outcome()
	out.Error = kind
	return out
}

func (s *Session) teardown(ctx context.Context, reason string, results *domain.Results) {
	if s.lockdown && s.lockCtl != nil {
		rctx, cancel := detached(ctx)
		defer cancel()
		if err := s.lockCtl.Release(rctx); err != nil {
			s.l.Warn("lockdown release failed", zap.Error(err))
		}
	}
	s.lockdown = false
	s.selected = nil
	s.setState(domain.StateIdle)
	s.notify(domain.Notification{Type: domain.NotifySessionEnded, Results: results})
	s.l.Info("session ended", zap.String("reason", reason))
}

func (s *Session) terminate(ctx context.Context, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Live() {
		return
	}
	s.teardown(ctx, reason, nil)
}

func (s *Session) outcome() domain.Outcome {
	return domain.Outcome{State: s.state}
}

func (s *Session) swallowed() domain.Outcome {
	return domain.Outcome{State: s.state, Swallowed: true}
}
