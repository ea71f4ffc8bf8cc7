package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

type sessionFixture struct {
	manager  *SessionManager
	ledger   ports.LedgerService
	lockdown *fakeLockdown
	notes    *recordingNotifier
}

func newSessionFixture(t *testing.T, ledger ports.LedgerService, auth AdminVerifier) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		ledger:   ledger,
		lockdown: &fakeLockdown{},
		notes:    &recordingNotifier{},
	}
	f.manager = NewSessionManager(ledger, auth, f.lockdown, f.notes, nil)
	return f
}

func newLedgerFixture(t *testing.T) *sessionFixture {
	t.Helper()

	ledger := newTestLedger(t)
	return newSessionFixture(t, ledger, newTestAuth(t, ledger))
}

func (f *sessionFixture) engage(t *testing.T, electionID int64) ports.VotingSession {
	t.Helper()

	s, err := f.manager.Start(context.Background(), electionID, testPassword)
	require.NoError(t, err)
	snap, err := s.Engage(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.StateBallotOpen, snap.State)
	return s
}

func dispatch(t *testing.T, s ports.VotingSession, ev domain.Event) domain.Outcome {
	t.Helper()

	out, err := s.Dispatch(context.Background(), ev)
	require.NoError(t, err)
	return out
}

func TestSessionLifecycle(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, ids := seedElection(t, f.ledger, "Class Rep", "A", "B")
	ctx := context.Background()

	s := f.engage(t, electionID)
	snap := s.Snapshot()
	assert.True(t, snap.Lockdown)
	assert.Len(t, snap.Ballot, 3)
	engaged, _ := f.lockdown.counts()
	assert.Equal(t, 1, engaged)

	out := dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: ids[0]})
	assert.Equal(t, domain.StateSelected, out.State)

	out = dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: ids[1]})
	assert.Equal(t, domain.StateSelected, out.State)
	require.NotNil(t, s.Snapshot().Selected)
	assert.Equal(t, ids[1], *s.Snapshot().Selected)

	out = dispatch(t, s, domain.Event{Type: domain.EventConfirm})
	assert.Equal(t, domain.StateCast, out.State)
	require.NotNil(t, out.VoteID)

	out = dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: ids[0]})
	assert.True(t, out.Swallowed)
	assert.Equal(t, domain.StateCast, out.State)

	out = dispatch(t, s, domain.Event{Type: domain.EventConfirm})
	assert.Equal(t, domain.StateCast, out.State)

	out = dispatch(t, s, domain.Event{Type: domain.EventNextBallot})
	assert.Equal(t, domain.StateBallotOpen, out.State)
	assert.Nil(t, s.Snapshot().Selected)

	rows, err := f.ledger.Tally(ctx, electionID)
	require.NoError(t, err)
	assert.Equal(t, ids[1], rows[0].Candidate.ID)
	assert.EqualValues(t, 1, rows[0].VoteCount)

	assert.Contains(t, f.notes.types(), domain.NotifyVoteCast)
}

func TestClassRepThroughSession(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, ids := seedElection(t, f.ledger, "Class Rep", "A", "B")
	a, b, nota := ids[0], ids[1], ids[2]
	s := f.engage(t, electionID)

	for _, c := range []int64{a, a, b, nota} {
		dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: c})
		dispatch(t, s, domain.Event{Type: domain.EventConfirm})
		dispatch(t, s, domain.Event{Type: domain.EventNextBallot})
	}

	results, err := f.ledger.Results(context.Background(), electionID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, results.TotalVotes)
	require.Len(t, results.Rows, 3)
	assert.Equal(t, []int64{a, b, nota}, []int64{results.Rows[0].CandidateID, results.Rows[1].CandidateID, results.Rows[2].CandidateID})
	assert.InDelta(t, 50.0, results.Rows[0].Percentage, 1e-9)
	assert.InDelta(t, 25.0, results.Rows[1].Percentage, 1e-9)
	assert.InDelta(t, 25.0, results.Rows[2].Percentage, 1e-9)
}

func TestOnlyOneSessionAtATime(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, _ := seedElection(t, f.ledger, "Class Rep", "A")
	otherID, _ := seedElection(t, f.ledger, "Other", "B")
	ctx := context.Background()

	s := f.engage(t, electionID)

	_, err := f.manager.Start(ctx, otherID, testPassword)
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyActive)
	_, err = f.manager.Start(ctx, otherID, "wrong")
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyActive)

	active, ok := f.manager.Active()
	require.True(t, ok)
	assert.Equal(t, s, active)

	out := dispatch(t, s, domain.Event{Type: domain.EventEmergencyExit, Password: testPassword})
	assert.Equal(t, domain.StateIdle, out.State)
	_, ok = f.manager.Active()
	assert.False(t, ok)

	next, err := f.manager.Start(ctx, otherID, testPassword)
	require.NoError(t, err)
	assert.Equal(t, domain.StateArmed, next.Snapshot().State)
}

func TestStartRejections(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, _ := seedElection(t, f.ledger, "Class Rep", "A")
	emptyID, _ := seedElection(t, f.ledger, "Empty")
	ctx := context.Background()

	_, err := f.manager.Start(ctx, electionID, "wrong")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)

	_, err = f.manager.Start(ctx, 404, testPassword)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)

	_, err = f.manager.Start(ctx, emptyID, testPassword)
	assert.ErrorIs(t, err, domain.ErrNotReady)

	_, ok := f.manager.Active()
	assert.False(t, ok)
}

func TestAbortArmedSession(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, _ := seedElection(t, f.ledger, "Class Rep", "A")
	ctx := context.Background()

	s, err := f.manager.Start(ctx, electionID, testPassword)
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, domain.Event{Type: domain.EventConfirm})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, s.Abort(ctx))
	assert.Equal(t, domain.StateIdle, s.Snapshot().State)
	engaged, _ := f.lockdown.counts()
	assert.Zero(t, engaged)

	assert.ErrorIs(t, s.Abort(ctx), domain.ErrInvalidTransition)
	_, err = s.Dispatch(ctx, domain.Event{Type: domain.EventConfirm})
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestWrongPasswordExitStaysPending(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, ids := seedElection(t, f.ledger, "Class Rep", "A")
	ctx := context.Background()
	s := f.engage(t, electionID)
	dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: ids[0]})

	out := dispatch(t, s, domain.Event{Type: domain.EventEmergencyExit})
	assert.Equal(t, domain.StateExitPending, out.State)

	for j := 0; j < 3; j++ {
		out, err := s.Dispatch(ctx, domain.Event{Type: domain.EventEmergencyExit, Password: "wrong"})
		assert.ErrorIs(t, err, domain.ErrAuthFailed)
		assert.Equal(t, domain.StateExitPending, out.State)
		assert.Equal(t, domain.KindAuthFailed, out.Error)
	}

	out = dispatch(t, s, domain.Event{Type: domain.EventConfirm})
	assert.True(t, out.Swallowed)

	out = dispatch(t, s, domain.Event{Type: domain.EventExitCancel})
	assert.Equal(t, domain.StateSelected, out.State)
	assert.Equal(t, ids[0], *s.Snapshot().Selected)

	out = dispatch(t, s, domain.Event{Type: domain.EventEmergencyExit, Password: testPassword})
	assert.Equal(t, domain.StateIdle, out.State)
	_, released := f.lockdown.counts()
	assert.Equal(t, 1, released)
	assert.False(t, s.Snapshot().Lockdown)

	types := f.notes.types()
	assert.Equal(t, domain.NotifySessionEnded, types[len(types)-1])
}

func TestCastForeignCandidateStaysSelected(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, _ := seedElection(t, f.ledger, "Class Rep", "A")
	_, otherIDs := seedElection(t, f.ledger, "Other", "B")
	ctx := context.Background()
	s := f.engage(t, electionID)

	dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: otherIDs[0]})
	out, err := s.Dispatch(ctx, domain.Event{Type: domain.EventConfirm})
	assert.ErrorIs(t, err, domain.ErrInvalidCandidate)
	assert.Equal(t, domain.StateSelected, out.State)
	assert.Equal(t, domain.KindTryAgain, out.Error)
	assert.True(t, s.Snapshot().Lockdown)
}

func TestVoterCannotUndo(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, ids := seedElection(t, f.ledger, "Class Rep", "A")
	ctx := context.Background()
	s := f.engage(t, electionID)

	dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: ids[0]})
	dispatch(t, s, domain.Event{Type: domain.EventConfirm})

	out, err := s.Dispatch(ctx, domain.Event{Type: domain.EventUndo, Role: domain.RoleVoter})
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Equal(t, domain.StateCast, out.State)

	results, err := f.ledger.Results(ctx, electionID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, results.TotalVotes)
}

func TestOperatorUndo(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, ids := seedElection(t, f.ledger, "Class Rep", "A")
	ctx := context.Background()
	s := f.engage(t, electionID)

	dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: ids[0]})
	cast := dispatch(t, s, domain.Event{Type: domain.EventConfirm})
	require.NotNil(t, cast.VoteID)

	out := dispatch(t, s, domain.Event{Type: domain.EventUndo, Role: domain.RoleOperator})
	assert.Equal(t, domain.StateBallotOpen, out.State)
	require.NotNil(t, out.VoteID)
	assert.Equal(t, *cast.VoteID, *out.VoteID)
	assert.Nil(t, s.Snapshot().LastVoteID)

	out = dispatch(t, s, domain.Event{Type: domain.EventUndo, Role: domain.RoleOperator})
	assert.Equal(t, domain.StateBallotOpen, out.State)
	assert.Nil(t, out.VoteID)

	results, err := f.ledger.Results(ctx, electionID)
	require.NoError(t, err)
	assert.Zero(t, results.TotalVotes)
	assert.Contains(t, f.notes.types(), domain.NotifyVoteUndone)
}

func TestHostShortcutsAreSwallowed(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, _ := seedElection(t, f.ledger, "Class Rep", "A")
	s := f.engage(t, electionID)

	out := dispatch(t, s, domain.Event{Type: domain.EventHostShortcut})
	assert.True(t, out.Swallowed)
	assert.Equal(t, domain.StateBallotOpen, out.State)

	out = dispatch(t, s, domain.Event{Type: domain.EventConfirm})
	assert.Equal(t, domain.StateBallotOpen, out.State)

	_, err := s.Dispatch(context.Background(), domain.Event{Type: "reboot"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestShutdownReleasesLockdown(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, _ := seedElection(t, f.ledger, "Class Rep", "A")
	s := f.engage(t, electionID)

	f.manager.Shutdown(context.Background())
	assert.Equal(t, domain.StateIdle, s.Snapshot().State)
	_, released := f.lockdown.counts()
	assert.Equal(t, 1, released)

	f.manager.Shutdown(context.Background())
	_, released = f.lockdown.counts()
	assert.Equal(t, 1, released)
}

func TestLockdownFailureIsNotFatal(t *testing.T) {
	ledger := &stubLedger{}
	f := newSessionFixture(t, ledger, passwordVerifier(testPassword))
	f.lockdown.err = errors.New("xmodmap: command not found")

	s := f.engage(t, 1)
	assert.Equal(t, domain.StateBallotOpen, s.Snapshot().State)
}

func TestCastRetriesBusyOnce(t *testing.T) {
	ledger := &stubLedger{castErrs: []error{domain.ErrBusy}}
	f := newSessionFixture(t, ledger, passwordVerifier(testPassword))
	s := f.engage(t, 1)

	dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: 1})
	out := dispatch(t, s, domain.Event{Type: domain.EventConfirm})
	assert.Equal(t, domain.StateCast, out.State)
	assert.Equal(t, 2, ledger.castCalls)
}

func TestCastBusyTwiceKeepsBallot(t *testing.T) {
	ledger := &stubLedger{castErrs: []error{domain.ErrBusy, domain.ErrBusy}}
	f := newSessionFixture(t, ledger, passwordVerifier(testPassword))
	s := f.engage(t, 1)

	dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: 1})
	out, err := s.Dispatch(context.Background(), domain.Event{Type: domain.EventConfirm})
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, domain.StateSelected, out.State)
	assert.Equal(t, domain.KindTryAgain, out.Error)
	assert.Equal(t, 2, ledger.castCalls)
	assert.Contains(t, f.notes.types(), domain.NotifyError)
}

func TestStoreFailureEndsSession(t *testing.T) {
	ledger := &stubLedger{castErrs: []error{errors.New("disk I/O error")}}
	f := newSessionFixture(t, ledger, passwordVerifier(testPassword))
	s := f.engage(t, 1)

	dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: 1})
	out, err := s.Dispatch(context.Background(), domain.Event{Type: domain.EventConfirm})
	assert.Error(t, err)
	assert.Equal(t, domain.StateIdle, out.State)
	assert.Equal(t, domain.KindTryAgain, out.Error)

	_, released := f.lockdown.counts()
	assert.Equal(t, 1, released)
	types := f.notes.types()
	assert.Equal(t, domain.NotifySessionEnded, types[len(types)-1])

	_, ok := f.manager.Active()
	assert.False(t, ok)
}

func TestUndoBusyLeavesStateUnchanged(t *testing.T) {
	ledger := &stubLedger{undoErr: domain.ErrBusy}
	f := newSessionFixture(t, ledger, passwordVerifier(testPassword))
	s := f.engage(t, 1)
	dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: 1})

	out, err := s.Dispatch(context.Background(), domain.Event{Type: domain.EventUndo, Role: domain.RoleOperator})
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, domain.StateSelected, out.State)
	assert.Equal(t, domain.KindBusy, out.Error)
}

func TestDeleteElectionRefusedWhileSessionLive(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	electionID, _ := seedElection(t, f.ledger, "Class Rep", "A")
	otherID, _ := seedElection(t, f.ledger, "Other", "X")
	s := f.engage(t, electionID)

	err := f.manager.DeleteElection(ctx, electionID)
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyActive)
	require.NoError(t, f.manager.DeleteElection(ctx, otherID))

	out := dispatch(t, s, domain.Event{Type: domain.EventEmergencyExit, Password: testPassword})
	assert.Equal(t, domain.StateIdle, out.State)

	require.NoError(t, f.manager.DeleteElection(ctx, electionID))
	_, err = f.ledger.GetElection(ctx, electionID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExitSurvivesElectionRemoval(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	electionID, _ := seedElection(t, f.ledger, "Class Rep", "A")
	s := f.engage(t, electionID)

	require.NoError(t, f.ledger.DeleteElection(ctx, electionID))

	out, err := s.Dispatch(ctx, domain.Event{Type: domain.EventEmergencyExit, Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Equal(t, domain.StateExitPending, out.State)

	out = dispatch(t, s, domain.Event{Type: domain.EventEmergencyExit, Password: testPassword})
	assert.Equal(t, domain.StateIdle, out.State)
	assert.Nil(t, out.Results)
	_, released := f.lockdown.counts()
	assert.Equal(t, 1, released)
}

func TestExitHandsOverFinalResults(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, ids := seedElection(t, f.ledger, "Class Rep", "A")
	s := f.engage(t, electionID)

	dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: ids[0]})
	dispatch(t, s, domain.Event{Type: domain.EventConfirm})

	out := dispatch(t, s, domain.Event{Type: domain.EventEmergencyExit, Password: testPassword})
	assert.Equal(t, domain.StateIdle, out.State)
	require.NotNil(t, out.Results)
	assert.Equal(t, electionID, out.Results.ElectionID)
	assert.EqualValues(t, 1, out.Results.TotalVotes)
	require.Len(t, out.Results.Rows, 2)

	f.notes.mu.Lock()
	last := f.notes.sent[len(f.notes.sent)-1]
	f.notes.mu.Unlock()
	assert.Equal(t, domain.NotifySessionEnded, last.Type)
	require.NotNil(t, last.Results)
	assert.EqualValues(t, 1, last.Results.TotalVotes)
}

func TestCancelledCastKeepsSessionLive(t *testing.T) {
	ledger := &stubLedger{castErrs: []error{fmt.Errorf("failed to begin transaction: %w", context.Canceled)}}
	f := newSessionFixture(t, ledger, passwordVerifier(testPassword))
	s := f.engage(t, 1)

	dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: 1})
	out, err := s.Dispatch(context.Background(), domain.Event{Type: domain.EventConfirm})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StateSelected, out.State)
	assert.Equal(t, domain.KindTryAgain, out.Error)

	_, released := f.lockdown.counts()
	assert.Zero(t, released)
	_, ok := f.manager.Active()
	assert.True(t, ok)
}

func TestCancelledUndoKeepsSessionLive(t *testing.T) {
	ledger := &stubLedger{undoErr: fmt.Errorf("failed to begin transaction: %w", context.Canceled)}
	f := newSessionFixture(t, ledger, passwordVerifier(testPassword))
	s := f.engage(t, 1)

	out, err := s.Dispatch(context.Background(), domain.Event{Type: domain.EventUndo, Role: domain.RoleOperator})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StateBallotOpen, out.State)
	_, ok := f.manager.Active()
	assert.True(t, ok)
}

func TestCastOutlivesCallerCancellation(t *testing.T) {
	f := newLedgerFixture(t)
	electionID, ids := seedElection(t, f.ledger, "Class Rep", "A")
	s := f.engage(t, electionID)
	dispatch(t, s, domain.Event{Type: domain.EventSelect, CandidateID: ids[0]})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := s.Dispatch(ctx, domain.Event{Type: domain.EventConfirm})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCast, out.State)

	rows, err := f.ledger.Tally(context.Background(), electionID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows[0].VoteCount)
}
