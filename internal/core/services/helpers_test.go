package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vncsmyrnk/kioskvote/internal/adapters/repository/sqldb"
	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

const testPassword = "s3cret"

func newTestStore(t *testing.T) *sqldb.Store {
	t.Helper()

	store, err := sqldb.Open(context.Background(), sqldb.Config{
		Dialect:   sqldb.DialectSQLite,
		Path:      filepath.Join(t.TempDir(), "ledger.db"),
		TxTimeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestLedger(t *testing.T) *ledgerService {
	t.Helper()
	return NewLedgerService(newTestStore(t), NewBcryptHasher(bcrypt.MinCost), 5*time.Second, nil).(*ledgerService)
}

func newTestAuth(t *testing.T, lookup ports.CredentialLookup) *AuthService {
	t.Helper()

	auth, err := NewAuthService(lookup, NewBcryptHasher(bcrypt.MinCost), AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Minute}, nil)
	require.NoError(t, err)
	return auth
}

// seedElection creates an election with the given regular candidates and
// returns their ids in ballot order, NOTA last.
func seedElection(t *testing.T, ledger ports.LedgerService, name string, candidates ...string) (int64, []int64) {
	t.Helper()
	ctx := context.Background()

	electionID, err := ledger.CreateElection(ctx, ports.CreateElectionInput{Name: name, AdminPassword: testPassword})
	require.NoError(t, err)
	for _, c := range candidates {
		_, err := ledger.AddCandidate(ctx, electionID, ports.CandidateInput{Name: c})
		require.NoError(t, err)
	}

	ballot, err := ledger.Candidates(ctx, electionID)
	require.NoError(t, err)
	ids := make([]int64, 0, len(ballot))
	for _, c := range ballot {
		ids = append(ids, c.ID)
	}
	return electionID, ids
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) types() []domain.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()

	types := make([]domain.NotificationType, 0, len(n.sent))
	for _, note := range n.sent {
		types = append(types, note.Type)
	}
	return types
}

type fakeLockdown struct {
	mu       sync.Mutex
	engaged  int
	released int
	err      error
}

func (f *fakeLockdown) Engage(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.engaged++
	return f.err
}

func (f *fakeLockdown) Release(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return f.err
}

func (f *fakeLockdown) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engaged, f.released
}

type passwordVerifier string

func (p passwordVerifier) VerifyAdmin(_ context.Context, _ int64, password string) bool {
	return password == string(p)
}

func (p passwordVerifier) Verify(password, _ string) bool {
	return password == string(p)
}

// stubLedger scripts CastVote and UndoLastVote results. Methods it does not
// override panic through the nil embedded interface.
type stubLedger struct {
	ports.LedgerService

	mu        sync.Mutex
	castErrs  []error
	castCalls int
	undoErr   error
}

func (l *stubLedger) CheckReadiness(context.Context, int64) error {
	return nil
}

func (l *stubLedger) GetElection(_ context.Context, id int64) (*domain.Election, error) {
	return &domain.Election{ID: id, Name: "Stub", AdminPasswordHash: "stub-hash"}, nil
}

func (l *stubLedger) Results(_ context.Context, electionID int64) (*domain.Results, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &domain.Results{ElectionID: electionID, ElectionName: "Stub", TotalVotes: int64(l.castCalls)}, nil
}

func (l *stubLedger) Candidates(_ context.Context, electionID int64) ([]domain.Candidate, error) {
	return []domain.Candidate{
		{ID: 1, ElectionID: electionID, Name: "Alice"},
		{ID: 2, ElectionID: electionID, Name: domain.NOTAName, IsNOTA: true},
	}, nil
}

func (l *stubLedger) CastVote(context.Context, int64, int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.castCalls++
	if len(l.castErrs) > 0 {
		err := l.castErrs[0]
		l.castErrs = l.castErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	return int64(l.castCalls), nil
}

func (l *stubLedger) UndoLastVote(context.Context, int64) (int64, bool, error) {
	if l.undoErr != nil {
		return 0, false, l.undoErr
	}
	return 0, false, nil
}
