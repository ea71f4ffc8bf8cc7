package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

type ledgerService struct {
	store  ports.Store
	hasher ports.CredentialHasher
	locks  *electionLocks
	now    func() time.Time
	l      *zap.Logger
}

// NewLedgerService returns the vote ledger. lockTimeout bounds how long a
// caller waits for an election lock before getting ErrBusy.
func NewLedgerService(store ports.Store, hasher ports.CredentialHasher, lockTimeout time.Duration, l *zap.Logger) ports.LedgerService {
	if l == nil {
		l = zap.NewNop()
	}
	return &ledgerService{
		store:  store,
		hasher: hasher,
		locks:  newElectionLocks(lockTimeout),
		now:    time.Now,
		l:      l,
	}
}

func (s *ledgerService) withWriteLock(ctx context.Context, electionID int64, fn ports.TxFunc) error {
	unlock, err := s.locks.Lock(ctx, electionID)
	if err != nil {
		return err
	}
	defer unlock()
	return s.store.WithinTx(ctx, fn)
}

func (s *ledgerService) withReadLock(ctx context.Context, electionID int64, fn ports.TxFunc) error {
	unlock, err := s.locks.RLock(ctx, electionID)
	if err != nil {
		return err
	}
	defer unlock()
	return s.store.ReadTx(ctx, fn)
}

func (s *ledgerService) CreateElection(ctx context.Context, input ports.CreateElectionInput) (int64, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return 0, fmt.Errorf("election name is required: %w", domain.ErrInvalidInput)
	}
	if input.AdminPassword == "" {
		return 0, fmt.Errorf("admin password is required: %w", domain.ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(input.AdminPassword)
	if err != nil {
		return 0, err
	}

	election := &domain.Election{
		Name:              name,
		AdminPasswordHash: hash,
		CreatedAt:         s.now().UTC(),
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := repos.Elections.Insert(ctx, election); err != nil {
			return err
		}
		return repos.Candidates.Insert(ctx, &domain.Candidate{
			ElectionID: election.ID,
			Name:       domain.NOTAName,
			IsNOTA:     true,
		})
	})
	if err != nil {
		return 0, err
	}

	s.l.Info("election created", zap.Int64("election_id", election.ID), zap.String("name", name))
	return election.ID, nil
}

func (s *ledgerService) DeleteElection(ctx context.Context, id int64) error {
	err := s.withWriteLock(ctx, id, func(ctx context.Context, repos ports.Repositories) error {
		return repos.Elections.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.l.Info("election deleted", zap.Int64("election_id", id))
	return nil
}

func (s *ledgerService) GetElection(ctx context.Context, id int64) (*domain.Election, error) {
	var election *domain.Election
	err := s.store.ReadTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		election, err = repos.Elections.GetByID(ctx, id)
		return err
	})
	return election, err
}

func (s *ledgerService) ListElections(ctx context.Context) ([]domain.Election, error) {
	var elections []domain.Election
	err := s.store.ReadTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		elections, err = repos.Elections.List(ctx)
		return err
	})
	return elections, err
}

// cleanSymbol normalizes a symbol path. An empty path means no symbol.
func cleanSymbol(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	cleaned := filepath.Clean(trimmed)
	return &cleaned
}

// symbolTaken reports whether another regular candidate already uses symbol.
func symbolTaken(candidates []domain.Candidate, symbol *string, exceptID int64) bool {
	if symbol == nil {
		return false
	}
	for _, c := range candidates {
		if c.IsNOTA || c.ID == exceptID || c.SymbolRef == nil {
			continue
		}
		if filepath.Clean(*c.SymbolRef) == *symbol {
			return true
		}
	}
	return false
}

func (s *ledgerService) AddCandidate(ctx context.Context, electionID int64, input ports.CandidateInput) (int64, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return 0, fmt.Errorf("candidate name is required: %w", domain.ErrInvalidInput)
	}
	candidate := &domain.Candidate{
		ElectionID: electionID,
		Name:       name,
		SymbolRef:  cleanSymbol(input.SymbolRef),
	}

	err := s.withWriteLock(ctx, electionID, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := repos.Elections.GetByID(ctx, electionID); err != nil {
			return err
		}
		existing, err := repos.Candidates.ListByElection(ctx, electionID)
		if err != nil {
			return err
		}
		if symbolTaken(existing, candidate.SymbolRef, 0) {
			return fmt.Errorf("symbol %q already assigned: %w", *candidate.SymbolRef, domain.ErrConstraintViolation)
		}
		return repos.Candidates.Insert(ctx, candidate)
	})
	if err != nil {
		return 0, err
	}
	return candidate.ID, nil
}

// electionOf resolves the owning election of a candidate so the right lock can
// be taken before the write transaction re-reads it.
func (s *ledgerService) electionOf(ctx context.Context, candidateID int64) (int64, error) {
	var electionID int64
	err := s.store.ReadTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		c, err := repos.Candidates.GetByID(ctx, candidateID)
		if err != nil {
			return err
		}
		electionID = c.ElectionID
		return nil
	})
	return electionID, err
}

func (s *ledgerService) UpdateCandidate(ctx context.Context, candidateID int64, input ports.CandidateInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return fmt.Errorf("candidate name is required: %w", domain.ErrInvalidInput)
	}
	symbol := cleanSymbol(input.SymbolRef)

	electionID, err := s.electionOf(ctx, candidateID)
	if err != nil {
		return err
	}
	return s.withWriteLock(ctx, electionID, func(ctx context.Context, repos ports.Repositories) error {
		c, err := repos.Candidates.GetByID(ctx, candidateID)
		if err != nil {
			return err
		}
		if c.IsNOTA {
			return fmt.Errorf("NOTA cannot be modified: %w", domain.ErrConstraintViolation)
		}
		siblings, err := repos.Candidates.ListByElection(ctx, c.ElectionID)
		if err != nil {
			return err
		}
		if symbolTaken(siblings, symbol, c.ID) {
			return fmt.Errorf("symbol %q already assigned: %w", *symbol, domain.ErrConstraintViolation)
		}
		c.Name = name
		c.SymbolRef = symbol
		return repos.Candidates.Update(ctx, c)
	})
}

func (s *ledgerService) DeleteCandidate(ctx context.Context, candidateID int64) error {
	electionID, err := s.electionOf(ctx, candidateID)
	if err != nil {
		return err
	}
	return s.withWriteLock(ctx, electionID, func(ctx context.Context, repos ports.Repositories) error {
		c, err := repos.Candidates.GetByID(ctx, candidateID)
		if err != nil {
			return err
		}
		if c.IsNOTA {
			return fmt.Errorf("NOTA cannot be deleted: %w", domain.ErrConstraintViolation)
		}
		return repos.Candidates.Delete(ctx, candidateID)
	})
}

func (s *ledgerService) Candidates(ctx context.Context, electionID int64) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	err := s.store.ReadTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := repos.Elections.GetByID(ctx, electionID); err != nil {
			return err
		}
		var err error
		candidates, err = repos.Candidates.ListByElection(ctx, electionID)
		return err
	})
	return candidates, err
}

func (s *ledgerService) CheckReadiness(ctx context.Context, electionID int64) error {
	candidates, err := s.Candidates(ctx, electionID)
	if err != nil {
		return err
	}

	regular := 0
	seen := make(map[string]struct{})
	for _, c := range candidates {
		if c.IsNOTA {
			continue
		}
		regular++
		if c.SymbolRef == nil {
			continue
		}
		symbol := filepath.Clean(*c.SymbolRef)
		if _, dup := seen[symbol]; dup {
			return fmt.Errorf("symbol %q is shared by several candidates: %w", symbol, domain.ErrNotReady)
		}
		seen[symbol] = struct{}{}
	}
	if regular == 0 {
		return fmt.Errorf("election %d has no candidates: %w", electionID, domain.ErrNotReady)
	}
	return nil
}

// CastVote records one vote. Timestamps never go backwards within an
// election, so timestamp order and insertion order agree even if the wall
// clock steps back.
func (s *ledgerService) CastVote(ctx context.Context, electionID, candidateID int64) (int64, error) {
	vote := &domain.Vote{ElectionID: electionID, CandidateID: candidateID}
	err := s.withWriteLock(ctx, electionID, func(ctx context.Context, repos ports.Repositories) error {
		castAt := s.now().UTC().Truncate(time.Microsecond)
		latest, err := repos.Votes.Latest(ctx, electionID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return err
		case latest.CastAt.After(castAt):
			castAt = latest.CastAt.UTC()
		}
		vote.CastAt = castAt
		return repos.Votes.Insert(ctx, vote)
	})
	if err != nil {
		return 0, err
	}
	return vote.ID, nil
}

func (s *ledgerService) UndoLastVote(ctx context.Context, electionID int64) (int64, bool, error) {
	var undone int64
	err := s.withWriteLock(ctx, electionID, func(ctx context.Context, repos ports.Repositories) error {
		latest, err := repos.Votes.Latest(ctx, electionID)
		if err != nil {
			return err
		}
		undone = latest.ID
		return repos.Votes.Delete(ctx, latest.ID)
	})
	if errors.Is(err, domain.ErrNotFound) && undone == 0 {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return undone, true, nil
}

func (s *ledgerService) ClearVotes(ctx context.Context, electionID int64) (int64, error) {
	var removed int64
	err := s.withWriteLock(ctx, electionID, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := repos.Elections.GetByID(ctx, electionID); err != nil {
			return err
		}
		var err error
		removed, err = repos.Votes.DeleteByElection(ctx, electionID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.l.Info("votes cleared", zap.Int64("election_id", electionID), zap.Int64("removed", removed))
	return removed, nil
}

func withPercentages(rows []domain.TallyRow) []domain.TallyRow {
	var total int64
	for _, row := range rows {
		total += row.VoteCount
	}
	for i := range rows {
		rows[i].Percentage = domain.Percentage(rows[i].VoteCount, total)
	}
	return rows
}

func (s *ledgerService) Tally(ctx context.Context, electionID int64) ([]domain.TallyRow, error) {
	var rows []domain.TallyRow
	err := s.withReadLock(ctx, electionID, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := repos.Elections.GetByID(ctx, electionID); err != nil {
			return err
		}
		var err error
		rows, err = repos.Votes.CountByCandidate(ctx, electionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return withPercentages(rows), nil
}

func (s *ledgerService) Results(ctx context.Context, electionID int64) (*domain.Results, error) {
	var (
		election *domain.Election
		rows     []domain.TallyRow
	)
	err := s.withReadLock(ctx, electionID, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		if election, err = repos.Elections.GetByID(ctx, electionID); err != nil {
			return err
		}
		rows, err = repos.Votes.CountByCandidate(ctx, electionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return domain.NewResults(*election, withPercentages(rows), s.now().UTC()), nil
}
