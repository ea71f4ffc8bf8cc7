package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

// maxConcurrentSnapshots bounds parallel snapshot reads so a large archive
// does not exhaust the reader pool.
const maxConcurrentSnapshots = 4

// ResultsService builds exporter snapshots.
type ResultsService struct {
	ledger ports.LedgerService
}

func NewResultsService(ledger ports.LedgerService) *ResultsService {
	return &ResultsService{ledger: ledger}
}

func (s *ResultsService) Snapshot(ctx context.Context, electionID int64) (*domain.Results, error) {
	return s.ledger.Results(ctx, electionID)
}

// SnapshotAll returns one snapshot per election, newest election first.
// Elections deleted while the snapshots are taken are left out.
func (s *ResultsService) SnapshotAll(ctx context.Context) ([]*domain.Results, error) {
	elections, err := s.ledger.ListElections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all elections: %w", err)
	}

	snapshots := make([]*domain.Results, len(elections))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSnapshots)
	for i, election := range elections {
		i, election := i, election
		g.Go(func() error {
			res, err := s.ledger.Results(ctx, election.ID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to snapshot election %d: %w", election.ID, err)
			}
			snapshots[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	found := snapshots[:0]
	for _, res := range snapshots {
		if res != nil {
			found = append(found, res)
		}
	}
	return found, nil
}
