package ports

import (
	"context"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

type CreateElectionInput struct {
	Name          string
	AdminPassword string
}

type CandidateInput struct {
	Name      string
	SymbolRef *string
}

type LedgerService interface {
	CreateElection(ctx context.Context, input CreateElectionInput) (int64, error)
	DeleteElection(ctx context.Context, id int64) error
	GetElection(ctx context.Context, id int64) (*domain.Election, error)
	ListElections(ctx context.Context) ([]domain.Election, error)

	AddCandidate(ctx context.Context, electionID int64, input CandidateInput) (int64, error)
	UpdateCandidate(ctx context.Context, candidateID int64, input CandidateInput) error
	DeleteCandidate(ctx context.Context, candidateID int64) error
	Candidates(ctx context.Context, electionID int64) ([]domain.Candidate, error)
	CheckReadiness(ctx context.Context, electionID int64) error

	CastVote(ctx context.Context, electionID, candidateID int64) (int64, error)
	// UndoLastVote returns ok=false when the election has no votes.
	UndoLastVote(ctx context.Context, electionID int64) (voteID int64, ok bool, err error)
	ClearVotes(ctx context.Context, electionID int64) (int64, error)

	Tally(ctx context.Context, electionID int64) ([]domain.TallyRow, error)
	Results(ctx context.Context, electionID int64) (*domain.Results, error)
}
