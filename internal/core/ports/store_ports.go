package ports

import (
	"context"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

type ElectionRepository interface {
	Insert(ctx context.Context, election *domain.Election) error
	GetByID(ctx context.Context, id int64) (*domain.Election, error)
	List(ctx context.Context) ([]domain.Election, error)
	Delete(ctx context.Context, id int64) error
}

type CandidateRepository interface {
	Insert(ctx context.Context, candidate *domain.Candidate) error
	GetByID(ctx context.Context, id int64) (*domain.Candidate, error)
	ListByElection(ctx context.Context, electionID int64) ([]domain.Candidate, error)
	Update(ctx context.Context, candidate *domain.Candidate) error
	Delete(ctx context.Context, id int64) error
}

type VoteRepository interface {
	Insert(ctx context.Context, vote *domain.Vote) error
	Latest(ctx context.Context, electionID int64) (*domain.Vote, error)
	Delete(ctx context.Context, id int64) error
	DeleteByElection(ctx context.Context, electionID int64) (int64, error)
	Count(ctx context.Context, electionID int64) (int64, error)
	// CountByCandidate returns every candidate of the election with its vote
	// count, ordered by count desc then ballot order (regular candidates by id,
	// NOTA last).
	CountByCandidate(ctx context.Context, electionID int64) ([]domain.TallyRow, error)
}

// Repositories is the set of table repositories bound to one transaction.
type Repositories struct {
	Elections  ElectionRepository
	Candidates CandidateRepository
	Votes      VoteRepository
}

// TxFunc runs inside a transaction. Returning an error rolls everything back.
type TxFunc func(ctx context.Context, repos Repositories) error

type Store interface {
	// WithinTx runs fn in a write transaction.
	WithinTx(ctx context.Context, fn TxFunc) error
	// ReadTx runs fn in a read transaction that sees one consistent snapshot.
	ReadTx(ctx context.Context, fn TxFunc) error
}
