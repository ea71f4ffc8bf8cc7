package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

type voteRepository struct {
	q querier
}

func (r *voteRepository) Insert(ctx context.Context, vote *domain.Vote) error {
	query := `
		INSERT INTO votes (election_id, candidate_id, cast_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query, vote.ElectionID, vote.CandidateID, vote.CastAt).Scan(&vote.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("candidate %d in election %d: %w", vote.CandidateID, vote.ElectionID, domain.ErrInvalidCandidate)
		}
		return fmt.Errorf("failed to save vote: %w", classify(err))
	}
	return nil
}

// Latest returns the most recent vote by cast time, then by insertion order.
func (r *voteRepository) Latest(ctx context.Context, electionID int64) (*domain.Vote, error) {
	query := `
		SELECT id, election_id, candidate_id, cast_at
		FROM votes
		WHERE election_id = $1
		ORDER BY cast_at DESC, id DESC
		LIMIT 1
	`
	var v domain.Vote
	err := r.q.QueryRowContext(ctx, query, electionID).Scan(&v.ID, &v.ElectionID, &v.CandidateID, &v.CastAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("votes of election %d: %w", electionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest vote: %w", classify(err))
	}
	return &v, nil
}

func (r *voteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM votes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", classify(err))
	}
	return expectOne(res, "vote", id)
}

func (r *voteRepository) DeleteByElection(ctx context.Context, electionID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM votes WHERE election_id = $1`, electionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear votes: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func (r *voteRepository) Count(ctx context.Context, electionID int64) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE election_id = $1`, electionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", classify(err))
	}
	return n, nil
}
