package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

type candidateRepository struct {
	q querier
}

func (r *candidateRepository) Insert(ctx context.Context, c *domain.Candidate) error {
	query := `
		INSERT INTO candidates (election_id, name, symbol_ref, is_nota)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query, c.ElectionID, c.Name, c.SymbolRef, c.IsNOTA).Scan(&c.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("election %d: %w", c.ElectionID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to insert candidate: %w", classify(err))
	}
	return nil
}

func (r *candidateRepository) GetByID(ctx context.Context, id int64) (*domain.Candidate, error) {
	query := `
		SELECT id, election_id, name, symbol_ref, is_nota
		FROM candidates
		WHERE id = $1
	`
	c, err := scanCandidate(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("candidate %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get candidate: %w", classify(err))
	}
	return c, nil
}

// ListByElection returns candidates in ballot order: regular candidates as
// inserted, NOTA last.
func (r *candidateRepository) ListByElection(ctx context.Context, electionID int64) ([]domain.Candidate, error) {
	query := `
		SELECT id, election_id, name, symbol_ref, is_nota
		FROM candidates
		WHERE election_id = $1
		ORDER BY is_nota, id
	`
	rows, err := r.q.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", classify(err))
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", classify(err))
	}
	return candidates, nil
}

func (r *candidateRepository) Update(ctx context.Context, c *domain.Candidate) error {
	query := `UPDATE candidates SET name = $1, symbol_ref = $2 WHERE id = $3`
	res, err := r.q.ExecContext(ctx, query, c.Name, c.SymbolRef, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update candidate: %w", classify(err))
	}
	return expectOne(res, "candidate", c.ID)
}

func (r *candidateRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", classify(err))
	}
	return expectOne(res, "candidate", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*domain.Candidate, error) {
	var (
		c      domain.Candidate
		symbol sql.NullString
	)
	if err := row.Scan(&c.ID, &c.ElectionID, &c.Name, &symbol, &c.IsNOTA); err != nil {
		return nil, err
	}
	if symbol.Valid {
		c.SymbolRef = &symbol.String
	}
	return &c, nil
}

func expectOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return nil
}
