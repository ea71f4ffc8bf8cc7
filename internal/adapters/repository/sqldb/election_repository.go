package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

type electionRepository struct {
	q querier
}

func (r *electionRepository) Insert(ctx context.Context, election *domain.Election) error {
	query := `
		INSERT INTO elections (name, admin_password_hash, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query, election.Name, election.AdminPasswordHash, election.CreatedAt).Scan(&election.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("election %q: %w", election.Name, domain.ErrDuplicateName)
		}
		return fmt.Errorf("failed to insert election: %w", classify(err))
	}
	return nil
}

func (r *electionRepository) GetByID(ctx context.Context, id int64) (*domain.Election, error) {
	query := `
		SELECT id, name, admin_password_hash, created_at
		FROM elections
		WHERE id = $1
	`
	var e domain.Election
	err := r.q.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Name, &e.AdminPasswordHash, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("election %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get election: %w", classify(err))
	}
	return &e, nil
}

func (r *electionRepository) List(ctx context.Context) ([]domain.Election, error) {
	query := `
		SELECT id, name, admin_password_hash, created_at
		FROM elections
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", classify(err))
	}
	defer rows.Close()

	var elections []domain.Election
	for rows.Next() {
		var e domain.Election
		if err := rows.Scan(&e.ID, &e.Name, &e.AdminPasswordHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elections: %w", classify(err))
	}
	return elections, nil
}

// Delete removes the election; candidates and votes go with it through
// ON DELETE CASCADE in the same statement.
func (r *electionRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM elections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete election: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("election %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
