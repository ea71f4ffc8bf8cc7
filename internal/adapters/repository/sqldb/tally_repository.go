package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

// CountByCandidate aggregates in one statement so the counts and the
// candidate list come from the same snapshot. Ties follow ballot order, so
// NOTA sorts after every regular candidate. Percentages are left to the caller.
func (r *voteRepository) CountByCandidate(ctx context.Context, electionID int64) ([]domain.TallyRow, error) {
	query := `
		SELECT c.id, c.election_id, c.name, c.symbol_ref, c.is_nota, COUNT(v.id) AS vote_count
		FROM candidates c
		LEFT JOIN votes v ON v.candidate_id = c.id AND v.election_id = c.election_id
		WHERE c.election_id = $1
		GROUP BY c.id, c.election_id, c.name, c.symbol_ref, c.is_nota
		ORDER BY vote_count DESC, c.is_nota ASC, c.id ASC
	`
	rows, err := r.q.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tally: %w", classify(err))
	}
	defer rows.Close()

	var tally []domain.TallyRow
	for rows.Next() {
		var (
			row    domain.TallyRow
			symbol sql.NullString
		)
		c := &row.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name, &symbol, &c.IsNOTA, &row.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan tally row: %w", err)
		}
		if symbol.Valid {
			c.SymbolRef = &symbol.String
		}
		tally = append(tally, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tally: %w", classify(err))
	}
	return tally, nil
}
