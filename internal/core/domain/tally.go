package domain

import (
	"math"
	"time"
)

type TallyRow struct {
	Candidate  Candidate
	VoteCount  int64
	Percentage float64
}

// RoundedPercentage is the two-decimal presentation value. Percentage itself is
// never stored rounded.
func (r TallyRow) RoundedPercentage() float64 {
	return math.Round(r.Percentage*100) / 100
}

// Percentage returns count*100/total, or 0 when total is 0.
func Percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) * 100 / float64(total)
}

// Results is the snapshot handed to exporters. It is the only data they consume.
type Results struct {
	ElectionID   int64         `json:"election_id"`
	ElectionName string        `json:"election_name"`
	TotalVotes   int64         `json:"total_votes"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Rows         []ResultEntry `json:"results"`
}

type ResultEntry struct {
	CandidateID   int64   `json:"candidate_id"`
	CandidateName string  `json:"candidate_name"`
	VoteCount     int64   `json:"vote_count"`
	Percentage    float64 `json:"percentage"`
	SymbolRef     *string `json:"symbol_ref"`
	IsNOTA        bool    `json:"is_nota"`
}

func NewResults(election Election, rows []TallyRow, at time.Time) *Results {
	res := &Results{
		ElectionID:   election.ID,
		ElectionName: election.Name,
		GeneratedAt:  at,
		Rows:         make([]ResultEntry, 0, len(rows)),
	}
	for _, row := range rows {
		res.TotalVotes += row.VoteCount
		res.Rows = append(res.Rows, ResultEntry{
			CandidateID:   row.Candidate.ID,
			CandidateName: row.Candidate.Name,
			VoteCount:     row.VoteCount,
			Percentage:    row.Percentage,
			SymbolRef:     row.Candidate.SymbolRef,
			IsNOTA:        row.Candidate.IsNOTA,
		})
	}
	return res
}
