package domain

import "time"

// Vote carries no voter identity.
type Vote struct {
	ID          int64     `json:"id"`
	ElectionID  int64     `json:"election_id"`
	CandidateID int64     `json:"candidate_id"`
	CastAt      time.Time `json:"cast_at"`
}
