package domain

import "time"

// AccessToken is a short-lived grant minted after a successful admin password
// check. It scopes privileged actions to one election.
type AccessToken struct {
	ElectionID int64     `json:"election_id"`
	Role       Role      `json:"role"`
	ExpiresAt  time.Time `json:"expires_at"`
	IssuedAt   time.Time `json:"issued_at"`
}

func (t AccessToken) Allows(electionID int64) bool {
	return t.ElectionID == electionID && t.Role.Privileged()
}
