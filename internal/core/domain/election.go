package domain

import "time"

// NOTAName is the display name of the auto-created "none of the above" candidate.
const NOTAName = "NOTA"

type Election struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	AdminPasswordHash string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

type Candidate struct {
	ID         int64   `json:"id"`
	ElectionID int64   `json:"election_id"`
	Name       string  `json:"name"`
	SymbolRef  *string `json:"symbol_ref"`
	IsNOTA     bool    `json:"is_nota"`
}
