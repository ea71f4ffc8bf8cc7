package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

// CredentialHasher is a slow, salted one-way password scheme.
type CredentialHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// CredentialLookup fetches the stored admin hash of an election.
type CredentialLookup interface {
	GetElection(ctx context.Context, id int64) (*domain.Election, error)
}

type AuthService interface {
	CredentialHasher
	// VerifyAdmin never tells a wrong password apart from a missing election.
	VerifyAdmin(ctx context.Context, electionID int64, password string) bool
	IssueToken(electionID int64, role domain.Role) (string, time.Time, error)
	ParseToken(token string) (*domain.AccessToken, error)
}
