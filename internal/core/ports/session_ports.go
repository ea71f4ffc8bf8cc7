package ports

import (
	"context"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

// LockdownController suppresses host input while a ballot is open. It is
// best-effort: callers must never assume containment is airtight.
type LockdownController interface {
	Engage(ctx context.Context) error
	Release(ctx context.Context) error
}

// Notifier receives session notifications in order. Implementations must not
// call back into the session.
type Notifier interface {
	Notify(n domain.Notification)
}

type VotingSession interface {
	Snapshot() domain.SessionSnapshot
	Engage(ctx context.Context) (domain.SessionSnapshot, error)
	Abort(ctx context.Context) error
	Dispatch(ctx context.Context, ev domain.Event) (domain.Outcome, error)
}

type SessionService interface {
	Start(ctx context.Context, electionID int64, password string) (VotingSession, error)
	Active() (VotingSession, bool)
	// DeleteElection refuses with ErrSessionAlreadyActive while the live
	// session runs on the election.
	DeleteElection(ctx context.Context, electionID int64) error
	// Shutdown tears down a live session without touching stored data.
	Shutdown(ctx context.Context)
}
