package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateName        = errors.New("duplicate name")
	ErrConstraintViolation  = errors.New("constraint violation")
	ErrInvalidCandidate     = errors.New("candidate does not belong to this election")
	ErrSessionAlreadyActive = errors.New("a voting session is already active")
	ErrBusy                 = errors.New("store busy, try again")
	ErrAuthFailed           = errors.New("authentication failed")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotReady             = errors.New("election is not ready for voting")
	ErrNoActiveSession      = errors.New("no active voting session")
	ErrInvalidTransition    = errors.New("event not accepted in current state")
	ErrInternal             = errors.New("internal error")
)

// ErrorKind is the stable name of an error class as seen by shells and exporters.
type ErrorKind string

const (
	KindNotFound             ErrorKind = "not_found"
	KindDuplicateName        ErrorKind = "duplicate_name"
	KindConstraintViolation  ErrorKind = "constraint_violation"
	KindInvalidCandidate     ErrorKind = "invalid_candidate"
	KindSessionAlreadyActive ErrorKind = "session_already_active"
	KindBusy                 ErrorKind = "busy"
	KindAuthFailed           ErrorKind = "auth_failed"
	KindInvalidInput         ErrorKind = "invalid_input"
	KindNotReady             ErrorKind = "not_ready"
	KindNoActiveSession      ErrorKind = "no_active_session"
	KindInvalidTransition    ErrorKind = "invalid_transition"
	KindInternal             ErrorKind = "internal"

	// KindTryAgain is the only kind a voter ever sees.
	KindTryAgain ErrorKind = "try_again"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrNotFound, KindNotFound},
	{ErrDuplicateName, KindDuplicateName},
	{ErrConstraintViolation, KindConstraintViolation},
	{ErrInvalidCandidate, KindInvalidCandidate},
	{ErrSessionAlreadyActive, KindSessionAlreadyActive},
	{ErrBusy, KindBusy},
	{ErrAuthFailed, KindAuthFailed},
	{ErrInvalidInput, KindInvalidInput},
	{ErrNotReady, KindNotReady},
	{ErrNoActiveSession, KindNoActiveSession},
	{ErrInvalidTransition, KindInvalidTransition},
}

// KindOf maps err onto its ErrorKind. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
