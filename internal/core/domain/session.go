package domain

import "github.com/google/uuid"

type SessionState string

const (
	StateIdle        SessionState = "idle"
	StateArmed       SessionState = "armed"
	StateBallotOpen  SessionState = "ballot_open"
	StateSelected    SessionState = "selected"
	StateCast        SessionState = "cast"
	StateExitPending SessionState = "exit_pending"
)

// InLockdown reports whether s is one of the kiosk substates.
func (s SessionState) InLockdown() bool {
	switch s {
	case StateBallotOpen, StateSelected, StateCast:
		return true
	}
	return false
}

// Live reports whether a session in state s holds the one-per-process slot.
func (s SessionState) Live() bool {
	return s != StateIdle && s != ""
}

type EventType string

const (
	EventSelect        EventType = "select"
	EventConfirm       EventType = "confirm"
	EventNextBallot    EventType = "next_ballot"
	EventUndo          EventType = "undo"
	EventEmergencyExit EventType = "emergency_exit"
	EventExitCancel    EventType = "exit_cancel"
	EventHostShortcut  EventType = "host_shortcut"
)

func (t EventType) Valid() bool {
	switch t {
	case EventSelect, EventConfirm, EventNextBallot, EventUndo,
		EventEmergencyExit, EventExitCancel, EventHostShortcut:
		return true
	}
	return false
}

// Role is who produced an event. Undo needs RoleOperator.
type Role string

const (
	RoleVoter    Role = "voter"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Privileged reports whether r may trigger operator-only events.
func (r Role) Privileged() bool {
	return r == RoleOperator || r == RoleAdmin
}

type Event struct {
	Type        EventType `json:"type"`
	CandidateID int64     `json:"candidate_id,omitempty"`
	Password    string    `json:"-"`
	Role        Role      `json:"role"`
}

// SessionSnapshot is a read-only view of a session.
type SessionSnapshot struct {
	ID         uuid.UUID    `json:"id"`
	ElectionID int64        `json:"election_id"`
	State      SessionState `json:"state"`
	Selected   *int64       `json:"selected_candidate_id"`
	Lockdown   bool         `json:"lockdown"`
	LastVoteID *int64       `json:"last_vote_id"`
	Ballot     []Candidate  `json:"ballot"`
}

// Outcome is the result of processing one event. Results carries the final
// aggregate after a successful emergency exit.
type Outcome struct {
	State     SessionState `json:"state"`
	Swallowed bool         `json:"swallowed,omitempty"`
	VoteID    *int64       `json:"vote_id,omitempty"`
	Error     ErrorKind    `json:"error,omitempty"`
	Results   *Results     `json:"results,omitempty"`
}

type NotificationType string

const (
	NotifyStateChanged NotificationType = "state_changed"
	NotifyVoteCast     NotificationType = "vote_cast"
	NotifyVoteUndone   NotificationType = "vote_undone"
	NotifyError        NotificationType = "error"
	NotifySessionEnded NotificationType = "session_ended"
)

type Notification struct {
	Type        NotificationType `json:"type"`
	SessionID   uuid.UUID        `json:"session_id"`
	ElectionID  int64            `json:"election_id"`
	State       SessionState     `json:"state,omitempty"`
	CandidateID int64            `json:"candidate_id,omitempty"`
	VoteID      int64            `json:"vote_id,omitempty"`
	Error       ErrorKind        `json:"error,omitempty"`
	Results     *Results         `json:"results,omitempty"`
}
