package http

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/kioskvote/internal/adapters/keymap"
	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

type SessionHandler struct {
	sessions ports.SessionService
	auth     ports.AuthService
	l        *zap.Logger
}

func NewSessionHandler(sessions ports.SessionService, auth ports.AuthService, l *zap.Logger) *SessionHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &SessionHandler{
		sessions: sessions,
		auth:     auth,
		l:        l,
	}
}

type startSessionRequest struct {
	ElectionID int64  `json:"election_id"`
	Password   string `json:"password"`
}

type startSessionResponse struct {
	Session       domain.SessionSnapshot `json:"session"`
	OperatorToken string                 `json:"operator_token"`
	ExpiresAt     time.Time              `json:"expires_at"`
}

// StartSession arms a session. The operator token in the response is meant
// for the operator console, not the kiosk page, so it is not set as a cookie.
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sessions.Start(r.Context(), req.ElectionID, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, expiresAt, err := h.auth.IssueToken(req.ElectionID, domain.RoleOperator)
	if err != nil {
		h.l.Error("failed to issue operator token", zap.Error(err))
		_ = session.Abort(r.Context())
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, startSessionResponse{
		Session:       session.Snapshot(),
		OperatorToken: token,
		ExpiresAt:     expiresAt,
	})
}

func (h *SessionHandler) active(w http.ResponseWriter) (ports.VotingSession, bool) {
	session, ok := h.sessions.Active()
	if !ok {
		writeError(w, domain.ErrNoActiveSession)
		return nil, false
	}
	return session, true
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.active(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// EngageSession needs an operator or admin token for the session's election.
func (h *SessionHandler) EngageSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.active(w)
	if !ok {
		return
	}
	if h.role(r, session) == domain.RoleVoter {
		writeError(w, domain.ErrAuthFailed)
		return
	}
	snap, err := session.Engage(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// AbortSession needs an operator or admin token for the session's election.
func (h *SessionHandler) AbortSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.active(w)
	if !ok {
		return
	}
	if h.role(r, session) == domain.RoleVoter {
		writeError(w, domain.ErrAuthFailed)
		return
	}
	if err := session.Abort(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// role is operator-level only when the request carries a token for the
// session's election.
func (h *SessionHandler) role(r *http.Request, session ports.VotingSession) domain.Role {
	token, ok := accessToken(r.Context())
	if !ok || !token.Allows(session.Snapshot().ElectionID) {
		return domain.RoleVoter
	}
	return token.Role
}

type eventRequest struct {
	Type        domain.EventType `json:"type"`
	CandidateID int64            `json:"candidate_id"`
	Password    string           `json:"password"`
}

func (h *SessionHandler) DispatchEvent(w http.ResponseWriter, r *http.Request) {
	session, ok := h.active(w)
	if !ok {
		return
	}
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	h.dispatch(w, r, session, domain.Event{
		Type:        req.Type,
		CandidateID: req.CandidateID,
		Password:    req.Password,
		Role:        h.role(r, session),
	})
}

type keyRequest struct {
	keymap.Key
	Chord    string `json:"chord"`
	Password string `json:"password"`
}

// PressKey accepts either a chord string such as "Ctrl+q" or the key fields.
func (h *SessionHandler) PressKey(w http.ResponseWriter, r *http.Request) {
	session, ok := h.active(w)
	if !ok {
		return
	}
	var req keyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	key := req.Key
	if req.Chord != "" {
		var err error
		if key, err = keymap.ParseChord(req.Chord); err != nil {
			writeError(w, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
			return
		}
	}

	ev := keymap.Translate(key)
	ev.Role = h.role(r, session)
	if ev.Type == domain.EventEmergencyExit {
		ev.Password = req.Password
	}
	h.dispatch(w, r, session, ev)
}

// dispatch always answers with the outcome so the shell can render the
// current state, even when the event was rejected. Voters only ever see
// try_again unless the session set a kind itself.
func (h *SessionHandler) dispatch(w http.ResponseWriter, r *http.Request, session ports.VotingSession, ev domain.Event) {
	out, err := session.Dispatch(r.Context(), ev)
	if err == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}

	kind := domain.KindOf(err)
	if out.Error == "" {
		out.Error = kind
		if !ev.Role.Privileged() {
			out.Error = domain.KindTryAgain
		}
	}
	if kind == domain.KindInternal {
		h.l.Error("session event failed", zap.String("event", string(ev.Type)), zap.Error(err))
	}
	writeJSON(w, statusOf(kind), out)
}
