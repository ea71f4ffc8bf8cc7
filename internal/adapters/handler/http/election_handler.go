package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

type ElectionHandler struct {
	ledger   ports.LedgerService
	sessions ports.SessionService
	auth     ports.AuthService
	l        *zap.Logger
}

func NewElectionHandler(ledger ports.LedgerService, sessions ports.SessionService, auth ports.AuthService, l *zap.Logger) *ElectionHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &ElectionHandler{
		ledger:   ledger,
		sessions: sessions,
		auth:     auth,
		l:        l,
	}
}

type createElectionRequest struct {
	Name          string `json:"name"`
	AdminPassword string `json:"admin_password"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req createElectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.ledger.CreateElection(r.Context(), ports.CreateElectionInput{
		Name:          req.Name,
		AdminPassword: req.AdminPassword,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.ledger.ListElections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if elections == nil {
		elections = []domain.Election{}
	}
	writeJSON(w, http.StatusOK, elections)
}

func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	election, err := h.ledger.GetElection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

type deleteElectionRequest struct {
	AdminPassword string `json:"admin_password"`
}

// DeleteElection needs the admin password itself, not just a token. An
// election the live session runs on cannot be deleted.
func (h *ElectionHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req deleteElectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !h.auth.VerifyAdmin(r.Context(), id, req.AdminPassword) {
		writeError(w, domain.ErrAuthFailed)
		return
	}

	if err := h.sessions.DeleteElection(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type clearVotesResponse struct {
	Removed int64 `json:"removed"`
}

func (h *ElectionHandler) ClearVotes(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	removed, err := h.ledger.ClearVotes(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.l.Info("votes cleared over http", zap.Int64("election_id", id))
	writeJSON(w, http.StatusOK, clearVotesResponse{Removed: removed})
}

func (h *ElectionHandler) Results(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := h.ledger.Results(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
