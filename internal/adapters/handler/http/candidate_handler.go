package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

type CandidateHandler struct {
	ledger ports.LedgerService
}

func NewCandidateHandler(ledger ports.LedgerService) *CandidateHandler {
	return &CandidateHandler{
		ledger: ledger,
	}
}

type candidateRequest struct {
	Name      string  `json:"name"`
	SymbolRef *string `json:"symbol_ref"`
}

func (req candidateRequest) input() ports.CandidateInput {
	return ports.CandidateInput{Name: req.Name, SymbolRef: req.SymbolRef}
}

func (h *CandidateHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	electionID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	candidates, err := h.ledger.Candidates(r.Context(), electionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *CandidateHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	electionID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req candidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.ledger.AddCandidate(r.Context(), electionID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// ownedCandidate resolves the {candidateID} parameter and checks it belongs
// to the election in the URL, which is the one the token was checked for.
func (h *CandidateHandler) ownedCandidate(ctx context.Context, r *http.Request) (int64, error) {
	electionID, err := idParam(r, "id")
	if err != nil {
		return 0, err
	}
	candidateID, err := idParam(r, "candidateID")
	if err != nil {
		return 0, err
	}

	candidates, err := h.ledger.Candidates(ctx, electionID)
	if err != nil {
		return 0, err
	}
	for _, c := range candidates {
		if c.ID == candidateID {
			return candidateID, nil
		}
	}
	return 0, fmt.Errorf("candidate %d in election %d: %w", candidateID, electionID, domain.ErrNotFound)
}

func (h *CandidateHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID, err := h.ownedCandidate(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req candidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.ledger.UpdateCandidate(r.Context(), candidateID, req.input()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CandidateHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID, err := h.ownedCandidate(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.ledger.DeleteCandidate(r.Context(), candidateID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
