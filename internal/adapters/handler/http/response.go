package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

var statusByKind = map[domain.ErrorKind]int{
	domain.KindNotFound:             http.StatusNotFound,
	domain.KindDuplicateName:        http.StatusConflict,
	domain.KindConstraintViolation:  http.StatusConflict,
	domain.KindInvalidCandidate:     http.StatusUnprocessableEntity,
	domain.KindSessionAlreadyActive: http.StatusConflict,
	domain.KindBusy:                 http.StatusServiceUnavailable,
	domain.KindAuthFailed:           http.StatusUnauthorized,
	domain.KindInvalidInput:         http.StatusBadRequest,
	domain.KindNotReady:             http.StatusConflict,
	domain.KindNoActiveSession:      http.StatusNotFound,
	domain.KindInvalidTransition:    http.StatusConflict,
}

type errorResponse struct {
	Error   domain.ErrorKind `json:"error"`
	Message string           `json:"message,omitempty"`
}

func statusOf(kind domain.ErrorKind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps err onto its status code. Messages of internal and auth
// errors are not echoed back.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	resp := errorResponse{Error: kind}
	switch kind {
	case domain.KindInternal, domain.KindAuthFailed:
	default:
		resp.Message = err.Error()
	}
	writeJSON(w, statusOf(kind), resp)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", domain.ErrInvalidInput)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %w", name, domain.ErrInvalidInput)
	}
	return id, nil
}
