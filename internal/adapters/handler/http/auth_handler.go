package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

type contextKey string

// AccessTokenKey holds the *domain.AccessToken of an authenticated request.
const AccessTokenKey contextKey = "access_token"

const accessTokenCookie = "access_token"

type AuthHandler struct {
	authService    ports.AuthService
	cookieSameSite http.SameSite
	l              *zap.Logger
}

func NewAuthHandler(authService ports.AuthService, l *zap.Logger) *AuthHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuthHandler{
		authService:    authService,
		cookieSameSite: http.SameSiteStrictMode,
		l:              l,
	}
}

type verifyRequest struct {
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Verify checks an election's admin password and hands out an admin token
// for that election.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	electionID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if !h.authService.VerifyAdmin(r.Context(), electionID, req.Password) {
		h.l.Warn("admin verification failed", zap.Int64("election_id", electionID))
		writeError(w, domain.ErrAuthFailed)
		return
	}

	h.issue(w, electionID, domain.RoleAdmin)
}

func (h *AuthHandler) issue(w http.ResponseWriter, electionID int64, role domain.Role) {
	token, expiresAt, err := h.authService.IssueToken(electionID, role)
	if err != nil {
		h.l.Error("failed to issue token", zap.Error(err))
		writeError(w, err)
		return
	}
	h.setAccessTokenCookie(w, token, expiresAt)
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Role: role, ExpiresAt: expiresAt})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: accessTokenCookie, MaxAge: -1, Path: "/"})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) setAccessTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: h.cookieSameSite,
		Expires:  expiresAt,
	})
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticate attaches a valid access token to the request context. Requests
// without one pass through as anonymous.
func (h *AuthHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, err := h.authService.ParseToken(raw)
		if err != nil {
			h.l.Debug("ignoring invalid access token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), AccessTokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessToken(ctx context.Context) (*domain.AccessToken, bool) {
	token, ok := ctx.Value(AccessTokenKey).(*domain.AccessToken)
	return token, ok
}

// RequireElectionToken rejects requests whose token does not grant the
// election named by the {id} URL parameter.
func RequireElectionToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		electionID, err := idParam(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		token, ok := accessToken(r.Context())
		if !ok || !token.Allows(electionID) {
			writeError(w, domain.ErrAuthFailed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
