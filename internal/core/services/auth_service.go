package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

// BcryptHasher implements ports.CredentialHasher.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("empty password: %w", domain.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("password too long: %w", domain.ErrInvalidInput)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type AuthService struct {
	*BcryptHasher
	elections ports.CredentialLookup
	jwtSecret []byte
	tokenTTL  time.Duration
	dummyHash string
	now       func() time.Time
	l         *zap.Logger
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(elections ports.CredentialLookup, hasher *BcryptHasher, cfg AuthConfig, l *zap.Logger) (*AuthService, error) {
	if l == nil {
		l = zap.NewNop()
	}
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		l.Warn("JWT_SECRET not set, operator tokens will not survive a restart")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
		}
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 15 * time.Minute
	}

	// Unknown elections are compared against this hash so a miss costs the
	// same as a wrong password.
	filler := make([]byte, 24)
	if _, err := rand.Read(filler); err != nil {
		return nil, fmt.Errorf("failed to generate dummy credential: %w", err)
	}
	dummy, err := hasher.Hash(fmt.Sprintf("%x", filler))
	if err != nil {
		return nil, err
	}

	return &AuthService{
		BcryptHasher: hasher,
		elections:    elections,
		jwtSecret:    secret,
		tokenTTL:     cfg.TokenTTL,
		dummyHash:    dummy,
		now:          time.Now,
		l:            l,
	}, nil
}

func (s *AuthService) VerifyAdmin(ctx context.Context, electionID int64, password string) bool {
	election, err := s.elections.GetElection(ctx, electionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.l.Warn("admin verification lookup failed", zap.Int64("election_id", electionID), zap.Error(err))
		}
		s.Verify(password, s.dummyHash)
		return false
	}
	return s.Verify(password, election.AdminPasswordHash)
}

type tokenClaims struct {
	ElectionID int64       `json:"eid"`
	Role       domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken mints a bearer token for electionID. Callers must have verified
// the admin password first.
func (s *AuthService) IssueToken(electionID int64, role domain.Role) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := tokenClaims{
		ElectionID: electionID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(electionID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *AuthService) ParseToken(raw string) (*domain.AccessToken, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthFailed, err)
	}

	token := &domain.AccessToken{
		ElectionID: claims.ElectionID,
		Role:       claims.Role,
	}
	if claims.ExpiresAt != nil {
		token.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		token.IssuedAt = claims.IssuedAt.Time
	}
	return token, nil
}
