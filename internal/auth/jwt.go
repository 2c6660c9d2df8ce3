package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/libreshelf/bookstore-be/internal/config"
	"github.com/libreshelf/bookstore-be/internal/session"
)

// Claims defines the JWT claims structure.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type contextKey string

// UserIDKey is the context key under which the middleware stores the
// authenticated caller's user id.
const UserIDKey = contextKey("userId")

// UserIDFromContext returns the authenticated user id attached by the
// validator middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok
}

// TokenManager issues and verifies signed session tokens. Issuing a token
// also records it in the active-session store; both the signed expiry and
// the store record share the configured TTL.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	store  *session.Store
}

// NewTokenManager creates a TokenManager from the application config.
func NewTokenManager(cfg *config.Config, store *session.Store) *TokenManager {
	return &TokenManager{secret: cfg.JWTSecret, ttl: cfg.TokenTTL, store: store}
}

// Issue creates a signed token for a verified user id and records it as an
// active session. The only failure mode is a store write error.
func (m *TokenManager) Issue(ctx context.Context, userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	if err := m.store.Save(ctx, token, userID); err != nil {
		return "", fmt.Errorf("recording session: %w", err)
	}
	return token, nil
}

// Verify parses and validates a token string against the signing secret and
// the embedded expiry. It does not consult the session store.
func (m *TokenManager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
