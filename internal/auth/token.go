package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rebuttal-io/rebuttal/internal/models"
	"github.com/rebuttal-io/rebuttal/internal/store"
)

// TokenClaims is the signed token payload.
type TokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager is the stateless Authenticator: credentials are HMAC-SHA256
// signed tokens carrying their own claims and expiry. Resolve re-fetches the
// user so profile changes made after issuance are visible.
type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
	users     store.UserStore
	now       func() time.Time
}

// NewTokenManager creates a TokenManager signing with secretKey and issuing
// tokens valid for ttl.
func NewTokenManager(secretKey string, ttl time.Duration, users store.UserStore) *TokenManager {
	return &TokenManager{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		users:     users,
		now:       time.Now,
	}
}

// GenerateToken creates a signed token for a user.
func (tm *TokenManager) GenerateToken(user *models.User) (string, error) {
	now := tm.now()
	claims := TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken checks the signature, algorithm and expiry of a token and
// returns its claims. Only HS256 is accepted; a token signed with any other
// algorithm is invalid even if the signature verifies.
func (tm *TokenManager) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return tm.secretKey, nil
	}, jwt.WithTimeFunc(tm.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Issue implements Authenticator.
func (tm *TokenManager) Issue(ctx context.Context, user *models.User) (string, error) {
	return tm.GenerateToken(user)
}

// Resolve implements Authenticator. A token whose user record is gone is
// treated as invalid.
func (tm *TokenManager) Resolve(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := tm.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := tm.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// Revoke implements Authenticator. Signed tokens carry their own validity and
// cannot be revoked server-side; they simply age out.
func (tm *TokenManager) Revoke(ctx context.Context, token string) error {
	return nil
}

// ParseExpiry parses a duration string like "7d", "24h" or "30m". The "d"
// suffix means whole days; everything else is handed to time.ParseDuration.
func ParseExpiry(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid duration string %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration string %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", s)
	}
	return d, nil
}
