package auth

import (
	"context"

	"github.com/rebuttal-io/rebuttal/internal/models"
)

// Authenticator issues and resolves bearer credentials. Two implementations
// exist: TokenManager (stateless signed tokens) and SessionManager (opaque
// tokens backed by session rows). A deployment runs exactly one of them,
// selected by configuration; the HTTP middleware works against this
// interface and does not care which.
type Authenticator interface {
	// Issue produces a bearer credential for an already-authenticated user.
	Issue(ctx context.Context, user *models.User) (string, error)

	// Resolve maps a bearer token to its current user record, or returns
	// ErrInvalidToken / ErrExpiredToken.
	Resolve(ctx context.Context, token string) (*models.User, error)

	// Revoke invalidates a credential where the mechanism supports it.
	// Stateless tokens cannot be revoked; that implementation is a no-op.
	Revoke(ctx context.Context, token string) error
}
