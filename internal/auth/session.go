package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/rebuttal-io/rebuttal/internal/models"
	"github.com/rebuttal-io/rebuttal/internal/store"
)

// DefaultSessionTTL is how long an opaque session lives (7 days).
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionManager is the stateful Authenticator: credentials are opaque
// random strings looked up in the session store. Expired sessions are
// deleted on the access that discovers them.
type SessionManager struct {
	sessions store.SessionStore
	users    store.UserStore
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionManager(sessions store.SessionStore, users store.UserStore, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: sessions,
		users:    users,
		ttl:      ttl,
		now:      time.Now,
	}
}

// newSessionToken builds a token of the form tok_<base36 timestamp><random>.
// Consumers must treat it as opaque; the embedded timestamp carries no
// meaning beyond making collisions even less likely.
func (sm *SessionManager) newSessionToken() (string, error) {
	suffix := make([]byte, 12)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return "tok_" + strconv.FormatInt(sm.now().UnixNano(), 36) + hex.EncodeToString(suffix), nil
}

// Issue implements Authenticator: it persists a session row and returns its
// opaque token.
func (sm *SessionManager) Issue(ctx context.Context, user *models.User) (string, error) {
	token, err := sm.newSessionToken()
	if err != nil {
		return "", err
	}

	now := sm.now()
	session := &models.Session{
		UserID:    user.ID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.ttl),
	}
	if err := sm.sessions.CreateSession(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve implements Authenticator. An expired session is removed before the
// error is returned, so the row does not outlive its first rejected use.
func (sm *SessionManager) Resolve(ctx context.Context, token string) (*models.User, error) {
	session, err := sm.sessions.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if session.ExpiresAt.Before(sm.now()) {
		// Cleanup-on-access; deleting an already-deleted row is a no-op.
		_ = sm.sessions.DeleteSession(ctx, token)
		return nil, ErrExpiredToken
	}

	user, err := sm.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// Revoke implements Authenticator by deleting the session row.
func (sm *SessionManager) Revoke(ctx context.Context, token string) error {
	return sm.sessions.DeleteSession(ctx, token)
}

// CleanupExpired removes all expired session rows. The API server runs this
// on a ticker in session mode.
func (sm *SessionManager) CleanupExpired(ctx context.Context) (int64, error) {
	return sm.sessions.DeleteExpiredSessions(ctx)
}
