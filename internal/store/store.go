package store

import (
	"context"
	"errors"

	"github.com/rebuttal-io/rebuttal/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrRoomFull      = errors.New("room is full")
)

// UserUpdate carries the mutable profile fields; nil means "leave as is".
type UserUpdate struct {
	Username *string
	Bio      *string
	Rating   *int
}

// DebateUpdate carries the mutable debate fields; nil means "leave as is".
type DebateUpdate struct {
	Topic   *string
	Status  *string
	Score   *int
	Verdict *string
}

// UserStore holds credential records. Uniqueness of email and username is
// enforced here (insert-or-fail), not by callers.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error)
}

// SessionStore backs the opaque-token authenticator.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSessionByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

type DebateStore interface {
	CreateDebate(ctx context.Context, debate *models.Debate) error
	GetDebate(ctx context.Context, id string) (*models.Debate, error)
	ListDebatesByUser(ctx context.Context, userID string) ([]*models.Debate, error)
	UpdateDebate(ctx context.Context, id string, upd DebateUpdate) (*models.Debate, error)
	DeleteDebate(ctx context.Context, id string) error
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, debateID string) ([]*models.Message, error)
}

type RoomStore interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	AddParticipant(ctx context.Context, roomID, userID string) error
	RemoveParticipant(ctx context.Context, roomID, userID string) error
	ListParticipants(ctx context.Context, roomID string) ([]*models.RoomParticipant, error)
}

type WaitlistStore interface {
	// AddWaitlistEntry reports whether a new entry was created; a repeat
	// email is not an error, just created=false.
	AddWaitlistEntry(ctx context.Context, email string) (created bool, err error)
}

// Store is the full persistence boundary. Handlers and the auth layer are
// written against this interface so the in-memory fake and the SQL store
// are interchangeable.
type Store interface {
	UserStore
	SessionStore
	DebateStore
	RoomStore
	WaitlistStore
}

// RoomCapacity is the number of seats in a P2P room.
const RoomCapacity = 2
