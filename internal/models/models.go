package models

import "time"

// User is an account holder. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio,omitempty"`
	Rating       int       `json:"rating"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session is a server-side record backing an opaque bearer token.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Debate statuses.
const (
	DebateActive    = "active"
	DebateCompleted = "completed"
	DebateArchived  = "archived"
)

// Debate is one practice debate owned by a user.
type Debate struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Topic     string    `json:"topic"`
	Stance    string    `json:"stance"`
	Status    string    `json:"status"`
	Score     *int      `json:"score,omitempty"`
	Verdict   string    `json:"verdict,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message roles.
const (
	RoleUser     = "user"
	RoleOpponent = "opponent"
	RoleAI       = "ai"
)

// Message is a single utterance within a debate.
type Message struct {
	ID        string    `json:"id"`
	DebateID  string    `json:"debateId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// Room is a P2P practice room. Signaling happens elsewhere; this is
// pure bookkeeping around the join code and its two seats.
type Room struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	HostID    string    `json:"hostId"`
	Topic     string    `json:"topic,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomParticipant records one occupied seat in a room.
type RoomParticipant struct {
	RoomID   string    `json:"roomId"`
	UserID   string    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// WaitlistEntry is a captured marketing-page email.
type WaitlistEntry struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
