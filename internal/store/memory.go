package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rebuttal-io/rebuttal/internal/models"
)

// MemoryStore is an in-memory Store used by tests and local development.
// All uniqueness checks happen under the mutex, so concurrent signups with
// the same email cannot both succeed.
type MemoryStore struct {
	mu           sync.Mutex
	users        map[string]*models.User    // by id
	sessions     map[string]*models.Session // by token
	debates      map[string]*models.Debate
	messages     map[string][]*models.Message // by debate id
	rooms        map[string]*models.Room      // by id
	participants map[string][]*models.RoomParticipant
	waitlist     map[string]*models.WaitlistEntry // by lowercased email
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*models.User),
		sessions:     make(map[string]*models.Session),
		debates:      make(map[string]*models.Debate),
		messages:     make(map[string][]*models.Message),
		rooms:        make(map[string]*models.Room),
		participants: make(map[string][]*models.RoomParticipant),
		waitlist:     make(map[string]*models.WaitlistEntry),
	}
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) || strings.EqualFold(u.Username, user.Username) {
			return ErrAlreadyExists
		}
	}

	now := time.Now()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// DeleteUser exists so tests can simulate a token whose user is gone.
func (m *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	for token, s := range m.sessions {
		if s.UserID == id {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *MemoryStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	if upd.Username != nil {
		for uid, other := range m.users {
			if uid != id && strings.EqualFold(other.Username, *upd.Username) {
				return nil, ErrAlreadyExists
			}
		}
		u.Username = *upd.Username
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.Rating != nil {
		u.Rating = *upd.Rating
	}
	u.UpdatedAt = time.Now()

	cp := *u
	return &cp, nil
}

func (m *MemoryStore) CreateSession(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.Token]; ok {
		return ErrAlreadyExists
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	cp := *session
	m.sessions[session.Token] = &cp
	return nil
}

func (m *MemoryStore) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Deleting an absent session is a no-op so cleanup stays idempotent.
	delete(m.sessions, token)
	return nil
}

func (m *MemoryStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for token, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateDebate(ctx context.Context, debate *models.Debate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if debate.ID == "" {
		debate.ID = uuid.NewString()
	}
	debate.CreatedAt = now
	debate.UpdatedAt = now
	cp := *debate
	m.debates[debate.ID] = &cp
	return nil
}

func (m *MemoryStore) GetDebate(ctx context.Context, id string) (*models.Debate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) ListDebatesByUser(ctx context.Context, userID string) ([]*models.Debate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Debate
	for _, d := range m.debates {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateDebate(ctx context.Context, id string, upd DebateUpdate) (*models.Debate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Topic != nil {
		d.Topic = *upd.Topic
	}
	if upd.Status != nil {
		d.Status = *upd.Status
	}
	if upd.Score != nil {
		score := *upd.Score
		d.Score = &score
	}
	if upd.Verdict != nil {
		d.Verdict = *upd.Verdict
	}
	d.UpdatedAt = time.Now()
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) DeleteDebate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.debates[id]; !ok {
		return ErrNotFound
	}
	delete(m.debates, id)
	delete(m.messages, id)
	return nil
}

func (m *MemoryStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.debates[msg.DebateID]; !ok {
		return ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Position = len(m.messages[msg.DebateID]) + 1
	msg.CreatedAt = time.Now()
	cp := *msg
	m.messages[msg.DebateID] = append(m.messages[msg.DebateID], &cp)
	return nil
}

func (m *MemoryStore) ListMessages(ctx context.Context, debateID string) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[debateID]
	out := make([]*models.Message, 0, len(msgs))
	for _, msg := range msgs {
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) CreateRoom(ctx context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.Code == room.Code {
			return ErrAlreadyExists
		}
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	room.CreatedAt = time.Now()
	cp := *room
	m.rooms[room.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.Code == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) AddParticipant(ctx context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return ErrNotFound
	}
	existing := m.participants[roomID]
	for _, p := range existing {
		if p.UserID == userID {
			return ErrAlreadyExists
		}
	}
	if len(existing) >= RoomCapacity {
		return ErrRoomFull
	}
	m.participants[roomID] = append(existing, &models.RoomParticipant{
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: time.Now(),
	})
	return nil
}

func (m *MemoryStore) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.participants[roomID]
	for i, p := range existing {
		if p.UserID == userID {
			m.participants[roomID] = append(existing[:i], existing[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ListParticipants(ctx context.Context, roomID string) ([]*models.RoomParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ps := m.participants[roomID]
	out := make([]*models.RoomParticipant, 0, len(ps))
	for _, p := range ps {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) AddWaitlistEntry(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := m.waitlist[key]; ok {
		return false, nil
	}
	m.waitlist[key] = &models.WaitlistEntry{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now(),
	}
	return true, nil
}
