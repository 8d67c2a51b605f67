package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/rebuttal-io/rebuttal/internal/models"
)

// SQLStore implements Store on top of database/sql for both PostgreSQL and
// SQLite. Queries are written with "?" placeholders and rebound to "$n" for
// Postgres.
type SQLStore struct {
	db     *sql.DB
	dbType string
}

func NewSQLStore(db *sql.DB, dbType string) *SQLStore {
	return &SQLStore{db: db, dbType: dbType}
}

// rebind converts "?" placeholders to "$1..$n" when talking to Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dbType != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation reports whether err came from a unique-index conflict.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	if sqliteErr, ok := err.(sqlite3.Error); ok {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO users (id, email, username, password_hash, bio, rating, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Email, user.Username, user.PasswordHash, user.Bio, user.Rating, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *SQLStore) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.Bio, &user.Rating, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

const userColumns = "id, email, username, password_hash, bio, rating, created_at, updated_at"

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		s.rebind("SELECT "+userColumns+" FROM users WHERE lower(email) = lower(?)"), email))
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		s.rebind("SELECT "+userColumns+" FROM users WHERE lower(username) = lower(?)"), username))
}

func (s *SQLStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		s.rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id))
}

func (s *SQLStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now()}
	if upd.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *upd.Username)
	}
	if upd.Bio != nil {
		sets = append(sets, "bio = ?")
		args = append(args, *upd.Bio)
	}
	if upd.Rating != nil {
		sets = append(sets, "rating = ?")
		args = append(args, *upd.Rating)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

func (s *SQLStore) CreateSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO sessions (id, user_id, token, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`),
		session.ID, session.UserID, session.Token, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SQLStore) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	session := &models.Session{}
	err := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT id, user_id, token, created_at, expires_at FROM sessions WHERE token = ?"), token,
	).Scan(&session.ID, &session.UserID, &session.Token, &session.CreatedAt, &session.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SQLStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE token = ?"), token)
	return err
}

func (s *SQLStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		s.rebind("DELETE FROM sessions WHERE expires_at < ?"), time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQLStore) CreateDebate(ctx context.Context, debate *models.Debate) error {
	now := time.Now()
	if debate.ID == "" {
		debate.ID = uuid.NewString()
	}
	debate.CreatedAt = now
	debate.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO debates (id, user_id, topic, stance, status, score, verdict, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		debate.ID, debate.UserID, debate.Topic, debate.Stance, debate.Status,
		debate.Score, debate.Verdict, debate.CreatedAt, debate.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create debate: %w", err)
	}
	return nil
}

const debateColumns = "id, user_id, topic, stance, status, score, verdict, created_at, updated_at"

func scanDebate(scan func(dest ...interface{}) error) (*models.Debate, error) {
	d := &models.Debate{}
	var score sql.NullInt64
	var verdict sql.NullString
	err := scan(&d.ID, &d.UserID, &d.Topic, &d.Stance, &d.Status, &score, &verdict, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if score.Valid {
		v := int(score.Int64)
		d.Score = &v
	}
	if verdict.Valid {
		d.Verdict = verdict.String
	}
	return d, nil
}

func (s *SQLStore) GetDebate(ctx context.Context, id string) (*models.Debate, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind("SELECT "+debateColumns+" FROM debates WHERE id = ?"), id)
	d, err := scanDebate(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *SQLStore) ListDebatesByUser(ctx context.Context, userID string) ([]*models.Debate, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT "+debateColumns+" FROM debates WHERE user_id = ? ORDER BY created_at DESC"), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debates []*models.Debate
	for rows.Next() {
		d, err := scanDebate(rows.Scan)
		if err != nil {
			return nil, err
		}
		debates = append(debates, d)
	}
	return debates, rows.Err()
}

func (s *SQLStore) UpdateDebate(ctx context.Context, id string, upd DebateUpdate) (*models.Debate, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now()}
	if upd.Topic != nil {
		sets = append(sets, "topic = ?")
		args = append(args, *upd.Topic)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	if upd.Score != nil {
		sets = append(sets, "score = ?")
		args = append(args, *upd.Score)
	}
	if upd.Verdict != nil {
		sets = append(sets, "verdict = ?")
		args = append(args, *upd.Verdict)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE debates SET "+strings.Join(sets, ", ")+" WHERE id = ?"), args...)
	if err != nil {
		return nil, fmt.Errorf("update debate: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return s.GetDebate(ctx, id)
}

func (s *SQLStore) DeleteDebate(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM debates WHERE id = ?"), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = time.Now()

	// Position is assigned inside the insert so concurrent appends to the
	// same debate cannot claim the same slot twice under read committed.
	row := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO messages (id, debate_id, role, content, position, created_at)
		 SELECT ?, ?, ?, ?, COALESCE(MAX(position), 0) + 1, ?
		 FROM messages WHERE debate_id = ?
		 RETURNING position`),
		msg.ID, msg.DebateID, msg.Role, msg.Content, msg.CreatedAt, msg.DebateID,
	)
	if err := row.Scan(&msg.Position); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (s *SQLStore) ListMessages(ctx context.Context, debateID string) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, debate_id, role, content, position, created_at
		 FROM messages WHERE debate_id = ? ORDER BY position ASC`), debateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(&msg.ID, &msg.DebateID, &msg.Role, &msg.Content, &msg.Position, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLStore) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	room.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO rooms (id, code, host_id, topic, created_at) VALUES (?, ?, ?, ?, ?)`),
		room.ID, room.Code, room.HostID, room.Topic, room.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (s *SQLStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	room := &models.Room{}
	err := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT id, code, host_id, topic, created_at FROM rooms WHERE code = ?"), code,
	).Scan(&room.ID, &room.Code, &room.HostID, &room.Topic, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (s *SQLStore) AddParticipant(ctx context.Context, roomID, userID string) error {
	// The guarded insert enforces capacity in a single statement instead of
	// a read-then-write that two joiners could race.
	result, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO room_participants (room_id, user_id, joined_at)
		 SELECT ?, ?, ?
		 WHERE (SELECT COUNT(*) FROM room_participants WHERE room_id = ?) < ?`),
		roomID, userID, time.Now(), roomID, RoomCapacity,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("add participant: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRoomFull
	}
	return nil
}

func (s *SQLStore) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	result, err := s.db.ExecContext(ctx, s.rebind(
		"DELETE FROM room_participants WHERE room_id = ? AND user_id = ?"), roomID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListParticipants(ctx context.Context, roomID string) ([]*models.RoomParticipant, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT room_id, user_id, joined_at FROM room_participants WHERE room_id = ? ORDER BY joined_at ASC"), roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []*models.RoomParticipant{}
	for rows.Next() {
		p := &models.RoomParticipant{}
		if err := rows.Scan(&p.RoomID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *SQLStore) AddWaitlistEntry(ctx context.Context, email string) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO waitlist (id, email, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (email) DO NOTHING`),
		uuid.NewString(), strings.ToLower(email), time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("add waitlist entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
