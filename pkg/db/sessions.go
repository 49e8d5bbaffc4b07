package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a logged-in browser.
type Session struct {
	Token     string
	UserID    string
	Remember  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// CreateSession starts a session for userID that lasts ttl.
func (db *DB) CreateSession(userID string, remember bool, ttl time.Duration) (*Session, error) {
	now := time.Now()
	s := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Remember:  remember,
		CreatedAt: now.Truncate(time.Second),
		ExpiresAt: now.Add(ttl).Truncate(time.Second),
	}

	_, err := db.Exec(`
		INSERT INTO sessions (token, user_id, remember, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.Token, s.UserID, s.Remember, s.CreatedAt.Unix(), s.ExpiresAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// GetSession returns the live session for token. Expired sessions are
// reported as not found.
func (db *DB) GetSession(token string) (*Session, error) {
	var (
		s                  Session
		created, expiresAt int64
	)
	err := db.QueryRow(`
		SELECT token, user_id, remember, created_at, expires_at
		FROM sessions
		WHERE token = ? AND expires_at > ?
	`, token, time.Now().Unix()).Scan(&s.Token, &s.UserID, &s.Remember, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.CreatedAt = time.Unix(created, 0)
	s.ExpiresAt = time.Unix(expiresAt, 0)
	return &s, nil
}

// DeleteSession ends a session. Deleting an unknown token is not an error.
func (db *DB) DeleteSession(token string) error {
	if _, err := db.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes sessions that expired before now and
// returns how many were removed.
func (db *DB) PurgeExpiredSessions(now time.Time) (int64, error) {
	res, err := db.Exec("DELETE FROM sessions WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return n, nil
}
