package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage format of account expiry dates.
const DateLayout = "2006-01-02"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// User is an account allowed to log in.
type User struct {
	ID           string
	PasswordHash string
	// Expires is the first day the account can no longer log in. Nil means
	// the account never expires.
	Expires *time.Time
	Roles   []string
}

// Expired reports whether the account has expired on the day of now.
func (u *User) Expired(now time.Time) bool {
	if u.Expires == nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !u.Expires.After(today)
}

// ParseRoles splits a comma-separated role list, trimming blanks.
func ParseRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// ParseExpiry parses an expiry date. "" and "never" mean no expiry.
func ParseExpiry(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "never") {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry date %q: %w", s, err)
	}
	return &t, nil
}

func formatExpiry(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(DateLayout)
}

// CreateUser inserts a new account.
func (db *DB) CreateUser(u *User) error {
	var exists int
	err := db.QueryRow("SELECT 1 FROM users WHERE id = ?", u.ID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrUserExists, u.ID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO users (id, password, expires, roles)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.PasswordHash, formatExpiry(u.Expires), strings.Join(u.Roles, ","))
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u       User
		expires sql.NullString
		roles   sql.NullString
	)
	if err := row.Scan(&u.ID, &u.PasswordHash, &expires, &roles); err != nil {
		return nil, err
	}
	if expires.Valid {
		t, err := ParseExpiry(expires.String)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.ID, err)
		}
		u.Expires = t
	}
	if roles.Valid {
		u.Roles = ParseRoles(roles.String)
	}
	return &u, nil
}

// GetUser retrieves an account by id.
func (db *DB) GetUser(id string) (*User, error) {
	row := db.QueryRow("SELECT id, password, expires, roles FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListUsers returns all accounts ordered by id.
func (db *DB) ListUsers() ([]User, error) {
	rows, err := db.Query("SELECT id, password, expires, roles FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// updateUser runs an UPDATE on one user and maps "no row" to ErrUserNotFound.
func (db *DB) updateUser(id, query string, args ...any) error {
	res, err := db.Exec(query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return nil
}

// SetRoles replaces the roles of an account.
func (db *DB) SetRoles(id string, roles []string) error {
	return db.updateUser(id, "UPDATE users SET roles = ? WHERE id = ?", strings.Join(roles, ","))
}

// SetExpiry sets or, with nil, clears the expiry date of an account.
func (db *DB) SetExpiry(id string, expires *time.Time) error {
	return db.updateUser(id, "UPDATE users SET expires = ? WHERE id = ?", formatExpiry(expires))
}

// UpdatePassword stores a new password hash.
func (db *DB) UpdatePassword(id, hash string) error {
	return db.updateUser(id, "UPDATE users SET password = ? WHERE id = ?", hash)
}

// DeleteUser removes an account and, through the foreign key, its sessions.
func (db *DB) DeleteUser(id string) error {
	res, err := db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return nil
}
