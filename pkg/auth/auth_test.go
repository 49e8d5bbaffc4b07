package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dtnitsch/lilypads/pkg/db"
	"golang.org/x/crypto/bcrypt"
)

// memStore is an in-memory Store.
type memStore struct {
	users map[string]*db.User
}

func (m *memStore) GetUser(id string) (*db.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrUserNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) UpdatePassword(id, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("%w: %s", db.ErrUserNotFound, id)
	}
	u.PasswordHash = hash
	return nil
}

func setupService(t *testing.T) (*Service, *memStore) {
	t.Helper()

	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	expiry := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &memStore{users: map[string]*db.User{
		"alice":   {ID: "alice", PasswordHash: hash, Roles: []string{"admin"}},
		"expired": {ID: "expired", PasswordHash: hash, Expires: &expiry},
	}}

	svc := NewService(store)
	svc.Cost = bcrypt.MinCost
	svc.Now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestAuthenticate(t *testing.T) {
	svc, _ := setupService(t)

	tests := []struct {
		name     string
		user     string
		password string
		wantErr  error
	}{
		{"valid", "alice", "correct horse", nil},
		{"wrong password", "alice", "battery staple", ErrWrongPassword},
		{"unknown user", "mallory", "correct horse", ErrUserNotFound},
		{"expired account", "expired", "correct horse", ErrAccountExpired},
		{"expired account wrong password", "expired", "nope", ErrWrongPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := svc.Authenticate(tt.user, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && u.ID != tt.user {
				t.Errorf("Authenticate() user = %q, want %q", u.ID, tt.user)
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new1    string
		new2    string
		wantErr error
	}{
		{"success", "correct horse", "new secret", "new secret", nil},
		{"mismatch", "correct horse", "new secret", "new secrex", ErrPasswordMismatch},
		{"too short", "correct horse", "short", "short", ErrPasswordTooShort},
		{"wrong old password", "wrong", "new secret", "new secret", ErrWrongPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupService(t)

			err := svc.ChangePassword("alice", tt.old, tt.new1, tt.new2)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ChangePassword() error = %v, want %v", err, tt.wantErr)
			}

			_, loginNew := svc.Authenticate("alice", tt.new1)
			_, loginOld := svc.Authenticate("alice", "correct horse")
			if tt.wantErr == nil {
				if loginNew != nil || loginOld == nil {
					t.Errorf("after change: new login err = %v, old login err = %v", loginNew, loginOld)
				}
			} else if loginOld != nil {
				t.Errorf("failed change must keep the old password, login err = %v", loginOld)
			}
		})
	}

	svc, _ := setupService(t)
	if err := svc.ChangePassword("ghost", "x", "long enough", "long enough"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("ChangePassword(ghost) error = %v, want %v", err, ErrUserNotFound)
	}
}

func TestSetPassword(t *testing.T) {
	svc, _ := setupService(t)

	if err := svc.SetPassword("alice", "brand new pw"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if _, err := svc.Authenticate("alice", "brand new pw"); err != nil {
		t.Errorf("Authenticate() with new password error = %v", err)
	}
	if err := svc.SetPassword("alice", "short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("SetPassword(short) error = %v, want %v", err, ErrPasswordTooShort)
	}
	if err := svc.SetPassword("ghost", "long enough"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("SetPassword(ghost) error = %v, want %v", err, ErrUserNotFound)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "Password updated."},
		{ErrPasswordMismatch, "New password repeated wrongly."},
		{ErrPasswordTooShort, "Minimum password length is 8 characters."},
		{fmt.Errorf("wrapped: %w", ErrWrongPassword), "Old password does not match!"},
		{ErrUserNotFound, "User not found!"},
		{ErrAccountExpired, "User account expired, please contact administrator."},
	}

	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
