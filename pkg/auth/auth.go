// Package auth verifies passwords and applies the account rules of the
// user store.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/lilypads/pkg/db"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password a user may set.
const MinPasswordLength = 8

var (
	ErrPasswordMismatch = errors.New("new password repeated wrongly")
	ErrPasswordTooShort = fmt.Errorf("minimum password length is %d characters", MinPasswordLength)
	ErrWrongPassword    = errors.New("wrong password")
	ErrUserNotFound     = errors.New("user not found")
	ErrAccountExpired   = errors.New("user account expired")
)

// Store is the part of the user database auth needs.
type Store interface {
	GetUser(id string) (*db.User, error)
	UpdatePassword(id, hash string) error
}

// Service checks credentials against a Store.
type Service struct {
	store Store
	// Cost is the bcrypt work factor for new hashes.
	Cost int
	// Now returns the current time; it decides account expiry.
	Now func() time.Time
}

// NewService returns a Service using the default bcrypt cost.
func NewService(store Store) *Service {
	return &Service{store: store, Cost: bcrypt.DefaultCost, Now: time.Now}
}

// HashPassword returns the bcrypt hash of password at cost.
func HashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// Hash hashes password with the service's cost after checking its length.
func (s *Service) Hash(password string) (string, error) {
	if len([]rune(password)) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	return HashPassword(password, s.Cost)
}

func (s *Service) lookup(name string) (*db.User, error) {
	u, err := s.store.GetUser(name)
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func verify(u *db.User, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrWrongPassword
	}
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	return nil
}

// Authenticate returns the user when password matches and the account has
// not expired.
func (s *Service) Authenticate(name, password string) (*db.User, error) {
	u, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if err := verify(u, password); err != nil {
		return nil, err
	}
	if u.Expired(s.Now()) {
		return nil, fmt.Errorf("%w: %s", ErrAccountExpired, name)
	}
	return u, nil
}

// ChangePassword replaces the password of name after checking the old one.
// newPassword and repeated must be equal.
func (s *Service) ChangePassword(name, oldPassword, newPassword, repeated string) error {
	if newPassword != repeated {
		return ErrPasswordMismatch
	}
	hash, err := s.Hash(newPassword)
	if err != nil {
		return err
	}

	u, err := s.lookup(name)
	if err != nil {
		return err
	}
	if err := verify(u, oldPassword); err != nil {
		return err
	}

	if err := s.store.UpdatePassword(name, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SetPassword replaces the password of name without knowing the old one.
func (s *Service) SetPassword(name, password string) error {
	hash, err := s.Hash(password)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(name, hash); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, name)
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Message returns the text shown to a user for an auth error.
func Message(err error) string {
	switch {
	case err == nil:
		return "Password updated."
	case errors.Is(err, ErrPasswordMismatch):
		return "New password repeated wrongly."
	case errors.Is(err, ErrPasswordTooShort):
		return fmt.Sprintf("Minimum password length is %d characters.", MinPasswordLength)
	case errors.Is(err, ErrWrongPassword):
		return "Old password does not match!"
	case errors.Is(err, ErrUserNotFound):
		return "User not found!"
	case errors.Is(err, ErrAccountExpired):
		return "User account expired, please contact administrator."
	default:
		return "Password could not be changed."
	}
}
