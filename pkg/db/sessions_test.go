package db

import (
	"errors"
	"testing"
	"time"
)

func TestCreateSession_GetSession(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.CreateUser(&User{ID: "alice", PasswordHash: "h"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	s, err := db.CreateSession("alice", true, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if len(s.Token) != 36 {
		t.Errorf("Token = %q, want a UUID", s.Token)
	}

	got, err := db.GetSession(s.Token)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.UserID != "alice" || !got.Remember {
		t.Errorf("GetSession() = %+v", got)
	}
	if !got.ExpiresAt.Equal(s.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, s.ExpiresAt)
	}

	other, _ := db.CreateSession("alice", false, time.Hour)
	if other.Token == s.Token {
		t.Error("CreateSession() returned a duplicate token")
	}
}

func TestCreateSession_UnknownUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if _, err := db.CreateSession("ghost", false, time.Hour); err == nil {
		t.Error("CreateSession(ghost) error = nil, want foreign key error")
	}
}

func TestGetSession_Expired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_ = db.CreateUser(&User{ID: "alice", PasswordHash: "h"})
	s, err := db.CreateSession("alice", false, -time.Minute)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if _, err := db.GetSession(s.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession(expired) error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestDeleteSession(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_ = db.CreateUser(&User{ID: "alice", PasswordHash: "h"})
	s, _ := db.CreateSession("alice", false, time.Hour)

	if err := db.DeleteSession(s.Token); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := db.GetSession(s.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession(deleted) error = %v, want %v", err, ErrSessionNotFound)
	}
	if err := db.DeleteSession("unknown"); err != nil {
		t.Errorf("DeleteSession(unknown) error = %v, want nil", err)
	}
}

func TestPurgeExpiredSessions(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_ = db.CreateUser(&User{ID: "alice", PasswordHash: "h"})
	_, _ = db.CreateSession("alice", false, -time.Hour)
	_, _ = db.CreateSession("alice", false, -time.Minute)
	live, _ := db.CreateSession("alice", false, time.Hour)

	n, err := db.PurgeExpiredSessions(time.Now())
	if err != nil {
		t.Fatalf("PurgeExpiredSessions() error = %v", err)
	}
	if n != 2 {
		t.Errorf("PurgeExpiredSessions() = %d, want 2", n)
	}
	if _, err := db.GetSession(live.Token); err != nil {
		t.Errorf("live session removed: %v", err)
	}
}

func TestDeleteUser_CascadesSessions(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_ = db.CreateUser(&User{ID: "alice", PasswordHash: "h"})
	s, _ := db.CreateSession("alice", false, time.Hour)

	if err := db.DeleteUser("alice"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := db.GetSession(s.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() after user delete error = %v, want %v", err, ErrSessionNotFound)
	}
}
