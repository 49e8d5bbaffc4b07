package db

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// setupTestDB creates an in-memory database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Use in-memory database for tests
	database := &DB{path: ":memory:"}
	var err error
	database.DB, err = openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := database.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return database
}

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := ParseExpiry(s)
	if err != nil {
		t.Fatalf("ParseExpiry(%q) error = %v", s, err)
	}
	return d
}

func TestCreateUser_GetUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	u := &User{
		ID:           "alice",
		PasswordHash: "hash",
		Expires:      date(t, "2030-01-31"),
		Roles:        []string{"admin", "hu"},
	}
	if err := db.CreateUser(u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	got, err := db.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "hash")
	}
	if !reflect.DeepEqual(got.Roles, []string{"admin", "hu"}) {
		t.Errorf("Roles = %v, want [admin hu]", got.Roles)
	}
	if got.Expires == nil || got.Expires.Format(DateLayout) != "2030-01-31" {
		t.Errorf("Expires = %v, want 2030-01-31", got.Expires)
	}

	if err := db.CreateUser(u); !errors.Is(err, ErrUserExists) {
		t.Errorf("CreateUser(duplicate) error = %v, want %v", err, ErrUserExists)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if _, err := db.GetUser("nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUser() error = %v, want %v", err, ErrUserNotFound)
	}
}

func TestGetUser_RolesTrimmed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	// Rows written by hand may carry spaces around the commas.
	if _, err := db.Exec("INSERT INTO users (id, password, roles) VALUES ('bob', 'h', ' hu , de,, ')"); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	got, err := db.GetUser("bob")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if !reflect.DeepEqual(got.Roles, []string{"hu", "de"}) {
		t.Errorf("Roles = %q, want [hu de]", got.Roles)
	}
	if got.Expires != nil {
		t.Errorf("Expires = %v, want nil", got.Expires)
	}
}

func TestUpdateOperations(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.CreateUser(&User{ID: "carol", PasswordHash: "old"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if err := db.SetRoles("carol", []string{"de"}); err != nil {
		t.Fatalf("SetRoles() error = %v", err)
	}
	if err := db.SetExpiry("carol", date(t, "2024-05-01")); err != nil {
		t.Fatalf("SetExpiry() error = %v", err)
	}
	if err := db.UpdatePassword("carol", "new"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, _ := db.GetUser("carol")
	if !reflect.DeepEqual(got.Roles, []string{"de"}) || got.PasswordHash != "new" ||
		got.Expires == nil || got.Expires.Format(DateLayout) != "2024-05-01" {
		t.Errorf("user after updates = %+v", got)
	}

	if err := db.SetExpiry("carol", nil); err != nil {
		t.Fatalf("SetExpiry(nil) error = %v", err)
	}
	got, _ = db.GetUser("carol")
	if got.Expires != nil {
		t.Errorf("Expires = %v, want nil after clearing", got.Expires)
	}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"SetRoles", func() error { return db.SetRoles("ghost", nil) }},
		{"SetExpiry", func() error { return db.SetExpiry("ghost", nil) }},
		{"UpdatePassword", func() error { return db.UpdatePassword("ghost", "x") }},
		{"DeleteUser", func() error { return db.DeleteUser("ghost") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrUserNotFound) {
				t.Errorf("%s(ghost) error = %v, want %v", tt.name, err, ErrUserNotFound)
			}
		})
	}
}

func TestListUsers_DeleteUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for _, id := range []string{"zoe", "adam", "mia"} {
		if err := db.CreateUser(&User{ID: id, PasswordHash: "h"}); err != nil {
			t.Fatalf("CreateUser(%s) error = %v", id, err)
		}
	}
	if err := db.DeleteUser("mia"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	users, err := db.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	var ids []string
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	if !reflect.DeepEqual(ids, []string{"adam", "zoe"}) {
		t.Errorf("ListUsers() = %v, want [adam zoe]", ids)
	}
}

func TestUser_Expired(t *testing.T) {
	now := time.Date(2024, 6, 15, 13, 30, 0, 0, time.Local)

	tests := []struct {
		name    string
		expires string
		want    bool
	}{
		{"never", "", false},
		{"tomorrow", "2024-06-16", false},
		{"today", "2024-06-15", true},
		{"yesterday", "2024-06-14", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Expires: date(t, tt.expires)}
			if got := u.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseExpiry(t *testing.T) {
	if d, err := ParseExpiry("never"); err != nil || d != nil {
		t.Errorf("ParseExpiry(never) = %v, %v; want nil, nil", d, err)
	}
	if _, err := ParseExpiry("31.01.2030"); err == nil {
		t.Error("ParseExpiry(31.01.2030) error = nil, want error")
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.CreateUser(&User{ID: "dave", PasswordHash: "h"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	_ = db.Close()

	// Reopening must keep existing data.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("Open() again error = %v", err)
	}
	defer db.Close()
	if _, err := db.GetUser("dave"); err != nil {
		t.Errorf("GetUser() after reopen error = %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}
