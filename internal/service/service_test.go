package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"workplan/internal/models"
	"workplan/internal/storage/sqlite"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "workplan.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createProject(t *testing.T, store *sqlite.Store, name string) models.Project {
	t.Helper()
	p, err := NewRegistry(store).Create(context.Background(), name)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func createUser(t *testing.T, store *sqlite.Store, project models.Project, email string, role models.Role) models.User {
	t.Helper()
	dir := NewDirectory(store)
	var (
		u   models.User
		err error
	)
	if role == models.RoleAdmin {
		u, err = dir.CreateAdmin(context.Background(), project, "User "+email, email)
	} else {
		u, err = dir.CreateUser(context.Background(), project, "User "+email, email, role)
	}
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}
