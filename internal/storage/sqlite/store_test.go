package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"workplan/internal/apperr"
	"workplan/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "workplan.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedProject(t *testing.T, store *Store) models.Project {
	t.Helper()
	p, err := store.CreateProject(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func TestOpenRunsMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "workplan.db")
	first, err := Open(path, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := first.CreateProject(context.Background(), "Acme"); err != nil {
		t.Fatalf("create project: %v", err)
	}
	_ = first.Close()

	second, err := Open(path, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()
	n, err := second.CountProjects(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("projects after reopen = %d, want 1", n)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.CreateProject(ctx, "Acme"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}
	n, err := store.CountProjects(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("projects after rollback = %d, want 0", n)
	}
}

func TestWithTxNestedReusesTransaction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx *Store) error {
		return tx.WithTx(ctx, func(inner *Store) error {
			if inner != tx {
				t.Error("nested WithTx opened a new transaction")
			}
			_, err := inner.CreateProject(ctx, "Acme")
			return err
		})
	})
	if err != nil {
		t.Fatalf("nested tx: %v", err)
	}
}

func TestDuplicateEmailMapsToConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	p := seedProject(t, store)

	if _, err := store.CreateUser(ctx, models.User{ProjectID: p.ID, Name: "A", Email: "a@x.com", Role: models.RoleAdmin}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := store.CreateUser(ctx, models.User{ProjectID: p.ID, Name: "B", Email: "A@X.COM", Role: models.RoleDeveloper})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate email error = %v, want ErrConflict", err)
	}
}

func TestUniqueKeysFoldNonASCII(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateProject(ctx, "Équipe"); err != nil {
		t.Fatalf("create project: %v", err)
	}
	taken, err := store.ProjectNameTaken(ctx, " équipe ")
	if err != nil || !taken {
		t.Fatalf("ProjectNameTaken = %v, %v; want true", taken, err)
	}
	if _, err := store.CreateProject(ctx, "ÉQUIPE"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("case variant project = %v, want ErrConflict", err)
	}

	p := seedProject(t, store)
	if _, err := store.CreateUser(ctx, models.User{ProjectID: p.ID, Name: "Ö", Email: "ömer@x.com", Role: models.RoleDeveloper}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := store.CreateUser(ctx, models.User{ProjectID: p.ID, Name: "Ö", Email: "ÖMER@x.com", Role: models.RoleDeveloper}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("case variant email = %v, want ErrConflict", err)
	}
	if taken, err := store.EmailTaken(ctx, "Ömer@X.com"); err != nil || !taken {
		t.Fatalf("EmailTaken = %v, %v; want true", taken, err)
	}
}

func TestFindUserByEmailIgnoresCase(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	p := seedProject(t, store)

	created, err := store.CreateUser(ctx, models.User{ProjectID: p.ID, Name: "Dev", Email: "Dev@Example.com", Role: models.RoleDeveloper})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	found, err := store.FindUserByEmail(ctx, "dev@example.COM")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("found user %d, want %d", found.ID, created.ID)
	}
	if _, err := store.FindUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing email error = %v, want ErrNotFound", err)
	}
}

func TestSetAndClearOTP(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	p := seedProject(t, store)
	u, err := store.CreateUser(ctx, models.User{ProjectID: p.ID, Name: "Dev", Email: "dev@x.com", Role: models.RoleDeveloper})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.HasPendingOTP() {
		t.Fatal("new user has a pending otp")
	}

	at := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	if err := store.SetOTP(ctx, u.ID, "004211", at); err != nil {
		t.Fatalf("set otp: %v", err)
	}
	got, err := store.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !got.HasPendingOTP() || *got.LatestOTP != "004211" || !got.OTPGeneratedAt.Equal(at) {
		t.Fatalf("stored otp = %v at %v", got.LatestOTP, got.OTPGeneratedAt)
	}

	cleared, err := store.ClearOTP(ctx, u.ID, "999999")
	if err != nil || cleared {
		t.Fatalf("clear with wrong code = %v, %v; want false, nil", cleared, err)
	}
	cleared, err = store.ClearOTP(ctx, u.ID, "004211")
	if err != nil || !cleared {
		t.Fatalf("clear = %v, %v; want true, nil", cleared, err)
	}
	got, _ = store.GetUser(ctx, u.ID)
	if got.LatestOTP != nil || got.OTPGeneratedAt != nil {
		t.Fatal("otp fields not cleared")
	}

	if err := store.SetOTP(ctx, 9999, "123456", at); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("set otp for missing user = %v, want ErrNotFound", err)
	}
}

func TestEnsureBacklogIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	p := seedProject(t, store)

	if _, err := store.FindBacklog(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("find before ensure = %v, want ErrNotFound", err)
	}
	first, err := store.EnsureBacklog(ctx, p.ID, "Acme Backlog")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := store.EnsureBacklog(ctx, p.ID, "Other name")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first.ID != second.ID || second.Name != "Acme Backlog" {
		t.Fatalf("second ensure returned %+v, want %+v", second, first)
	}
}

func TestForeignKeysBlockOrphans(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	p := seedProject(t, store)
	b, err := store.EnsureBacklog(ctx, p.ID, "Acme Backlog")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	m, err := store.CreateModule(ctx, models.Module{BacklogID: b.ID, Name: "Core"})
	if err != nil {
		t.Fatalf("module: %v", err)
	}
	if _, err := store.CreateFeature(ctx, models.Feature{ModuleID: m.ID, Name: "Login"}); err != nil {
		t.Fatalf("feature: %v", err)
	}

	if err := store.DeleteModule(ctx, m.ID); err == nil {
		t.Fatal("deleting a module with features succeeded")
	}
	if _, err := store.CreateFeature(ctx, models.Feature{ModuleID: 4242, Name: "Orphan"}); err == nil {
		t.Fatal("feature with unknown module was inserted")
	}
}
