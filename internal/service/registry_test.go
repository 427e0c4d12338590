package service

import (
	"context"
	"errors"
	"testing"

	"workplan/internal/apperr"
	"workplan/internal/models"
)

func TestRegistryCreateOnce(t *testing.T) {
	store := openStore(t)
	reg := NewRegistry(store)
	ctx := context.Background()

	exists, err := reg.Exists(ctx)
	if err != nil || exists {
		t.Fatalf("Exists before create = %v, %v", exists, err)
	}
	if _, err := reg.Get(ctx); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Get before create = %v, want ErrNotFound", err)
	}

	p, err := reg.Create(ctx, "  Acme ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Name != "Acme" {
		t.Fatalf("name = %q, want trimmed Acme", p.Name)
	}
	if exists, _ := reg.Exists(ctx); !exists {
		t.Fatal("Exists after create = false")
	}

	for _, name := range []string{"Acme", "ACME", "Globex"} {
		if _, err := reg.Create(ctx, name); !errors.Is(err, apperr.ErrConflict) {
			t.Fatalf("second create %q = %v, want ErrConflict", name, err)
		}
	}
}

func TestRegistryRejectsBlankName(t *testing.T) {
	reg := NewRegistry(openStore(t))
	if _, err := reg.Create(context.Background(), "   "); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("blank name = %v, want ErrInvalidArgument", err)
	}
}

func TestRegistryGetLoadsUsers(t *testing.T) {
	store := openStore(t)
	p := createProject(t, store, "Acme")
	createUser(t, store, p, "a@x.com", models.RoleAdmin)
	createUser(t, store, p, "dev@x.com", models.RoleDeveloper)

	got, err := NewRegistry(store).Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != p.ID || len(got.Users) != 2 {
		t.Fatalf("got project %d with %d users, want %d with 2", got.ID, len(got.Users), p.ID)
	}
	if got.Users[0].Role != models.RoleAdmin {
		t.Fatalf("first user role = %s, want ADMIN", got.Users[0].Role)
	}
}
