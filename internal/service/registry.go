// Package service holds the portal's business rules: the single project, its
// users, one-time password authentication and the backlog hierarchy. Every
// mutating method runs in one storage transaction.
package service

import (
	"context"
	"fmt"
	"strings"

	"workplan/internal/apperr"
	"workplan/internal/models"
	"workplan/internal/storage/sqlite"
)

// Registry enforces that exactly one project exists.
type Registry struct {
	store *sqlite.Store
}

// NewRegistry constructs a Registry on top of store.
func NewRegistry(store *sqlite.Store) *Registry {
	return &Registry{store: store}
}

// Exists reports whether the project has been created.
func (r *Registry) Exists(ctx context.Context) (bool, error) {
	n, err := r.store.CountProjects(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create stores the project. It fails with apperr.ErrConflict when any
// project already exists or the name is taken, checked against storage on
// every call.
func (r *Registry) Create(ctx context.Context, name string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, fmt.Errorf("%w: project name must not be empty", apperr.ErrInvalidArgument)
	}

	var project models.Project
	err := r.store.WithTx(ctx, func(tx *sqlite.Store) error {
		n, err := tx.CountProjects(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: a project already exists", apperr.ErrConflict)
		}
		taken, err := tx.ProjectNameTaken(ctx, name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: a project named %q already exists", apperr.ErrConflict, name)
		}
		project, err = tx.CreateProject(ctx, name)
		return err
	})
	return project, err
}

// Get returns the project with its users loaded, or apperr.ErrNotFound.
func (r *Registry) Get(ctx context.Context) (models.Project, error) {
	var project models.Project
	err := r.store.WithTx(ctx, func(tx *sqlite.Store) error {
		p, err := tx.FirstProject(ctx)
		if err != nil {
			return err
		}
		users, err := tx.ListUsers(ctx, p.ID)
		if err != nil {
			return err
		}
		p.Users = users
		project = p
		return nil
	})
	return project, err
}
