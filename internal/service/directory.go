package service

import (
	"context"
	"fmt"
	"strings"

	"workplan/internal/apperr"
	"workplan/internal/models"
	"workplan/internal/storage/sqlite"
)

// Directory stores the users of the project.
type Directory struct {
	store *sqlite.Store
}

// NewDirectory constructs a Directory on top of store.
func NewDirectory(store *sqlite.Store) *Directory {
	return &Directory{store: store}
}

// CreateAdmin registers the project administrator.
func (d *Directory) CreateAdmin(ctx context.Context, project models.Project, name, email string) (models.User, error) {
	return d.create(ctx, project, name, email, models.RoleAdmin)
}

// CreateUser registers a developer or scrum master. Administrators go
// through CreateAdmin.
func (d *Directory) CreateUser(ctx context.Context, project models.Project, name, email string, role models.Role) (models.User, error) {
	if role == models.RoleAdmin {
		return models.User{}, fmt.Errorf("%w: use CreateAdmin for administrator accounts", apperr.ErrInvalidArgument)
	}
	if !role.Valid() {
		return models.User{}, fmt.Errorf("%w: unknown role %q", apperr.ErrInvalidArgument, role)
	}
	return d.create(ctx, project, name, email, role)
}

func (d *Directory) create(ctx context.Context, project models.Project, name, email string, role models.Role) (models.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" {
		return models.User{}, fmt.Errorf("%w: name and email are required", apperr.ErrInvalidArgument)
	}

	var user models.User
	err := d.store.WithTx(ctx, func(tx *sqlite.Store) error {
		taken, err := tx.EmailTaken(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: email already registered: %s", apperr.ErrConflict, email)
		}
		user, err = tx.CreateUser(ctx, models.User{
			ProjectID: project.ID,
			Name:      name,
			Email:     email,
			Role:      role,
		})
		return err
	})
	return user, err
}

// FindByID returns the user with id or apperr.ErrNotFound.
func (d *Directory) FindByID(ctx context.Context, id int64) (models.User, error) {
	return d.store.GetUser(ctx, id)
}

// FindByEmail looks a user up by email, ignoring case.
func (d *Directory) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return d.store.FindUserByEmail(ctx, email)
}

// ListByProject returns every user of the project.
func (d *Directory) ListByProject(ctx context.Context, project models.Project) ([]models.User, error) {
	return d.store.ListUsers(ctx, project.ID)
}

// Developers returns the users a task may be assigned to.
func (d *Directory) Developers(ctx context.Context, project models.Project) ([]models.User, error) {
	return d.store.ListUsersByRole(ctx, project.ID, models.RoleDeveloper)
}
