package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"workplan/internal/apperr"
	"workplan/internal/models"
)

const projectColumns = `id, name, created_at`

func scanProject(row rowScanner) (models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.CreatedAt)
	return p, err
}

// CountProjects returns the number of stored projects.
func (s *Store) CountProjects(ctx context.Context) (int, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

// ProjectNameTaken reports whether a project already uses name, ignoring case.
func (s *Store) ProjectNameTaken(ctx context.Context, name string) (bool, error) {
	var taken bool
	err := s.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE name_key = ?)`, foldKey(name)).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check project name: %w", err)
	}
	return taken, nil
}

// CreateProject persists a new project.
func (s *Store) CreateProject(ctx context.Context, name string) (models.Project, error) {
	res, err := s.q.ExecContext(ctx, `INSERT INTO projects(name, name_key) VALUES(?, ?)`, strings.TrimSpace(name), foldKey(name))
	if err != nil {
		return models.Project{}, constraintErr("insert project", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, fmt.Errorf("project id: %w", err)
	}
	return s.GetProject(ctx, id)
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	p, err := scanProject(s.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %w", apperr.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// FirstProject returns the earliest created project.
func (s *Store) FirstProject(ctx context.Context) (models.Project, error) {
	p, err := scanProject(s.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id ASC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %w", apperr.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("first project: %w", err)
	}
	return p, nil
}
