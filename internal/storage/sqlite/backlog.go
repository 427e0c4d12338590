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

const (
	backlogColumns = `id, project_id, name, created_at`
	moduleColumns  = `id, backlog_id, name, description, created_at`
	featureColumns = `id, module_id, name, description, status, created_at`
	taskColumns    = `id, feature_id, name, description, status, estimated_hours, assignee_id, created_at`
)

// FindBacklog returns the backlog attached to a project.
func (s *Store) FindBacklog(ctx context.Context, projectID int64) (models.Backlog, error) {
	var b models.Backlog
	err := s.q.QueryRowContext(ctx, `SELECT `+backlogColumns+` FROM backlogs WHERE project_id = ?`, projectID).
		Scan(&b.ID, &b.ProjectID, &b.Name, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Backlog{}, fmt.Errorf("backlog %w", apperr.ErrNotFound)
	}
	if err != nil {
		return models.Backlog{}, fmt.Errorf("find backlog: %w", err)
	}
	return b, nil
}

// EnsureBacklog creates the project's backlog named name unless one exists
// and returns whichever row is stored.
func (s *Store) EnsureBacklog(ctx context.Context, projectID int64, name string) (models.Backlog, error) {
	_, err := s.q.ExecContext(ctx, `INSERT INTO backlogs(project_id, name) VALUES(?, ?) ON CONFLICT(project_id) DO NOTHING`, projectID, name)
	if err != nil {
		return models.Backlog{}, fmt.Errorf("insert backlog: %w", err)
	}
	return s.FindBacklog(ctx, projectID)
}

// CreateModule inserts a module into a backlog.
func (s *Store) CreateModule(ctx context.Context, m models.Module) (models.Module, error) {
	res, err := s.q.ExecContext(ctx, `INSERT INTO modules(backlog_id, name, description) VALUES(?, ?, ?)`,
		m.BacklogID, strings.TrimSpace(m.Name), strings.TrimSpace(m.Description))
	if err != nil {
		return models.Module{}, fmt.Errorf("insert module: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Module{}, fmt.Errorf("module id: %w", err)
	}
	return s.GetModule(ctx, id)
}

// GetModule fetches a module by id.
func (s *Store) GetModule(ctx context.Context, id int64) (models.Module, error) {
	var m models.Module
	err := s.q.QueryRowContext(ctx, `SELECT `+moduleColumns+` FROM modules WHERE id = ?`, id).
		Scan(&m.ID, &m.BacklogID, &m.Name, &m.Description, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Module{}, fmt.Errorf("module %w", apperr.ErrNotFound)
	}
	if err != nil {
		return models.Module{}, fmt.Errorf("get module: %w", err)
	}
	return m, nil
}

// ListModules returns the modules of a backlog in creation order.
func (s *Store) ListModules(ctx context.Context, backlogID int64) ([]models.Module, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+moduleColumns+` FROM modules WHERE backlog_id = ? ORDER BY id`, backlogID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	var modules []models.Module
	for rows.Next() {
		var m models.Module
		if err := rows.Scan(&m.ID, &m.BacklogID, &m.Name, &m.Description, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// DeleteModule removes a module row. Its features must already be gone.
func (s *Store) DeleteModule(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM modules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	return affectedOrNotFound(res, "module")
}

func scanFeature(row rowScanner) (models.Feature, error) {
	var (
		f      models.Feature
		status string
	)
	err := row.Scan(&f.ID, &f.ModuleID, &f.Name, &f.Description, &status, &f.CreatedAt)
	f.Status = models.Status(status)
	return f, err
}

func (s *Store) queryFeatures(ctx context.Context, query string, args ...any) ([]models.Feature, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	var features []models.Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

// CreateFeature inserts a feature into a module.
func (s *Store) CreateFeature(ctx context.Context, f models.Feature) (models.Feature, error) {
	if f.Status == "" {
		f.Status = models.StatusPlanned
	}
	res, err := s.q.ExecContext(ctx, `INSERT INTO features(module_id, name, description, status) VALUES(?, ?, ?, ?)`,
		f.ModuleID, strings.TrimSpace(f.Name), strings.TrimSpace(f.Description), string(f.Status))
	if err != nil {
		return models.Feature{}, fmt.Errorf("insert feature: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Feature{}, fmt.Errorf("feature id: %w", err)
	}
	return s.GetFeature(ctx, id)
}

// GetFeature fetches a feature by id.
func (s *Store) GetFeature(ctx context.Context, id int64) (models.Feature, error) {
	f, err := scanFeature(s.q.QueryRowContext(ctx, `SELECT `+featureColumns+` FROM features WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Feature{}, fmt.Errorf("feature %w", apperr.ErrNotFound)
	}
	if err != nil {
		return models.Feature{}, fmt.Errorf("get feature: %w", err)
	}
	return f, nil
}

// ListFeatures returns the features of one module.
func (s *Store) ListFeatures(ctx context.Context, moduleID int64) ([]models.Feature, error) {
	return s.queryFeatures(ctx, `SELECT `+featureColumns+` FROM features WHERE module_id = ? ORDER BY id`, moduleID)
}

// ListBacklogFeatures returns every feature below a backlog.
func (s *Store) ListBacklogFeatures(ctx context.Context, backlogID int64) ([]models.Feature, error) {
	return s.queryFeatures(ctx, `SELECT f.id, f.module_id, f.name, f.description, f.status, f.created_at
        FROM features f JOIN modules m ON m.id = f.module_id
        WHERE m.backlog_id = ? ORDER BY f.id`, backlogID)
}

// DeleteFeature removes a feature row. Its tasks must already be gone.
func (s *Store) DeleteFeature(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM features WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete feature: %w", err)
	}
	return affectedOrNotFound(res, "feature")
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t        models.Task
		status   string
		assignee sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.FeatureID, &t.Name, &t.Description, &status, &t.EstimatedHours, &assignee, &t.CreatedAt); err != nil {
		return models.Task{}, err
	}
	t.Status = models.Status(status)
	if assignee.Valid {
		id := assignee.Int64
		t.AssigneeID = &id
	}
	return t, nil
}

// CreateTask inserts a task into a feature.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if t.Status == "" {
		t.Status = models.StatusPlanned
	}
	var assignee sql.NullInt64
	if t.AssigneeID != nil {
		assignee = sql.NullInt64{Int64: *t.AssigneeID, Valid: true}
	}

	res, err := s.q.ExecContext(ctx, `INSERT INTO tasks(feature_id, name, description, status, estimated_hours, assignee_id) VALUES(?, ?, ?, ?, ?, ?)`,
		t.FeatureID, strings.TrimSpace(t.Name), strings.TrimSpace(t.Description), string(t.Status), t.EstimatedHours, assignee)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	t, err := scanTask(s.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %w", apperr.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListBacklogTasks returns every task below a backlog.
func (s *Store) ListBacklogTasks(ctx context.Context, backlogID int64) ([]models.Task, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT t.id, t.feature_id, t.name, t.description, t.status, t.estimated_hours, t.assignee_id, t.created_at
        FROM tasks t
        JOIN features f ON f.id = t.feature_id
        JOIN modules m ON m.id = f.module_id
        WHERE m.backlog_id = ? ORDER BY t.id`, backlogID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affectedOrNotFound(res, "task")
}

// DeleteFeatureTasks removes every task of a feature and returns how many
// were deleted.
func (s *Store) DeleteFeatureTasks(ctx context.Context, featureID int64) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE feature_id = ?`, featureID)
	if err != nil {
		return 0, fmt.Errorf("delete feature tasks: %w", err)
	}
	return res.RowsAffected()
}
