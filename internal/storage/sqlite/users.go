package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"workplan/internal/apperr"
	"workplan/internal/models"
)

const userColumns = `id, project_id, name, email, role, latest_otp, otp_generated_at, created_at`

func scanUser(row rowScanner) (models.User, error) {
	var (
		u           models.User
		role        string
		otp         sql.NullString
		generatedAt sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.ProjectID, &u.Name, &u.Email, &role, &otp, &generatedAt, &u.CreatedAt); err != nil {
		return models.User{}, err
	}
	u.Role = models.Role(role)
	if otp.Valid && generatedAt.Valid {
		code := otp.String
		at := generatedAt.Time.UTC()
		u.LatestOTP = &code
		u.OTPGeneratedAt = &at
	}
	return u, nil
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser inserts a user without any outstanding one-time password.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	res, err := s.q.ExecContext(ctx, `INSERT INTO users(project_id, name, email, email_key, role) VALUES(?, ?, ?, ?, ?)`,
		u.ProjectID, strings.TrimSpace(u.Name), strings.TrimSpace(u.Email), foldKey(u.Email), string(u.Role))
	if err != nil {
		return models.User{}, constraintErr("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %w", apperr.ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// FindUserByEmail looks a user up by email, ignoring case.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email_key = ?`, foldKey(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("no user with email %s: %w", email, apperr.ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// EmailTaken reports whether any user already registered email, ignoring case.
func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	err := s.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email_key = ?)`, foldKey(email)).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return taken, nil
}

// ListUsers returns the users of a project in creation order.
func (s *Store) ListUsers(ctx context.Context, projectID int64) ([]models.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE project_id = ? ORDER BY id`, projectID)
}

// ListUsersByRole returns the users of a project holding role.
func (s *Store) ListUsersByRole(ctx context.Context, projectID int64, role models.Role) ([]models.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE project_id = ? AND role = ? ORDER BY id`, projectID, string(role))
}

// SetOTP stores code as the user's only outstanding one-time password.
func (s *Store) SetOTP(ctx context.Context, userID int64, code string, generatedAt time.Time) error {
	res, err := s.q.ExecContext(ctx, `UPDATE users SET latest_otp = ?, otp_generated_at = ? WHERE id = ?`, code, generatedAt.UTC(), userID)
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return affectedOrNotFound(res, "user")
}

// ClearOTP removes the outstanding one-time password if it is still code.
// It returns false when another request consumed or replaced it first.
func (s *Store) ClearOTP(ctx context.Context, userID int64, code string) (bool, error) {
	res, err := s.q.ExecContext(ctx, `UPDATE users SET latest_otp = NULL, otp_generated_at = NULL WHERE id = ? AND latest_otp = ?`, userID, code)
	if err != nil {
		return false, fmt.Errorf("clear otp: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
