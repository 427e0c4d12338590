package models

import "time"

// Role classifies what a user may do in the portal.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleDeveloper   Role = "DEVELOPER"
	RoleScrumMaster Role = "SCRUM_MASTER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDeveloper, RoleScrumMaster:
		return true
	}
	return false
}

// Status is the progress state shared by features and tasks.
type Status string

const (
	StatusPlanned    Status = "PLANNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Project is the single tenant of the portal.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Users     []User    `json:"users,omitempty"`
}

// User is a member of the project. LatestOTP and OTPGeneratedAt are either
// both nil or both set.
type User struct {
	ID             int64      `json:"id"`
	ProjectID      int64      `json:"project_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	LatestOTP      *string    `json:"-"`
	OTPGeneratedAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}

// HasPendingOTP reports whether a code is outstanding for the user.
func (u User) HasPendingOTP() bool {
	return u.LatestOTP != nil && u.OTPGeneratedAt != nil
}

// Backlog is the project's top-level container for modules.
type Backlog struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Module groups related features.
type Module struct {
	ID          int64     `json:"id"`
	BacklogID   int64     `json:"backlog_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Feature groups the tasks that deliver it.
type Feature struct {
	ID          int64     `json:"id"`
	ModuleID    int64     `json:"module_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Task is the smallest unit of work. AssigneeID is nil when unassigned.
type Task struct {
	ID             int64     `json:"id"`
	FeatureID      int64     `json:"feature_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Status         Status    `json:"status"`
	EstimatedHours int       `json:"estimated_hours"`
	AssigneeID     *int64    `json:"assignee_id"`
	CreatedAt      time.Time `json:"created_at"`
}
