package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"workplan/internal/apperr"
	"workplan/internal/models"
)

type moduleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type featureRequest struct {
	ModuleID    int64  `json:"module_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type taskRequest struct {
	FeatureID      int64  `json:"feature_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	EstimatedHours int    `json:"estimated_hours" binding:"required,min=1"`
	AssigneeID     *int64 `json:"assignee_id"`
}

// handleCreateModule appends a module to the project backlog.
func (s *Server) handleCreateModule(c *gin.Context) {
	ctx := c.Request.Context()

	var req moduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.registry.Get(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	module, err := s.backlog.AddModule(ctx, project, req.Name, req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"module": module})
}

// handleCreateFeature adds a feature to a module.
func (s *Server) handleCreateFeature(c *gin.Context) {
	var req featureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	feature, err := s.backlog.AddFeature(c.Request.Context(), req.ModuleID, req.Name, req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"feature": feature})
}

// handleCreateTask adds a task to a feature. Only developers may be assigned.
func (s *Server) handleCreateTask(c *gin.Context) {
	ctx := c.Request.Context()

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	var assignee *models.User
	if req.AssigneeID != nil {
		user, err := s.directory.FindByID(ctx, *req.AssigneeID)
		if errors.Is(err, apperr.ErrNotFound) {
			s.fail(c, fmt.Errorf("assignee %w", apperr.ErrNotFound))
			return
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		if user.Role != models.RoleDeveloper {
			s.fail(c, fmt.Errorf("%w: only developers can be assigned to tasks", apperr.ErrInvalidArgument))
			return
		}
		assignee = &user
	}

	task, err := s.backlog.AddTask(ctx, req.FeatureID, req.Name, req.Description, req.EstimatedHours, assignee)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleDeleteModule removes a module with its features and tasks.
func (s *Server) handleDeleteModule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.backlog.DeleteModule(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleDeleteFeature removes a feature with its tasks.
func (s *Server) handleDeleteFeature(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.backlog.DeleteFeature(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.backlog.DeleteTask(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
