package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workplan/internal/models"
)

type createUserRequest struct {
	Name  string      `json:"name" binding:"required"`
	Email string      `json:"email" binding:"required,email"`
	Role  models.Role `json:"role" binding:"required"`
}

// handleDashboard returns everything the admin dashboard renders.
func (s *Server) handleDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	project, err := s.registry.Get(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	developers, err := s.directory.Developers(ctx, project)
	if err != nil {
		s.fail(c, err)
		return
	}
	tree, err := s.backlog.Tree(ctx, project)
	if err != nil {
		s.fail(c, err)
		return
	}

	users := project.Users
	project.Users = nil
	respondSuccess(c, http.StatusOK, gin.H{
		"project":    project,
		"users":      users,
		"developers": developers,
		"roles":      []models.Role{models.RoleDeveloper, models.RoleScrumMaster},
		"backlog":    tree,
	})
}

// handleCreateUser invites a developer or scrum master and mails them a code.
func (s *Server) handleCreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.registry.Get(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	user, err := s.directory.CreateUser(ctx, project, req.Name, req.Email, req.Role)
	if err != nil {
		s.fail(c, err)
		return
	}
	code, err := s.auth.GenerateForUser(ctx, user)
	if err != nil {
		s.fail(c, err)
		return
	}

	delivered := s.sendOTP(c, user, project.Name, code)
	respondSuccess(c, http.StatusCreated, gin.H{"user": user, "delivered": delivered})
}
