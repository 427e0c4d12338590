package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"workplan/internal/models"
	"workplan/internal/notify"
	"workplan/internal/session"
)

type setupRequest struct {
	ProjectName string `json:"project_name" binding:"required"`
	AdminName   string `json:"admin_name" binding:"required"`
	AdminEmail  string `json:"admin_email" binding:"required,email"`
}

type otpRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type otpVerification struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

// handleSetupStatus tells the frontend whether to show setup or login.
func (s *Server) handleSetupStatus(c *gin.Context) {
	exists, err := s.registry.Exists(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project_exists": exists})
}

// handleSetup creates the project, its backlog and administrator, then mails
// the administrator a login code.
func (s *Server) handleSetup(c *gin.Context) {
	ctx := c.Request.Context()

	var req setupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.registry.Create(ctx, req.ProjectName)
	if err != nil {
		s.fail(c, err)
		return
	}
	if _, err := s.backlog.Ensure(ctx, project); err != nil {
		s.fail(c, err)
		return
	}
	admin, err := s.directory.CreateAdmin(ctx, project, req.AdminName, req.AdminEmail)
	if err != nil {
		s.fail(c, err)
		return
	}
	code, err := s.auth.GenerateForUser(ctx, admin)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Info("project created", slog.Int64("project_id", project.ID), slog.String("project", project.Name))
	delivered := s.sendOTP(c, admin, project.Name, code)
	respondSuccess(c, http.StatusCreated, gin.H{
		"project":   project,
		"email":     admin.Email,
		"message":   "An OTP was sent to " + admin.Email,
		"delivered": delivered,
	})
}

// handleRequestOTP mails a fresh login code to a registered user.
func (s *Server) handleRequestOTP(c *gin.Context) {
	ctx := c.Request.Context()

	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	user, code, err := s.auth.GenerateForEmail(ctx, req.Email)
	if err != nil {
		s.fail(c, err)
		return
	}
	project, err := s.registry.Get(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}

	delivered := s.sendOTP(c, user, project.Name, code)
	respondSuccess(c, http.StatusOK, gin.H{
		"email":     user.Email,
		"message":   "An OTP was sent to " + user.Email,
		"delivered": delivered,
	})
}

// handleVerifyOTP exchanges a valid code for a session cookie.
func (s *Server) handleVerifyOTP(c *gin.Context) {
	var req otpVerification
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := s.auth.Verify(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		s.fail(c, err)
		return
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.setSessionCookie(c, token)
	s.logger.Info("user signed in", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// handleLogout revokes the session and clears the cookie.
func (s *Server) handleLogout(c *gin.Context) {
	if token, err := c.Cookie(session.CookieName); err == nil && token != "" {
		s.sessions.Revoke(token)
	}
	s.clearSessionCookie(c)
	respondSuccess(c, http.StatusOK, gin.H{"status": "logged out"})
}

// handleMe returns the signed in user.
func (s *Server) handleMe(c *gin.Context) {
	user, _ := session.UserFrom(c.Request.Context())
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// sendOTP delivers a login code. Delivery failures are logged and reported
// back as false; they never undo the issued code.
func (s *Server) sendOTP(c *gin.Context, user models.User, projectName, code string) bool {
	subject, body := notify.OTPMessage(user.Name, projectName, code, s.auth.Expiration())
	if err := s.sender.Send(c.Request.Context(), user.Email, subject, body); err != nil {
		s.logger.Error("otp delivery failed",
			slog.Int64("user_id", user.ID),
			slog.String("to", user.Email),
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("error", err.Error()))
		return false
	}
	return true
}
