package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"workplan/internal/apperr"
	"workplan/internal/models"
	"workplan/internal/session"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

var (
	errUnauthenticated = errors.New("authentication required")
	errAdminOnly       = errors.New("administrator access required")
)

// requestID tags every request with an id, reusing the caller's header.
func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header(requestIDHeader, id)
	c.Next()
}

// requireUser resolves the session cookie into the current user and stores
// it on the request context.
func (s *Server) requireUser(c *gin.Context) {
	token, err := c.Cookie(session.CookieName)
	if err != nil || token == "" {
		s.respondError(c, http.StatusUnauthorized, errUnauthenticated)
		c.Abort()
		return
	}

	userID, err := s.sessions.Resolve(token)
	if err != nil {
		s.clearSessionCookie(c)
		s.respondError(c, http.StatusUnauthorized, errUnauthenticated)
		c.Abort()
		return
	}

	user, err := s.directory.FindByID(c.Request.Context(), userID)
	if errors.Is(err, apperr.ErrNotFound) {
		s.clearSessionCookie(c)
		s.respondError(c, http.StatusUnauthorized, errUnauthenticated)
		c.Abort()
		return
	}
	if err != nil {
		s.fail(c, err)
		c.Abort()
		return
	}

	c.Request = c.Request.WithContext(session.WithUser(c.Request.Context(), user))
	c.Next()
}

// requireAdmin rejects users that are not the project administrator. It must
// run after requireUser.
func (s *Server) requireAdmin(c *gin.Context) {
	user, ok := session.UserFrom(c.Request.Context())
	if !ok || user.Role != models.RoleAdmin {
		s.respondError(c, http.StatusForbidden, errAdminOnly)
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, token, int(s.sessions.TTL().Seconds()), "/", "", s.secureCookies, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, "", -1, "/", "", s.secureCookies, true)
}
