package server

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"workplan/internal/apperr"
	"workplan/internal/notify"
	"workplan/internal/service"
	"workplan/internal/session"
	"workplan/internal/storage/sqlite"
)

// Options carries the collaborators the portal is built from.
type Options struct {
	Store         *sqlite.Store
	Sender        notify.Sender
	Sessions      *session.Manager
	OTPExpiration time.Duration
	// AuthOptions replace the clock or random source of the authenticator.
	AuthOptions   []service.AuthOption
	StaticDir     string
	SecureCookies bool
	// AccessLog receives one line per request. Nil means gin.DefaultWriter.
	AccessLog io.Writer
}

// Server provides HTTP handlers for the project portal.
type Server struct {
	engine        *gin.Engine
	logger        *slog.Logger
	registry      *service.Registry
	directory     *service.Directory
	auth          *service.Authenticator
	backlog       *service.Backlog
	sender        notify.Sender
	sessions      *session.Manager
	staticDir     string
	secureCookies bool
}

// New constructs the HTTP server with routes and middleware configured.
func New(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Sender == nil {
		opts.Sender = notify.NewLogSender(logger)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	accessLog := opts.AccessLog
	if accessLog == nil {
		accessLog = gin.DefaultWriter
	}
	router.Use(gin.LoggerWithWriter(accessLog, "/api/healthz"))

	srv := &Server{
		engine:        router,
		logger:        logger,
		registry:      service.NewRegistry(opts.Store),
		directory:     service.NewDirectory(opts.Store),
		auth:          service.NewAuthenticator(opts.Store, opts.OTPExpiration, opts.AuthOptions...),
		backlog:       service.NewBacklog(opts.Store),
		sender:        opts.Sender,
		sessions:      opts.Sessions,
		staticDir:     opts.StaticDir,
		secureCookies: opts.SecureCookies,
	}

	router.Use(srv.requestID)
	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		api.GET("/setup", s.handleSetupStatus)
		api.POST("/setup", s.handleSetup)

		api.POST("/login/request-otp", s.handleRequestOTP)
		api.POST("/login/verify", s.handleVerifyOTP)
		api.POST("/logout", s.handleLogout)

		authed := api.Group("", s.requireUser)
		authed.GET("/me", s.handleMe)

		admin := authed.Group("", s.requireAdmin)
		{
			admin.GET("/dashboard", s.handleDashboard)
			admin.POST("/users", s.handleCreateUser)

			backlog := admin.Group("/backlog")
			backlog.POST("/modules", s.handleCreateModule)
			backlog.DELETE("/modules/:id", s.handleDeleteModule)
			backlog.POST("/features", s.handleCreateFeature)
			backlog.DELETE("/features/:id", s.handleDeleteFeature)
			backlog.POST("/tasks", s.handleCreateTask)
			backlog.DELETE("/tasks/:id", s.handleDeleteTask)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if b, ok := s.sender.(*notify.Breaker); ok {
		body["email"] = b.State()
	}
	c.JSON(http.StatusOK, body)
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// fail reports err with the status its kind maps to.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, apperr.HTTPStatus(err), err)
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	attrs := []any{
		slog.String("path", c.FullPath()),
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	s.logger.Info("request rejected", attrs...)
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
