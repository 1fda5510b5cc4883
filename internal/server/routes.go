package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gatehouse/internal/auth"
	"gatehouse/internal/database"
	"gatehouse/internal/session"
)

// RegisterRoutes builds the gin engine with every route and middleware
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(s.log))
	r.Use(CORSMiddleware(s.cfg.CORSAllowedOrigins))

	r.GET("/health", s.healthHandler)

	app := r.Group("")
	app.Use(SessionMiddleware(s.deps.Sessions, s.log))
	{
		auth.NewHandler(s.deps.Auth, s.deps.Sessions, s.log).RegisterRoutes(app)

		api := app.Group("/api")
		{
			api.GET("/", s.listUsersHandler)
			api.POST("/", s.echoHandler)
			api.GET("/me", RequireSession(), s.meHandler)
		}
	}

	return r
}

// EchoRequest is the body accepted by POST /api/
type EchoRequest struct {
	Name string `json:"name" binding:"required"`
}

// MeResponse describes the caller's session
type MeResponse struct {
	User      *auth.UserResponse `json:"user"`
	ExpiresAt time.Time          `json:"expires_at"`
}

func (s *Server) listUsersHandler(c *gin.Context) {
	list, err := s.deps.Users.List(c.Request.Context())
	if err != nil {
		s.log.Error("Failed to list users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An unknown error occurred"})
		return
	}

	resp := make([]*auth.UserResponse, 0, len(list))
	for i := range list {
		resp = append(resp, auth.NewUserResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) echoHandler(c *gin.Context) {
	var req EchoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	c.JSON(http.StatusOK, req)
}

func (s *Server) meHandler(c *gin.Context) {
	id := session.IdentityFrom(c.Request.Context())
	c.JSON(http.StatusOK, MeResponse{
		User:      auth.NewUserResponse(id.User),
		ExpiresAt: id.Session.ExpiresAt,
	})
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	response := make(map[string]any)

	if s.deps.DB != nil {
		dbHealth := database.Health(ctx, s.deps.DB)
		if dbHealth["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		response["database"] = dbHealth
	} else {
		response["database"] = map[string]string{"status": "disabled"}
	}

	sessionHealth := map[string]string{
		"backend": s.cfg.SessionBackend,
		"status":  "up",
	}
	if p, ok := s.deps.SessionBackend.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			sessionHealth["status"] = "down"
			sessionHealth["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	response["sessions"] = sessionHealth

	c.JSON(status, response)
}
