package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gatehouse/internal/session"
	"gatehouse/internal/users"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// SessionValidator is the part of the session manager the middleware needs
type SessionValidator interface {
	CookieName() string
	ValidateSession(ctx context.Context, id string) (*session.Session, *users.User, error)
	SessionCookie(s *session.Session) session.Cookie
	BlankSessionCookie() session.Cookie
}

// SessionMiddleware resolves the session cookie into an Identity on the
// request context. Anonymous requests pass through. A cookie naming a dead
// session is cleared, and a renewed session has its cookie re-sent.
func SessionMiddleware(sessions SessionValidator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id session.Identity

		sessionID, err := c.Cookie(sessions.CookieName())
		if err == nil && sessionID != "" {
			sess, user, err := sessions.ValidateSession(c.Request.Context(), sessionID)
			if err != nil {
				logger.Error("Session validation failed",
					"request_id", c.GetString(requestIDKey),
					"error", err,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"message": "An unknown error occurred",
				})
				return
			}

			switch {
			case sess == nil:
				http.SetCookie(c.Writer, sessions.BlankSessionCookie().HTTP())
			case sess.Fresh:
				http.SetCookie(c.Writer, sessions.SessionCookie(sess).HTTP())
			}
			if sess != nil {
				id = session.Identity{User: user, Session: sess}
			}
		}

		c.Request = c.Request.WithContext(session.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireSession aborts with 401 unless SessionMiddleware attached a session
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !session.IdentityFrom(c.Request.Context()).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Unauthorized",
			})
			return
		}
		c.Next()
	}
}

// CORSMiddleware allows credentialed requests from the configured origins
func CORSMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// RequestIDMiddleware tags every request with a unique id. An id supplied
// by an upstream proxy is kept.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}

// LoggingMiddleware logs every request with structured attributes
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", float64(time.Since(start).Microseconds()) / 1000,
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"response_size", c.Writer.Size(),
		}

		if query := c.Request.URL.RawQuery; query != "" {
			attrs = append(attrs, "query", query)
		}

		if id := session.IdentityFrom(c.Request.Context()); id.Authenticated() {
			attrs = append(attrs, "user_id", id.User.ID)
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("Request failed - server error", attrs...)
		case status >= 400:
			logger.Warn("Request failed - client error", attrs...)
		default:
			logger.Info("Request completed", attrs...)
		}
	}
}
