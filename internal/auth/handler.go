package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"gatehouse/internal/session"
)

// CookieIssuer builds session cookies
type CookieIssuer interface {
	SessionCookie(s *session.Session) session.Cookie
	BlankSessionCookie() session.Cookie
}

// Handler handles authentication-related HTTP requests
type Handler struct {
	service Service
	cookies CookieIssuer
	logger  *slog.Logger
}

// NewHandler creates a new authentication handler
func NewHandler(service Service, cookies CookieIssuer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		cookies: cookies,
		logger:  logger,
	}
}

// RegisterRoutes mounts the auth endpoints on r
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Home)
	r.GET("/signup", h.SignupPage)
	r.POST("/signup", h.Signup)
	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)
	r.POST("/logout", h.Logout)
}

// Home handles GET /
// @Summary Current user
// @Produce json
// @Success 200 {object} HomeResponse
// @Router / [get]
func (h *Handler) Home(c *gin.Context) {
	id := session.IdentityFrom(c.Request.Context())
	c.JSON(http.StatusOK, HomeResponse{User: NewUserResponse(id.User)})
}

// SignupPage handles GET /signup
// @Summary Signup form description
// @Produce json
// @Success 200 {object} MessageResponse
// @Success 302
// @Router /signup [get]
func (h *Handler) SignupPage(c *gin.Context) {
	if session.IdentityFrom(c.Request.Context()).Authenticated() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "POST username and password to /signup"})
}

// LoginPage handles GET /login
// @Summary Login form description
// @Produce json
// @Success 200 {object} MessageResponse
// @Success 302
// @Router /login [get]
func (h *Handler) LoginPage(c *gin.Context) {
	if session.IdentityFrom(c.Request.Context()).Authenticated() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "POST username and password to /login"})
}

// Signup handles POST /signup
// @Summary Create an account
// @Description Creates a user, starts a session and redirects home
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body Credentials true "Username and password"
// @Success 302
// @Failure 400 {object} MessageResponse
// @Failure 500 {object} MessageResponse
// @Router /signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var req Credentials
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: msgInvalidRequest})
		return
	}

	sess, err := h.service.Signup(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, "signup", err)
		return
	}

	http.SetCookie(c.Writer, h.cookies.SessionCookie(sess).HTTP())
	c.Redirect(http.StatusFound, "/")
}

// Login handles POST /login
// @Summary Log in
// @Description Verifies credentials, starts a session and redirects home
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body Credentials true "Username and password"
// @Success 302
// @Failure 400 {object} MessageResponse
// @Failure 500 {object} MessageResponse
// @Router /login [post]
func (h *Handler) Login(c *gin.Context) {
	var req Credentials
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: msgInvalidRequest})
		return
	}

	sess, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, "login", err)
		return
	}

	http.SetCookie(c.Writer, h.cookies.SessionCookie(sess).HTTP())
	c.Redirect(http.StatusFound, "/")
}

// Logout handles GET and POST /logout
// @Summary Log out
// @Description Invalidates the current session and redirects to /login
// @Produce json
// @Success 302
// @Failure 401 {object} MessageResponse
// @Router /logout [post]
func (h *Handler) Logout(c *gin.Context) {
	id := session.IdentityFrom(c.Request.Context())
	if id.Session == nil {
		c.JSON(http.StatusUnauthorized, MessageResponse{Message: msgUnauthorized})
		return
	}

	if err := h.service.Logout(c.Request.Context(), id.Session.ID); err != nil {
		h.logger.Error("Failed to invalidate session", "user_id", id.Session.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: msgInternalServerError})
		return
	}

	http.SetCookie(c.Writer, h.cookies.BlankSessionCookie().HTTP())
	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) writeError(c *gin.Context, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, MessageResponse{Message: verr.Message})
	case errors.Is(err, ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, MessageResponse{Message: msgInvalidCredentials})
	default:
		h.logger.Error("Auth request failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: msgInternalServerError})
	}
}
