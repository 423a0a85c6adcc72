package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/auth"
	"github.com/mamadbah2/fleetstock/internal/domain/models"
)

// userKey is the gin context key RequireUser stores the caller under.
const userKey = "user"

// SessionGate is the part of the session gate the HTTP layer uses.
type SessionGate interface {
	SignIn(ctx context.Context, creds models.Credentials) (models.Session, error)
	SignUp(ctx context.Context, creds models.Credentials) (models.Session, error)
	SignOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// AuthHandler exposes sign-in, sign-up and sign-out.
type AuthHandler struct {
	gate   SessionGate
	logger *zap.Logger
}

// NewAuthHandler constructs the auth endpoints.
func NewAuthHandler(gate SessionGate, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{gate: gate, logger: logger}
}

// SignIn exchanges credentials for a session token.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	session, err := h.gate.SignIn(c.Request.Context(), creds)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SignUp creates an account and returns its session.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	session, err := h.gate.SignUp(c.Request.Context(), creds)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// SignOut drops the caller's session.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.gate.SignOut(c.Request.Context(), bearerToken(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c *gin.Context) {
	user, _ := auth.UserFrom(c.Request.Context())
	c.JSON(http.StatusOK, user)
}

// RequireUser rejects requests without a valid bearer token and attaches the
// caller to the request context.
func (h *AuthHandler) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.gate.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			writeError(c, h.logger, err)
			return
		}

		c.Set(userKey, user)
		c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	// EventSource cannot set headers.
	return c.Query("access_token")
}
