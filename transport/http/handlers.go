package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/orbisauth/core"
	"github.com/layer-3/orbisauth/service"
)

// ConnectRequest carries an encoded session
type ConnectRequest struct {
	Session string `json:"session" binding:"required"`
}

// ConnectResponse is returned after a session was accepted
type ConnectResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in"`
	User        *core.User `json:"user"`
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// Connect exchanges a signed session for an access token
func (h *AuthHandlers) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, grant, err := h.authService.Connect(c.Request.Context(), req.Session)
	if err != nil {
		status, msg := connectError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("connect failed", "err", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, ConnectResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(grant.ExpiresAt).Seconds()),
		User:        core.UserFromGrant(grant),
	})
}

// Logout revokes the grant of the bearer token
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
		return
	}

	err := h.authService.Logout(c.Request.Context(), token)
	switch {
	case err == nil, errors.Is(err, core.ErrTokenExpired):
		// an expired grant is as good as logged out
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	case errors.Is(err, core.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid access token"})
	default:
		h.logger.Error("logout failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
	}
}

// Me returns the connected user
func (h *AuthHandlers) Me(c *gin.Context) {
	grant, ok := grantFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, core.UserFromGrant(grant))
}

// Authorize checks if a user is authorized
func (h *AuthHandlers) Authorize(c *gin.Context) {
	grant, ok := grantFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"address":    grant.Address,
	})
}

func connectError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidSignature):
		return http.StatusUnauthorized, "Invalid signature"
	case errors.Is(err, core.ErrSessionExpired):
		return http.StatusUnauthorized, "Session expired"
	case errors.Is(err, core.ErrTokenInvalidated):
		return http.StatusUnauthorized, "Session has been invalidated"
	case errors.Is(err, core.ErrDomainNotAllowed):
		return http.StatusForbidden, "Domain not allowed"
	case service.IsClientError(err):
		return http.StatusBadRequest, "Invalid session"
	default:
		return http.StatusInternalServerError, "Failed to connect"
	}
}
