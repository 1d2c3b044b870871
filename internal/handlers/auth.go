package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/relaydesk/accessd/internal/auth"
	"github.com/relaydesk/accessd/internal/middleware"
	"github.com/relaydesk/accessd/internal/services"
	"github.com/relaydesk/accessd/pkg/errors"
	"github.com/relaydesk/accessd/pkg/metrics"
	"github.com/relaydesk/accessd/pkg/response"
)

// AuthHandler manages authentication flows (login/me).
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

func NewAuthHandler(users *services.UserService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type loginRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	user, err := h.users.Authenticate(requestContext(c), req.TenantID, req.Username, req.Password)
	if err != nil {
		// Normalise auth errors to 401
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:   user.ID,
		TenantID: user.TenantID,
		IsRoot:   user.IsRoot,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	response.Success(c, http.StatusOK, gin.H{
		"access_token": token,
		"user": gin.H{
			"id":           user.ID,
			"username":     user.Username,
			"email":        user.Email,
			"display_name": user.DisplayName,
			"tenant_id":    user.TenantID,
			"is_root":      user.IsRoot,
		},
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	tenantID := c.GetString(middleware.CtxTenantIDKey)
	if userID == "" || tenantID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.Get(requestContext(c), tenantID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
