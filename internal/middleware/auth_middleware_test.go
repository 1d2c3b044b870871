package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/relaydesk/accessd/internal/auth"
)

func newTestJWTService(t *testing.T) *iauth.JWTService {
	t.Helper()
	svc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-secret",
		Issuer:         "accessd",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Auth(newTestJWTService(t)))
	r.GET("/resource", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsMalformedToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Auth(newTestJWTService(t)))
	r.GET("/resource", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestAuthPropagatesIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := newTestJWTService(t)
	token, err := svc.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:   "user-1",
		TenantID: "tenant-1",
		IsRoot:   true,
	})
	require.NoError(t, err)

	r := gin.New()
	r.Use(Auth(svc))
	r.GET("/resource", func(c *gin.Context) {
		require.Equal(t, "user-1", c.GetString(CtxUserIDKey))
		require.Equal(t, "tenant-1", c.GetString(CtxTenantIDKey))
		require.True(t, c.GetBool(CtxIsRootKey))
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
