package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/accessd/internal/authz"
)

type staticLoader struct {
	snap *authz.Snapshot
	err  error
}

func (l staticLoader) LoadSnapshot(context.Context, string, string) (*authz.Snapshot, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.snap, nil
}

func authorizedRouter(t *testing.T, loader authz.Loader, extractors ...ContextExtractor) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, err := authz.NewEngine(loader)
	require.NoError(t, err)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(CtxUserIDKey, "user-1")
		c.Set(CtxTenantIDKey, "tenant-1")
	})
	r.GET("/tickets", Authorize(engine, "tickets", "read", extractors...), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestAuthorizeAllowsGrantedRequest(t *testing.T) {
	loader := staticLoader{snap: &authz.Snapshot{
		UserID:    "user-1",
		TenantID:  "tenant-1",
		UserFound: true,
		Roles:     []authz.RoleGrant{{ID: "role-1", Name: "Reader"}},
		Bindings:  []authz.BindingGrant{{ID: "b-1", RoleID: "role-1", Resource: "tickets", Action: "read"}},
	}}

	w := httptest.NewRecorder()
	authorizedRouter(t, loader).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tickets", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeDeniesWithGenericForbidden(t *testing.T) {
	loader := staticLoader{snap: &authz.Snapshot{
		UserID:    "user-1",
		TenantID:  "tenant-1",
		UserFound: true,
	}}

	w := httptest.NewRecorder()
	authorizedRouter(t, loader).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tickets", nil))
	require.Equal(t, http.StatusForbidden, w.Code)

	// the body carries no denial reason
	require.NotContains(t, w.Body.String(), "no_roles_assigned")
}

func TestAuthorizeFailsClosedOnEngineError(t *testing.T) {
	loader := staticLoader{err: errors.New("store unreachable")}

	w := httptest.NewRecorder()
	authorizedRouter(t, loader).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tickets", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizeRequiresAuthenticatedIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine, err := authz.NewEngine(staticLoader{snap: &authz.Snapshot{}})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/tickets", Authorize(engine, "tickets", "read"), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tickets", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizeUsesContextExtractor(t *testing.T) {
	loader := staticLoader{snap: &authz.Snapshot{
		UserID:    "user-1",
		TenantID:  "tenant-1",
		UserFound: true,
		Roles:     []authz.RoleGrant{{ID: "role-1", Name: "Agent"}},
		Bindings: []authz.BindingGrant{{
			ID:       "b-1",
			RoleID:   "role-1",
			Resource: "tickets",
			Action:   "read",
			Scope:    []byte(`{"onlyOwn":true}`),
		}},
	}}

	extractor := func(c *gin.Context) authz.RequestContext {
		return authz.RequestContext{IsOwnRecord: c.Query("own") == "true"}
	}

	r := authorizedRouter(t, loader, extractor)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tickets?own=true", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tickets?own=false", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
}
