package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/relaydesk/accessd/internal/app"
	iauth "github.com/relaydesk/accessd/internal/auth"
	"github.com/relaydesk/accessd/internal/authz"
	"github.com/relaydesk/accessd/internal/cache"
	"github.com/relaydesk/accessd/internal/handlers"
	"github.com/relaydesk/accessd/internal/middleware"
	"github.com/relaydesk/accessd/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
// The cache store backs both the rate limiter and the authorization snapshot
// cache; passing nil falls back to process-local storage.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, store cache.Store) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	snapshotStore := store
	if snapshotStore == nil {
		snapshotStore = cache.NewDatabaseStore(db)
	}

	loader, err := authz.NewGormLoader(db)
	if err != nil {
		return nil, err
	}
	cachedLoader, err := authz.NewCachedLoader(loader, snapshotStore, cfg.Authz.SnapshotTTL)
	if err != nil {
		return nil, err
	}
	engine, err := authz.NewEngine(cachedLoader)
	if err != nil {
		return nil, err
	}

	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	tenants, err := services.NewTenantService(db, audit, cachedLoader)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db, audit)
	if err != nil {
		return nil, err
	}
	roles, err := services.NewRoleService(db, audit, cachedLoader)
	if err != nil {
		return nil, err
	}
	perms, err := services.NewPermissionService(db, audit, cachedLoader)
	if err != nil {
		return nil, err
	}
	bindings, err := services.NewBindingService(db, audit, cachedLoader)
	if err != nil {
		return nil, err
	}
	assignments, err := services.NewAssignmentService(db, audit, cachedLoader)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	// Basic rate limiting: 100 requests/minute per IP+path
	var rateStore middleware.RateStore
	if store != nil {
		rateStore = middleware.NewSharedRateStore(store)
	} else {
		rateStore = middleware.NewMemoryRateStore()
	}
	r.Use(middleware.RateLimit(rateStore, 100, time.Minute))

	// Health endpoint (public)
	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}

	authHandler := handlers.NewAuthHandler(users, jwt)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	// Authorization decisions
	authorizeHandler := handlers.NewAuthorizeHandler(engine, audit)
	api.POST("/authorize", authorizeHandler.Authorize)

	// Roles and their permission bindings
	roleHandler := handlers.NewRoleHandler(roles, bindings)
	roleGroup := api.Group("/roles")
	{
		roleGroup.GET("", middleware.Authorize(engine, "roles", "read"), roleHandler.List)
		roleGroup.GET("/:id", middleware.Authorize(engine, "roles", "read"), roleHandler.Get)
		roleGroup.POST("", middleware.Authorize(engine, "roles", "write"), roleHandler.Create)
		roleGroup.PATCH("/:id", middleware.Authorize(engine, "roles", "write"), roleHandler.Update)
		roleGroup.DELETE("/:id", middleware.Authorize(engine, "roles", "write"), roleHandler.Delete)

		roleGroup.GET("/:id/bindings", middleware.Authorize(engine, "roles", "read"), roleHandler.ListBindings)
		roleGroup.POST("/:id/bindings", middleware.Authorize(engine, "roles", "write"), roleHandler.Grant)
		roleGroup.PUT("/:id/bindings", middleware.Authorize(engine, "roles", "write"), roleHandler.ReplaceBindings)
		roleGroup.DELETE("/:id/bindings/:bindingId", middleware.Authorize(engine, "roles", "write"), roleHandler.Revoke)
	}

	// Users and their role assignments
	userHandler := handlers.NewUserHandler(users, assignments)
	userGroup := api.Group("/users")
	{
		userGroup.GET("", middleware.Authorize(engine, "users", "read"), userHandler.List)
		userGroup.GET("/:id", middleware.Authorize(engine, "users", "read"), userHandler.Get)
		userGroup.POST("", middleware.Authorize(engine, "users", "write"), userHandler.Create)
		userGroup.PATCH("/:id/active", middleware.Authorize(engine, "users", "write"), userHandler.SetActive)

		userGroup.GET("/:id/roles", middleware.Authorize(engine, "users", "read"), userHandler.ListRoles)
		userGroup.POST("/:id/roles", middleware.Authorize(engine, "users", "write"), userHandler.AssignRole)
		userGroup.DELETE("/:id/roles/:roleId", middleware.Authorize(engine, "users", "write"), userHandler.UnassignRole)
	}

	// Permission catalog (platform operators only)
	permHandler := handlers.NewPermissionHandler(perms)
	permGroup := api.Group("/permissions")
	{
		permGroup.GET("", middleware.Authorize(engine, "permissions", "read"), permHandler.List)
		permGroup.GET("/:id", middleware.Authorize(engine, "permissions", "read"), permHandler.Get)
		permGroup.POST("", handlers.RequireRoot(), permHandler.Create)
		permGroup.PATCH("/:id", handlers.RequireRoot(), permHandler.Update)
		permGroup.DELETE("/:id", handlers.RequireRoot(), permHandler.Delete)
	}

	// Tenants (platform operators only)
	tenantHandler := handlers.NewTenantHandler(tenants)
	tenantGroup := api.Group("/tenants")
	tenantGroup.Use(handlers.RequireRoot())
	{
		tenantGroup.GET("", tenantHandler.List)
		tenantGroup.GET("/:id", tenantHandler.Get)
		tenantGroup.POST("", tenantHandler.Create)
		tenantGroup.PATCH("/:id/active", tenantHandler.SetActive)
	}

	// Audit
	auditHandler := handlers.NewAuditHandler(audit)
	api.GET("/audit", middleware.Authorize(engine, "audit", "read"), auditHandler.List)
	api.GET("/audit/export", middleware.Authorize(engine, "audit", "read"), auditHandler.Export)

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
