package router

import (
	"github.com/bizcore/backend/internal/infrastructure/auth"
	"github.com/bizcore/backend/internal/infrastructure/logger"
	"github.com/bizcore/backend/internal/interfaces/http/handler"
	"github.com/bizcore/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Config controls the middleware stack
type Config struct {
	Logger      *zap.Logger
	JWT         *auth.JWTService
	Blacklist   auth.TokenBlacklist
	ServiceName string

	TracingEnabled   bool
	ProfilingEnabled bool
	HTTPMetrics      *middleware.HTTPMetrics

	// BodyLimitBytes caps request body size; zero disables the check
	BodyLimitBytes int64
	// RateLimiter is optional; nil disables rate limiting
	RateLimiter *middleware.RateLimiter

	CORS    middleware.CORSConfig
	Swagger middleware.SwaggerConfig
}

// Handlers bundles the endpoint handlers the router mounts
type Handlers struct {
	Auth    *handler.AuthHandler
	Audit   *handler.AuditHandler
	Limits  *handler.LimitsHandler
	Users   *handler.UserHandler
	Tenants *handler.TenantHandler
	Items   *handler.ItemHandler
	System  *handler.SystemHandler
}

// New builds the gin engine with the full middleware stack and all routes
func New(cfg Config, h Handlers) *gin.Engine {
	engine := gin.New()

	engine.Use(logger.Recovery(cfg.Logger))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(cfg.CORS))
	if cfg.BodyLimitBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.BodyLimitBytes))
	}
	if cfg.TracingEnabled {
		engine.Use(middleware.Tracing(cfg.ServiceName))
	}

	authCfg := middleware.DefaultAuthConfig(cfg.JWT)
	authCfg.Blacklist = cfg.Blacklist
	authCfg.Logger = cfg.Logger
	engine.Use(middleware.Authenticate(authCfg))

	// Tenant and actor are only known after authentication
	if cfg.TracingEnabled {
		engine.Use(middleware.TraceAttributes())
	}
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter))
	}
	if cfg.HTTPMetrics != nil {
		engine.Use(middleware.Metrics(cfg.HTTPMetrics))
	}
	if cfg.ProfilingEnabled {
		engine.Use(middleware.Profiling(true))
	}

	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)
	engine.GET("/swagger/*any",
		middleware.SwaggerGuard(cfg.Swagger),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := engine.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.DELETE("/impersonation", h.Users.EndImpersonation)
	}

	api.GET("/audit/events", h.Audit.List)
	api.GET("/limits", h.Limits.Current)

	users := api.Group("/users")
	{
		users.POST("", h.Users.Create)
		users.GET("", h.Users.List)
		users.GET("/:id", h.Users.Get)
		users.PUT("/:id/role", h.Users.ChangeRole)
		users.PUT("/:id/branch", h.Users.AssignBranch)
		users.PUT("/:id/group", h.Users.AssignGroup)
		users.POST("/:id/impersonate", h.Users.Impersonate)
		users.DELETE("/:id", h.Users.Deactivate)
	}

	items := api.Group("/items")
	{
		items.POST("", h.Items.Create)
		items.GET("", h.Items.List)
		items.GET("/:id", h.Items.Get)
		items.PUT("/:id", h.Items.Update)
		items.POST("/:id/adjust", h.Items.Adjust)
		items.DELETE("/:id", h.Items.Delete)
	}

	platform := api.Group("/platform", middleware.RequirePlatformAdmin())
	{
		platform.GET("/audit/events", h.Audit.PlatformList)

		tenants := platform.Group("/tenants")
		tenants.POST("", h.Tenants.Create)
		tenants.GET("", h.Tenants.List)
		tenants.GET("/:id", h.Tenants.Get)
		tenants.POST("/:id/suspend", h.Tenants.Suspend)
		tenants.POST("/:id/activate", h.Tenants.Activate)

		tenants.GET("/:id/limits", h.Limits.Effective)
		tenants.PUT("/:id/limits/:field", h.Limits.SetOverride)
		tenants.DELETE("/:id/limits/:field", h.Limits.ClearOverride)
		tenants.DELETE("/:id/limits", h.Limits.ClearAllOverrides)
		tenants.PUT("/:id/plan", h.Limits.ChangePlan)
	}

	return engine
}
