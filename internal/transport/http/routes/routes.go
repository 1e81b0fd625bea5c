package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/port"
	"github.com/ryanle444/HealthCoach/internal/infra/config"
	"github.com/ryanle444/HealthCoach/internal/transport/http/handlers"
	"github.com/ryanle444/HealthCoach/internal/transport/http/middleware"
	"github.com/ryanle444/HealthCoach/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Login        *usecase.LoginService
	Registration *usecase.RegistrationService
	Users        port.CredentialStore
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Sessions    *middleware.SessionManager
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	checks := map[string]handlers.ReadinessCheck{}
	if deps.Database != nil {
		checks["database"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}

	healthHandler := handlers.NewHealthHandler(checks)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(deps.Sessions.Attach())
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Login, deps.Services.Registration, deps.Sessions, deps.Logger)

		authGroup := api.Group("/auth")
		authGroup.POST("/login", withRule(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts, authHandler.Login)...)
		authGroup.POST("/confirm", withRule(deps, "auth_confirm_ip", deps.Config.RateLimit.ConfirmMaxAttempts, authHandler.Confirm)...)
		authGroup.POST("/signup", withRule(deps, "auth_signup_ip", deps.Config.RateLimit.SignupMaxAttempts, authHandler.Signup)...)
		authGroup.POST("/logout", authHandler.Logout)

		profileHandler := handlers.NewProfileHandler(deps.Services.Users, deps.Logger)
		api.GET("/profile", deps.Sessions.RequireAuth(), profileHandler.Get)
	}

	return r
}

// withRule prepends a sliding-window rate limit to the handler when both a
// limiter and a positive limit are configured.
func withRule(deps Dependencies, name string, limit int, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return []gin.HandlerFunc{handler}
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule), handler}
}
