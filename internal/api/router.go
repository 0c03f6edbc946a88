package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/app"
	iauth "github.com/aidalert/aidalert/internal/auth"
	"github.com/aidalert/aidalert/internal/handlers"
	"github.com/aidalert/aidalert/internal/middleware"
)

// NewRouter builds the Gin engine, wires middleware and registers the API routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	// Basic rate limiting: 100 requests/minute per IP+path
	rateLimit := cfg.Alerts.RateLimit
	if rateLimit <= 0 {
		rateLimit = 100
	}
	r.Use(middleware.RateLimit(rateLimit, time.Minute))

	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler, err := handlers.NewAuthHandler(db, jwt)
	if err != nil {
		return nil, err
	}

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/verify-reset-code", authHandler.VerifyResetCode)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	// Protected routes
	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	api.Use(requireAuth)

	// Authenticated auth routes
	api.GET("/auth/me", authHandler.Me)
	api.PATCH("/auth/profile", authHandler.UpdateProfile)
	api.POST("/auth/change-password", authHandler.ChangePassword)

	incidentHandler, err := handlers.NewIncidentHandler(db)
	if err != nil {
		return nil, err
	}
	registerIncidentRoutes(api, incidentHandler)

	responderHandler, err := handlers.NewResponderHandler(db)
	if err != nil {
		return nil, err
	}
	registerResponderRoutes(api, responderHandler)

	notificationHandler, err := handlers.NewNotificationHandler(db)
	if err != nil {
		return nil, err
	}
	registerNotificationRoutes(api, notificationHandler)

	feedbackHandler, err := handlers.NewFeedbackHandler(db)
	if err != nil {
		return nil, err
	}
	registerFeedbackRoutes(api, feedbackHandler)

	kitHandler, err := handlers.NewKitHandler(db)
	if err != nil {
		return nil, err
	}
	registerKitRoutes(api, kitHandler)

	userHandler, err := handlers.NewUserHandler(db)
	if err != nil {
		return nil, err
	}
	registerUserRoutes(api, userHandler)

	return r, nil
}
