// Package main runs the SaaS backend HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nimbus-saas/backend/config"
	"github.com/nimbus-saas/backend/internal/admin"
	"github.com/nimbus-saas/backend/internal/auth"
	"github.com/nimbus-saas/backend/internal/billing"
	"github.com/nimbus-saas/backend/internal/email"
	"github.com/nimbus-saas/backend/internal/emaillogs"
	"github.com/nimbus-saas/backend/internal/middleware"
	"github.com/nimbus-saas/backend/internal/organizations"
	"github.com/nimbus-saas/backend/internal/projects"
	"github.com/nimbus-saas/backend/pkg/database"
	"github.com/nimbus-saas/backend/pkg/queue"
	"github.com/nimbus-saas/backend/pkg/redis"
	"github.com/nimbus-saas/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Server.Debug {
		middleware.EnableDebugLogging(logger)
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Billing
	billingRepo := billing.NewRepository(pool)
	stripeProvider := billing.NewStripeProvider(cfg.Stripe)
	billingSvc := billing.NewService(billingRepo, stripeProvider, cfg.Limits, logger)
	billingHandler := billing.NewHandler(billingSvc)

	// Outbound mail rides the redis queue; the worker process drains it.
	jobQueue := queue.NewQueue(rdb.Client, logger)
	mailer := email.NewQueueMailer(jobQueue, cfg.Limits.InviteExpiry)

	// Organizations
	orgRepo := organizations.NewRepository(pool)
	inviteLimiter := organizations.NewRedisRateLimiter(rdb.Client, cfg.Limits.InviteCooldown)
	orgSvc := organizations.NewService(orgRepo, inviteLimiter, cfg.Limits, billingSvc, mailer, logger)
	orgHandler := organizations.NewHandler(orgSvc)

	// Projects
	projectRepo := projects.NewRepository(pool)
	projectSvc := projects.NewService(projectRepo, cfg.Limits)
	projectHandler := projects.NewHandler(projectSvc)

	// Platform admin
	adminRepo := admin.NewRepository(pool)
	adminHandler := admin.NewHandler(adminRepo)
	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Identity(jwtService))
	router.Use(middleware.TenantContext(orgRepo))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", middleware.RequireAuth(), authHandler.Me)
	}

	// Authenticated: organization membership is checked per-entity, not via
	// the tenant context.
	authed := router.Group("")
	authed.Use(middleware.RequireAuth())
	{
		authed.POST("/organizations", orgHandler.Create)
		authed.GET("/organizations", orgHandler.List)
		authed.GET("/organizations/:id", orgHandler.GetByID)
		authed.POST("/invites/accept", orgHandler.AcceptInvite)
		authed.POST("/invites/decline", orgHandler.DeclineInvite)
	}

	// Tenant-scoped: any member of the active organization.
	tenant := router.Group("/org")
	tenant.Use(middleware.RequireTenant())
	{
		tenant.GET("/members", orgHandler.ListMembers)
		tenant.GET("/projects", projectHandler.List)
		tenant.GET("/projects/:slug", projectHandler.GetBySlug)
		// Any member may create projects; rename and delete stay elevated.
		tenant.POST("/projects", projectHandler.Create)
		tenant.GET("/billing/subscription", billingHandler.GetSubscription)
	}

	// Elevated: owner or admin of the active organization.
	elevated := router.Group("/org")
	elevated.Use(middleware.RequireElevated())
	{
		elevated.PATCH("/name", orgHandler.UpdateName)
		elevated.PATCH("/members/:userId/role", orgHandler.UpdateMemberRole)
		elevated.DELETE("/members/:userId", orgHandler.RemoveMember)

		elevated.POST("/invites", orgHandler.InviteMember)
		elevated.GET("/invites", orgHandler.ListInvites)
		elevated.POST("/invites/:id/revoke", orgHandler.RevokeInvite)
		elevated.POST("/invites/:id/resend", orgHandler.ResendInvite)
		elevated.DELETE("/invites/:id", orgHandler.DeleteInvite)

		elevated.PATCH("/projects/:slug", projectHandler.UpdateName)
		elevated.DELETE("/projects/:slug", projectHandler.Delete)

		elevated.POST("/billing/subscribe", billingHandler.CreateSubscription)
		elevated.POST("/billing/confirm", billingHandler.ConfirmSubscription)
		elevated.POST("/billing/renew", billingHandler.RenewSubscription)
		elevated.POST("/billing/portal", billingHandler.CreateCustomerPortal)
	}

	// Owner-only.
	owner := router.Group("/org")
	owner.Use(middleware.RequireOwner())
	{
		owner.DELETE("", orgHandler.Delete)
	}

	// Platform admin (email allow-list).
	adminGroup := router.Group("/admin")
	adminGroup.Use(middleware.RequirePlatformAdmin(cfg.Admin.Emails))
	{
		adminGroup.GET("/dashboard", adminHandler.Dashboard)
		adminGroup.GET("/users", adminHandler.ListUsers)
		adminGroup.GET("/organizations", adminHandler.ListOrganizations)
		adminGroup.GET("/organizations/:id", adminHandler.GetOrganization)
		adminGroup.GET("/subscriptions", adminHandler.ListSubscriptions)
		adminGroup.GET("/emails", emailLogsHandler.List)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
