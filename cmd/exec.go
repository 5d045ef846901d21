package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"ticket-resale/config"
	"ticket-resale/internal/handlers"
	"ticket-resale/internal/services"
	"ticket-resale/internal/store"
	_ "ticket-resale/migrations"
	"ticket-resale/monitoring"
	"ticket-resale/security"
	"ticket-resale/utils"
)

func Start() error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Prices go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: cfg.DataDir,
		DefaultDev:     cfg.IsDevelopment(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is optional. Without it the auth rate limiter is disabled.
	var rdb redis.Cmdable
	if cfg.RedisURL != "" {
		client, err := utils.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("Redis unavailable, rate limiting disabled", "error", err)
		} else {
			defer client.Close()
			rdb = client
		}
	}

	// Initialize stores
	accounts := store.NewAccounts(app)
	tickets := store.NewTickets(app)
	images := store.NewDiskImages(cfg.UploadDir)

	// Initialize services
	tokenService, err := services.NewTokenService(cfg)
	if err != nil {
		return err
	}
	authService, err := services.NewAuthService(accounts, tokenService, cfg)
	if err != nil {
		return err
	}
	ticketService := services.NewTicketService(tickets, accounts, images, cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(authService, ticketService)
	ticketHandler := handlers.NewTicketHandler(ticketService, tokenService)

	limiter := security.NewRateLimiter(rdb, cfg.AuthRateLimit, cfg.AuthRateWindow)
	monitor := monitoring.NewMonitor(tickets, rdb)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.IsDevelopment(),
	})

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.BindFunc(handlers.RequestID)

		if cfg.EnableMetrics {
			se.Router.BindFunc(monitoring.HTTPMetrics)
			se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
			monitor.Start(ctx)
		}

		requireAuth := handlers.RequireAuth(tokenService)

		api := se.Router.Group("/api/v1")

		// Auth endpoints
		auth := api.Group("/auth")
		auth.BindFunc(limiter.Limit("auth"))
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		// User endpoints
		users := api.Group("/users/me")
		users.BindFunc(requireAuth)
		users.GET("", userHandler.Me)
		users.GET("/listed-tickets", userHandler.ListedTickets)
		users.GET("/enquired-tickets", userHandler.EnquiredTickets)

		api.GET("/cities", ticketHandler.Cities)

		// Ticket endpoints
		api.GET("/tickets", ticketHandler.Search)
		api.GET("/tickets/{id}", ticketHandler.Get)
		api.GET("/tickets/{id}/{part}", ticketHandler.Subresource)
		api.POST("/tickets", ticketHandler.Create).
			BindFunc(requireAuth, security.BlockSuspiciousAgents)
		api.POST("/tickets/{id}/enquire", ticketHandler.Enquire).
			BindFunc(requireAuth, security.BlockSuspiciousAgents)
		api.PATCH("/tickets/{id}/sold", ticketHandler.MarkSold).
			BindFunc(requireAuth, security.BlockSuspiciousAgents)
		api.POST("/tickets/{id}/image", ticketHandler.UploadImage).
			Bind(apis.BodyLimit(cfg.MaxImageBytes + 1<<20)).
			BindFunc(requireAuth, security.BlockSuspiciousAgents)

		// Uploaded images
		se.Router.GET("/uploads/{path...}", apis.Static(os.DirFS(cfg.UploadDir), false))

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			if rdb != nil {
				if err := utils.RedisHealthCheck(e.Request.Context(), rdb); err != nil {
					return e.JSON(http.StatusServiceUnavailable, map[string]string{
						"status": "unhealthy",
						"error":  err.Error(),
					})
				}
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		slog.Info("Server routes registered", "environment", cfg.Environment, "metrics", cfg.EnableMetrics)

		return se.Next()
	})

	return app.Start()
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Shutdown signal received, cleaning up...")
	cancel()
}
