package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/nafs-essence-api/appstate"
	"github.com/kendall-kelly/nafs-essence-api/config"
	"github.com/kendall-kelly/nafs-essence-api/controllers"
	"github.com/kendall-kelly/nafs-essence-api/feeds"
	"github.com/kendall-kelly/nafs-essence-api/middleware"
	"github.com/kendall-kelly/nafs-essence-api/models"
	"github.com/kendall-kelly/nafs-essence-api/remotestore"
	"github.com/kendall-kelly/nafs-essence-api/services"
	"gorm.io/gorm"
)

// systemPrincipal performs the startup writes
var systemPrincipal = remotestore.Principal{Subject: "system"}

// application is the wired server: remote store, feeds, identity provider,
// application state and router
type application struct {
	cfg         *config.Config
	logger      *slog.Logger
	client      *remotestore.Client
	hub         *feeds.Hub
	collections *feeds.Collections
	auth        *services.AuthService
	state       *appstate.Store
	router      *gin.Engine
}

func newApplication(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *slog.Logger) (*application, error) {
	// Remote store and the feeds reading it
	storeOpts := []remotestore.Option{remotestore.WithLogger(logger)}
	if cfg.FeedMode == config.FeedModePush {
		storeOpts = append(storeOpts, remotestore.WithNotifyChannel(feeds.DefaultNotifyChannel))
	}
	store := remotestore.New(db, storeOpts...)
	client := remotestore.NewClient(store)

	hub := feeds.NewHub()
	store.OnChange(hub.Notify)

	var pollInterval time.Duration
	if cfg.FeedMode == config.FeedModePoll {
		pollInterval = cfg.PollInterval
	}
	collections := feeds.NewCollections(client, hub, pollInterval, feeds.WithLogger(logger))

	// Identity provider
	auth := services.NewAuthService(db, services.AuthSettings{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		SessionTTL: cfg.SessionTTL,
	}, logger)
	if _, err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		collections.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	systemCtx := remotestore.WithPrincipal(ctx, systemPrincipal)
	if created, err := client.SeedSettings(systemCtx, models.DefaultSiteSettings()); err != nil {
		logger.Warn("failed to seed site settings", "error", err)
	} else if created {
		logger.Info("seeded default site settings")
	}

	// Product images
	if cfg.HasImageStorage() {
		s3Service, err := services.InitS3Service(ctx, cfg)
		if err != nil {
			collections.Close()
			auth.Close()
			return nil, fmt.Errorf("init image storage: %w", err)
		}
		services.InitImageService(s3Service)
	} else {
		logger.Warn("AWS_S3_BUCKET not set, product image uploads are disabled")
	}

	// Assistant
	var completer services.Completer
	if cfg.HasAssistant() {
		completer = services.NewOpenAICompleter(cfg.AssistantAPIKey, cfg.AssistantBaseURL)
	} else {
		logger.Warn("ASSISTANT_API_KEY not set, the assistant answers with fixed replies")
	}
	assistant := services.NewAssistantService(completer, services.AssistantModels{
		Describe:  cfg.AssistantDescribeModel,
		Recommend: cfg.AssistantRecommendModel,
	}, logger)

	// Application state
	state := appstate.New(feeds.NewManager(collections.Set(auth)), client, appstate.WithLogger(logger))
	state.Start()

	// No session survives a restart
	auth.Resolve()

	handlers := controllers.NewHandlers(state, client, auth, assistant, logger)

	return &application{
		cfg:         cfg,
		logger:      logger,
		client:      client,
		hub:         hub,
		collections: collections,
		auth:        auth,
		state:       state,
		router:      setupRouter(cfg, handlers, state),
	}, nil
}

// Close stops the application state and every feed
func (a *application) Close() {
	a.state.Close()
	a.collections.Close()
	a.auth.Close()
}

// setupRouter creates the router with every route of the storefront and the back office
func setupRouter(cfg *config.Config, h *controllers.Handlers, state middleware.StateReader) *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Storefront part of the composite view as server-sent events
		v1.GET("/stream", h.Stream)

		// Storefront (public)
		store := v1.Group("/store")
		{
			store.GET("/home", h.Home)
			store.GET("/catalog", h.Catalog)
			store.POST("/checkout", h.Checkout)
			store.GET("/assistant", h.AssistantGreetingView)
			store.POST("/assistant", h.Assistant)
		}

		// Back office
		admin := v1.Group("/admin")
		{
			admin.GET("/login", h.LoginView)
			admin.POST("/login", h.Login)
			admin.POST("/logout", h.Logout)

			// Every back office route needs the signed-in state and a session token
			guarded := admin.Group("", middleware.AccessGuard(state), middleware.EnsureValidToken(cfg))
			{
				guarded.GET("/dashboard", h.Dashboard)
				guarded.GET("/orders", h.Orders)
				guarded.GET("/inventory", h.Inventory)
				guarded.GET("/customizer", h.Customizer)
				guarded.GET("/stream", h.AdminStream)

				guarded.PUT("/orders/:id/status", h.UpdateOrderStatus)
				guarded.DELETE("/orders/:id", h.DeleteOrder)
				guarded.POST("/products", h.CreateProduct)
				guarded.POST("/products/describe", h.DescribeProduct)
				guarded.PUT("/products/:id", h.UpdateProduct)
				guarded.DELETE("/products/:id", h.DeleteProduct)
				guarded.POST("/uploads", controllers.UploadProductImage)
				guarded.PATCH("/customizer", h.PreviewCustomizer)
				guarded.POST("/customizer/publish", h.PublishCustomizer)
			}
		}
	}

	return router
}
