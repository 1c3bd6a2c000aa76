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

	inventoryapp "github.com/commerce/backoffice/internal/application/inventory"
	salesapp "github.com/commerce/backoffice/internal/application/sales"
	"github.com/commerce/backoffice/internal/domain/inventory"
	"github.com/commerce/backoffice/internal/infrastructure/auth"
	"github.com/commerce/backoffice/internal/infrastructure/cache"
	"github.com/commerce/backoffice/internal/infrastructure/config"
	"github.com/commerce/backoffice/internal/infrastructure/event"
	"github.com/commerce/backoffice/internal/infrastructure/logger"
	"github.com/commerce/backoffice/internal/infrastructure/persistence"
	"github.com/commerce/backoffice/internal/interfaces/http/handler"
	"github.com/commerce/backoffice/internal/interfaces/http/middleware"
	"github.com/commerce/backoffice/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting back-office server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection with zap-backed GORM logging
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	stockRepo := persistence.NewGormStockRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	refundRepo := persistence.NewGormRefundRepository(db.DB)

	// Transaction scopes bind the unit-of-work boundary for multi-step writes
	inventoryScope := persistence.NewGormInventoryTransactionScope(db.DB)
	salesScope := persistence.NewGormSalesTransactionScope(db.DB)

	// Initialize event bus and subscribers
	eventBus := event.NewInMemoryEventBus(log)
	lowStockHandler := inventoryapp.NewLowStockHandler(log)
	eventBus.Subscribe(lowStockHandler, lowStockHandler.EventTypes()...)

	// Reporting cache: Redis-backed when enabled, with in-memory fallback
	var reportCache inventoryapp.ReportCache
	if cfg.Report.CacheEnabled {
		factory := cache.NewReportCacheFactory(cfg.Redis, cfg.Report.CacheTTL,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(true),
		)
		reportCache, err = factory.CreateCache()
		if err != nil {
			log.Warn("Report cache unavailable, reports will read directly", zap.Error(err))
		}
	}

	// Initialize application services
	stockService := inventoryapp.NewStockService(inventoryScope, stockRepo, movementRepo)
	stockService.SetEventPublisher(eventBus)
	stockService.SetMaxRetries(cfg.Stock.RetryAttempts)
	switch cfg.Stock.ReleasePolicy {
	case "strict":
		stockService.SetReleasePolicy(inventory.ReleaseStrict)
	default:
		stockService.SetReleasePolicy(inventory.ReleaseClamp)
	}

	reportingService := inventoryapp.NewReportingService(stockRepo, reportCache, log)

	saleService := salesapp.NewSaleService(salesScope, saleRepo)
	saleService.SetEventPublisher(eventBus)
	saleService.SetMaxRetries(cfg.Stock.RetryAttempts)

	refundService := salesapp.NewRefundService(salesScope, refundRepo)
	refundService.SetEventPublisher(eventBus)
	refundService.SetMaxRetries(cfg.Stock.RetryAttempts)

	// Initialize JWT service
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	stockHandler := handler.NewStockHandler(stockService)
	saleHandler := handler.NewSaleHandler(saleService)
	refundHandler := handler.NewRefundHandler(refundService)
	reportHandler := handler.NewReportHandler(reportingService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	r.Register(stockHandler).
		Register(saleHandler).
		Register(refundHandler).
		Register(reportHandler)

	r.Setup()

	// Simple ping at root API level for basic liveness checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
