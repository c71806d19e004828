package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/config"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/database"
	_ "github.com/mdung/multi-portfolio-investment-tracker/internal/docs" // Import swagger docs
	"github.com/mdung/multi-portfolio-investment-tracker/internal/handlers"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/marketdata"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/metrics"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/middleware"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/scheduler"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/validator"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

// @title           Investment Tracker API
// @version         1.0
// @description     Multi-portfolio investment tracker: position ledger, valuation, snapshots, statistics, rebalancing and correlation.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	policy, err := valuation.ParsePolicy(appConfig.ValuationPolicy)
	if err != nil {
		return err
	}

	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()
	m := metrics.Default()
	db := dbManager.DB()

	// Market data
	cache, err := newPriceCache(appConfig)
	if err != nil {
		return err
	}
	providers, err := newProviders(appConfig)
	if err != nil {
		return err
	}
	prices := marketdata.NewService(db, cache, appConfig.PriceCacheTTL, providers, marketdata.WithMetrics(m))
	engine := valuation.NewEngine(prices, valuation.WithPolicy(policy))

	// Services
	opts := []services.Option{services.WithMetrics(m), services.WithConcurrency(appConfig.SweepConcurrency)}
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db)
	portfolioService := services.NewPortfolioService(db)
	assetService := services.NewAssetService(db)
	transactionService := services.NewTransactionService(db, opts...)
	marketDataService := services.NewMarketDataService(db, prices, opts...)
	analyticsService := services.NewAnalyticsService(db, engine, opts...)
	reportService := services.NewReportService(db, engine, opts...)
	rebalanceService := services.NewRebalanceService(db, engine, opts...)
	correlationService := services.NewCorrelationService(db, engine, prices, opts...)
	alertService := services.NewAlertService(db, prices, opts...)

	h := &handlers.Handlers{
		Auth:        handlers.NewAuthHandler(userService, auditService),
		Portfolio:   handlers.NewPortfolioHandler(portfolioService, auditService),
		Asset:       handlers.NewAssetHandler(assetService, marketDataService, auditService),
		Transaction: handlers.NewTransactionHandler(transactionService, auditService),
		Analytics:   handlers.NewAnalyticsHandler(analyticsService, auditService),
		Report:      handlers.NewReportHandler(reportService),
		Insight:     handlers.NewInsightHandler(rebalanceService, correlationService),
		Alert:       handlers.NewAlertHandler(alertService, auditService),
		Pipeline:    handlers.NewPipelineHandler(analyticsService, alertService, marketDataService),
	}

	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.RequestMetrics(m))
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/api/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := dbManager.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "providers": prices.ProviderNames()})
	})

	h.RegisterRoutes(router, appConfig.PipelineAPIKey)

	if appConfig.SchedulerEnabled {
		sched := scheduler.New(appConfig.JobTimeout)
		jobs := []struct {
			schedule string
			job      scheduler.Job
		}{
			{appConfig.SnapshotSchedule, scheduler.NewSnapshotSweepJob(analyticsService)},
			{appConfig.AlertSchedule, scheduler.NewAlertCheckJob(alertService)},
			{appConfig.PriceSchedule, scheduler.NewPriceRefreshJob(marketDataService)},
		}
		for _, j := range jobs {
			if err := sched.AddJob(j.schedule, j.job); err != nil {
				return fmt.Errorf("invalid schedule %q for %s: %w", j.schedule, j.job.Name(), err)
			}
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting investment tracker API on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPriceCache uses Redis when REDIS_ADDR is set and an in-process cache
// otherwise.
func newPriceCache(cfg *config.Config) (marketdata.Cache, error) {
	if cfg.RedisAddr == "" {
		return marketdata.NewMemoryCache(), nil
	}
	cache, err := marketdata.NewRedisCache(marketdata.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Get().Infow("Using redis price cache", "addr", cfg.RedisAddr)
	return cache, nil
}

// newProviders returns a fixed price table when STATIC_PRICES is set and the
// live Yahoo Finance and CoinGecko providers otherwise.
func newProviders(cfg *config.Config) ([]marketdata.Provider, error) {
	if cfg.StaticPrices != "" {
		table, err := marketdata.ParseStaticPrices(cfg.StaticPrices)
		if err != nil {
			return nil, fmt.Errorf("invalid STATIC_PRICES: %w", err)
		}
		return []marketdata.Provider{marketdata.NewStaticProvider("static", table)}, nil
	}
	client := &http.Client{Timeout: cfg.ProviderTimeout}
	return []marketdata.Provider{
		marketdata.NewYahooProvider(client, cfg.YahooBaseURL),
		marketdata.NewCoinGeckoProvider(client, cfg.CoinGeckoBaseURL),
	}, nil
}
