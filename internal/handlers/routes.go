package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/middleware"
)

// Handlers bundles every handler the API serves.
type Handlers struct {
	Auth        *AuthHandler
	Portfolio   *PortfolioHandler
	Asset       *AssetHandler
	Transaction *TransactionHandler
	Analytics   *AnalyticsHandler
	Report      *ReportHandler
	Insight     *InsightHandler
	Alert       *AlertHandler
	Pipeline    *PipelineHandler
}

// RegisterRoutes mounts the v1 API under /api/v1 and the batch jobs under
// /pipeline.
func (h *Handlers) RegisterRoutes(router *gin.Engine, pipelineAPIKey string) {
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", h.Auth.GetProfile)
	protected.GET("/dashboard", h.Analytics.GetDashboard)

	portfolios := protected.Group("/portfolios")
	portfolios.POST("", h.Portfolio.CreatePortfolio)
	portfolios.GET("", h.Portfolio.GetUserPortfolios)
	portfolios.GET("/:id", h.Portfolio.GetPortfolioByID)
	portfolios.PUT("/:id", h.Portfolio.UpdatePortfolio)
	portfolios.DELETE("/:id", h.Portfolio.DeletePortfolio)
	portfolios.POST("/:id/duplicate", h.Portfolio.DuplicatePortfolio)
	portfolios.GET("/:id/summary", h.Analytics.GetSummary)
	portfolios.GET("/:id/holdings", h.Analytics.GetHoldings)
	portfolios.POST("/:id/snapshots", h.Analytics.CreateSnapshot)
	portfolios.GET("/:id/snapshots", h.Analytics.GetSnapshotHistory)
	portfolios.GET("/:id/performance", h.Analytics.GetPerformance)
	portfolios.GET("/:id/returns", h.Analytics.GetReturns)
	portfolios.GET("/:id/risk", h.Analytics.GetRiskMetrics)
	portfolios.GET("/:id/reports/performance", h.Report.GetPerformanceReport)
	portfolios.GET("/:id/reports/tax", h.Report.GetTaxReport)
	portfolios.POST("/:id/rebalance", h.Insight.SuggestRebalance)
	portfolios.GET("/:id/correlation", h.Insight.GetCorrelation)

	assets := protected.Group("/assets")
	assets.POST("", h.Asset.CreateAsset)
	assets.GET("", h.Asset.ListAssets)
	assets.GET("/:id", h.Asset.GetAssetByID)
	assets.GET("/:id/price", h.Asset.GetCurrentPrice)
	assets.GET("/:id/history", h.Asset.GetPriceHistory)

	transactions := protected.Group("/transactions")
	transactions.POST("", h.Transaction.CreateTransaction)
	transactions.GET("", h.Transaction.GetUserTransactions)
	transactions.GET("/:id", h.Transaction.GetTransactionByID)
	transactions.PUT("/:id", h.Transaction.UpdateTransaction)
	transactions.DELETE("/:id", h.Transaction.DeleteTransaction)

	alerts := protected.Group("/alerts")
	alerts.POST("", h.Alert.CreateAlert)
	alerts.POST("/bulk", h.Alert.CreateAlerts)
	alerts.GET("", h.Alert.GetUserAlerts)
	alerts.GET("/:id", h.Alert.GetAlertByID)
	alerts.PUT("/:id", h.Alert.UpdateAlert)
	alerts.PATCH("/:id/toggle", h.Alert.ToggleAlert)
	alerts.POST("/:id/reset", h.Alert.ResetAlert)
	alerts.DELETE("/:id", h.Alert.DeleteAlert)

	pipeline := router.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(pipelineAPIKey))
	pipeline.POST("/snapshots", h.Pipeline.RecordSnapshots)
	pipeline.POST("/alerts/check", h.Pipeline.CheckAlerts)
	pipeline.POST("/prices/refresh", h.Pipeline.RefreshPrices)
	pipeline.DELETE("/prices/cache", h.Pipeline.ClearPriceCache)
	pipeline.GET("/prices/providers", h.Pipeline.GetProviders)

	router.NoRoute(func(c *gin.Context) {
		respondWithError(c, apperrors.ErrNotFound)
	})
}
