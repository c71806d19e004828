package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/correlation"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/pagination"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/rebalance"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/stats"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/valuation"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// PortfolioInput holds the fields accepted when creating a portfolio.
type PortfolioInput struct {
	Name         string
	Description  string
	BaseCurrency string
	RiskProfile  models.RiskProfile
}

// PortfolioUpdate holds optional fields for updating a portfolio.
type PortfolioUpdate struct {
	Name        *string
	Description *string
	RiskProfile *models.RiskProfile
}

// PortfolioServicer defines the contract for portfolio-related business logic.
type PortfolioServicer interface {
	CreatePortfolio(userID string, input PortfolioInput) (*models.Portfolio, error)
	GetUserPortfolios(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error)
	GetPortfolioByID(userID, portfolioID string) (*models.Portfolio, error)
	UpdatePortfolio(userID, portfolioID string, update PortfolioUpdate) (*models.Portfolio, error)
	DeletePortfolio(userID, portfolioID string) error
	DuplicatePortfolio(userID, portfolioID, name string, copyTransactions bool) (*models.Portfolio, error)
}

// AssetInput holds the fields accepted when creating an asset.
type AssetInput struct {
	Symbol         string
	Name           string
	Type           models.AssetType
	Currency       string
	Exchange       string
	Network        string
	ProviderSymbol string
}

// AssetFilter holds optional filter parameters for listing assets.
type AssetFilter struct {
	Query string
	Type  *models.AssetType
}

// AssetServicer defines the contract for the shared asset catalogue.
type AssetServicer interface {
	CreateAsset(input AssetInput) (*models.Asset, error)
	GetAssetByID(id string) (*models.Asset, error)
	ListAssets(filter AssetFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error)
}

// TransactionInput holds the fields accepted when recording a transaction.
type TransactionInput struct {
	PortfolioID         string
	AssetID             string
	Type                models.TransactionType
	Quantity            decimal.Decimal
	Price               decimal.Decimal
	Fee                 decimal.Decimal
	Date                time.Time
	Notes               string
	TransferPortfolioID *string
}

// TransactionUpdate holds optional fields for editing a transaction. Changes
// to quantity, price and date are mirrored to the other leg of a transfer.
type TransactionUpdate struct {
	Quantity *decimal.Decimal
	Price    *decimal.Decimal
	Fee      *decimal.Decimal
	Date     *time.Time
	Notes    *string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	PortfolioID *string
	AssetID     *string
	Type        *models.TransactionType
	FromDate    *time.Time
	ToDate      *time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, input TransactionInput) (*models.Transaction, error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	ListForLedger(portfolioID string) ([]models.Transaction, error)
}

// PriceQuote is a current price answer.
type PriceQuote struct {
	AssetID   string          `json:"asset_id"`
	Symbol    string          `json:"symbol"`
	Currency  string          `json:"currency"`
	Price     decimal.Decimal `json:"price"`
	Display   string          `json:"display"`
	Timestamp time.Time       `json:"timestamp"`
}

// RefreshResult tallies a refresh of every held asset's price.
type RefreshResult struct {
	Assets   int `json:"assets"`
	Priced   int `json:"priced"`
	Unpriced int `json:"unpriced"`
}

// MarketDataServicer exposes the price source to the API.
type MarketDataServicer interface {
	GetCurrentPrice(ctx context.Context, assetID, currency string) (*PriceQuote, error)
	GetPriceHistory(ctx context.Context, assetID string, from, to time.Time) ([]models.PriceSnapshot, error)
	RefreshAll(ctx context.Context) (*RefreshResult, error)
	ClearCache(ctx context.Context) error
	Providers() []string
}

// Interval selects the look-back window of the performance series.
type Interval string

const (
	IntervalDaily   Interval = "DAILY"
	IntervalWeekly  Interval = "WEEKLY"
	IntervalMonthly Interval = "MONTHLY"
)

// ReturnsReport holds horizon returns plus the lifetime return on cost.
type ReturnsReport struct {
	stats.HorizonReturns
	TotalReturn decimal.Decimal `json:"total_return"`
}

// RiskMetrics summarizes concentration and snapshot-based risk.
type RiskMetrics struct {
	ConcentrationRisk decimal.Decimal        `json:"concentration_risk"`
	TopAssets         []valuation.TopHolding `json:"top_assets"`
	Volatility        decimal.Decimal        `json:"volatility"`
	SharpeRatio       decimal.Decimal        `json:"sharpe_ratio"`
	SnapshotCount     int                    `json:"snapshot_count"`
}

// AssetPerformance is one symbol's unrealized result across all portfolios.
type AssetPerformance struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	ReturnPercent decimal.Decimal `json:"return_percent"`
}

// Dashboard aggregates every portfolio of a user.
type Dashboard struct {
	TotalNetWorth       decimal.Decimal      `json:"total_net_worth"`
	TotalCost           decimal.Decimal      `json:"total_cost"`
	OverallPnL          decimal.Decimal      `json:"overall_pnl"`
	OverallPnLPercent   decimal.Decimal      `json:"overall_pnl_percent"`
	BaseCurrency        string               `json:"base_currency"`
	TotalPortfolios     int                  `json:"total_portfolios"`
	ValuedPortfolios    int                  `json:"valued_portfolios"`
	FailedPortfolios    int                  `json:"failed_portfolios"`
	TopPerformingAssets []AssetPerformance   `json:"top_performing_assets"`
	RecentTransactions  []models.Transaction `json:"recent_transactions"`
	PortfolioSummaries  []*valuation.Summary `json:"portfolio_summaries"`
	CalculatedAt        time.Time            `json:"calculated_at"`
}

// SweepResult tallies a snapshot sweep.
type SweepResult struct {
	Success int `json:"success"`
	Errors  int `json:"errors"`
}

// AnalyticsServicer defines valuation, snapshot and statistics operations.
type AnalyticsServicer interface {
	GetSummary(ctx context.Context, userID, portfolioID string) (*valuation.Summary, error)
	GetHoldings(ctx context.Context, userID, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[valuation.Holding], error)
	CreateSnapshot(ctx context.Context, userID, portfolioID string) (*models.PortfolioSnapshot, error)
	GetSnapshotHistory(ctx context.Context, userID, portfolioID string, from, to *time.Time) ([]models.PortfolioSnapshot, error)
	GetPerformance(ctx context.Context, userID, portfolioID string, interval Interval) ([]models.PortfolioSnapshot, error)
	GetReturns(ctx context.Context, userID, portfolioID string) (*ReturnsReport, error)
	GetRiskMetrics(ctx context.Context, userID, portfolioID string) (*RiskMetrics, error)
	GetDashboard(ctx context.Context, userID string) (*Dashboard, error)
	RecordDailySnapshots(ctx context.Context) (*SweepResult, error)
}

// DailyReturn is the change between two consecutive snapshots.
type DailyReturn struct {
	Date          time.Time       `json:"date"`
	Value         decimal.Decimal `json:"value"`
	ReturnAmount  decimal.Decimal `json:"return_amount"`
	ReturnPercent decimal.Decimal `json:"return_percent"`
}

// PerformanceReport describes value changes over a date range.
type PerformanceReport struct {
	PortfolioID        string          `json:"portfolio_id"`
	PortfolioName      string          `json:"portfolio_name"`
	ReportDate         time.Time       `json:"report_date"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	Currency           string          `json:"currency"`
	StartingValue      decimal.Decimal `json:"starting_value"`
	EndingValue        decimal.Decimal `json:"ending_value"`
	TotalReturn        decimal.Decimal `json:"total_return"`
	TotalReturnPercent decimal.Decimal `json:"total_return_percent"`
	DailyReturns       []DailyReturn   `json:"daily_returns"`
	BestDay            decimal.Decimal `json:"best_day"`
	WorstDay           decimal.Decimal `json:"worst_day"`
	AverageDailyReturn decimal.Decimal `json:"average_daily_return"`
	Volatility         decimal.Decimal `json:"volatility"`
	SharpeRatio        decimal.Decimal `json:"sharpe_ratio"`
}

// RealizedTransaction is one sale's gain or loss on its cost at the time.
type RealizedTransaction struct {
	TransactionID string          `json:"transaction_id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	SellDate      time.Time       `json:"sell_date"`
	Quantity      decimal.Decimal `json:"quantity"`
	SellPrice     decimal.Decimal `json:"sell_price"`
	Fee           decimal.Decimal `json:"fee"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	RealizedGain  decimal.Decimal `json:"realized_gain"`
	RealizedLoss  decimal.Decimal `json:"realized_loss"`
}

// TaxReport lists realized results of sales within a date range.
type TaxReport struct {
	PortfolioID   string                     `json:"portfolio_id"`
	PortfolioName string                     `json:"portfolio_name"`
	ReportDate    time.Time                  `json:"report_date"`
	StartDate     *time.Time                 `json:"start_date,omitempty"`
	EndDate       *time.Time                 `json:"end_date,omitempty"`
	Currency      string                     `json:"currency"`
	Transactions  []RealizedTransaction      `json:"realized_transactions"`
	TotalGains    decimal.Decimal            `json:"total_realized_gains"`
	TotalLosses   decimal.Decimal            `json:"total_realized_losses"`
	NetGainLoss   decimal.Decimal            `json:"net_realized_gain_loss"`
	GainsByAsset  map[string]decimal.Decimal `json:"gains_by_asset"`
	LossesByAsset map[string]decimal.Decimal `json:"losses_by_asset"`
	Flagged       []valuation.FlaggedAsset   `json:"flagged,omitempty"`
}

// ReportServicer builds performance and tax reports.
type ReportServicer interface {
	GetPerformanceReport(ctx context.Context, userID, portfolioID string, start, end *time.Time) (*PerformanceReport, error)
	GetTaxReport(ctx context.Context, userID, portfolioID string, start, end *time.Time) (*TaxReport, error)
}

// RebalanceServicer compares a portfolio against target allocations.
type RebalanceServicer interface {
	Suggest(ctx context.Context, userID, portfolioID string, targets []rebalance.Target) ([]rebalance.Suggestion, error)
}

// CorrelationServicer correlates the price histories of a portfolio's holdings.
type CorrelationServicer interface {
	Analyze(ctx context.Context, userID, portfolioID string) (*correlation.Result, error)
}

// AlertInput holds the fields accepted when creating or updating an alert.
type AlertInput struct {
	AssetID     string
	Condition   models.AlertCondition
	TargetPrice decimal.Decimal
	Currency    string
}

// AlertFilter narrows a user's alert list.
type AlertFilter struct {
	Active    *bool
	Triggered *bool
}

// AlertCheckResult tallies one evaluation pass over active alerts.
type AlertCheckResult struct {
	Checked   int `json:"checked"`
	Triggered int `json:"triggered"`
	Unpriced  int `json:"unpriced"`
}

// AlertServicer manages price alerts.
type AlertServicer interface {
	CreateAlert(userID string, input AlertInput) (*models.PriceAlert, error)
	CreateAlerts(userID string, inputs []AlertInput) ([]models.PriceAlert, error)
	GetUserAlerts(userID string, filter AlertFilter) ([]models.PriceAlert, error)
	GetAlertByID(userID, alertID string) (*models.PriceAlert, error)
	UpdateAlert(userID, alertID string, input AlertInput) (*models.PriceAlert, error)
	ToggleAlert(userID, alertID string, active bool) (*models.PriceAlert, error)
	ResetAlert(userID, alertID string) (*models.PriceAlert, error)
	DeleteAlert(userID, alertID string) error
	CheckAlerts(ctx context.Context) (*AlertCheckResult, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action string, resource models.AuditResource, resourceID, ipAddress string, changes map[string]any)
}
