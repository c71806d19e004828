package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// D parses a decimal literal and panics on malformed input.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestPortfolio creates a USD portfolio with a moderate risk profile.
func CreateTestPortfolio(t *testing.T, db *gorm.DB, userID string) *models.Portfolio {
	t.Helper()

	portfolio := &models.Portfolio{
		UserID:       userID,
		Name:         fmt.Sprintf("Test Portfolio %d", nextID()),
		BaseCurrency: "USD",
		RiskProfile:  models.RiskProfileModerate,
	}
	if err := db.Create(portfolio).Error; err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return portfolio
}

// CreateTestAsset creates an asset of the given type with a unique symbol.
func CreateTestAsset(t *testing.T, db *gorm.DB, assetType models.AssetType) *models.Asset {
	t.Helper()
	return CreateTestAssetWithSymbol(t, db, fmt.Sprintf("TST%d", nextID()), assetType)
}

// CreateTestAssetWithSymbol creates a USD asset with the given symbol and type.
func CreateTestAssetWithSymbol(t *testing.T, db *gorm.DB, symbol string, assetType models.AssetType) *models.Asset {
	t.Helper()

	asset := &models.Asset{
		Symbol:   symbol,
		Name:     "Test " + symbol,
		Type:     assetType,
		Currency: "USD",
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}
	return asset
}

// CreateTestTransaction records a fee-free transaction.
func CreateTestTransaction(t *testing.T, db *gorm.DB, portfolioID, assetID string, txType models.TransactionType, quantity, price string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		PortfolioID:     portfolioID,
		AssetID:         assetID,
		Type:            txType,
		Quantity:        D(quantity),
		Price:           D(price),
		Fee:             decimal.Zero,
		TransactionDate: date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestPortfolioSnapshot records a snapshot whose cost equals its value.
func CreateTestPortfolioSnapshot(t *testing.T, db *gorm.DB, portfolioID, value string, date time.Time) *models.PortfolioSnapshot {
	t.Helper()

	snapshot := &models.PortfolioSnapshot{
		PortfolioID:     portfolioID,
		TotalValue:      D(value),
		TotalCost:       D(value),
		TotalPnL:        decimal.Zero,
		TotalPnLPercent: decimal.Zero,
		Currency:        "USD",
		SnapshotDate:    date,
	}
	if err := db.Create(snapshot).Error; err != nil {
		t.Fatalf("failed to create test portfolio snapshot: %v", err)
	}
	return snapshot
}

// CreateTestPriceSnapshot records a USD price observation.
func CreateTestPriceSnapshot(t *testing.T, db *gorm.DB, assetID, price string, at time.Time) *models.PriceSnapshot {
	t.Helper()

	snapshot := &models.PriceSnapshot{
		AssetID:    assetID,
		Price:      D(price),
		Currency:   "USD",
		Source:     "test",
		RecordedAt: at,
	}
	if err := db.Create(snapshot).Error; err != nil {
		t.Fatalf("failed to create test price snapshot: %v", err)
	}
	return snapshot
}

// CreateTestPriceAlert creates an active USD alert.
func CreateTestPriceAlert(t *testing.T, db *gorm.DB, userID, assetID string, condition models.AlertCondition, target string) *models.PriceAlert {
	t.Helper()

	alert := &models.PriceAlert{
		UserID:      userID,
		AssetID:     assetID,
		Condition:   condition,
		TargetPrice: D(target),
		Currency:    "USD",
		IsActive:    true,
	}
	if err := db.Create(alert).Error; err != nil {
		t.Fatalf("failed to create test price alert: %v", err)
	}
	return alert
}
