package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/pagination"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/services"
)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("/", injectUserID(testUserID))
	auth.POST("/transactions", handler.CreateTransaction)
	auth.GET("/transactions", handler.GetUserTransactions)
	auth.GET("/transactions/:id", handler.GetTransactionByID)
	auth.PUT("/transactions/:id", handler.UpdateTransaction)
	auth.DELETE("/transactions/:id", handler.DeleteTransaction)
	r.POST("/anonymous/transactions", handler.CreateTransaction)
	return r
}

const buyBody = `{"portfolio_id":"` + testPortfolioID + `","asset_id":"` + testAssetID +
	`","type":"BUY","quantity":"1.5","price":100,"fee":"0.25","date":"2025-01-10"}`

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.TransactionInput
		audit := &mockAuditService{}
		svc := &mockTransactionService{
			createTransactionFn: func(userID string, input services.TransactionInput) (*models.Transaction, error) {
				if userID != testUserID {
					t.Errorf("expected user %s, got %s", testUserID, userID)
				}
				got = input
				return &models.Transaction{Base: models.Base{ID: testOtherID}, Type: input.Type}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, audit))

		rec := doRequest(r, "POST", "/transactions", buyBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Quantity.String() != "1.5" || got.Price.String() != "100" || got.Fee.String() != "0.25" {
			t.Errorf("unexpected amounts: %s/%s/%s", got.Quantity, got.Price, got.Fee)
		}
		if !got.Date.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected date %v", got.Date)
		}
		if len(audit.actions) != 1 || audit.actions[0] != "CREATE_TRANSACTION" {
			t.Errorf("expected CREATE_TRANSACTION audit entry, got %v", audit.actions)
		}
	})

	t.Run("leaves date zero when omitted", func(t *testing.T) {
		svc := &mockTransactionService{
			createTransactionFn: func(_ string, input services.TransactionInput) (*models.Transaction, error) {
				if !input.Date.IsZero() || !input.Fee.IsZero() {
					t.Errorf("expected zero date and fee, got %v/%s", input.Date, input.Fee)
				}
				return &models.Transaction{}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions", `{"portfolio_id":"`+testPortfolioID+`","asset_id":"`+testAssetID+`","type":"DEPOSIT","quantity":"1","price":"1"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	invalid := map[string]string{
		"missing portfolio": `{"asset_id":"` + testAssetID + `","type":"BUY","quantity":"1","price":"1"}`,
		"bad type":          `{"portfolio_id":"` + testPortfolioID + `","asset_id":"` + testAssetID + `","type":"buy","quantity":"1","price":"1"}`,
		"missing quantity":  `{"portfolio_id":"` + testPortfolioID + `","asset_id":"` + testAssetID + `","type":"BUY","price":"1"}`,
		"bad date":          `{"portfolio_id":"` + testPortfolioID + `","asset_id":"` + testAssetID + `","type":"BUY","quantity":"1","price":"1","date":"10/01/2025"}`,
		"non-uuid asset":    `{"portfolio_id":"` + testPortfolioID + `","asset_id":"42","type":"BUY","quantity":"1","price":"1"}`,
	}
	for name, body := range invalid {
		t.Run("returns 400 on "+name, func(t *testing.T) {
			r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

			rec := doRequest(r, "POST", "/transactions", body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("returns 422 on insufficient holdings", func(t *testing.T) {
		svc := &mockTransactionService{
			createTransactionFn: func(string, services.TransactionInput) (*models.Transaction, error) {
				return nil, apperrors.ErrInsufficientHoldings
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions", buyBody)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_HOLDINGS")
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/anonymous/transactions", buyBody)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetUserTransactions(t *testing.T) {
	t.Run("passes filter params to service", func(t *testing.T) {
		var gotFilter services.TransactionFilter
		var gotPage pagination.PageRequest
		svc := &mockTransactionService{
			getUserTransactionsFn: func(_ string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				gotFilter, gotPage = filter, page
				resp := pagination.NewPageResponse([]models.Transaction{{}}, 2, 5, 6)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions?page=2&page_size=5&portfolio_id="+testPortfolioID+
			"&type=SELL&from_date=2025-01-01&to_date=2025-02-01T00:00:00Z", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotPage.Page != 2 || gotPage.PageSize != 5 {
			t.Errorf("unexpected page %+v", gotPage)
		}
		if gotFilter.PortfolioID == nil || *gotFilter.PortfolioID != testPortfolioID {
			t.Error("expected portfolio filter")
		}
		if gotFilter.AssetID != nil {
			t.Error("expected no asset filter")
		}
		if gotFilter.Type == nil || *gotFilter.Type != models.TransactionTypeSell {
			t.Error("expected SELL type filter")
		}
		if gotFilter.FromDate == nil || gotFilter.ToDate == nil {
			t.Error("expected both date bounds")
		}
		if parseJSON(t, rec)["total_pages"] != float64(2) {
			t.Error("expected paginated response")
		}
	})

	for name, query := range map[string]string{
		"type":         "type=income",
		"date":         "from_date=yesterday",
		"portfolio_id": "portfolio_id=7",
		"page_size":    "page_size=1000",
	} {
		t.Run("returns 400 on invalid "+name, func(t *testing.T) {
			r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

			rec := doRequest(r, "GET", "/transactions?"+query, "")

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestTransactionHandler_GetTransactionByID(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		svc := &mockTransactionService{
			getTransactionByIDFn: func(_, id string) (*models.Transaction, error) {
				return &models.Transaction{Base: models.Base{ID: id}}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/"+testOtherID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["id"] != testOtherID {
			t.Errorf("expected id %s, got %v", testOtherID, tx["id"])
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockTransactionService{
			getTransactionByIDFn: func(_, _ string) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/"+testOtherID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid ID", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("passes only provided fields", func(t *testing.T) {
		var got services.TransactionUpdate
		svc := &mockTransactionService{
			updateTransactionFn: func(_, id string, update services.TransactionUpdate) (*models.Transaction, error) {
				got = update
				return &models.Transaction{Base: models.Base{ID: id}}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/transactions/"+testOtherID, `{"price":"12.5","date":"2025-03-01"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Price == nil || got.Price.String() != "12.5" {
			t.Error("expected price update")
		}
		if got.Quantity != nil || got.Fee != nil || got.Notes != nil {
			t.Error("expected untouched fields to stay nil")
		}
		if got.Date == nil || got.Date.Month() != time.March {
			t.Error("expected date update")
		}
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, audit))

		rec := doRequest(r, "DELETE", "/transactions/"+testOtherID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(audit.actions) != 1 || audit.actions[0] != "DELETE_TRANSACTION" {
			t.Errorf("expected DELETE_TRANSACTION audit entry, got %v", audit.actions)
		}
	})

	t.Run("returns 422 when later sales depend on it", func(t *testing.T) {
		svc := &mockTransactionService{
			deleteTransactionFn: func(_, _ string) error { return apperrors.ErrInsufficientHoldings },
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/transactions/"+testOtherID, "")

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}
