package handlers

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"moneta/internal/clock"
	"moneta/internal/models"
	"moneta/internal/services"
	"moneta/internal/testutil"
)

// ledgerEnv wires the ledger handlers to real services on an in-memory
// database, authenticated as a single user.
type ledgerEnv struct {
	db     *gorm.DB
	router *gin.Engine
	user   *models.User
	audit  *mockAuditService
}

var testToday = time.Date(2024, time.May, 15, 9, 0, 0, 0, time.UTC)

func newLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	clk := clock.Fixed(testToday)
	accountService := services.NewAccountService(db, clk)
	transactionService := services.NewTransactionService(db, accountService, clk)
	transferService := services.NewTransferService(db, accountService, clk)
	goalService := services.NewGoalService(db, transferService, clk)
	audit := &mockAuditService{}

	accountHandler := NewAccountHandler(accountService, transactionService, audit)
	categoryHandler := NewCategoryHandler(services.NewCategoryService(db), audit)
	transactionHandler := NewTransactionHandler(transactionService, audit)
	transferHandler := NewTransferHandler(transferService, audit)
	goalHandler := NewGoalHandler(goalService, audit)
	reconciliationHandler := NewReconciliationHandler(services.NewReconciliationService(db), audit, decimal.Zero)

	user := testutil.CreateTestUser(t, db)

	r := gin.New()
	api := r.Group("", injectUserID(user.ID))

	api.POST("/accounts", accountHandler.CreateAccount)
	api.GET("/accounts", accountHandler.GetUserAccounts)
	api.GET("/accounts/:id", accountHandler.GetAccountByID)
	api.PUT("/accounts/:id", accountHandler.UpdateAccount)
	api.DELETE("/accounts/:id", accountHandler.DeleteAccount)
	api.GET("/accounts/:id/transactions", accountHandler.GetAccountTransactions)

	api.POST("/categories", categoryHandler.CreateCategory)
	api.GET("/categories", categoryHandler.GetUserCategories)
	api.GET("/categories/:id", categoryHandler.GetCategoryByID)
	api.PUT("/categories/:id", categoryHandler.UpdateCategory)
	api.DELETE("/categories/:id", categoryHandler.DeleteCategory)

	api.POST("/transactions", transactionHandler.CreateTransaction)
	api.GET("/transactions", transactionHandler.GetUserTransactions)
	api.GET("/transactions/:id", transactionHandler.GetTransactionByID)
	api.PUT("/transactions/:id", transactionHandler.UpdateTransaction)
	api.PATCH("/transactions/:id/status", transactionHandler.UpdateTransactionStatus)
	api.DELETE("/transactions/:id", transactionHandler.DeleteTransaction)

	api.POST("/transfers", transferHandler.CreateTransfer)
	api.GET("/transfers/:group_id", transferHandler.GetTransfer)

	api.POST("/goals", goalHandler.CreateGoal)
	api.GET("/goals", goalHandler.GetGoals)
	api.GET("/goals/:id", goalHandler.GetGoal)
	api.PUT("/goals/:id", goalHandler.UpdateGoal)
	api.DELETE("/goals/:id", goalHandler.DeleteGoal)
	api.POST("/goals/:id/contributions", goalHandler.AddContribution)
	api.GET("/goals/:id/contributions", goalHandler.ListContributions)
	api.PUT("/contributions/:id", goalHandler.UpdateContribution)
	api.DELETE("/contributions/:id", goalHandler.DeleteContribution)

	api.POST("/reconciliation/import", reconciliationHandler.ImportStatement)

	return &ledgerEnv{db: db, router: r, user: user, audit: audit}
}

// resourceID extracts the id of the wrapped resource in a JSON response.
func resourceID(t *testing.T, result map[string]interface{}, key string) string {
	t.Helper()
	obj, ok := result[key].(map[string]interface{})
	if !ok {
		t.Fatalf("expected %q object in response, got: %v", key, result)
	}
	id, _ := obj["id"].(string)
	if id == "" {
		t.Fatalf("expected %q to carry an id, got: %v", key, obj)
	}
	return id
}
