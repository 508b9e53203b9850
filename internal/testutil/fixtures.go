package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moneta/internal/models"
	"moneta/internal/period"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Dec parses a decimal literal, panicking on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
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
		Email:          email,
		Password:       string(hash),
		PeriodStartDay: 1,
		IsActive:       true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// SetPeriodStartDay changes a user's budget period start day.
func SetPeriodStartDay(t *testing.T, db *gorm.DB, userID string, day int) {
	t.Helper()

	if err := db.Model(&models.User{}).Where("id = ?", userID).Update("period_start_day", day).Error; err != nil {
		t.Fatalf("failed to set period start day: %v", err)
	}
}

// CreateTestAccount creates a cash account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, userID, "0")
}

// CreateTestAccountWithBalance creates a cash account whose stored balance is
// set directly, without a backing transaction.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, userID string, balance string) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:   userID,
		Name:     fmt.Sprintf("Test Account %d", nextID()),
		Type:     models.AccountTypeCash,
		Balance:  Dec(balance),
		Currency: "USD",
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category of the given kind.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, kind models.CategoryKind) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Kind:   kind,
		Color:  "#336699",
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction inserts a transaction row directly. Balances are not
// touched.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, accountID string, txType models.TransactionType, amount string, occurredAt time.Time) *models.Transaction {
	t.Helper()

	transaction := &models.Transaction{
		UserID:     userID,
		AccountID:  accountID,
		Type:       txType,
		Amount:     Dec(amount),
		OccurredAt: occurredAt,
		Note:       "test transaction",
		SyncStatus: models.SyncStatusSynced,
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// CreateTestExpense inserts an expense in a category directly. Balances are
// not touched.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID, accountID, categoryID string, amount string, occurredAt time.Time) *models.Transaction {
	t.Helper()

	transaction := &models.Transaction{
		UserID:     userID,
		AccountID:  accountID,
		CategoryID: &categoryID,
		Type:       models.TransactionTypeExpense,
		Amount:     Dec(amount),
		OccurredAt: occurredAt,
		SyncStatus: models.SyncStatusSynced,
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return transaction
}

// CreateTestBudget creates a budget for the category in period p.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID string, p period.Period, amount string, carryover bool) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:               userID,
		CategoryID:           categoryID,
		Period:               p.FirstDay(),
		Amount:               Dec(amount),
		Carryover:            carryover,
		AccumulatedCarryover: decimal.Zero,
	}
	if err := db.Omit(clause.Associations).Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestGoal creates a goal with the given target, optionally linked to
// an account.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID string, target string, accountID *string) *models.Goal {
	t.Helper()

	goal := &models.Goal{
		UserID:       userID,
		Name:         fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount: Dec(target),
		StartAmount:  decimal.Zero,
		AccountID:    accountID,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}
