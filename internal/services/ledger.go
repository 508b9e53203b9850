package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/money"
)

// balanceDelta is one signed change to an account balance.
type balanceDelta struct {
	accountID string
	amount    decimal.Decimal
}

// balanceEffects returns the signed balance changes a transaction row applies.
// Income adds to its account and expense subtracts. A single-row transfer
// subtracts from its account and adds to TransferToAccountID. A leg of a
// transfer pair is stored as income or expense and follows those rules.
func balanceEffects(t *models.Transaction) []balanceDelta {
	switch t.Type {
	case models.TransactionTypeIncome:
		return []balanceDelta{{t.AccountID, t.Amount}}
	case models.TransactionTypeExpense:
		return []balanceDelta{{t.AccountID, t.Amount.Neg()}}
	case models.TransactionTypeTransfer:
		effects := []balanceDelta{{t.AccountID, t.Amount.Neg()}}
		if t.TransferToAccountID != nil {
			effects = append(effects, balanceDelta{*t.TransferToAccountID, t.Amount})
		}
		return effects
	}
	return nil
}

// reverseEffects negates every delta.
func reverseEffects(effects []balanceDelta) []balanceDelta {
	out := make([]balanceDelta, len(effects))
	for i, e := range effects {
		out[i] = balanceDelta{e.accountID, e.amount.Neg()}
	}
	return out
}

// mergeEffects folds deltas on the same account together, keeping first-seen order.
func mergeEffects(effects ...[]balanceDelta) []balanceDelta {
	var order []string
	totals := make(map[string]decimal.Decimal)
	for _, list := range effects {
		for _, e := range list {
			if _, ok := totals[e.accountID]; !ok {
				order = append(order, e.accountID)
				totals[e.accountID] = decimal.Zero
			}
			totals[e.accountID] = totals[e.accountID].Add(e.amount)
		}
	}
	out := make([]balanceDelta, 0, len(order))
	for _, id := range order {
		out = append(out, balanceDelta{id, totals[id]})
	}
	return out
}

// applyEffects writes the deltas through the account service inside tx.
func applyEffects(tx *gorm.DB, accounts AccountServicer, effects []balanceDelta) error {
	for _, e := range effects {
		if e.amount.IsZero() {
			continue
		}
		if err := accounts.ApplyBalanceDelta(tx, e.accountID, e.amount); err != nil {
			return err
		}
	}
	return nil
}

// forUpdate adds a row lock to the query. SQLite ignores it.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func findOwnedAccount(db *gorm.DB, userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := db.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

func findOwnedCategory(db *gorm.DB, userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

func findOwnedTransaction(db *gorm.DB, userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// findTransferLegs loads both rows of a transfer pair, outgoing leg first.
func findTransferLegs(db *gorm.DB, userID, groupID string) ([]models.Transaction, error) {
	var legs []models.Transaction
	if err := db.Where("user_id = ? AND transfer_group_id = ?", userID, groupID).
		Order("transfer_to_account_id IS NULL").
		Find(&legs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(legs) == 0 {
		return nil, apperrors.ErrTransferNotFound
	}
	return legs, nil
}

// isDuplicateKey reports whether err is a unique constraint violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(money.Scale)) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must have at most 2 decimal places")
	}
	return nil
}
