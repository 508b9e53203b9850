package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/money"
)

const (
	// reconcileWindow is how far a statement date may sit from the booked date.
	reconcileWindow = 24 * time.Hour
	// reconcileCandidates caps the rows inspected per statement line.
	reconcileCandidates = 20
)

// reconciliationService matches imported statement rows to uncleared transactions.
type reconciliationService struct {
	db *gorm.DB
}

// NewReconciliationService creates a new ReconciliationServicer.
func NewReconciliationService(db *gorm.DB) ReconciliationServicer {
	return &reconciliationService{db: db}
}

// Import matches each row independently, each in its own database
// transaction. The first candidate within tolerance wins, newest first. A
// match marks the transaction cleared and records the statement; balances are
// not touched. When a row fails, the rows already committed are returned along
// with the error.
func (s *reconciliationService) Import(userID string, rows []StatementRow, tolerance decimal.Decimal) (*ImportResult, error) {
	if tolerance.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "tolerance must not be negative")
	}

	result := &ImportResult{MatchedTransactionIDs: []string{}}
	for i, row := range rows {
		matchedID, err := s.matchRow(userID, row, tolerance)
		if err != nil {
			logger.Named("reconciliation").Errorw("statement import stopped",
				"user_id", userID,
				"row", i,
				"matched", result.Matched,
				"error", err,
			)
			return result, err
		}
		if matchedID == "" {
			result.Unmatched++
			continue
		}
		result.Matched++
		result.MatchedTransactionIDs = append(result.MatchedTransactionIDs, matchedID)
	}

	logger.Named("reconciliation").Infow("statement import finished",
		"user_id", userID,
		"rows", len(rows),
		"matched", result.Matched,
		"unmatched", result.Unmatched,
	)
	return result, nil
}

// matchRow returns the id of the transaction the row was matched to, or ""
// when nothing matched or the account is not the user's.
func (s *reconciliationService) matchRow(userID string, row StatementRow, tolerance decimal.Decimal) (string, error) {
	if row.AccountID == "" || row.Amount.IsZero() {
		return "", nil
	}

	txType := models.TransactionTypeIncome
	if row.Amount.IsNegative() {
		txType = models.TransactionTypeExpense
	}
	amount := row.Amount.Abs()
	day := dateOnly(row.Date)

	var matchedID string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := findOwnedAccount(tx, userID, row.AccountID); err != nil {
			if errors.Is(err, apperrors.ErrAccountNotFound) {
				return nil
			}
			return err
		}

		var candidates []models.Transaction
		if err := forUpdate(tx).
			Where("user_id = ? AND account_id = ? AND type = ? AND cleared = ? AND occurred_at >= ? AND occurred_at <= ?",
				userID, row.AccountID, txType, false, day.Add(-reconcileWindow), day.Add(reconcileWindow)).
			Order("occurred_at DESC, created_at DESC").
			Limit(reconcileCandidates).
			Find(&candidates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for i := range candidates {
			candidate := &candidates[i]
			if !money.WithinTolerance(amount, candidate.Amount, tolerance) {
				continue
			}

			if err := tx.Model(candidate).Updates(map[string]interface{}{
				"cleared":        true,
				"note":           candidate.Note + " | stmt: " + row.Description,
				"statement_date": day,
			}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			matchedID = candidate.ID
			return nil
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return matchedID, nil
}
