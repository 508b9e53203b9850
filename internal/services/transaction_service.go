package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moneta/internal/clock"
	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db             *gorm.DB
	accountService AccountServicer
	clock          clock.Clock
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, accountService AccountServicer, clk clock.Clock) TransactionServicer {
	return &transactionService{
		db:             db,
		accountService: accountService,
		clock:          clk,
	}
}

// CreateTransaction records a transaction and applies its balance effects in
// one database transaction. A repeated ClientID returns the stored row without
// touching balances again.
func (s *transactionService) CreateTransaction(userID string, in TransactionInput) (*models.Transaction, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	if in.ClientID != nil {
		existing, err := s.findByClientID(s.db, userID, *in.ClientID)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	occurredAt := clock.Today(s.clock)
	if !in.OccurredAt.IsZero() {
		occurredAt = dateOnly(in.OccurredAt)
	}

	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkAccounts(tx, userID, in); err != nil {
			return err
		}
		if in.CategoryID != nil {
			if err := checkCategory(tx, userID, *in.CategoryID, in.Type); err != nil {
				return err
			}
		}

		transaction := &models.Transaction{
			UserID:     userID,
			AccountID:  in.AccountID,
			CategoryID: in.CategoryID,
			Type:       in.Type,
			Amount:     in.Amount,
			OccurredAt: occurredAt,
			Note:       in.Note,
			ClientID:   in.ClientID,
			SyncStatus: models.SyncStatusSynced,
		}
		if in.Type == models.TransactionTypeTransfer {
			transaction.TransferToAccountID = in.ToAccountID
		}

		var txErr error
		result, txErr = s.createTransactionWithDB(tx, userID, transaction)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// createTransactionWithDB inserts the row and applies its effects using tx.
// When the insert is swallowed by the client id index the existing row is
// returned instead.
func (s *transactionService) createTransactionWithDB(tx *gorm.DB, userID string, transaction *models.Transaction) (*models.Transaction, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}},
		DoNothing: true,
	}).Create(transaction)
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}

	if res.RowsAffected == 0 && transaction.ClientID != nil {
		existing, err := s.findByClientID(tx, userID, *transaction.ClientID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, apperrors.ErrDuplicateClientID
		}
		return existing, nil
	}

	if err := applyEffects(tx, s.accountService, balanceEffects(transaction)); err != nil {
		return nil, err
	}
	return transaction, nil
}

// findByClientID returns the owner's row carrying clientID, nil when there is
// none, or ErrDuplicateClientID when another owner holds it.
func (s *transactionService) findByClientID(db *gorm.DB, userID, clientID string) (*models.Transaction, error) {
	var existing models.Transaction
	if err := db.Where("client_id = ?", clientID).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing.UserID != userID {
		return nil, apperrors.ErrDuplicateClientID
	}
	return &existing, nil
}

func (s *transactionService) validateInput(in TransactionInput) error {
	if !in.Type.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	if in.AccountID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "account ID is required")
	}
	if err := validAmount(in.Amount); err != nil {
		return err
	}
	if in.ClientID != nil && strings.TrimSpace(*in.ClientID) == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "client ID must not be blank")
	}

	if in.Type == models.TransactionTypeTransfer {
		if in.ToAccountID == nil || *in.ToAccountID == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "destination account is required for transfers")
		}
		if *in.ToAccountID == in.AccountID {
			return apperrors.ErrSameAccountTransfer
		}
		if in.CategoryID != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "transfers cannot have a category")
		}
		return nil
	}
	if in.ToAccountID != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "destination account is only allowed for transfers")
	}
	return nil
}

// checkAccounts verifies the source and (for transfers) destination accounts
// are owned and open, locking them for the rest of tx.
func (s *transactionService) checkAccounts(tx *gorm.DB, userID string, in TransactionInput) error {
	ids := []string{in.AccountID}
	if in.Type == models.TransactionTypeTransfer {
		ids = append(ids, *in.ToAccountID)
	}
	for _, id := range ids {
		account, err := findOwnedAccount(forUpdate(tx), userID, id)
		if err != nil {
			return err
		}
		if account.Archived {
			return apperrors.ErrAccountArchived
		}
	}
	return nil
}

// checkCategory verifies the category is owned and its kind matches the
// transaction type.
func checkCategory(tx *gorm.DB, userID, categoryID string, txType models.TransactionType) error {
	category, err := findOwnedCategory(tx, userID, categoryID)
	if err != nil {
		return err
	}
	if string(category.Kind) != string(txType) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category kind does not match transaction type")
	}
	return nil
}

// UpdateTransaction edits amount, date or note and moves balances by the
// difference between the old and new effects. Amount and date edits apply to
// both legs of a transfer pair.
func (s *transactionService) UpdateTransaction(userID, transactionID string, fields TransactionUpdate) (*models.Transaction, error) {
	if fields.Amount != nil {
		if err := validAmount(*fields.Amount); err != nil {
			return nil, err
		}
	}

	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		transaction, err := findOwnedTransaction(forUpdate(tx), userID, transactionID)
		if err != nil {
			return err
		}

		rows := []models.Transaction{*transaction}
		if transaction.IsTransferLeg() {
			if rows, err = findTransferLegs(forUpdate(tx), userID, *transaction.TransferGroupID); err != nil {
				return err
			}
		}

		var oldEffects, newEffects []balanceDelta
		for i := range rows {
			row := &rows[i]
			oldEffects = append(oldEffects, balanceEffects(row)...)

			updates := make(map[string]interface{})
			if fields.Amount != nil {
				row.Amount = *fields.Amount
				updates["amount"] = row.Amount
			}
			if fields.OccurredAt != nil {
				row.OccurredAt = dateOnly(*fields.OccurredAt)
				updates["occurred_at"] = row.OccurredAt
			}
			if fields.Note != nil && row.ID == transaction.ID {
				row.Note = *fields.Note
				updates["note"] = row.Note
			}
			newEffects = append(newEffects, balanceEffects(row)...)

			if len(updates) > 0 {
				if err := tx.Model(row).Updates(updates).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			}
			if row.ID == transaction.ID {
				result = row
			}
		}

		return applyEffects(tx, s.accountService, mergeEffects(reverseEffects(oldEffects), newEffects))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteTransaction removes a transaction and reverses its balance effects.
// Deleting either leg of a transfer pair removes both.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		transaction, err := findOwnedTransaction(forUpdate(tx), userID, transactionID)
		if err != nil {
			return err
		}

		rows := []models.Transaction{*transaction}
		if transaction.IsTransferLeg() {
			if rows, err = findTransferLegs(forUpdate(tx), userID, *transaction.TransferGroupID); err != nil {
				return err
			}
		}

		var effects []balanceDelta
		ids := make([]string, 0, len(rows))
		for i := range rows {
			effects = append(effects, balanceEffects(&rows[i])...)
			ids = append(ids, rows[i].ID)
		}

		if err := tx.Model(&models.GoalContribution{}).
			Where("transaction_id IN ?", ids).
			Update("transaction_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		return applyEffects(tx, s.accountService, mergeEffects(reverseEffects(effects)))
	})
}

// UpdateTransactionStatus toggles the cleared and reconciled flags. Marking a
// row reconciled also clears it; un-clearing it drops the reconciled flag.
func (s *transactionService) UpdateTransactionStatus(userID, transactionID string, cleared, reconciled *bool) (*models.Transaction, error) {
	if cleared != nil && reconciled != nil && !*cleared && *reconciled {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a reconciled transaction must be cleared")
	}

	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if cleared != nil {
		updates["cleared"] = *cleared
		if !*cleared {
			updates["reconciled"] = false
		}
	}
	if reconciled != nil {
		updates["reconciled"] = *reconciled
		if *reconciled {
			updates["cleared"] = true
		}
	}
	if len(updates) > 0 {
		if err := s.db.Model(transaction).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return s.GetTransactionByID(userID, transactionID)
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	return findOwnedTransaction(s.db, userID, transactionID)
}

// GetUserTransactions retrieves a paginated, filtered list of a user's transactions.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	return listTransactions(base, page, filter)
}

// GetAccountTransactions retrieves a paginated, filtered list of transactions for a specific account.
func (s *transactionService) GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	// First verify the account belongs to the user
	if _, err := s.accountService.GetAccountByID(userID, accountID); err != nil {
		return nil, err
	}

	base := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND (account_id = ? OR transfer_to_account_id = ?)", userID, accountID, accountID)
	filter.AccountID = nil
	return listTransactions(base, page, filter)
}

func listTransactions(base *gorm.DB, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	result, err := pagination.List[models.Transaction](applyTransactionFilters(base, filter), page, "occurred_at DESC, created_at DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("occurred_at >= ?", dateOnly(*f.FromDate))
	}
	if f.ToDate != nil {
		q = q.Where("occurred_at <= ?", dateOnly(*f.ToDate))
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if f.AccountID != nil {
		q = q.Where("account_id = ?", *f.AccountID)
	}
	if f.Cleared != nil {
		q = q.Where("cleared = ?", *f.Cleared)
	}
	return q
}
