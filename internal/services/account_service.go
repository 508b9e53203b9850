package services

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"moneta/internal/clock"
	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// accountService handles account-related business logic.
type accountService struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, clk clock.Clock) AccountServicer {
	return &accountService{db: db, clock: clk}
}

// CreateAccount creates a new account for a user. A non-zero initial balance
// is recorded as an "Initial balance" transaction so the stored balance always
// equals the sum of the account's transaction effects.
func (s *accountService) CreateAccount(userID string, in AccountInput) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if !in.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported account type")
	}

	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = "USD"
	}

	account := &models.Account{
		UserID:   userID,
		Name:     name,
		Type:     in.Type,
		Currency: currency,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			if isDuplicateKey(err) {
				return apperrors.ErrDuplicateAccountName
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if in.InitialBalance.IsZero() {
			return nil
		}

		opening := &models.Transaction{
			UserID:     userID,
			AccountID:  account.ID,
			Type:       models.TransactionTypeIncome,
			Amount:     in.InitialBalance.Abs(),
			OccurredAt: clock.Today(s.clock),
			Note:       "Initial balance",
			Cleared:    true,
			SyncStatus: models.SyncStatusSynced,
		}
		if in.InitialBalance.IsNegative() {
			opening.Type = models.TransactionTypeExpense
		}
		if err := tx.Create(opening).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for _, e := range balanceEffects(opening) {
			if err := s.ApplyBalanceDelta(tx, e.accountID, e.amount); err != nil {
				return err
			}
		}
		account.Balance = in.InitialBalance
		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// GetUserAccounts retrieves a paginated list of accounts for a user.
func (s *accountService) GetUserAccounts(userID string, includeArchived bool, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	base := s.db.Model(&models.Account{}).Where("user_id = ?", userID)
	if !includeArchived {
		base = base.Where("archived = ?", false)
	}

	result, err := pagination.List[models.Account](base, page, "name ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetAccountByID retrieves an account by ID for a specific user
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	return findOwnedAccount(s.db, userID, accountID)
}

// UpdateAccount renames or (un)archives an account. The balance is never
// writable here.
func (s *accountService) UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
		}
		updates["name"] = name
	}
	if fields.Archived != nil {
		updates["archived"] = *fields.Archived
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			if isDuplicateKey(err) {
				return nil, apperrors.ErrDuplicateAccountName
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		// Reload to get fresh data
		if err := s.db.Where("id = ?", account.ID).First(account).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return account, nil
}

// DeleteAccount removes an account that no transaction references. Goals
// pointing at it are unlinked.
func (s *accountService) DeleteAccount(userID, accountID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		account, err := findOwnedAccount(forUpdate(tx), userID, accountID)
		if err != nil {
			return err
		}

		var refs int64
		if err := tx.Model(&models.Transaction{}).
			Where("account_id = ? OR transfer_to_account_id = ?", account.ID, account.ID).
			Count(&refs).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if refs > 0 {
			return apperrors.ErrAccountInUse
		}

		if err := tx.Model(&models.Goal{}).
			Where("user_id = ? AND account_id = ?", userID, account.ID).
			Update("account_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Delete(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// ApplyBalanceDelta adds delta to the account's stored balance inside tx. It
// is the only write path for balances.
func (s *accountService) ApplyBalanceDelta(tx *gorm.DB, accountID string, delta decimal.Decimal) error {
	res := tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}
