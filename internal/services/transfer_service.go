package services

import (
	"gorm.io/gorm"

	"moneta/internal/clock"
	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/uuid"
)

// transferService creates transfer pairs between two of a user's accounts.
type transferService struct {
	db             *gorm.DB
	accountService AccountServicer
	clock          clock.Clock
}

// NewTransferService creates a new TransferServicer.
func NewTransferService(db *gorm.DB, accountService AccountServicer, clk clock.Clock) TransferServicer {
	return &transferService{
		db:             db,
		accountService: accountService,
		clock:          clk,
	}
}

// CreateTransfer writes both legs and both balance deltas atomically.
func (s *transferService) CreateTransfer(userID string, in TransferInput) (*Transfer, error) {
	var result *Transfer
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.CreateTransferTx(tx, userID, in)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateTransferTx is CreateTransfer inside a database transaction owned by
// the caller.
func (s *transferService) CreateTransferTx(tx *gorm.DB, userID string, in TransferInput) (*Transfer, error) {
	if in.FromAccountID == "" || in.ToAccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "source and destination accounts are required")
	}
	if in.FromAccountID == in.ToAccountID {
		return nil, apperrors.ErrSameAccountTransfer
	}
	if err := validAmount(in.Amount); err != nil {
		return nil, err
	}

	for _, id := range []string{in.FromAccountID, in.ToAccountID} {
		account, err := findOwnedAccount(forUpdate(tx), userID, id)
		if err != nil {
			return nil, err
		}
		if account.Archived {
			return nil, apperrors.ErrAccountArchived
		}
	}

	occurredAt := clock.Today(s.clock)
	if !in.OccurredAt.IsZero() {
		occurredAt = dateOnly(in.OccurredAt)
	}

	groupID := uuid.New()
	toAccountID := in.ToAccountID
	transfer := &Transfer{
		GroupID: groupID,
		Out: models.Transaction{
			UserID:              userID,
			AccountID:           in.FromAccountID,
			Type:                models.TransactionTypeExpense,
			Amount:              in.Amount,
			OccurredAt:          occurredAt,
			Note:                in.Note,
			TransferToAccountID: &toAccountID,
			TransferGroupID:     &groupID,
			SyncStatus:          models.SyncStatusSynced,
		},
		In: models.Transaction{
			UserID:          userID,
			AccountID:       in.ToAccountID,
			Type:            models.TransactionTypeIncome,
			Amount:          in.Amount,
			OccurredAt:      occurredAt,
			Note:            in.Note,
			TransferGroupID: &groupID,
			SyncStatus:      models.SyncStatusSynced,
		},
	}

	for _, leg := range []*models.Transaction{&transfer.Out, &transfer.In} {
		if err := tx.Create(leg).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := applyEffects(tx, s.accountService, balanceEffects(leg)); err != nil {
			return nil, err
		}
	}

	return transfer, nil
}

// GetTransfer returns both legs of a transfer group.
func (s *transferService) GetTransfer(userID, groupID string) (*Transfer, error) {
	legs, err := findTransferLegs(s.db, userID, groupID)
	if err != nil {
		return nil, err
	}
	return pairFromLegs(groupID, legs)
}

func pairFromLegs(groupID string, legs []models.Transaction) (*Transfer, error) {
	transfer := &Transfer{GroupID: groupID}
	var haveOut, haveIn bool
	for _, leg := range legs {
		switch leg.Type {
		case models.TransactionTypeExpense:
			transfer.Out, haveOut = leg, true
		case models.TransactionTypeIncome:
			transfer.In, haveIn = leg, true
		}
	}
	if !haveOut || !haveIn {
		return nil, apperrors.ErrTransferNotFound
	}
	return transfer, nil
}
