package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// SyncStatus tracks whether a client-originated row has been acknowledged.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
)

// Transaction represents a financial transaction. Amount is never negative;
// direction comes from Type. The two legs of a transfer pair share
// TransferGroupID.
type Transaction struct {
	Base
	UserID              string          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID           string          `gorm:"type:uuid;not null;index" json:"account_id"`
	CategoryID          *string         `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Type                TransactionType `gorm:"not null" json:"type"`
	Amount              decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	OccurredAt          time.Time       `gorm:"not null;index" json:"occurred_at"`
	Note                string          `json:"note"`
	Cleared             bool            `gorm:"not null;default:false" json:"cleared"`
	Reconciled          bool            `gorm:"not null;default:false" json:"reconciled"`
	StatementDate       *time.Time      `json:"statement_date,omitempty"`
	TransferToAccountID *string         `gorm:"type:uuid;index" json:"transfer_to_account_id,omitempty"`
	TransferGroupID     *string         `gorm:"type:uuid;index" json:"transfer_group_id,omitempty"`
	ClientID            *string         `gorm:"uniqueIndex" json:"client_id,omitempty"`
	SyncStatus          SyncStatus      `gorm:"not null;default:'synced'" json:"sync_status"`
}

// IsTransferLeg reports whether the row belongs to a transfer pair.
func (t *Transaction) IsTransferLeg() bool {
	return t.TransferGroupID != nil && *t.TransferGroupID != ""
}
