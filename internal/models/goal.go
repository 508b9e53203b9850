package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target, optionally backed by a "piggy-bank" account.
type Goal struct {
	Base
	UserID       string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name         string          `gorm:"not null" json:"name"`
	TargetAmount decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"target_amount"`
	TargetDate   *time.Time      `json:"target_date,omitempty"`
	StartAmount  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"start_amount"`
	AccountID    *string         `gorm:"type:uuid" json:"account_id,omitempty"`
	Color        string          `json:"color"`
	Icon         string          `json:"icon"`
	Archived     bool            `gorm:"not null;default:false" json:"archived"`
}

// GoalContribution is a signed deposit (positive) or withdrawal (negative)
// against a goal. TransactionID links the backing transfer leg, if any.
type GoalContribution struct {
	Base
	GoalID        string          `gorm:"type:uuid;not null;index" json:"goal_id"`
	UserID        string          `gorm:"type:uuid;not null" json:"user_id"`
	TransactionID *string         `gorm:"type:uuid" json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	OccurredAt    time.Time       `gorm:"not null" json:"occurred_at"`
	Note          string          `json:"note"`
}
