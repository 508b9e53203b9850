package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a spending limit for one category in one period. Period holds the
// first calendar day of the labelled month.
type Budget struct {
	Base
	UserID               string          `gorm:"type:uuid;not null;uniqueIndex:uq_budgets_user_category_period" json:"user_id"`
	CategoryID           string          `gorm:"type:uuid;not null;uniqueIndex:uq_budgets_user_category_period" json:"category_id"`
	Period               time.Time       `gorm:"not null;uniqueIndex:uq_budgets_user_category_period" json:"period"`
	Amount               decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Carryover            bool            `gorm:"not null;default:false" json:"carryover"`
	AccumulatedCarryover decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"accumulated_carryover"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category"`
}
