package models

import "github.com/shopspring/decimal"

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeCash       AccountType = "cash"
	AccountTypeBank       AccountType = "bank"
	AccountTypeEWallet    AccountType = "ewallet"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeInvestment AccountType = "investment"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeEWallet, AccountTypeCreditCard, AccountTypeInvestment:
		return true
	}
	return false
}

// Account represents a financial account. Balance is the authoritative running
// total and is only changed through ledger deltas.
type Account struct {
	Base
	UserID   string          `gorm:"type:uuid;not null;uniqueIndex:uq_accounts_user_name" json:"user_id"`
	Name     string          `gorm:"not null;uniqueIndex:uq_accounts_user_name" json:"name"`
	Type     AccountType     `gorm:"not null" json:"type"`
	Currency string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Balance  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"balance"`
	Archived bool            `gorm:"not null;default:false" json:"archived"`
}
