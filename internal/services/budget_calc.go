package services

import (
	"github.com/shopspring/decimal"

	"moneta/internal/money"
)

// Budget status thresholds on the spent/limit ratio.
var (
	almostOverRatio = decimal.RequireFromString("0.8")
	overRatio       = decimal.NewFromInt(1)
)

// EffectiveLimit is the base amount plus, when carryover is on, whatever the
// previous period left unspent. Overspending never reduces the next limit.
func EffectiveLimit(base decimal.Decimal, carryover bool, prevLimit, prevSpent decimal.Decimal) decimal.Decimal {
	if !carryover {
		return base
	}
	return base.Add(money.NonNegative(prevLimit.Sub(prevSpent)))
}

// BudgetProgress returns what is left of limit and the spent ratio capped at 1.
func BudgetProgress(limit, spent decimal.Decimal) (remaining, ratio decimal.Decimal) {
	return money.NonNegative(limit.Sub(spent)), money.Ratio(spent, limit)
}

// carriedAmount is the unspent part of a period's full limit, floored at zero.
func carriedAmount(b budgetFigures) decimal.Decimal {
	return money.NonNegative(b.amount.Add(b.accumulated).Sub(b.spent))
}

type budgetFigures struct {
	amount      decimal.Decimal
	accumulated decimal.Decimal
	spent       decimal.Decimal
}

// budgetStatus classifies a progress ratio as returned by BudgetProgress.
func budgetStatus(ratio decimal.Decimal) BudgetStatus {
	switch {
	case ratio.GreaterThanOrEqual(overRatio):
		return BudgetStatusOver
	case ratio.GreaterThanOrEqual(almostOverRatio):
		return BudgetStatusAlmostOver
	}
	return BudgetStatusOK
}
