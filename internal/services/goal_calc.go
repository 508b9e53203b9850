package services

import (
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/money"
)

var almostThereRatio = decimal.RequireFromString("0.8")

// GoalFigures aggregates a goal's start amount and signed contributions.
func GoalFigures(start, target, contributed decimal.Decimal) (saved, remaining, progress decimal.Decimal) {
	saved = start.Add(contributed)
	return saved, money.NonNegative(target.Sub(saved)), money.Ratio(saved, target)
}

// ClassifyGoal labels a goal. The checks run in a fixed priority order:
// completed, overdue, almost there, on track, not started.
func ClassifyGoal(progress decimal.Decimal, targetDate *time.Time, today time.Time) GoalStatus {
	complete := progress.GreaterThanOrEqual(decimal.NewFromInt(1))
	switch {
	case complete:
		return GoalStatusCompleted
	case targetDate != nil && dateOnly(*targetDate).Before(dateOnly(today)):
		return GoalStatusOverdue
	case progress.GreaterThanOrEqual(almostThereRatio):
		return GoalStatusAlmostThere
	case progress.IsPositive():
		return GoalStatusOnTrack
	}
	return GoalStatusNotStarted
}
