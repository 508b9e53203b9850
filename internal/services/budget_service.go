package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moneta/internal/clock"
	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/money"
	"moneta/internal/period"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, clk clock.Clock) BudgetServicer {
	return &budgetService{db: db, clock: clk}
}

// CreateBudget creates a budget for an expense category in one period.
func (s *budgetService) CreateBudget(userID string, in BudgetInput) (*models.Budget, error) {
	if in.Period.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period is required")
	}
	if err := validBudgetAmount(in.Amount); err != nil {
		return nil, err
	}

	category, err := findOwnedCategory(s.db, userID, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if category.Kind != models.CategoryKindExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budgets can only be set on expense categories")
	}

	var existing int64
	if err := s.db.Model(&models.Budget{}).
		Where("user_id = ? AND category_id = ? AND period = ?", userID, in.CategoryID, in.Period.FirstDay()).
		Count(&existing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing > 0 {
		return nil, apperrors.ErrDuplicateBudget
	}

	budget := &models.Budget{
		UserID:               userID,
		CategoryID:           in.CategoryID,
		Period:               in.Period.FirstDay(),
		Amount:               in.Amount,
		Carryover:            in.Carryover,
		AccumulatedCarryover: decimal.Zero,
	}
	if err := s.db.Omit(clause.Associations).Create(budget).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateBudget
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	budget.Category = *category
	return budget, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates a budget's base amount or carryover flag.
func (s *budgetService) UpdateBudget(userID, budgetID string, fields BudgetUpdateFields) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Amount != nil {
		if err := validBudgetAmount(*fields.Amount); err != nil {
			return nil, err
		}
		updates["amount"] = *fields.Amount
	}
	if fields.Carryover != nil {
		updates["carryover"] = *fields.Carryover
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Omit(clause.Associations).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetBudgetByID(userID, budgetID)
}

// DeleteBudget removes a budget.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(&models.Budget{}, "id = ?", budget.ID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress computes the live figures of a single budget.
func (s *budgetService) GetBudgetProgress(userID, budgetID string) (*BudgetView, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	views, err := s.buildViews(userID, period.FromDate(budget.Period), []models.Budget{*budget})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListForPeriod returns every budget of the period with live spend and
// carryover figures, plus a summary.
func (s *budgetService) ListForPeriod(userID string, p period.Period) (*BudgetList, error) {
	var budgets []models.Budget
	if err := s.db.Preload("Category").
		Where("user_id = ? AND period = ?", userID, p.FirstDay()).
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views, err := s.buildViews(userID, p, budgets)
	if err != nil {
		return nil, err
	}

	limits := make([]decimal.Decimal, 0, len(views))
	spent := make([]decimal.Decimal, 0, len(views))
	summary := BudgetSummary{Period: p.String()}
	for _, v := range views {
		limits = append(limits, v.EffectiveLimit)
		spent = append(spent, v.Spent)
		switch v.Status {
		case BudgetStatusAlmostOver:
			summary.AlmostOver++
		case BudgetStatusOver:
			summary.Over++
		}
	}
	summary.TotalLimit = money.Sum(limits...)
	summary.TotalSpent = money.Sum(spent...)

	return &BudgetList{Items: views, Summary: summary}, nil
}

// buildViews joins each budget with its spend and the previous period's row
// and spend. Without a previous row the stored accumulated carryover stands in
// for the previous limit.
func (s *budgetService) buildViews(userID string, p period.Period, budgets []models.Budget) ([]BudgetView, error) {
	views := make([]BudgetView, 0, len(budgets))
	if len(budgets) == 0 {
		return views, nil
	}

	startDay, err := s.startDay(userID)
	if err != nil {
		return nil, err
	}

	start, end := period.Range(p, startDay)
	spent, err := spentByCategory(s.db, userID, start, end)
	if err != nil {
		return nil, err
	}

	prevStart, prevEnd := period.Range(p.Prev(), startDay)
	prevSpent, err := spentByCategory(s.db, userID, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	var prevRows []models.Budget
	if err := s.db.Where("user_id = ? AND period = ?", userID, p.Prev().FirstDay()).
		Find(&prevRows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	prevByCategory := make(map[string]models.Budget, len(prevRows))
	for _, row := range prevRows {
		prevByCategory[row.CategoryID] = row
	}

	for _, b := range budgets {
		prevLimit, prevSpend := b.AccumulatedCarryover, decimal.Zero
		if prev, ok := prevByCategory[b.CategoryID]; ok {
			prevLimit = prev.Amount.Add(prev.AccumulatedCarryover)
			prevSpend = amountOrZero(prevSpent, b.CategoryID)
		}

		limit := EffectiveLimit(b.Amount, b.Carryover, prevLimit, prevSpend)
		spend := amountOrZero(spent, b.CategoryID)
		remaining, ratio := BudgetProgress(limit, spend)

		views = append(views, BudgetView{
			Budget:          b,
			PeriodLabel:     p.String(),
			CarryoverAmount: limit.Sub(b.Amount),
			EffectiveLimit:  limit,
			Spent:           spend,
			Remaining:       remaining,
			Progress:        ratio.InexactFloat64(),
			Status:          budgetStatus(ratio),
		})
	}
	return views, nil
}

// CopyFromPreviousPeriod copies every budget of the previous period into
// target, overwriting rows that already exist there. Carried amounts are
// floored at zero. It returns the number of rows written.
func (s *budgetService) CopyFromPreviousPeriod(userID string, target period.Period) (int, error) {
	if target.IsZero() {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "period is required")
	}

	startDay, err := s.startDay(userID)
	if err != nil {
		return 0, err
	}
	source := target.Prev()

	count := 0
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var sources []models.Budget
		if err := tx.Where("user_id = ? AND period = ?", userID, source.FirstDay()).
			Find(&sources).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(sources) == 0 {
			return nil
		}

		start, end := period.Range(source, startDay)
		spent, err := spentByCategory(tx, userID, start, end)
		if err != nil {
			return err
		}

		for _, src := range sources {
			accumulated := decimal.Zero
			if src.Carryover {
				accumulated = carriedAmount(budgetFigures{
					amount:      src.Amount,
					accumulated: src.AccumulatedCarryover,
					spent:       amountOrZero(spent, src.CategoryID),
				})
			}

			var existing models.Budget
			err := forUpdate(tx).
				Where("user_id = ? AND category_id = ? AND period = ?", userID, src.CategoryID, target.FirstDay()).
				First(&existing).Error
			switch {
			case err == nil:
				if err := tx.Model(&existing).Omit(clause.Associations).Updates(map[string]interface{}{
					"amount":                src.Amount,
					"carryover":             src.Carryover,
					"accumulated_carryover": accumulated,
				}).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				row := &models.Budget{
					UserID:               userID,
					CategoryID:           src.CategoryID,
					Period:               target.FirstDay(),
					Amount:               src.Amount,
					Carryover:            src.Carryover,
					AccumulatedCarryover: accumulated,
				}
				if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			default:
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Named("budgets").Infow("copied budgets from previous period",
		"user_id", userID,
		"source", source.String(),
		"target", target.String(),
		"count", count,
	)
	return count, nil
}

// CurrentPeriod is the period label containing today for the user's start day.
func (s *budgetService) CurrentPeriod(userID string) (period.Period, error) {
	startDay, err := s.startDay(userID)
	if err != nil {
		return period.Period{}, err
	}
	return period.Current(s.clock.Now(), startDay), nil
}

func (s *budgetService) startDay(userID string) (int, error) {
	var user models.User
	if err := s.db.Select("id", "period_start_day").Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.ErrUserNotFound
		}
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !period.ValidStartDay(user.PeriodStartDay) {
		return 1, nil
	}
	return user.PeriodStartDay, nil
}

type categorySpend struct {
	CategoryID string
	Total      decimal.Decimal
}

// spentByCategory sums expense amounts per category with occurred_at in [start, end).
func spentByCategory(db *gorm.DB, userID string, start, end time.Time) (map[string]decimal.Decimal, error) {
	var rows []categorySpend
	if err := db.Model(&models.Transaction{}).
		Select("category_id, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND type = ? AND category_id IS NOT NULL AND occurred_at >= ? AND occurred_at < ?",
			userID, models.TransactionTypeExpense, start, end).
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	totals := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		totals[r.CategoryID] = money.Round(r.Total)
	}
	return totals, nil
}

func amountOrZero(m map[string]decimal.Decimal, key string) decimal.Decimal {
	if v, ok := m[key]; ok {
		return v
	}
	return decimal.Zero
}

func validBudgetAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be negative")
	}
	if !amount.Equal(money.Round(amount)) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must have at most 2 decimal places")
	}
	return nil
}
