package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"moneta/internal/clock"
	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/money"
)

// goalService handles savings goals and their contributions.
type goalService struct {
	db              *gorm.DB
	transferService TransferServicer
	clock           clock.Clock
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB, transferService TransferServicer, clk clock.Clock) GoalServicer {
	return &goalService{
		db:              db,
		transferService: transferService,
		clock:           clk,
	}
}

// CreateGoal creates a new savings goal.
func (s *goalService) CreateGoal(userID string, in GoalInput) (*GoalView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
	}
	if in.TargetAmount.IsNegative() || in.StartAmount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amounts must not be negative")
	}
	if in.AccountID != nil {
		if _, err := findOwnedAccount(s.db, userID, *in.AccountID); err != nil {
			return nil, err
		}
	}

	goal := &models.Goal{
		UserID:       userID,
		Name:         name,
		TargetAmount: money.Round(in.TargetAmount),
		StartAmount:  money.Round(in.StartAmount),
		AccountID:    in.AccountID,
		Color:        in.Color,
		Icon:         in.Icon,
	}
	if in.TargetDate != nil {
		d := dateOnly(*in.TargetDate)
		goal.TargetDate = &d
	}

	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	view := s.view(*goal, decimal.Zero)
	return &view, nil
}

// GetUserGoals lists a user's goals with their figures, optionally filtered
// by status.
func (s *goalService) GetUserGoals(userID string, status *GoalStatus, includeArchived bool) ([]GoalView, error) {
	q := s.db.Where("user_id = ?", userID)
	if !includeArchived {
		q = q.Where("archived = ?", false)
	}

	var goals []models.Goal
	if err := q.Order("created_at ASC").Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	totals, err := contributedByGoal(s.db, userID)
	if err != nil {
		return nil, err
	}

	views := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		v := s.view(g, amountOrZero(totals, g.ID))
		if status != nil && v.Status != *status {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

// GetGoal returns one goal with its figures.
func (s *goalService) GetGoal(userID, goalID string) (*GoalView, error) {
	goal, err := findOwnedGoal(s.db, userID, goalID)
	if err != nil {
		return nil, err
	}

	var row struct{ Total decimal.Decimal }
	if err := s.db.Model(&models.GoalContribution{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("goal_id = ?", goal.ID).
		Scan(&row).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	view := s.view(*goal, row.Total)
	return &view, nil
}

// UpdateGoal updates a goal's fields. An empty AccountID unlinks the account.
func (s *goalService) UpdateGoal(userID, goalID string, fields GoalUpdateFields) (*GoalView, error) {
	goal, err := findOwnedGoal(s.db, userID, goalID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
		}
		updates["name"] = name
	}
	if fields.TargetAmount != nil {
		if fields.TargetAmount.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must not be negative")
		}
		updates["target_amount"] = money.Round(*fields.TargetAmount)
	}
	if fields.StartAmount != nil {
		if fields.StartAmount.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start amount must not be negative")
		}
		updates["start_amount"] = money.Round(*fields.StartAmount)
	}
	if fields.TargetDate != nil {
		updates["target_date"] = dateOnly(*fields.TargetDate)
	}
	if fields.AccountID != nil {
		if *fields.AccountID == "" {
			updates["account_id"] = nil
		} else {
			if _, err := findOwnedAccount(s.db, userID, *fields.AccountID); err != nil {
				return nil, err
			}
			updates["account_id"] = *fields.AccountID
		}
	}
	if fields.Color != nil {
		updates["color"] = *fields.Color
	}
	if fields.Icon != nil {
		updates["icon"] = *fields.Icon
	}
	if fields.Archived != nil {
		updates["archived"] = *fields.Archived
	}

	if len(updates) > 0 {
		if err := s.db.Model(goal).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return s.GetGoal(userID, goalID)
}

// DeleteGoal removes a goal and its contributions. Linked transactions stay.
func (s *goalService) DeleteGoal(userID, goalID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		goal, err := findOwnedGoal(tx, userID, goalID)
		if err != nil {
			return err
		}
		if err := tx.Where("goal_id = ?", goal.ID).Delete(&models.GoalContribution{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(goal).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// AddContribution records a deposit into or withdrawal from a goal. Unless an
// existing transaction is linked, money moving between two different accounts
// is backed by a transfer created in the same database transaction.
func (s *goalService) AddContribution(userID, goalID string, in ContributionInput) (*models.GoalContribution, error) {
	if in.Type != ContributionDeposit && in.Type != ContributionWithdraw {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "contribution type must be deposit or withdraw")
	}
	if err := validAmount(in.Amount); err != nil {
		return nil, err
	}

	occurredAt := clock.Today(s.clock)
	if !in.OccurredAt.IsZero() {
		occurredAt = dateOnly(in.OccurredAt)
	}

	signed := in.Amount
	if in.Type == ContributionWithdraw {
		signed = in.Amount.Neg()
	}

	var result *models.GoalContribution
	err := s.db.Transaction(func(tx *gorm.DB) error {
		goal, err := findOwnedGoal(tx, userID, goalID)
		if err != nil {
			return err
		}

		destination := goal.AccountID
		if in.TargetAccountID != nil && *in.TargetAccountID != "" {
			destination = in.TargetAccountID
		}
		if destination == nil || *destination == "" {
			return apperrors.ErrNoDestinationAccount
		}

		contribution := &models.GoalContribution{
			GoalID:     goal.ID,
			UserID:     userID,
			Amount:     signed,
			OccurredAt: occurredAt,
			Note:       in.Note,
		}

		switch {
		case in.LinkTransactionID != nil && *in.LinkTransactionID != "":
			linked, err := findOwnedTransaction(tx, userID, *in.LinkTransactionID)
			if err != nil {
				return err
			}
			contribution.TransactionID = &linked.ID
		default:
			if in.AccountID == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "account ID is required")
			}
			if _, err := findOwnedAccount(tx, userID, in.AccountID); err != nil {
				return err
			}
			if _, err := findOwnedAccount(tx, userID, *destination); err != nil {
				return err
			}
			if in.AccountID == *destination {
				break
			}

			transfer := TransferInput{
				FromAccountID: in.AccountID,
				ToAccountID:   *destination,
				Amount:        in.Amount,
				OccurredAt:    occurredAt,
				Note:          contributionNote(goal.Name, in.Note),
			}
			if in.Type == ContributionWithdraw {
				transfer.FromAccountID, transfer.ToAccountID = *destination, in.AccountID
			}
			created, err := s.transferService.CreateTransferTx(tx, userID, transfer)
			if err != nil {
				return err
			}
			contribution.TransactionID = &created.Out.ID
		}

		if err := tx.Create(contribution).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		result = contribution
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListContributions returns a goal's contributions, newest first.
func (s *goalService) ListContributions(userID, goalID string) ([]models.GoalContribution, error) {
	goal, err := findOwnedGoal(s.db, userID, goalID)
	if err != nil {
		return nil, err
	}

	var contributions []models.GoalContribution
	if err := s.db.Where("goal_id = ?", goal.ID).
		Order("occurred_at DESC, created_at DESC").
		Find(&contributions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return contributions, nil
}

// UpdateContribution edits a contribution row only. A linked transaction is
// left as it is.
func (s *goalService) UpdateContribution(userID, contributionID string, fields ContributionUpdate) (*models.GoalContribution, error) {
	contribution, err := findOwnedContribution(s.db, userID, contributionID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Amount != nil {
		if fields.Amount.IsZero() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be zero")
		}
		if !fields.Amount.Equal(money.Round(*fields.Amount)) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must have at most 2 decimal places")
		}
		updates["amount"] = *fields.Amount
	}
	if fields.OccurredAt != nil {
		updates["occurred_at"] = dateOnly(*fields.OccurredAt)
	}
	if fields.Note != nil {
		updates["note"] = *fields.Note
	}

	if len(updates) > 0 {
		if err := s.db.Model(contribution).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return findOwnedContribution(s.db, userID, contributionID)
}

// DeleteContribution removes a contribution row only.
func (s *goalService) DeleteContribution(userID, contributionID string) error {
	contribution, err := findOwnedContribution(s.db, userID, contributionID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(contribution).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *goalService) view(goal models.Goal, contributed decimal.Decimal) GoalView {
	saved, remaining, progress := GoalFigures(goal.StartAmount, goal.TargetAmount, contributed)
	return GoalView{
		Goal:      goal,
		Saved:     saved,
		Remaining: remaining,
		Progress:  progress.InexactFloat64(),
		Status:    ClassifyGoal(progress, goal.TargetDate, clock.Today(s.clock)),
	}
}

func contributionNote(goalName, note string) string {
	if note == "" {
		return "Goal: " + goalName
	}
	return "Goal: " + goalName + " | " + note
}

type goalTotal struct {
	GoalID string
	Total  decimal.Decimal
}

func contributedByGoal(db *gorm.DB, userID string) (map[string]decimal.Decimal, error) {
	var rows []goalTotal
	if err := db.Model(&models.GoalContribution{}).
		Select("goal_id, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ?", userID).
		Group("goal_id").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	totals := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		totals[r.GoalID] = r.Total
	}
	return totals, nil
}

func findOwnedGoal(db *gorm.DB, userID, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

func findOwnedContribution(db *gorm.DB, userID, contributionID string) (*models.GoalContribution, error) {
	var contribution models.GoalContribution
	if err := db.Where("id = ? AND user_id = ?", contributionID, userID).First(&contribution).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrContributionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &contribution, nil
}
