package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/period"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	UpdateSettings(userID string, periodStartDay int) (*models.User, error)
}

// AccountInput holds the fields for creating an account.
type AccountInput struct {
	Name           string
	Type           models.AccountType
	Currency       string
	InitialBalance decimal.Decimal
}

// AccountUpdateFields holds optional fields for updating an account.
// Nil pointer fields are not updated.
type AccountUpdateFields struct {
	Name     *string
	Archived *bool
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID string, in AccountInput) (*models.Account, error)
	GetUserAccounts(userID string, includeArchived bool, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error)
	DeleteAccount(userID, accountID string) error
	ApplyBalanceDelta(tx *gorm.DB, accountID string, delta decimal.Decimal) error
}

// CategoryInput holds the fields for creating a category.
type CategoryInput struct {
	Name  string
	Kind  models.CategoryKind
	Color string
	Icon  string
}

// CategoryUpdateFields holds optional fields for updating a category.
type CategoryUpdateFields struct {
	Name     *string
	Color    *string
	Icon     *string
	Archived *bool
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID string, in CategoryInput) (*models.Category, error)
	GetUserCategories(userID string, kind *models.CategoryKind, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID string, fields CategoryUpdateFields) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionInput holds the fields for creating a transaction. ToAccountID is
// required for, and only accepted with, TransactionTypeTransfer. ClientID makes
// the create idempotent.
type TransactionInput struct {
	AccountID   string
	CategoryID  *string
	Type        models.TransactionType
	Amount      decimal.Decimal
	OccurredAt  time.Time
	Note        string
	ToAccountID *string
	ClientID    *string
}

// TransactionUpdate holds the editable fields of a transaction.
type TransactionUpdate struct {
	Amount     *decimal.Decimal
	OccurredAt *time.Time
	Note       *string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	AccountID  *string
	Cleared    *bool
}

// TransactionServicer is the account ledger: every transaction mutation goes
// through it together with its balance effect.
type TransactionServicer interface {
	CreateTransaction(userID string, in TransactionInput) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, fields TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	UpdateTransactionStatus(userID, transactionID string, cleared, reconciled *bool) (*models.Transaction, error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
}

// TransferInput holds the fields for creating a transfer between two accounts.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	OccurredAt    time.Time
	Note          string
}

// Transfer is the pair of transaction rows sharing one transfer group id.
type Transfer struct {
	GroupID string             `json:"transfer_group_id"`
	Out     models.Transaction `json:"out"`
	In      models.Transaction `json:"in"`
}

// TransferServicer creates transfer pairs. Edits and deletes of either leg go
// through TransactionServicer, which treats the pair as a unit.
type TransferServicer interface {
	CreateTransfer(userID string, in TransferInput) (*Transfer, error)
	CreateTransferTx(tx *gorm.DB, userID string, in TransferInput) (*Transfer, error)
	GetTransfer(userID, groupID string) (*Transfer, error)
}

// BudgetInput holds the fields for creating a budget.
type BudgetInput struct {
	CategoryID string
	Period     period.Period
	Amount     decimal.Decimal
	Carryover  bool
}

// BudgetUpdateFields holds optional fields for updating a budget.
type BudgetUpdateFields struct {
	Amount    *decimal.Decimal
	Carryover *bool
}

// BudgetStatus labels a budget's progress.
type BudgetStatus string

const (
	BudgetStatusOK         BudgetStatus = "ok"
	BudgetStatusAlmostOver BudgetStatus = "almost_over"
	BudgetStatusOver       BudgetStatus = "over"
)

// BudgetView is a budget row with its live figures for the period.
type BudgetView struct {
	models.Budget
	PeriodLabel     string          `json:"period_label"`
	CarryoverAmount decimal.Decimal `json:"carryover_amount"`
	EffectiveLimit  decimal.Decimal `json:"effective_limit"`
	Spent           decimal.Decimal `json:"spent"`
	Remaining       decimal.Decimal `json:"remaining"`
	Progress        float64         `json:"progress"`
	Status          BudgetStatus    `json:"status"`
}

// BudgetSummary aggregates the views of one period.
type BudgetSummary struct {
	Period     string          `json:"period"`
	TotalLimit decimal.Decimal `json:"total_limit"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	AlmostOver int             `json:"almost_over"`
	Over       int             `json:"over"`
}

// BudgetList is the result of listing budgets for a period.
type BudgetList struct {
	Items   []BudgetView  `json:"items"`
	Summary BudgetSummary `json:"summary"`
}

// BudgetServicer defines the contract for the budget engine.
type BudgetServicer interface {
	CreateBudget(userID string, in BudgetInput) (*models.Budget, error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, fields BudgetUpdateFields) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetProgress(userID, budgetID string) (*BudgetView, error)
	ListForPeriod(userID string, p period.Period) (*BudgetList, error)
	CopyFromPreviousPeriod(userID string, target period.Period) (int, error)
	CurrentPeriod(userID string) (period.Period, error)
}

// GoalInput holds the fields for creating a goal.
type GoalInput struct {
	Name         string
	TargetAmount decimal.Decimal
	TargetDate   *time.Time
	StartAmount  decimal.Decimal
	AccountID    *string
	Color        string
	Icon         string
}

// GoalUpdateFields holds optional fields for updating a goal.
type GoalUpdateFields struct {
	Name         *string
	TargetAmount *decimal.Decimal
	TargetDate   *time.Time
	StartAmount  *decimal.Decimal
	AccountID    *string
	Color        *string
	Icon         *string
	Archived     *bool
}

// GoalStatus classifies a goal's progress.
type GoalStatus string

const (
	GoalStatusCompleted   GoalStatus = "completed"
	GoalStatusOverdue     GoalStatus = "overdue"
	GoalStatusAlmostThere GoalStatus = "almost_there"
	GoalStatusOnTrack     GoalStatus = "on_track"
	GoalStatusNotStarted  GoalStatus = "not_started"
)

// GoalView is a goal with its aggregated contribution figures.
type GoalView struct {
	models.Goal
	Saved     decimal.Decimal `json:"saved"`
	Remaining decimal.Decimal `json:"remaining"`
	Progress  float64         `json:"progress"`
	Status    GoalStatus      `json:"status"`
}

// ContributionType is the direction of a goal contribution.
type ContributionType string

const (
	ContributionDeposit  ContributionType = "deposit"
	ContributionWithdraw ContributionType = "withdraw"
)

// ContributionInput holds the fields for adding a goal contribution.
// TargetAccountID overrides the goal's linked account. LinkTransactionID links
// an existing transaction instead of creating a transfer.
type ContributionInput struct {
	Type              ContributionType
	Amount            decimal.Decimal
	AccountID         string
	TargetAccountID   *string
	LinkTransactionID *string
	OccurredAt        time.Time
	Note              string
}

// ContributionUpdate holds the editable fields of a contribution. Amount is
// signed: positive for deposits, negative for withdrawals.
type ContributionUpdate struct {
	Amount     *decimal.Decimal
	OccurredAt *time.Time
	Note       *string
}

// GoalServicer defines the contract for goal accounting.
type GoalServicer interface {
	CreateGoal(userID string, in GoalInput) (*GoalView, error)
	GetUserGoals(userID string, status *GoalStatus, includeArchived bool) ([]GoalView, error)
	GetGoal(userID, goalID string) (*GoalView, error)
	UpdateGoal(userID, goalID string, fields GoalUpdateFields) (*GoalView, error)
	DeleteGoal(userID, goalID string) error
	AddContribution(userID, goalID string, in ContributionInput) (*models.GoalContribution, error)
	ListContributions(userID, goalID string) ([]models.GoalContribution, error)
	UpdateContribution(userID, contributionID string, fields ContributionUpdate) (*models.GoalContribution, error)
	DeleteContribution(userID, contributionID string) error
}

// StatementRow is one line of an imported bank statement. Amount is signed:
// positive for money in, negative for money out.
type StatementRow struct {
	AccountID   string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// ImportResult reports the outcome of a statement import.
type ImportResult struct {
	Matched               int      `json:"matched"`
	Unmatched             int      `json:"unmatched"`
	MatchedTransactionIDs []string `json:"matched_transaction_ids"`
}

// ReconciliationServicer matches statement rows against uncleared transactions.
type ReconciliationServicer interface {
	Import(userID string, rows []StatementRow, tolerance decimal.Decimal) (*ImportResult, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
