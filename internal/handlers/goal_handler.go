package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"moneta/internal/services"
)

// GoalHandler handles savings goals and their contributions.
type GoalHandler struct {
	goalService  services.GoalServicer
	auditService services.AuditServicer
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService services.GoalServicer, auditService services.AuditServicer) *GoalHandler {
	return &GoalHandler{goalService: goalService, auditService: auditService}
}

// CreateGoalRequest represents the request payload for creating a goal.
type CreateGoalRequest struct {
	Name         string          `json:"name" binding:"required,min=1,max=100"`
	TargetAmount decimal.Decimal `json:"target_amount" swaggertype:"string" example:"200000"`
	TargetDate   *string         `json:"target_date" example:"2024-12-31"`
	StartAmount  decimal.Decimal `json:"start_amount" swaggertype:"string" example:"0"`
	AccountID    *string         `json:"account_id" binding:"omitempty,uuid"`
	Color        string          `json:"color" binding:"omitempty,hex_color"`
	Icon         string          `json:"icon" binding:"max=50"`
}

// UpdateGoalRequest represents the request payload for updating a goal. An
// empty account_id unlinks the goal's account.
type UpdateGoalRequest struct {
	Name         *string          `json:"name" binding:"omitempty,min=1,max=100"`
	TargetAmount *decimal.Decimal `json:"target_amount" swaggertype:"string"`
	TargetDate   *string          `json:"target_date"`
	StartAmount  *decimal.Decimal `json:"start_amount" swaggertype:"string"`
	AccountID    *string          `json:"account_id" binding:"omitempty,uuid|len=0"`
	Color        *string          `json:"color" binding:"omitempty,hex_color"`
	Icon         *string          `json:"icon" binding:"omitempty,max=50"`
	Archived     *bool            `json:"archived"`
}

// ListGoalsQuery holds the query parameters of the goal listing.
type ListGoalsQuery struct {
	Status          string `form:"status" binding:"omitempty,oneof=completed overdue almost_there on_track not_started"`
	IncludeArchived bool   `form:"include_archived"`
}

// AddContributionRequest represents a deposit into or withdrawal from a goal.
type AddContributionRequest struct {
	Type              string          `json:"type" binding:"required,contribution_type"`
	Amount            decimal.Decimal `json:"amount" swaggertype:"string" example:"50000"`
	AccountID         string          `json:"account_id" binding:"omitempty,uuid"`
	TargetAccountID   *string         `json:"target_account_id" binding:"omitempty,uuid"`
	LinkTransactionID *string         `json:"link_transaction_id" binding:"omitempty,uuid"`
	OccurredAt        *string         `json:"occurred_at" example:"2024-03-10"`
	Note              string          `json:"note" binding:"max=500"`
}

// UpdateContributionRequest edits a contribution row. Amount is signed.
type UpdateContributionRequest struct {
	Amount     *decimal.Decimal `json:"amount" swaggertype:"string"`
	OccurredAt *string          `json:"occurred_at"`
	Note       *string          `json:"note" binding:"omitempty,max=500"`
}

// CreateGoal handles the creation of a goal.
// @Summary     Create a goal
// @Description Create a savings goal, optionally linked to a destination account
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGoalRequest true "Goal details"
// @Success     201 {object} services.GoalView "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [post]
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	targetDate, err := parseOptionalDate("target_date", req.TargetDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.CreateGoal(userID, services.GoalInput{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		TargetDate:   targetDate,
		StartAmount:  req.StartAmount,
		AccountID:    req.AccountID,
		Color:        req.Color,
		Icon:         req.Icon,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_GOAL", "goal", goal.ID, c.ClientIP(),
		map[string]interface{}{"name": goal.Name, "target_amount": goal.TargetAmount.String()})

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// GetGoals handles listing goals.
// @Summary     List goals
// @Description Goals with saved amount, progress and status
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       status           query string false "completed, overdue, almost_there, on_track or not_started"
// @Param       include_archived query bool   false "Include archived goals"
// @Success     200 {array}  services.GoalView "Goals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [get]
func (h *GoalHandler) GetGoals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query ListGoalsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	var status *services.GoalStatus
	if query.Status != "" {
		s := services.GoalStatus(query.Status)
		status = &s
	}

	goals, err := h.goalService.GetUserGoals(userID, status, query.IncludeArchived)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// GetGoal handles the retrieval of a goal.
// @Summary     Get goal
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} services.GoalView "Goal"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [get]
func (h *GoalHandler) GetGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.GetGoal(userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// UpdateGoal handles updating a goal.
// @Summary     Update goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Goal ID"
// @Param       request body UpdateGoalRequest true "Updated goal details"
// @Success     200 {object} services.GoalView "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [put]
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	targetDate, err := parseOptionalDate("target_date", req.TargetDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.UpdateGoal(userID, goalID, services.GoalUpdateFields{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		TargetDate:   targetDate,
		StartAmount:  req.StartAmount,
		AccountID:    req.AccountID,
		Color:        req.Color,
		Icon:         req.Icon,
		Archived:     req.Archived,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// DeleteGoal handles deleting a goal.
// @Summary     Delete goal
// @Description Delete a goal and its contributions. Linked transactions are kept.
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} map[string]string "Goal deleted"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [delete]
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteGoal(userID, goalID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully"})
}

// AddContribution handles depositing into or withdrawing from a goal.
// @Summary     Add goal contribution
// @Description Record a deposit or withdrawal. Unless a transaction is linked, money moving between two accounts is booked as a transfer in the same unit of work.
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Goal ID"
// @Param       request body AddContributionRequest true "Contribution details"
// @Success     201 {object} models.GoalContribution "Contribution recorded"
// @Failure     400 {object} ErrorResponse "Invalid input or no destination account"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal or account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id}/contributions [post]
func (h *GoalHandler) AddContribution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	occurredAt, err := parseOptionalDate("occurred_at", req.OccurredAt)
	if err != nil {
		respondWithError(c, err)
		return
	}

	in := services.ContributionInput{
		Type:              services.ContributionType(req.Type),
		Amount:            req.Amount,
		AccountID:         req.AccountID,
		TargetAccountID:   req.TargetAccountID,
		LinkTransactionID: req.LinkTransactionID,
		Note:              req.Note,
	}
	if occurredAt != nil {
		in.OccurredAt = *occurredAt
	}

	contribution, err := h.goalService.AddContribution(userID, goalID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ADD_GOAL_CONTRIBUTION", "goal_contribution", contribution.ID, c.ClientIP(),
		map[string]interface{}{"goal_id": goalID, "amount": contribution.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"contribution": contribution})
}

// ListContributions handles listing a goal's contributions.
// @Summary     List goal contributions
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {array}  models.GoalContribution "Contributions, newest first"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id}/contributions [get]
func (h *GoalHandler) ListContributions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	contributions, err := h.goalService.ListContributions(userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contributions": contributions})
}

// UpdateContribution handles editing a contribution.
// @Summary     Update goal contribution
// @Description Edit the contribution row only; a linked transaction is not changed
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                    true "Contribution ID"
// @Param       request body UpdateContributionRequest true "Fields to change"
// @Success     200 {object} models.GoalContribution "Updated contribution"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Contribution not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contributions/{id} [put]
func (h *GoalHandler) UpdateContribution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	contributionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	occurredAt, err := parseOptionalDate("occurred_at", req.OccurredAt)
	if err != nil {
		respondWithError(c, err)
		return
	}

	contribution, err := h.goalService.UpdateContribution(userID, contributionID, services.ContributionUpdate{
		Amount:     req.Amount,
		OccurredAt: occurredAt,
		Note:       req.Note,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_GOAL_CONTRIBUTION", "goal_contribution", contributionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"contribution": contribution})
}

// DeleteContribution handles deleting a contribution.
// @Summary     Delete goal contribution
// @Description Delete the contribution row only; a linked transaction is kept
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Contribution ID"
// @Success     200 {object} map[string]string "Contribution deleted"
// @Failure     400 {object} ErrorResponse "Invalid contribution ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Contribution not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /contributions/{id} [delete]
func (h *GoalHandler) DeleteContribution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	contributionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteContribution(userID, contributionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_GOAL_CONTRIBUTION", "goal_contribution", contributionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Contribution deleted successfully"})
}
