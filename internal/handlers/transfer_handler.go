package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"moneta/internal/services"
)

// TransferHandler handles transfer-pair requests.
type TransferHandler struct {
	transferService services.TransferServicer
	auditService    services.AuditServicer
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferService services.TransferServicer, auditService services.AuditServicer) *TransferHandler {
	return &TransferHandler{transferService: transferService, auditService: auditService}
}

// CreateTransferRequest represents the request payload for moving money
// between two of the user's accounts.
type CreateTransferRequest struct {
	FromAccountID string          `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string          `json:"to_account_id" binding:"required,uuid"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string" example:"250.00"`
	OccurredAt    *string         `json:"occurred_at" example:"2024-03-10"`
	Note          string          `json:"note" binding:"max=500"`
}

// CreateTransfer handles creating a transfer pair
// @Summary     Create a transfer
// @Description Create an outgoing and an incoming leg sharing one transfer group id. Both legs and both balance changes commit together.
// @Tags        transfers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransferRequest true "Transfer details"
// @Success     201 {object} services.Transfer "Transfer created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transfers [post]
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	occurredAt, err := parseOptionalDate("occurred_at", req.OccurredAt)
	if err != nil {
		respondWithError(c, err)
		return
	}

	in := services.TransferInput{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Note:          req.Note,
	}
	if occurredAt != nil {
		in.OccurredAt = *occurredAt
	}

	transfer, err := h.transferService.CreateTransfer(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSFER", "transfer", transfer.GroupID, c.ClientIP(),
		map[string]interface{}{"from": req.FromAccountID, "to": req.ToAccountID, "amount": req.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"transfer": transfer})
}

// GetTransfer handles looking up both legs of a transfer
// @Summary     Get a transfer
// @Description Get both legs of a transfer by its group id
// @Tags        transfers
// @Produce     json
// @Security    BearerAuth
// @Param       group_id path string true "Transfer group ID"
// @Success     200 {object} services.Transfer "Transfer"
// @Failure     400 {object} ErrorResponse "Invalid group ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transfer not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transfers/{group_id} [get]
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "group_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transfer, err := h.transferService.GetTransfer(userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transfer": transfer})
}
