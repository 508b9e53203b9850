package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "moneta/internal/errors"
	"moneta/internal/money"
	"moneta/internal/services"
	"moneta/internal/uuid"
)

// maxStatementRows bounds one import request.
const maxStatementRows = 5000

// ReconciliationHandler handles bank statement imports.
type ReconciliationHandler struct {
	reconciliationService services.ReconciliationServicer
	auditService          services.AuditServicer
	defaultTolerance      decimal.Decimal
}

// NewReconciliationHandler creates a new ReconciliationHandler. The tolerance
// is used when a request does not send one.
func NewReconciliationHandler(reconciliationService services.ReconciliationServicer, auditService services.AuditServicer, defaultTolerance decimal.Decimal) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		auditService:          auditService,
		defaultTolerance:      defaultTolerance,
	}
}

// StatementRowRequest is one statement line. Negative amounts are money out.
type StatementRowRequest struct {
	AccountID   string          `json:"account_id" binding:"required,uuid"`
	Date        string          `json:"date" binding:"required" example:"2024-03-10"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"-150000"`
	Description string          `json:"description" binding:"max=500"`
}

// ImportStatementRequest represents a JSON statement import.
type ImportStatementRequest struct {
	Tolerance *decimal.Decimal      `json:"tolerance" swaggertype:"string" example:"0"`
	Rows      []StatementRowRequest `json:"rows" binding:"required,max=5000,dive"`
}

// ImportStatementQuery holds the query parameters of a CSV import.
type ImportStatementQuery struct {
	AccountID string `form:"account_id" binding:"omitempty,uuid"`
	Tolerance string `form:"tolerance"`
}

// ImportStatement handles statement imports.
// @Summary     Import a bank statement
// @Description Match statement rows to uncleared transactions within one day and the amount tolerance. Send JSON, or text/csv with a header row of date,amount,description and optionally account_id (otherwise the account_id query parameter applies to every row).
// @Tags        reconciliation
// @Accept      json
// @Accept      text/csv
// @Produce     json
// @Security    BearerAuth
// @Param       request    body  ImportStatementRequest false "Statement rows (JSON)"
// @Param       account_id query string                 false "Account for CSV rows without an account_id column"
// @Param       tolerance  query string                 false "Amount tolerance for CSV imports"
// @Success     200 {object} services.ImportResult "Import outcome"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reconciliation/import [post]
func (h *ReconciliationHandler) ImportStatement(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var (
		rows      []services.StatementRow
		tolerance decimal.Decimal
	)
	if strings.HasPrefix(c.ContentType(), "text/csv") {
		rows, tolerance, err = h.bindCSV(c)
	} else {
		rows, tolerance, err = h.bindJSON(c)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.reconciliationService.Import(userID, rows, tolerance)
	if err != nil {
		if result != nil && result.Matched > 0 {
			h.auditService.Log(userID, "IMPORT_STATEMENT_PARTIAL", "reconciliation", "", c.ClientIP(),
				map[string]interface{}{"rows": len(rows), "matched": result.Matched})
		}
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "IMPORT_STATEMENT", "reconciliation", "", c.ClientIP(),
		map[string]interface{}{"rows": len(rows), "matched": result.Matched, "unmatched": result.Unmatched})

	c.JSON(http.StatusOK, result)
}

func (h *ReconciliationHandler) bindJSON(c *gin.Context) ([]services.StatementRow, decimal.Decimal, error) {
	var req ImportStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, decimal.Zero, invalidInput(err)
	}

	tolerance := h.defaultTolerance
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
	}

	rows := make([]services.StatementRow, 0, len(req.Rows))
	for i, r := range req.Rows {
		date, err := parseDate(fmt.Sprintf("rows[%d].date", i), r.Date)
		if err != nil {
			return nil, decimal.Zero, err
		}
		rows = append(rows, services.StatementRow{
			AccountID:   r.AccountID,
			Date:        date,
			Amount:      r.Amount,
			Description: r.Description,
		})
	}
	return rows, tolerance, nil
}

func (h *ReconciliationHandler) bindCSV(c *gin.Context) ([]services.StatementRow, decimal.Decimal, error) {
	var query ImportStatementQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return nil, decimal.Zero, invalidInput(err)
	}

	tolerance := h.defaultTolerance
	if query.Tolerance != "" {
		t, err := money.Parse(query.Tolerance)
		if err != nil {
			return nil, decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid tolerance")
		}
		tolerance = t
	}

	rows, err := parseStatementCSV(c.Request.Body, query.AccountID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return rows, tolerance, nil
}

// parseStatementCSV reads a header row naming date, amount and description
// (and optionally account_id) in any order, followed by data rows.
func parseStatementCSV(r io.Reader, defaultAccountID string) ([]services.StatementRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "statement is empty")
		}
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "malformed CSV: "+err.Error())
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "amount"} {
		if _, ok := columns[required]; !ok {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "missing CSV column: "+required)
		}
	}
	accountCol, hasAccountCol := columns["account_id"]
	if !hasAccountCol && defaultAccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account_id column or query parameter is required")
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []services.StatementRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "malformed CSV: "+err.Error())
		}
		if len(rows) == maxStatementRows {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("statement exceeds %d rows", maxStatementRows))
		}

		date, err := parseDate(fmt.Sprintf("date on line %d", line), field(record, "date"))
		if err != nil {
			return nil, err
		}
		amount, err := money.Parse(field(record, "amount"))
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("line %d: %v", line, err))
		}

		accountID := defaultAccountID
		if hasAccountCol && accountCol < len(record) && strings.TrimSpace(record[accountCol]) != "" {
			accountID = strings.TrimSpace(record[accountCol])
		}
		if !uuid.IsValid(accountID) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("line %d: invalid account_id", line))
		}

		rows = append(rows, services.StatementRow{
			AccountID:   accountID,
			Date:        date,
			Amount:      amount,
			Description: field(record, "description"),
		})
	}
	return rows, nil
}
