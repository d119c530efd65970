package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/ledger"
	"ledgerd/internal/migration"
	"ledgerd/internal/models"
	"ledgerd/internal/pagination"
	"ledgerd/internal/services"
	"ledgerd/internal/uuid"
)

// TransactionHandler handles transaction group requests.
type TransactionHandler struct {
	groupService   services.TransactionGroupServicer
	confirmService services.ConfirmationServicer
	fundingService services.FundingServicer
	auditService   services.AuditServicer
	tolerance      ledger.TolerancePolicy
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(
	groupService services.TransactionGroupServicer,
	confirmService services.ConfirmationServicer,
	fundingService services.FundingServicer,
	auditService services.AuditServicer,
	tolerance ledger.TolerancePolicy,
) *TransactionHandler {
	return &TransactionHandler{
		groupService:   groupService,
		confirmService: confirmService,
		fundingService: fundingService,
		auditService:   auditService,
		tolerance:      tolerance,
	}
}

// CreateTransactionRequest represents the request payload for creating a transaction group
type CreateTransactionRequest struct {
	Description          string         `json:"description" binding:"max=500"`
	TransactionDate      *string        `json:"transactionDate"`
	Entries              []EntryRequest `json:"entries" binding:"dive"`
	SourceTransactionID  *string        `json:"sourceTransactionId" binding:"omitempty,uuid"`
	LinkedTransactionIDs []string       `json:"linkedTransactionIds" binding:"omitempty,dive,uuid"`
}

// UpdateTransactionRequest represents the request payload for updating a draft group.
// Omitted fields are left unchanged; entries, when present, replace all entries.
type UpdateTransactionRequest struct {
	Version              *int64         `json:"version" binding:"omitempty,min=1"`
	Description          *string        `json:"description" binding:"omitempty,max=500"`
	TransactionDate      *string        `json:"transactionDate"`
	Entries              []EntryRequest `json:"entries" binding:"omitempty,dive"`
	SourceTransactionID  *string        `json:"sourceTransactionId" binding:"omitempty,len=0|uuid"`
	LinkedTransactionIDs *[]string      `json:"linkedTransactionIds"`
}

// ValidateEntriesRequest represents the request payload for a balance preview.
type ValidateEntriesRequest struct {
	Entries []EntryRequest `json:"entries" binding:"dive"`
}

// CostOfSalesRequest represents the request payload for recording cost of goods sold.
type CostOfSalesRequest struct {
	ProductID          string          `json:"productId" binding:"required,max=100"`
	Quantity           decimal.Decimal `json:"quantity" binding:"required"`
	CogsAccountID      string          `json:"cogsAccountId" binding:"required,uuid"`
	InventoryAccountID string          `json:"inventoryAccountId" binding:"required,uuid"`
	Description        string          `json:"description" binding:"max=500"`
	TransactionDate    *string         `json:"transactionDate"`
	SaleTransactionID  *string         `json:"saleTransactionId" binding:"omitempty,uuid"`
}

// CreateTransaction handles the creation of a new transaction group
// @Summary     Create a transaction group
// @Description Create a balanced draft transaction group. Entries may draw funds from confirmed groups via sourceTransactionId.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction group"
// @Success     201 {object} Envelope{data=TransactionGroupDTO} "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid, unbalanced or overdrawn entries"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account or funding source not found"
// @Failure     409 {object} ErrorResponse "Duplicate group number"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transactionDate, err := optionalDate(req.TransactionDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	entries, err := toEntries(req.Entries)
	if err != nil {
		respondWithError(c, err)
		return
	}

	group, err := h.groupService.CreateTransactionGroup(c.Request.Context(), actor, services.TransactionGroupInput{
		Description:          req.Description,
		TransactionDate:      transactionDate,
		Entries:              entries,
		SourceTransactionID:  uuid.CanonicalPtr(req.SourceTransactionID),
		LinkedTransactionIDs: uuid.CanonicalAll(req.LinkedTransactionIDs),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "CREATE_TRANSACTION", "transaction_group", group.ID, c.ClientIP(),
		map[string]interface{}{"groupNumber": group.GroupNumber, "totalAmount": group.TotalAmount.Decimal()})

	respond(c, http.StatusCreated, "Transaction created", toTransactionGroupDTO(*group, h.tolerance))
}

// GetTransactions handles listing transaction groups
// @Summary     List transaction groups
// @Description List the organization's transaction groups, newest first
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page                query int    false "Page number (default 1)"
// @Param       pageSize            query int    false "Items per page (default 20, max 100)"
// @Param       status              query string false "Filter by status (draft, confirmed, cancelled)"
// @Param       fundingType         query string false "Filter by funding type (original, derived)"
// @Param       fromDate            query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       toDate              query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Param       sourceTransactionId query string false "Filter by primary funding source"
// @Param       groupNumber         query string false "Filter by group number (42 or TG-000042)"
// @Param       search              query string false "Search description"
// @Success     200 {object} Envelope{data=pagination.PageResponse[TransactionGroupDTO]} "Paginated transaction groups"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.groupService.GetTransactionGroups(c.Request.Context(), actor, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Transactions retrieved", pagination.Map(*result, func(g models.TransactionGroup) TransactionGroupDTO {
		return toTransactionGroupDTO(g, h.tolerance)
	}))
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("status"); v != "" {
		status, err := ledger.ParseStatus(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid status, must be draft, confirmed, or cancelled")
		}
		filter.Status = &status
	}

	if v := c.Query("fundingType"); v != "" {
		ft := ledger.FundingType(v)
		switch ft {
		case ledger.FundingOriginal, ledger.FundingDerived:
			filter.FundingType = &ft
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid fundingType, must be original or derived")
		}
	}

	if v := c.Query("fromDate"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid fromDate format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("toDate"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid toDate format, use RFC3339 or YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	if v := c.Query("sourceTransactionId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid sourceTransactionId")
		}
		filter.SourceTransactionID = &id
	}

	if v := c.Query("groupNumber"); v != "" {
		n, err := migration.ParseGroupNumber(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
		}
		filter.GroupNumber = &n
	}

	filter.Search = c.Query("search")
	return filter, nil
}

// GetTransactionByID handles the retrieval of one transaction group
// @Summary     Get transaction group
// @Description Get a transaction group with its computed funding state
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction group ID"
// @Success     200 {object} Envelope{data=TransactionGroupDetailDTO} "Transaction group"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	group, err := h.groupService.GetTransactionGroupByID(c.Request.Context(), actor, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	info, err := h.fundingService.GetFundingInfo(c.Request.Context(), actor, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Transaction retrieved", TransactionGroupDetailDTO{
		TransactionGroupDTO: toTransactionGroupDTO(*group, h.tolerance),
		FundingInfoDTO:      toFundingInfoDTO(*info),
	})
}

// UpdateTransaction handles updating a draft transaction group
// @Summary     Update transaction group
// @Description Update a draft transaction group. Confirmed or cancelled groups cannot be edited.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction group ID"
// @Param       request body UpdateTransactionRequest true "Changed fields"
// @Success     200 {object} Envelope{data=TransactionGroupDTO} "Updated transaction group"
// @Failure     400 {object} ErrorResponse "Invalid, unbalanced or overdrawn entries"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Transaction is not a draft or was modified concurrently"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fields := services.TransactionGroupUpdateFields{
		Version:              req.Version,
		Description:          req.Description,
		SourceTransactionID:  uuid.CanonicalPtr(req.SourceTransactionID),
		LinkedTransactionIDs: req.LinkedTransactionIDs,
	}
	if req.LinkedTransactionIDs != nil {
		linked := uuid.CanonicalAll(*req.LinkedTransactionIDs)
		fields.LinkedTransactionIDs = &linked
	}
	if req.TransactionDate != nil {
		t, parseErr := parseFlexibleTime(*req.TransactionDate)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		fields.TransactionDate = &t
	}
	if req.Entries != nil {
		fields.Entries, err = toEntries(req.Entries)
		if err != nil {
			respondWithError(c, err)
			return
		}
	}

	group, err := h.groupService.UpdateTransactionGroup(c.Request.Context(), actor, groupID, fields)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "UPDATE_TRANSACTION", "transaction_group", groupID, c.ClientIP(),
		map[string]interface{}{"version": group.Version})

	respond(c, http.StatusOK, "Transaction updated", toTransactionGroupDTO(*group, h.tolerance))
}

// DeleteTransaction handles deleting a draft transaction group
// @Summary     Delete transaction group
// @Description Delete a draft transaction group that no other group draws funds from
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction group ID"
// @Success     200 {object} Envelope "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Transaction is not a draft or has dependents"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.groupService.DeleteTransactionGroup(c.Request.Context(), actor, groupID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "DELETE_TRANSACTION", "transaction_group", groupID, c.ClientIP(), nil)

	respond(c, http.StatusOK, "Transaction deleted", nil)
}

// ConfirmTransaction handles confirming a draft transaction group
// @Summary     Confirm transaction group
// @Description Confirm a balanced draft group and post its entries to account balances
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction group ID"
// @Success     200 {object} Envelope{data=TransactionGroupDTO} "Confirmed transaction group"
// @Failure     400 {object} ErrorResponse "Unbalanced or invalid entries"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Transaction is not a draft"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/confirm [post]
func (h *TransactionHandler) ConfirmTransaction(c *gin.Context) {
	h.transition(c, "CONFIRM_TRANSACTION", "Transaction confirmed", h.confirmService.ConfirmTransactionGroup)
}

// UnlockTransaction handles returning a confirmed group to draft
// @Summary     Unlock transaction group
// @Description Return a confirmed group to draft. Rejected while active groups use it as their funding source.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction group ID"
// @Success     200 {object} Envelope{data=TransactionGroupDTO} "Unlocked transaction group"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Transaction is not confirmed or has dependents"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/unlock [post]
func (h *TransactionHandler) UnlockTransaction(c *gin.Context) {
	h.transition(c, "UNLOCK_TRANSACTION", "Transaction unlocked", h.confirmService.UnlockTransactionGroup)
}

// CancelTransaction handles cancelling a draft group
// @Summary     Cancel transaction group
// @Description Cancel a draft group. Rejected while active groups draw funds from it.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction group ID"
// @Success     200 {object} Envelope{data=TransactionGroupDTO} "Cancelled transaction group"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Transaction is not a draft or has dependents"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/cancel [post]
func (h *TransactionHandler) CancelTransaction(c *gin.Context) {
	h.transition(c, "CANCEL_TRANSACTION", "Transaction cancelled", h.confirmService.CancelTransactionGroup)
}

type transitionFunc func(ctx context.Context, actor services.Actor, groupID string) (*models.TransactionGroup, error)

func (h *TransactionHandler) transition(c *gin.Context, action, message string, fn transitionFunc) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	group, err := fn(c.Request.Context(), actor, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, action, "transaction_group", groupID, c.ClientIP(),
		map[string]interface{}{"status": group.Status})

	respond(c, http.StatusOK, message, toTransactionGroupDTO(*group, h.tolerance))
}

// GetBalance handles the balance check of one group
// @Summary     Transaction group balance
// @Description Recompute debit and credit totals of a group
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction group ID"
// @Success     200 {object} Envelope{data=ValidationResultDTO} "Balance"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/balance [get]
func (h *TransactionHandler) GetBalance(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.groupService.GetBalance(c.Request.Context(), actor, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Balance computed", toValidationResultDTO(*result))
}

// GetFunding handles the funding state of one group
// @Summary     Transaction group funding
// @Description Amount used and available, groups drawing from this one, and this group's own draws
// @Tags        funding
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction group ID"
// @Success     200 {object} Envelope{data=FundingResponse} "Funding state"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/funding [get]
func (h *TransactionHandler) GetFunding(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	info, err := h.fundingService.GetFundingInfo(c.Request.Context(), actor, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Funding retrieved", FundingResponse{
		TransactionID:  groupID,
		TotalAmount:    info.TotalAmount.Decimal(),
		FundingInfoDTO: toFundingInfoDTO(*info),
	})
}

// GetAvailableSources handles listing groups with funds left to draw
// @Summary     Available funding sources
// @Description Confirmed groups whose available amount is greater than zero, newest first
// @Tags        funding
// @Produce     json
// @Security    BearerAuth
// @Param       page     query int false "Page number (default 1)"
// @Param       pageSize query int false "Items per page (default 20, max 100)"
// @Success     200 {object} Envelope{data=pagination.PageResponse[AvailableSourceDTO]} "Available sources"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/funding/available-sources [get]
func (h *TransactionHandler) GetAvailableSources(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.fundingService.GetAvailableSources(c.Request.Context(), actor, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Available sources retrieved", pagination.Map(*result, toAvailableSourceDTO))
}

// ValidateEntries handles a balance preview of unsaved entries
// @Summary     Validate entries
// @Description Check entries against the balance rules without saving anything
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ValidateEntriesRequest true "Entries"
// @Success     200 {object} Envelope{data=ValidationResultDTO} "Validation result"
// @Failure     400 {object} ErrorResponse "Malformed payload"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions/validate [post]
func (h *TransactionHandler) ValidateEntries(c *gin.Context) {
	if _, err := getActor(c); err != nil {
		respondWithError(c, err)
		return
	}

	var req ValidateEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	entries, err := toEntries(req.Entries)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result := h.groupService.ValidateEntries(entries)
	respond(c, http.StatusOK, "Entries validated", toValidationResultDTO(result))
}

// CreateCostOfSales handles recording the inventory cost of a sale
// @Summary     Record cost of sales
// @Description Create a draft group debiting cost of goods sold and crediting inventory at the product's current unit cost
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CostOfSalesRequest true "Sale details"
// @Success     201 {object} Envelope{data=TransactionGroupDTO} "Cost of sales recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Unit cost or account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/cost-of-sales [post]
func (h *TransactionHandler) CreateCostOfSales(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CostOfSalesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transactionDate, err := optionalDate(req.TransactionDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	group, err := h.groupService.CreateCostOfSales(c.Request.Context(), actor, services.CostOfSalesInput{
		ProductID:          req.ProductID,
		Quantity:           req.Quantity,
		CogsAccountID:      uuid.Canonical(req.CogsAccountID),
		InventoryAccountID: uuid.Canonical(req.InventoryAccountID),
		Description:        req.Description,
		TransactionDate:    transactionDate,
		SaleTransactionID:  uuid.CanonicalPtr(req.SaleTransactionID),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "CREATE_COST_OF_SALES", "transaction_group", group.ID, c.ClientIP(),
		map[string]interface{}{"productId": req.ProductID, "quantity": req.Quantity})

	respond(c, http.StatusCreated, "Cost of sales recorded", toTransactionGroupDTO(*group, h.tolerance))
}

// optionalDate parses an optional request date, defaulting to now.
func optionalDate(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Now().UTC(), nil
	}
	t, err := parseFlexibleTime(*s)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return t, nil
}
