package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
	"ledgerd/internal/pagination"
	"ledgerd/internal/services"
	"ledgerd/internal/uuid"
)

// AccountHandler handles chart-of-accounts requests.
type AccountHandler struct {
	accountService services.AccountServicer
	auditService   services.AuditServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer, auditService services.AuditServicer) *AccountHandler {
	return &AccountHandler{accountService: accountService, auditService: auditService}
}

// CreateAccountRequest represents the request payload for creating an account.
type CreateAccountRequest struct {
	Code          string             `json:"code" binding:"required,min=1,max=20"`
	Name          string             `json:"name" binding:"required,min=1,max=100"`
	AccountType   models.AccountType `json:"accountType" binding:"required,account_type"`
	NormalBalance ledger.Side        `json:"normalBalance" binding:"omitempty,normal_balance"`
	ParentID      *string            `json:"parentId" binding:"omitempty,uuid"`
	Description   string             `json:"description" binding:"max=500"`
}

// UpdateAccountRequest represents the request payload for updating an account.
// An empty parentId detaches the account from its parent.
type UpdateAccountRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	ParentID    *string `json:"parentId" binding:"omitempty,len=0|uuid"`
}

// AccountListQuery holds the filter query parameters for listing accounts.
type AccountListQuery struct {
	AccountType     string `form:"accountType" binding:"omitempty,account_type"`
	IncludeInactive bool   `form:"includeInactive"`
	Search          string `form:"search" binding:"max=100"`
}

// CreateAccount handles the creation of a new account
// @Summary     Create an account
// @Description Add an account to the organization's chart of accounts. The normal balance defaults from the account type.
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAccountRequest true "Account details"
// @Success     201 {object} Envelope{data=AccountDTO} "Account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate account code"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), actor, services.AccountInput{
		Code:          req.Code,
		Name:          req.Name,
		AccountType:   req.AccountType,
		NormalBalance: req.NormalBalance,
		ParentID:      uuid.CanonicalPtr(req.ParentID),
		Description:   req.Description,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "CREATE_ACCOUNT", "account", account.ID, c.ClientIP(),
		map[string]interface{}{"code": account.Code, "accountType": account.AccountType})

	respond(c, http.StatusCreated, "Account created", toAccountDTO(*account))
}

// GetAccounts handles listing the chart of accounts
// @Summary     List accounts
// @Description List the organization's accounts ordered by code
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page            query int    false "Page number (default 1)"
// @Param       pageSize        query int    false "Items per page (default 20, max 100)"
// @Param       accountType     query string false "Filter by account type"
// @Param       includeInactive query bool   false "Include deactivated accounts"
// @Param       search          query string false "Search code or name"
// @Success     200 {object} Envelope{data=pagination.PageResponse[AccountDTO]} "Paginated accounts"
// @Failure     400 {object} ErrorResponse "Invalid query"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [get]
func (h *AccountHandler) GetAccounts(c *gin.Context) {
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

	var query AccountListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.AccountFilter{IncludeInactive: query.IncludeInactive, Search: query.Search}
	if query.AccountType != "" {
		t := models.AccountType(query.AccountType)
		filter.AccountType = &t
	}

	result, err := h.accountService.GetAccounts(c.Request.Context(), actor, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Accounts retrieved", pagination.Map(*result, toAccountDTO))
}

// GetAccountByID handles the retrieval of a specific account
// @Summary     Get account by ID
// @Description Get a specific account of the organization
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} Envelope{data=AccountDTO} "Account details"
// @Failure     400 {object} ErrorResponse "Invalid account ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts/{id} [get]
func (h *AccountHandler) GetAccountByID(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetAccountByID(c.Request.Context(), actor, accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Account retrieved", toAccountDTO(*account))
}

// UpdateAccount handles updating an account
// @Summary     Update account
// @Description Change the name, description or parent of an account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Param       request body UpdateAccountRequest true "Updated account details"
// @Success     200 {object} Envelope{data=AccountDTO} "Updated account"
// @Failure     400 {object} ErrorResponse "Invalid input or account ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts/{id} [put]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.accountService.UpdateAccount(c.Request.Context(), actor, accountID, services.AccountUpdateFields{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    uuid.CanonicalPtr(req.ParentID),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "UPDATE_ACCOUNT", "account", accountID, c.ClientIP(), nil)

	respond(c, http.StatusOK, "Account updated", toAccountDTO(*account))
}

// DeactivateAccount handles deactivating an account
// @Summary     Deactivate account
// @Description Deactivate an account. Deactivated accounts cannot be used in new entries.
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} Envelope{data=AccountDTO} "Deactivated account"
// @Failure     400 {object} ErrorResponse "Invalid account ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts/{id}/deactivate [post]
func (h *AccountHandler) DeactivateAccount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.DeactivateAccount(c.Request.Context(), actor, accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "DEACTIVATE_ACCOUNT", "account", accountID, c.ClientIP(), nil)

	respond(c, http.StatusOK, "Account deactivated", toAccountDTO(*account))
}
