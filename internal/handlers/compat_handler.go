package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerd/internal/ledger"
	"ledgerd/internal/migration"
	"ledgerd/internal/services"
)

// CompatHandler serves transaction groups in the legacy public shape for
// clients that have not moved to the embedded-entry API yet.
type CompatHandler struct {
	groupService services.TransactionGroupServicer
	tolerance    ledger.TolerancePolicy
}

// NewCompatHandler creates a new CompatHandler.
func NewCompatHandler(groupService services.TransactionGroupServicer, tolerance ledger.TolerancePolicy) *CompatHandler {
	return &CompatHandler{groupService: groupService, tolerance: tolerance}
}

// GetLegacyTransaction handles reading a group in the legacy shape
// @Summary     Get transaction group (legacy shape)
// @Description Return a transaction group with entries carrying a back reference to their group and amounts as floating-point major units
// @Tags        compat
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction group ID"
// @Success     200 {object} Envelope{data=migration.LegacyTransactionGroup} "Legacy transaction group"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /compat/transactions/{id} [get]
func (h *CompatHandler) GetLegacyTransaction(c *gin.Context) {
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

	respond(c, http.StatusOK, "Transaction retrieved", migration.GroupToLegacy(*group, h.tolerance))
}
