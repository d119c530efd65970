package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/logger"
	"ledgerd/internal/services"
)

// MigrationHandler exposes the entry migration to operators.
type MigrationHandler struct {
	migrationService services.MigrationServicer
}

// NewMigrationHandler creates a new MigrationHandler.
func NewMigrationHandler(migrationService services.MigrationServicer) *MigrationHandler {
	return &MigrationHandler{migrationService: migrationService}
}

// EmbedEntriesRequest represents the options of an entry migration run.
// Zero values fall back to the configured defaults.
type EmbedEntriesRequest struct {
	BatchSize  int  `json:"batchSize" binding:"omitempty,min=1,max=1000"`
	SampleSize int  `json:"sampleSize" binding:"omitempty,min=0,max=1000"`
	DryRun     bool `json:"dryRun"`
}

// EmbedEntries handles a run of the entry migration
// @Summary     Embed legacy entries
// @Description Move groups still stored with one row per entry onto embedded entries. Unbalanced groups are left untouched and reported.
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body EmbedEntriesRequest false "Run options"
// @Success     200 {object} Envelope{data=MigrationReportDTO} "Migration report"
// @Failure     400 {object} ErrorResponse "Invalid options"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/migrations/embed-entries [post]
func (h *MigrationHandler) EmbedEntries(c *gin.Context) {
	var req EmbedEntriesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	report, err := h.migrationService.EmbedEntries(c.Request.Context(), services.EmbedOptions{
		BatchSize:  req.BatchSize,
		SampleSize: req.SampleSize,
		DryRun:     req.DryRun,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	logger.Get().Infow("entry migration run via API",
		"report_id", report.ID,
		"dry_run", report.DryRun,
		"client_ip", c.ClientIP(),
	)

	respond(c, http.StatusOK, "Migration finished", toMigrationReportDTO(*report))
}

// GetLatestReport handles reading the most recent migration report
// @Summary     Latest migration report
// @Description Return the report persisted by the most recent entry migration run
// @Tags        admin
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} Envelope{data=MigrationReportDTO} "Migration report"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     404 {object} ErrorResponse "No migration has run yet"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/migrations/reports/latest [get]
func (h *MigrationHandler) GetLatestReport(c *gin.Context) {
	report, err := h.migrationService.LatestReport(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Migration report retrieved", toMigrationReportDTO(*report))
}
