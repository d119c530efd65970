package handlers

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
	"ledgerd/internal/services"
	"ledgerd/internal/uuid"
)

// AccountDTO is the API shape of an account.
type AccountDTO struct {
	ID            string             `json:"id"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	AccountType   models.AccountType `json:"accountType"`
	NormalBalance ledger.Side        `json:"normalBalance"`
	ParentID      *string            `json:"parentId,omitempty"`
	Description   string             `json:"description"`
	IsActive      bool               `json:"isActive"`
	Balance       decimal.Decimal    `json:"balance"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func toAccountDTO(a models.Account) AccountDTO {
	return AccountDTO{
		ID:            a.ID,
		Code:          a.Code,
		Name:          a.Name,
		AccountType:   a.AccountType,
		NormalBalance: a.NormalBalance,
		ParentID:      a.ParentID,
		Description:   a.Description,
		IsActive:      a.IsActive,
		Balance:       a.Balance.Decimal(),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// EntryRequest is one entry line in a create, update or validate payload.
type EntryRequest struct {
	Sequence            int             `json:"sequence" binding:"omitempty,min=1"`
	AccountID           string          `json:"accountId" binding:"omitempty,uuid"`
	DebitAmount         decimal.Decimal `json:"debitAmount" binding:"money"`
	CreditAmount        decimal.Decimal `json:"creditAmount" binding:"money"`
	Description         string          `json:"description" binding:"max=500"`
	SourceTransactionID string          `json:"sourceTransactionId" binding:"omitempty,uuid"`
}

// toEntries converts request lines into ledger entries.
func toEntries(reqs []EntryRequest) ([]ledger.Entry, error) {
	entries := make([]ledger.Entry, len(reqs))
	for i, r := range reqs {
		debit, err := ledger.AmountFromDecimal(r.DebitAmount)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("entries[%d].debitAmount: %v", i, err))
		}
		credit, err := ledger.AmountFromDecimal(r.CreditAmount)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("entries[%d].creditAmount: %v", i, err))
		}
		entries[i] = ledger.Entry{
			Sequence:            r.Sequence,
			AccountID:           uuid.Canonical(r.AccountID),
			DebitAmount:         debit,
			CreditAmount:        credit,
			Description:         r.Description,
			SourceTransactionID: uuid.Canonical(r.SourceTransactionID),
		}
	}
	return entries, nil
}

// EntryDTO is the API shape of an embedded entry.
type EntryDTO struct {
	Sequence            int             `json:"sequence"`
	AccountID           string          `json:"accountId"`
	DebitAmount         decimal.Decimal `json:"debitAmount"`
	CreditAmount        decimal.Decimal `json:"creditAmount"`
	Description         string          `json:"description,omitempty"`
	SourceTransactionID string          `json:"sourceTransactionId,omitempty"`
	FundingPath         []string        `json:"fundingPath,omitempty"`
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		Sequence:            e.Sequence,
		AccountID:           e.AccountID,
		DebitAmount:         e.DebitAmount.Decimal(),
		CreditAmount:        e.CreditAmount.Decimal(),
		Description:         e.Description,
		SourceTransactionID: e.SourceTransactionID,
		FundingPath:         e.FundingPath,
	}
}

// TransactionGroupDTO is the API shape of a transaction group.
type TransactionGroupDTO struct {
	ID                   string             `json:"id"`
	GroupNumber          int64              `json:"groupNumber"`
	OrganizationID       string             `json:"organizationId"`
	Description          string             `json:"description"`
	TransactionDate      time.Time          `json:"transactionDate"`
	Entries              []EntryDTO         `json:"entries"`
	Status               ledger.Status      `json:"status"`
	TotalAmount          decimal.Decimal    `json:"totalAmount"`
	IsBalanced           bool               `json:"isBalanced"`
	SourceTransactionID  *string            `json:"sourceTransactionId,omitempty"`
	LinkedTransactionIDs []string           `json:"linkedTransactionIds,omitempty"`
	FundingType          ledger.FundingType `json:"fundingType"`
	CreatedBy            string             `json:"createdBy"`
	ConfirmedAt          *time.Time         `json:"confirmedAt,omitempty"`
	Version              int64              `json:"version"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

func toTransactionGroupDTO(g models.TransactionGroup, tolerance ledger.TolerancePolicy) TransactionGroupDTO {
	entries := make([]EntryDTO, len(g.Entries))
	for i, e := range g.Entries {
		entries[i] = toEntryDTO(e)
	}
	debit, credit := ledger.Totals(g.Entries)
	return TransactionGroupDTO{
		ID:                   g.ID,
		GroupNumber:          g.GroupNumber,
		OrganizationID:       g.OrganizationID,
		Description:          g.Description,
		TransactionDate:      g.TransactionDate,
		Entries:              entries,
		Status:               g.Status,
		TotalAmount:          g.TotalAmount.Decimal(),
		IsBalanced:           tolerance.Balanced(debit - credit),
		SourceTransactionID:  g.SourceTransactionID,
		LinkedTransactionIDs: g.LinkedTransactionIDs,
		FundingType:          g.FundingType,
		CreatedBy:            g.CreatedBy,
		ConfirmedAt:          g.ConfirmedAt,
		Version:              g.Version,
		CreatedAt:            g.CreatedAt,
		UpdatedAt:            g.UpdatedAt,
	}
}

// GroupSummaryDTO is a group as it appears in reference lists.
type GroupSummaryDTO struct {
	ID          string          `json:"id"`
	GroupNumber int64           `json:"groupNumber"`
	Description string          `json:"description"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      ledger.Status   `json:"status"`
}

func toGroupSummaryDTO(s services.GroupSummary) GroupSummaryDTO {
	return GroupSummaryDTO{
		ID:          s.ID,
		GroupNumber: s.GroupNumber,
		Description: s.Description,
		TotalAmount: s.TotalAmount.Decimal(),
		Status:      s.Status,
	}
}

// FundingUsageDTO is one draw a group makes on a source.
type FundingUsageDTO struct {
	SourceTransactionID string          `json:"sourceTransactionId"`
	SourceGroupNumber   int64           `json:"sourceGroupNumber"`
	EntrySequence       int             `json:"entrySequence,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
}

// FundingInfoDTO is the computed funding state of a group.
type FundingInfoDTO struct {
	UsedAmount          decimal.Decimal   `json:"usedAmount"`
	AvailableAmount     decimal.Decimal   `json:"availableAmount"`
	ReferencedByInfo    []GroupSummaryDTO `json:"referencedByInfo"`
	FundingSourceUsages []FundingUsageDTO `json:"fundingSourceUsages"`
	FundingPath         []string          `json:"fundingPath"`
}

func toFundingInfoDTO(info services.FundingInfo) FundingInfoDTO {
	refs := make([]GroupSummaryDTO, len(info.ReferencedBy))
	for i, r := range info.ReferencedBy {
		refs[i] = toGroupSummaryDTO(r)
	}
	usages := make([]FundingUsageDTO, len(info.FundingUsages))
	for i, u := range info.FundingUsages {
		usages[i] = FundingUsageDTO{
			SourceTransactionID: u.SourceGroupID,
			SourceGroupNumber:   u.SourceGroupNumber,
			EntrySequence:       u.EntrySequence,
			Amount:              u.Amount.Decimal(),
		}
	}
	path := info.FundingPath
	if path == nil {
		path = []string{}
	}
	return FundingInfoDTO{
		UsedAmount:          info.UsedAmount.Decimal(),
		AvailableAmount:     info.AvailableAmount.Decimal(),
		ReferencedByInfo:    refs,
		FundingSourceUsages: usages,
		FundingPath:         path,
	}
}

// TransactionGroupDetailDTO is a group with its funding state.
type TransactionGroupDetailDTO struct {
	TransactionGroupDTO
	FundingInfoDTO
}

// FundingResponse is the body of the per-group funding endpoint.
type FundingResponse struct {
	TransactionID string          `json:"transactionId"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	FundingInfoDTO
}

// AvailableSourceDTO is a confirmed group with funds left to draw.
type AvailableSourceDTO struct {
	GroupSummaryDTO
	TransactionDate time.Time       `json:"transactionDate"`
	UsedAmount      decimal.Decimal `json:"usedAmount"`
	AvailableAmount decimal.Decimal `json:"availableAmount"`
}

func toAvailableSourceDTO(s services.AvailableSource) AvailableSourceDTO {
	return AvailableSourceDTO{
		GroupSummaryDTO: toGroupSummaryDTO(s.GroupSummary),
		TransactionDate: s.TransactionDate,
		UsedAmount:      s.UsedAmount.Decimal(),
		AvailableAmount: s.AvailableAmount.Decimal(),
	}
}

// ValidationResultDTO reports the balance of a set of entries.
type ValidationResultDTO struct {
	IsValid     bool                `json:"isValid"`
	IsBalanced  bool                `json:"isBalanced"`
	TotalDebit  decimal.Decimal     `json:"totalDebit"`
	TotalCredit decimal.Decimal     `json:"totalCredit"`
	Difference  decimal.Decimal     `json:"difference"`
	Errors      []ledger.EntryError `json:"errors"`
}

func toValidationResultDTO(r ledger.ValidationResult) ValidationResultDTO {
	errs := r.Errors
	if errs == nil {
		errs = []ledger.EntryError{}
	}
	return ValidationResultDTO{
		IsValid:     r.IsValid,
		IsBalanced:  r.IsBalanced,
		TotalDebit:  r.TotalDebit.Decimal(),
		TotalCredit: r.TotalCredit.Decimal(),
		Difference:  r.Difference.Decimal(),
		Errors:      errs,
	}
}

// MigrationIssueDTO is one group the entry migration could not move.
type MigrationIssueDTO struct {
	GroupID     string          `json:"groupId"`
	GroupNumber int64           `json:"groupNumber"`
	Reason      string          `json:"reason"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	Difference  decimal.Decimal `json:"difference"`
}

// MigrationReportDTO is the API shape of a migration report.
type MigrationReportDTO struct {
	ID                   string              `json:"id"`
	StartedAt            time.Time           `json:"startedAt"`
	FinishedAt           time.Time           `json:"finishedAt"`
	DryRun               bool                `json:"dryRun"`
	Migrated             int                 `json:"migrated"`
	Failed               int                 `json:"failed"`
	Skipped              int                 `json:"skipped"`
	OrphanedEntries      int64               `json:"orphanedEntries"`
	GroupsWithoutEntries int                 `json:"groupsWithoutEntries"`
	UsagesBackfilled     int                 `json:"usagesBackfilled"`
	Sampled              int                 `json:"sampled"`
	SampleMismatches     int                 `json:"sampleMismatches"`
	Errors               []MigrationIssueDTO `json:"errors"`
}

func toMigrationReportDTO(r models.MigrationReport) MigrationReportDTO {
	issues := make([]MigrationIssueDTO, len(r.Errors))
	for i, e := range r.Errors {
		issues[i] = MigrationIssueDTO{
			GroupID:     e.GroupID,
			GroupNumber: e.GroupNumber,
			Reason:      e.Reason,
			TotalDebit:  e.TotalDebit.Decimal(),
			TotalCredit: e.TotalCredit.Decimal(),
			Difference:  e.Difference.Decimal(),
		}
	}
	return MigrationReportDTO{
		ID:                   r.ID,
		StartedAt:            r.StartedAt,
		FinishedAt:           r.FinishedAt,
		DryRun:               r.DryRun,
		Migrated:             r.Migrated,
		Failed:               r.Failed,
		Skipped:              r.Skipped,
		OrphanedEntries:      r.OrphanedEntries,
		GroupsWithoutEntries: r.GroupsWithoutEntries,
		UsagesBackfilled:     r.UsagesBackfilled,
		Sampled:              r.Sampled,
		SampleMismatches:     r.SampleMismatches,
		Errors:               issues,
	}
}
