package migration

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
)

const groupNumberPrefix = "TG-"

// FormatGroupNumber renders a group number the way legacy clients display it.
func FormatGroupNumber(n int64) string {
	return fmt.Sprintf("%s%06d", groupNumberPrefix, n)
}

// ParseGroupNumber accepts both "TG-000042" and "42".
func ParseGroupNumber(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), groupNumberPrefix), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid group number %q", s)
	}
	return n, nil
}

// EntriesFromLegacy maps normalized entry rows to embedded entries, ordered by
// sequence. The group back reference is dropped.
func EntriesFromLegacy(rows []models.LegacyEntry) []ledger.Entry {
	sorted := make([]models.LegacyEntry, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	entries := make([]ledger.Entry, 0, len(sorted))
	for _, r := range sorted {
		e := ledger.Entry{
			Sequence:     r.Sequence,
			AccountID:    r.AccountID,
			DebitAmount:  ledger.AmountFromFloat(r.DebitAmount),
			CreditAmount: ledger.AmountFromFloat(r.CreditAmount),
			Description:  r.Description,
		}
		if r.SourceTransactionID != nil {
			e.SourceTransactionID = *r.SourceTransactionID
		}
		if len(r.FundingPath) > 0 {
			e.FundingPath = append([]string(nil), r.FundingPath...)
		}
		entries = append(entries, e)
	}
	return entries
}

// EntriesToLegacy maps embedded entries back to normalized rows owned by groupID.
func EntriesToLegacy(groupID string, entries []ledger.Entry) []models.LegacyEntry {
	rows := make([]models.LegacyEntry, 0, len(entries))
	for _, e := range entries {
		r := models.LegacyEntry{
			TransactionGroupID: groupID,
			Sequence:           e.Sequence,
			AccountID:          e.AccountID,
			DebitAmount:        e.DebitAmount.Float64(),
			CreditAmount:       e.CreditAmount.Float64(),
			Description:        e.Description,
		}
		if e.SourceTransactionID != "" {
			src := e.SourceTransactionID
			r.SourceTransactionID = &src
		}
		if len(e.FundingPath) > 0 {
			r.FundingPath = append([]string(nil), e.FundingPath...)
		}
		rows = append(rows, r)
	}
	return rows
}

// AccountFromLegacy converts a legacy account into the current model.
func AccountFromLegacy(l LegacyAccount) (models.Account, error) {
	accountType := models.AccountType(strings.ToLower(l.AccountType))
	if !accountType.Valid() {
		return models.Account{}, fmt.Errorf("account %s: unknown account type %q", l.ID, l.AccountType)
	}
	normal := ledger.Side(strings.ToLower(l.NormalBalance))
	if normal == "" {
		normal = accountType.NormalBalance()
	}
	if normal != ledger.SideDebit && normal != ledger.SideCredit {
		return models.Account{}, fmt.Errorf("account %s: unknown normal balance %q", l.ID, l.NormalBalance)
	}
	a := models.Account{
		Base:           models.Base{ID: l.ID},
		OrganizationID: l.OrganizationID,
		Code:           l.AccountCode,
		Name:           l.AccountName,
		AccountType:    accountType,
		NormalBalance:  normal,
		IsActive:       l.IsActive,
		Balance:        ledger.AmountFromFloat(l.Balance),
	}
	if l.ParentAccount != nil && *l.ParentAccount != "" {
		parent := *l.ParentAccount
		a.ParentID = &parent
	}
	return a, nil
}

// AccountToLegacy converts the current account model into the legacy shape.
func AccountToLegacy(a models.Account) LegacyAccount {
	l := LegacyAccount{
		ID:             a.ID,
		OrganizationID: a.OrganizationID,
		AccountCode:    a.Code,
		AccountName:    a.Name,
		AccountType:    string(a.AccountType),
		NormalBalance:  string(a.NormalBalance),
		IsActive:       a.IsActive,
		Balance:        a.Balance.Float64(),
	}
	if a.ParentID != nil {
		parent := *a.ParentID
		l.ParentAccount = &parent
	}
	return l
}

// GroupFromLegacy converts a legacy group and its entry rows into the
// embedded model. The total is recomputed from the entries rather than
// copied, so a drifted legacy total shows up in validation.
func GroupFromLegacy(l LegacyTransactionGroup) (models.TransactionGroup, error) {
	number, err := ParseGroupNumber(l.GroupNumber)
	if err != nil {
		return models.TransactionGroup{}, err
	}
	status, err := ledger.ParseStatus(l.Status)
	if err != nil {
		return models.TransactionGroup{}, fmt.Errorf("group %s: %w", l.ID, err)
	}
	fundingType := ledger.FundingType(strings.ToLower(l.FundingType))
	if fundingType == "" {
		fundingType = ledger.FundingOriginal
	}
	if fundingType != ledger.FundingOriginal && fundingType != ledger.FundingDerived {
		return models.TransactionGroup{}, fmt.Errorf("group %s: unknown funding type %q", l.ID, l.FundingType)
	}

	entries := EntriesFromLegacy(l.Entries)
	g := models.TransactionGroup{
		Base:            models.Base{ID: l.ID, CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt},
		GroupNumber:     number,
		OrganizationID:  l.OrganizationID,
		Description:     l.Description,
		TransactionDate: l.TransactionDate,
		Entries:         entries,
		Status:          status,
		TotalAmount:     ledger.TotalAmount(entries),
		FundingType:     fundingType,
		CreatedBy:       l.CreatedBy,
		ConfirmedAt:     l.ConfirmedAt,
		SchemaVersion:   models.SchemaVersionEmbedded,
	}
	if l.SourceTransactionID != "" {
		src := l.SourceTransactionID
		g.SourceTransactionID = &src
	}
	if len(l.LinkedTransactionIDs) > 0 {
		g.LinkedTransactionIDs = append([]string(nil), l.LinkedTransactionIDs...)
	}
	return g, nil
}

// GroupToLegacy converts the embedded model into the legacy shape, restoring
// the entries' back reference to the group.
func GroupToLegacy(g models.TransactionGroup, tolerance ledger.TolerancePolicy) LegacyTransactionGroup {
	debit, credit := ledger.Totals(g.Entries)
	l := LegacyTransactionGroup{
		ID:                  g.ID,
		GroupNumber:         FormatGroupNumber(g.GroupNumber),
		OrganizationID:      g.OrganizationID,
		Description:         g.Description,
		TransactionDate:     g.TransactionDate,
		Status:              string(g.Status),
		TotalAmount:         g.TotalAmount.Float64(),
		IsBalanced:          tolerance.Balanced(debit - credit),
		SourceTransactionID: g.SourceID(),
		FundingType:         string(g.FundingType),
		CreatedBy:           g.CreatedBy,
		CreatedAt:           g.CreatedAt,
		UpdatedAt:           g.UpdatedAt,
		ConfirmedAt:         g.ConfirmedAt,
		Entries:             EntriesToLegacy(g.ID, g.Entries),
	}
	if len(g.LinkedTransactionIDs) > 0 {
		l.LinkedTransactionIDs = append([]string(nil), g.LinkedTransactionIDs...)
	}
	return l
}

// LegacyView assembles the legacy record of a group row still stored in the
// normalized layout. Its total comes from the entry rows, as the first API
// generation computed it.
func LegacyView(g models.TransactionGroup, rows []models.LegacyEntry) LegacyTransactionGroup {
	var debit, credit float64
	for _, r := range rows {
		debit += r.DebitAmount
		credit += r.CreditAmount
	}
	total := math.Max(debit, credit)

	l := LegacyTransactionGroup{
		ID:                  g.ID,
		GroupNumber:         FormatGroupNumber(g.GroupNumber),
		OrganizationID:      g.OrganizationID,
		Description:         g.Description,
		TransactionDate:     g.TransactionDate,
		Status:              string(g.Status),
		TotalAmount:         total,
		IsBalanced:          math.Abs(debit-credit) < DefaultAmountTolerance,
		SourceTransactionID: g.SourceID(),
		FundingType:         string(g.FundingType),
		CreatedBy:           g.CreatedBy,
		CreatedAt:           g.CreatedAt,
		UpdatedAt:           g.UpdatedAt,
		ConfirmedAt:         g.ConfirmedAt,
		Entries:             rows,
	}
	if len(g.LinkedTransactionIDs) > 0 {
		l.LinkedTransactionIDs = append([]string(nil), g.LinkedTransactionIDs...)
	}
	return l
}
