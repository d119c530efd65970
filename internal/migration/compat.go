package migration

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
)

// DefaultAmountTolerance is the largest float drift accepted when comparing a
// legacy amount with its converted counterpart.
const DefaultAmountTolerance = 0.01

// Mismatch is a structurally significant field that differs after conversion.
type Mismatch struct {
	Field   string `json:"field"`
	Legacy  string `json:"legacy"`
	Current string `json:"current"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: legacy=%q current=%q", m.Field, m.Legacy, m.Current)
}

// CompatibilityValidator compares records across generations field by field
// and reports what differs instead of assuming a conversion succeeded.
type CompatibilityValidator struct {
	AmountTolerance float64
	Tolerance       ledger.TolerancePolicy
}

// NewCompatibilityValidator creates a validator with the default tolerances.
func NewCompatibilityValidator(tolerance ledger.TolerancePolicy) CompatibilityValidator {
	return CompatibilityValidator{AmountTolerance: DefaultAmountTolerance, Tolerance: tolerance}
}

type mismatches []Mismatch

func (ms *mismatches) str(field, legacy, current string) {
	if legacy != current {
		*ms = append(*ms, Mismatch{Field: field, Legacy: legacy, Current: current})
	}
}

func (ms *mismatches) amount(tol float64, field string, legacy float64, current ledger.Amount) {
	if math.Abs(legacy-current.Float64()) >= tol {
		*ms = append(*ms, Mismatch{
			Field:   field,
			Legacy:  strconv.FormatFloat(legacy, 'f', -1, 64),
			Current: current.String(),
		})
	}
}

// CompareAccounts checks id, code, name, type and balance.
func (v CompatibilityValidator) CompareAccounts(legacy LegacyAccount, current models.Account) []Mismatch {
	var ms mismatches
	ms.str("id", legacy.ID, current.ID)
	ms.str("organizationId", legacy.OrganizationID, current.OrganizationID)
	ms.str("code", legacy.AccountCode, current.Code)
	ms.str("name", legacy.AccountName, current.Name)
	ms.str("accountType", strings.ToLower(legacy.AccountType), string(current.AccountType))
	ms.amount(v.AmountTolerance, "balance", legacy.Balance, current.Balance)
	return ms
}

// CompareGroups checks ids, number, status, totals, funding source and each
// entry's account and amounts.
func (v CompatibilityValidator) CompareGroups(legacy LegacyTransactionGroup, current models.TransactionGroup) []Mismatch {
	var ms mismatches
	ms.str("id", legacy.ID, current.ID)
	ms.str("groupNumber", legacy.GroupNumber, FormatGroupNumber(current.GroupNumber))
	ms.str("organizationId", legacy.OrganizationID, current.OrganizationID)
	ms.str("description", legacy.Description, current.Description)
	ms.str("status", strings.ToLower(legacy.Status), string(current.Status))
	ms.str("sourceTransactionId", legacy.SourceTransactionID, current.SourceID())
	ms.amount(v.AmountTolerance, "totalAmount", legacy.TotalAmount, current.TotalAmount)

	if len(legacy.Entries) != len(current.Entries) {
		ms = append(ms, Mismatch{
			Field:   "entries.length",
			Legacy:  strconv.Itoa(len(legacy.Entries)),
			Current: strconv.Itoa(len(current.Entries)),
		})
		return ms
	}

	bySeq := make(map[int]ledger.Entry, len(current.Entries))
	for _, e := range current.Entries {
		bySeq[e.Sequence] = e
	}
	for _, le := range legacy.Entries {
		prefix := fmt.Sprintf("entries[%d]", le.Sequence)
		ce, ok := bySeq[le.Sequence]
		if !ok {
			ms = append(ms, Mismatch{Field: prefix, Legacy: "present", Current: "missing"})
			continue
		}
		ms.str(prefix+".accountId", le.AccountID, ce.AccountID)
		ms.amount(v.AmountTolerance, prefix+".debitAmount", le.DebitAmount, ce.DebitAmount)
		ms.amount(v.AmountTolerance, prefix+".creditAmount", le.CreditAmount, ce.CreditAmount)
	}
	return ms
}

// RoundTripGroup converts legacy to current and back, comparing both hops.
func (v CompatibilityValidator) RoundTripGroup(legacy LegacyTransactionGroup) ([]Mismatch, error) {
	current, err := GroupFromLegacy(legacy)
	if err != nil {
		return nil, err
	}
	ms := v.CompareGroups(legacy, current)
	back := GroupToLegacy(current, v.Tolerance)
	ms = append(ms, v.CompareGroups(back, current)...)
	return ms, nil
}

// RoundTripAccount converts legacy to current and back, comparing both hops.
func (v CompatibilityValidator) RoundTripAccount(legacy LegacyAccount) ([]Mismatch, error) {
	current, err := AccountFromLegacy(legacy)
	if err != nil {
		return nil, err
	}
	ms := v.CompareAccounts(legacy, current)
	ms = append(ms, v.CompareAccounts(AccountToLegacy(current), current)...)
	return ms, nil
}
