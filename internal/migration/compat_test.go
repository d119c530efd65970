package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerd/internal/ledger"
)

func fieldNames(ms []Mismatch) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Field)
	}
	return out
}

func TestRoundTripGroup_Clean(t *testing.T) {
	v := NewCompatibilityValidator(ledger.DefaultTolerance)
	ms, err := v.RoundTripGroup(legacyGroup())
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestRoundTripGroup_FloatDriftWithinTolerance(t *testing.T) {
	l := legacyGroup()
	l.Entries[0].CreditAmount = 0.1 + 0.2
	l.Entries[1].DebitAmount = 0.3
	l.TotalAmount = 0.3

	v := NewCompatibilityValidator(ledger.DefaultTolerance)
	ms, err := v.RoundTripGroup(l)
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestCompareGroups_ReportsMismatches(t *testing.T) {
	l := legacyGroup()
	current, err := GroupFromLegacy(l)
	require.NoError(t, err)

	current.Description = "changed"
	current.Entries[0].AccountID = "other"
	current.TotalAmount = 40000

	v := NewCompatibilityValidator(ledger.DefaultTolerance)
	ms := v.CompareGroups(l, current)
	assert.ElementsMatch(t, []string{"description", "totalAmount", "entries[1].accountId"}, fieldNames(ms))
}

func TestCompareGroups_EntryCount(t *testing.T) {
	l := legacyGroup()
	current, err := GroupFromLegacy(l)
	require.NoError(t, err)
	current.Entries = current.Entries[:1]

	ms := NewCompatibilityValidator(ledger.DefaultTolerance).CompareGroups(l, current)
	assert.Contains(t, fieldNames(ms), "entries.length")
}

func TestCompareAccounts(t *testing.T) {
	legacy := LegacyAccount{ID: "a", AccountCode: "1000", AccountName: "Cash", AccountType: "asset", Balance: 10}
	current, err := AccountFromLegacy(legacy)
	require.NoError(t, err)
	current.Code = "1001"
	current.Balance = 1002

	ms := NewCompatibilityValidator(ledger.DefaultTolerance).CompareAccounts(legacy, current)
	assert.ElementsMatch(t, []string{"code", "balance"}, fieldNames(ms))
}
