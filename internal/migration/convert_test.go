package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
)

func strPtr(s string) *string { return &s }

func legacyGroup() LegacyTransactionGroup {
	return LegacyTransactionGroup{
		ID:                  "0190a8b4-7c3e-7000-8000-000000000001",
		GroupNumber:         "TG-000042",
		OrganizationID:      "org-1",
		Description:         "Office rent",
		TransactionDate:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:              "Confirmed",
		TotalAmount:         500,
		FundingType:         "derived",
		SourceTransactionID: "0190a8b4-7c3e-7000-8000-0000000000ff",
		Entries: []models.LegacyEntry{
			{TransactionGroupID: "0190a8b4-7c3e-7000-8000-000000000001", Sequence: 2, AccountID: "bank", CreditAmount: 500},
			{TransactionGroupID: "0190a8b4-7c3e-7000-8000-000000000001", Sequence: 1, AccountID: "rent", DebitAmount: 500,
				SourceTransactionID: strPtr("0190a8b4-7c3e-7000-8000-0000000000ff")},
		},
	}
}

func TestEntriesFromLegacy_SortsAndConverts(t *testing.T) {
	entries := EntriesFromLegacy(legacyGroup().Entries)

	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Sequence)
	assert.Equal(t, "rent", entries[0].AccountID)
	assert.Equal(t, ledger.Amount(50000), entries[0].DebitAmount)
	assert.Equal(t, "0190a8b4-7c3e-7000-8000-0000000000ff", entries[0].SourceTransactionID)
	assert.Equal(t, 2, entries[1].Sequence)
	assert.Equal(t, ledger.Amount(50000), entries[1].CreditAmount)
}

func TestGroupFromLegacy(t *testing.T) {
	g, err := GroupFromLegacy(legacyGroup())
	require.NoError(t, err)

	assert.Equal(t, int64(42), g.GroupNumber)
	assert.Equal(t, ledger.StatusConfirmed, g.Status)
	assert.Equal(t, ledger.FundingDerived, g.FundingType)
	assert.Equal(t, ledger.Amount(50000), g.TotalAmount)
	assert.Equal(t, models.SchemaVersionEmbedded, g.SchemaVersion)
	assert.Equal(t, "0190a8b4-7c3e-7000-8000-0000000000ff", g.SourceID())
}

func TestGroupFromLegacy_Invalid(t *testing.T) {
	l := legacyGroup()
	l.GroupNumber = "TG-x"
	_, err := GroupFromLegacy(l)
	assert.Error(t, err)

	l = legacyGroup()
	l.Status = "posted"
	_, err = GroupFromLegacy(l)
	assert.Error(t, err)
}

func TestGroupToLegacy_RestoresBackReference(t *testing.T) {
	g, err := GroupFromLegacy(legacyGroup())
	require.NoError(t, err)

	back := GroupToLegacy(g, ledger.DefaultTolerance)
	assert.Equal(t, "TG-000042", back.GroupNumber)
	assert.True(t, back.IsBalanced)
	require.Len(t, back.Entries, 2)
	for _, e := range back.Entries {
		assert.Equal(t, g.ID, e.TransactionGroupID)
	}
	assert.InDelta(t, 500.0, back.TotalAmount, 0.001)
}

func TestParseGroupNumber(t *testing.T) {
	n, err := ParseGroupNumber("TG-000007")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	n, err = ParseGroupNumber("19")
	require.NoError(t, err)
	assert.Equal(t, int64(19), n)

	_, err = ParseGroupNumber("TG-0")
	assert.Error(t, err)
	assert.Equal(t, "TG-000123", FormatGroupNumber(123))
}

func TestAccountRoundTrip(t *testing.T) {
	legacy := LegacyAccount{
		ID:             "acc-1",
		OrganizationID: "org-1",
		AccountCode:    "1000",
		AccountName:    "Cash",
		AccountType:    "Asset",
		IsActive:       true,
		Balance:        1234.56,
		ParentAccount:  strPtr("acc-0"),
	}

	current, err := AccountFromLegacy(legacy)
	require.NoError(t, err)
	assert.Equal(t, models.AccountTypeAsset, current.AccountType)
	assert.Equal(t, ledger.SideDebit, current.NormalBalance)
	assert.Equal(t, ledger.Amount(123456), current.Balance)

	v := NewCompatibilityValidator(ledger.DefaultTolerance)
	ms, err := v.RoundTripAccount(legacy)
	require.NoError(t, err)
	assert.Empty(t, ms)

	_, err = AccountFromLegacy(LegacyAccount{ID: "x", AccountType: "bogus"})
	assert.Error(t, err)
}

func TestLegacyView(t *testing.T) {
	src := "0190a8b4-7c3e-7000-8000-0000000000ff"
	g := models.TransactionGroup{
		Base:                models.Base{ID: "g-1"},
		GroupNumber:         7,
		OrganizationID:      "org-1",
		Status:              ledger.StatusDraft,
		SourceTransactionID: &src,
		FundingType:         ledger.FundingDerived,
	}
	rows := []models.LegacyEntry{
		{Sequence: 1, AccountID: "a", DebitAmount: 10.25},
		{Sequence: 2, AccountID: "b", CreditAmount: 10.2},
	}

	l := LegacyView(g, rows)
	assert.Equal(t, "TG-000007", l.GroupNumber)
	assert.InDelta(t, 10.25, l.TotalAmount, 1e-9)
	assert.False(t, l.IsBalanced)
	assert.Equal(t, src, l.SourceTransactionID)
	assert.Len(t, l.Entries, 2)
}
