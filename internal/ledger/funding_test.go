package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraws_GroupLevel(t *testing.T) {
	entries := []Entry{debit(1, "expense", 40000), credit(2, "cash", 40000)}
	draws := Draws("g1", entries)

	require.Len(t, draws, 1)
	assert.Equal(t, Draw{SourceID: "g1", Amount: 40000}, draws[0])
	assert.Equal(t, FundingDerived, ClassifyFunding(draws))
}

func TestDraws_EntryLevel(t *testing.T) {
	entries := []Entry{
		{Sequence: 1, AccountID: "expense", DebitAmount: 30000, SourceTransactionID: "g1"},
		{Sequence: 2, AccountID: "expense", DebitAmount: 20000, SourceTransactionID: "g2"},
		credit(3, "cash", 50000),
	}
	draws := Draws("g1", entries)

	require.Len(t, draws, 2)
	totals := DrawTotals(draws)
	assert.Equal(t, Amount(30000), totals["g1"])
	assert.Equal(t, Amount(20000), totals["g2"])
	assert.Equal(t, []string{"g1", "g2"}, SourceIDs(draws))
}

func TestDraws_None(t *testing.T) {
	draws := Draws("", []Entry{debit(1, "a", 1), credit(2, "b", 1)})
	assert.Empty(t, draws)
	assert.Equal(t, FundingOriginal, ClassifyFunding(draws))
}

func TestCheckDraw(t *testing.T) {
	assert.NoError(t, CheckDraw("g1", 100, 100))

	err := CheckDraw("g1", 100, 101)
	var oe *OverdrawError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, Amount(100), oe.Available)
	assert.Equal(t, Amount(101), oe.Requested)
	assert.Equal(t, Amount(60000), Available(100000, 40000))
}

func TestCostOfSalesEntries(t *testing.T) {
	entries, err := CostOfSalesEntries(decimal.RequireFromString("2.335"), decimal.NewFromInt(3), "cogs", "inventory", "sale")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Amount(701), entries[0].DebitAmount)
	assert.Equal(t, Amount(701), entries[1].CreditAmount)
	assert.True(t, NewValidator(DefaultTolerance).Validate(entries).IsValid)

	_, err = CostOfSalesEntries(decimal.Zero, decimal.NewFromInt(1), "cogs", "inventory", "")
	assert.Error(t, err)
	_, err = CostOfSalesEntries(decimal.NewFromInt(1), decimal.NewFromInt(-1), "cogs", "inventory", "")
	assert.Error(t, err)
}
