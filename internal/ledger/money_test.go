package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountFromDecimal(t *testing.T) {
	a, err := AmountFromDecimal(decimal.RequireFromString("1000.25"))
	require.NoError(t, err)
	assert.Equal(t, Amount(100025), a)
	assert.Equal(t, "1000.25", a.String())
	assert.True(t, a.Decimal().Equal(decimal.RequireFromString("1000.25")))

	_, err = AmountFromDecimal(decimal.RequireFromString("1.001"))
	assert.Error(t, err)

	_, err = AmountFromDecimal(decimal.RequireFromString("-1"))
	assert.Error(t, err)

	a, err = AmountFromDecimal(MaxAmount.Decimal())
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, a)

	for _, huge := range []string{"10000000000000.01", "92233720368547758.08", "1e30"} {
		_, err = AmountFromDecimal(decimal.RequireFromString(huge))
		assert.Error(t, err, huge)
	}
}

func TestAmountFromFloat(t *testing.T) {
	assert.Equal(t, Amount(50000), AmountFromFloat(500))
	assert.Equal(t, Amount(30), AmountFromFloat(0.1+0.2))
	assert.Equal(t, Amount(1235), AmountFromFloat(12.345))
	assert.InDelta(t, 12.35, Amount(1235).Float64(), 0.0001)
}

func TestTolerancePolicy(t *testing.T) {
	assert.True(t, DefaultTolerance.Balanced(0))
	assert.False(t, DefaultTolerance.Balanced(1))
	assert.False(t, DefaultTolerance.Balanced(-1))
	assert.True(t, TolerancePolicy{}.Balanced(0))
	assert.False(t, TolerancePolicy{}.Balanced(1))
}
