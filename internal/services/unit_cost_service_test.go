package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgerd/internal/testutil"
)

func TestUnitCostStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	store := NewUnitCostStore(db)
	org := testutil.NewOrganizationID()

	older := testutil.CreateTestUnitCost(t, db, org, "sku-1", "9.00")
	db.Model(older).Update("computed_at", time.Now().Add(-time.Hour))
	testutil.CreateTestUnitCost(t, db, org, "sku-1", "10.25")

	cost, err := store.UnitCost(ctxBG, org, "sku-1")
	testutil.AssertNoError(t, err)
	if !cost.Equal(decimal.RequireFromString("10.25")) {
		t.Errorf("expected latest unit cost 10.25, got %s", cost)
	}

	_, err = store.UnitCost(ctxBG, testutil.NewOrganizationID(), "sku-1")
	testutil.AssertAppError(t, err, "NOT_FOUND")
}
