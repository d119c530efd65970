package services

import (
	"testing"

	"gorm.io/gorm"

	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
	"ledgerd/internal/pagination"
	"ledgerd/internal/testutil"
)

func TestApplyDraws(t *testing.T) {
	t.Run("group_level_draw", func(t *testing.T) {
		f := newLedgerFixture(t)
		source := f.postConfirmed(t, 100000)

		drawing, err := f.spend(t, source.ID, 30000)
		testutil.AssertNoError(t, err)
		if drawing.FundingType != ledger.FundingDerived {
			t.Errorf("expected derived funding, got %s", drawing.FundingType)
		}

		available, err := f.funding.AvailableAmount(f.db, source)
		testutil.AssertNoError(t, err)
		if available != 70000 {
			t.Errorf("expected 70000 available, got %d", available)
		}
	})

	t.Run("exceeds_available_is_not_clamped", func(t *testing.T) {
		f := newLedgerFixture(t)
		source := f.postConfirmed(t, 100000)
		_, err := f.spend(t, source.ID, 30000)
		testutil.AssertNoError(t, err)

		_, err = f.spend(t, source.ID, 80000)
		testutil.AssertAppError(t, err, "FUNDING_EXCEEDS_AVAILABLE")

		var count int64
		f.db.Model(&models.TransactionGroup{}).Count(&count)
		if count != 2 {
			t.Errorf("expected rejected group not to be stored, got %d groups", count)
		}
		available, err := f.funding.AvailableAmount(f.db, source)
		testutil.AssertNoError(t, err)
		if available != 70000 {
			t.Errorf("expected 70000 still available, got %d", available)
		}
	})

	t.Run("entry_level_draws", func(t *testing.T) {
		f := newLedgerFixture(t)
		a := f.postConfirmed(t, 1000)
		b := f.postConfirmed(t, 1000)

		g, err := f.groups.CreateTransactionGroup(ctxBG, f.actor, TransactionGroupInput{
			Entries: []ledger.Entry{
				{Sequence: 1, AccountID: f.expense.ID, DebitAmount: 600, SourceTransactionID: a.ID},
				{Sequence: 2, AccountID: f.expense.ID, DebitAmount: 400, SourceTransactionID: b.ID},
				{Sequence: 3, AccountID: f.bank.ID, CreditAmount: 1000},
			},
		})
		testutil.AssertNoError(t, err)
		if g.FundingType != ledger.FundingDerived {
			t.Errorf("expected derived funding, got %s", g.FundingType)
		}
		if len(g.Entries[0].FundingPath) != 1 || g.Entries[0].FundingPath[0] != a.ID {
			t.Errorf("expected funding path [a], got %v", g.Entries[0].FundingPath)
		}

		usedA, _ := f.funding.UsedAmount(f.db, a.ID)
		usedB, _ := f.funding.UsedAmount(f.db, b.ID)
		if usedA != 600 || usedB != 400 {
			t.Errorf("expected 600/400 used, got %d/%d", usedA, usedB)
		}
	})

	t.Run("funding_path_follows_chain", func(t *testing.T) {
		f := newLedgerFixture(t)
		root := f.postConfirmed(t, 10000)
		mid, err := f.spend(t, root.ID, 5000)
		testutil.AssertNoError(t, err)
		_, err = f.confirm.ConfirmTransactionGroup(ctxBG, f.actor, mid.ID)
		testutil.AssertNoError(t, err)

		leaf, err := f.groups.CreateTransactionGroup(ctxBG, f.actor, TransactionGroupInput{
			Entries: []ledger.Entry{
				{Sequence: 1, AccountID: f.expense.ID, DebitAmount: 100, SourceTransactionID: mid.ID},
				{Sequence: 2, AccountID: f.bank.ID, CreditAmount: 100},
			},
		})
		testutil.AssertNoError(t, err)
		path := leaf.Entries[0].FundingPath
		if len(path) != 2 || path[0] != root.ID || path[1] != mid.ID {
			t.Errorf("expected path [root mid], got %v", path)
		}
	})

	t.Run("unknown_source", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.spend(t, testutil.NewOrganizationID(), 100)
		testutil.AssertAppError(t, err, "INVALID_FUNDING_SOURCE")
	})

	t.Run("cancelled_source", func(t *testing.T) {
		f := newLedgerFixture(t)
		source := f.post(t, 1000)
		_, err := f.confirm.CancelTransactionGroup(ctxBG, f.actor, source.ID)
		testutil.AssertNoError(t, err)

		_, err = f.spend(t, source.ID, 100)
		testutil.AssertAppError(t, err, "INVALID_FUNDING_SOURCE")
	})

	t.Run("source_in_other_organization", func(t *testing.T) {
		f := newLedgerFixture(t)
		foreign := testutil.CreateTestGroup(t, f.db, testutil.NewOrganizationID(), ledger.StatusConfirmed, testutil.BalancedEntries("x", "y", 1000))
		_, err := f.spend(t, foreign.ID, 100)
		testutil.AssertAppError(t, err, "INVALID_FUNDING_SOURCE")
	})

	t.Run("cycle", func(t *testing.T) {
		f := newLedgerFixture(t)
		a := f.post(t, 1000)
		b, err := f.spend(t, a.ID, 500)
		testutil.AssertNoError(t, err)

		_, err = f.groups.UpdateTransactionGroup(ctxBG, f.actor, a.ID, TransactionGroupUpdateFields{SourceTransactionID: &b.ID})
		testutil.AssertAppError(t, err, "INVALID_FUNDING_SOURCE")
	})

	t.Run("self", func(t *testing.T) {
		f := newLedgerFixture(t)
		a := f.post(t, 1000)
		_, err := f.groups.UpdateTransactionGroup(ctxBG, f.actor, a.ID, TransactionGroupUpdateFields{SourceTransactionID: &a.ID})
		testutil.AssertAppError(t, err, "INVALID_FUNDING_SOURCE")
	})

	t.Run("redraw_on_update_excludes_own_previous_draw", func(t *testing.T) {
		f := newLedgerFixture(t)
		source := f.postConfirmed(t, 1000)
		drawing, err := f.spend(t, source.ID, 900)
		testutil.AssertNoError(t, err)

		_, err = f.groups.UpdateTransactionGroup(ctxBG, f.actor, drawing.ID, TransactionGroupUpdateFields{
			Entries: testutil.BalancedEntries(f.expense.ID, f.bank.ID, 1000),
		})
		testutil.AssertNoError(t, err)

		used, err := f.funding.UsedAmount(f.db, source.ID)
		testutil.AssertNoError(t, err)
		if used != 1000 {
			t.Errorf("expected 1000 used after redraw, got %d", used)
		}
	})
}

func TestAvailableNeverNegative(t *testing.T) {
	f := newLedgerFixture(t)
	source := f.postConfirmed(t, 1000)

	for _, amount := range []ledger.Amount{400, 400, 400, 200, 1} {
		_, _ = f.spend(t, source.ID, amount)
		available, err := f.funding.AvailableAmount(f.db, source)
		testutil.AssertNoError(t, err)
		if available < 0 {
			t.Fatalf("available went negative: %d", available)
		}
	}
	available, _ := f.funding.AvailableAmount(f.db, source)
	if available != 0 {
		t.Errorf("expected source fully drawn, got %d", available)
	}
}

func TestReferencedByAndDependents(t *testing.T) {
	f := newLedgerFixture(t)
	source := f.postConfirmed(t, 1000)
	first, err := f.spend(t, source.ID, 100)
	testutil.AssertNoError(t, err)
	second, err := f.spend(t, source.ID, 100)
	testutil.AssertNoError(t, err)
	_, err = f.confirm.CancelTransactionGroup(ctxBG, f.actor, second.ID)
	testutil.AssertNoError(t, err)

	refs, err := f.funding.ReferencedBy(f.db, source.ID)
	testutil.AssertNoError(t, err)
	if len(refs) != 2 {
		t.Errorf("expected both referencing groups, got %d", len(refs))
	}

	deps, err := f.funding.Dependents(f.db, source.ID)
	testutil.AssertNoError(t, err)
	if len(deps) != 1 || deps[0].ID != first.ID {
		t.Errorf("expected only the live group as dependent, got %+v", deps)
	}
}

func TestGetFundingInfo(t *testing.T) {
	f := newLedgerFixture(t)
	source := f.postConfirmed(t, 100000)
	drawing, err := f.spend(t, source.ID, 30000)
	testutil.AssertNoError(t, err)

	info, err := f.funding.GetFundingInfo(ctxBG, f.actor, source.ID)
	testutil.AssertNoError(t, err)
	if info.AvailableAmount != 70000 || info.UsedAmount != 30000 {
		t.Errorf("expected 70000 available / 30000 used, got %d / %d", info.AvailableAmount, info.UsedAmount)
	}
	if len(info.ReferencedBy) != 1 || info.ReferencedBy[0].ID != drawing.ID {
		t.Errorf("expected drawing group in referencedBy, got %+v", info.ReferencedBy)
	}

	info, err = f.funding.GetFundingInfo(ctxBG, f.actor, drawing.ID)
	testutil.AssertNoError(t, err)
	if len(info.FundingUsages) != 1 || info.FundingUsages[0].SourceGroupNumber != source.GroupNumber || info.FundingUsages[0].Amount != 30000 {
		t.Errorf("unexpected funding usages %+v", info.FundingUsages)
	}
	if len(info.FundingPath) != 1 || info.FundingPath[0] != source.ID {
		t.Errorf("expected path [source], got %v", info.FundingPath)
	}

	_, err = f.funding.GetFundingInfo(ctxBG, testActor(testutil.NewOrganizationID()), source.ID)
	testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
}

func TestGetAvailableSources(t *testing.T) {
	f := newLedgerFixture(t)
	full := f.postConfirmed(t, 1000)
	partial := f.postConfirmed(t, 1000)
	f.post(t, 5000)

	_, err := f.spend(t, full.ID, 1000)
	testutil.AssertNoError(t, err)
	_, err = f.spend(t, partial.ID, 250)
	testutil.AssertNoError(t, err)

	result, err := f.funding.GetAvailableSources(ctxBG, f.actor, pagination.PageRequest{Page: 1, PageSize: 10})
	testutil.AssertNoError(t, err)
	if result.TotalItems != 1 || len(result.Data) != 1 {
		t.Fatalf("expected only the partially drawn confirmed group, got %d", result.TotalItems)
	}
	if result.Data[0].ID != partial.ID || result.Data[0].AvailableAmount != 750 || result.Data[0].UsedAmount != 250 {
		t.Errorf("unexpected source %+v", result.Data[0])
	}
}

func TestRecordAndReleaseUsage(t *testing.T) {
	f := newLedgerFixture(t)
	source := f.postConfirmed(t, 1000)
	drawing := f.post(t, 10)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		return f.funding.RecordUsage(tx, drawing.ID, ledger.Draw{SourceID: source.ID, Amount: 300})
	})
	testutil.AssertNoError(t, err)
	used, _ := f.funding.UsedAmount(f.db, source.ID)
	if used != 300 {
		t.Errorf("expected 300 used, got %d", used)
	}

	testutil.AssertNoError(t, f.funding.ReleaseDraws(f.db, drawing.ID))
	used, _ = f.funding.UsedAmount(f.db, source.ID)
	if used != 0 {
		t.Errorf("expected 0 used after release, got %d", used)
	}
}
