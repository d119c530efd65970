package services

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
	"ledgerd/internal/testutil"
)

func TestEmbedEntries(t *testing.T) {
	t.Run("migrates_skips_and_reports", func(t *testing.T) {
		f := newLedgerFixture(t)
		org := f.actor.OrganizationID
		svc := NewMigrationService(f.db, f.funding, ledger.DefaultTolerance, zap.NewNop().Sugar())

		var good []*models.TransactionGroup
		for i := 0; i < 5; i++ {
			good = append(good, testutil.CreateLegacyTestGroup(t, f.db, org, ledger.StatusConfirmed, testutil.LegacyRows(
				testutil.LegacyLine{AccountID: f.cash.ID, Debit: 10.10},
				testutil.LegacyLine{AccountID: f.bank.ID, Debit: 0.20},
				testutil.LegacyLine{AccountID: f.revenue.ID, Credit: 10.30},
			)))
		}
		unbalanced := testutil.CreateLegacyTestGroup(t, f.db, org, ledger.StatusDraft, testutil.LegacyRows(
			testutil.LegacyLine{AccountID: f.cash.ID, Debit: 100},
			testutil.LegacyLine{AccountID: f.revenue.ID, Credit: 99},
		))
		empty := testutil.CreateLegacyTestGroup(t, f.db, org, ledger.StatusDraft, nil)
		embedded := f.post(t, 100)
		orphan := models.LegacyEntry{TransactionGroupID: testutil.NewOrganizationID(), Sequence: 1, AccountID: f.cash.ID, DebitAmount: 1}
		testutil.AssertNoError(t, f.db.Create(&orphan).Error)

		report, err := svc.EmbedEntries(ctxBG, EmbedOptions{BatchSize: 2, SampleSize: 3})
		testutil.AssertNoError(t, err)

		if report.Migrated != 5 {
			t.Errorf("expected 5 migrated, got %d", report.Migrated)
		}
		if report.Failed != 1 || len(report.Errors) != 1 || report.Errors[0].GroupID != unbalanced.ID {
			t.Fatalf("expected the unbalanced group reported, got %d failed / %+v", report.Failed, report.Errors)
		}
		if report.Errors[0].Difference != 100 {
			t.Errorf("expected difference 100 minor units, got %d", report.Errors[0].Difference)
		}
		if report.Skipped != 1 || report.GroupsWithoutEntries != 1 {
			t.Errorf("expected the empty group skipped, got skipped=%d without_entries=%d", report.Skipped, report.GroupsWithoutEntries)
		}
		if report.OrphanedEntries != 1 {
			t.Errorf("expected 1 orphaned entry, got %d", report.OrphanedEntries)
		}
		if report.Sampled != 3 || report.SampleMismatches != 0 {
			t.Errorf("expected 3 clean samples, got %d sampled / %d mismatches", report.Sampled, report.SampleMismatches)
		}

		for _, g := range good {
			stored := testutil.ReloadGroup(t, f.db, g.ID)
			if stored.SchemaVersion != models.SchemaVersionEmbedded || len(stored.Entries) != 3 {
				t.Fatalf("expected group %s embedded with 3 entries, got schema %d / %d entries", g.ID, stored.SchemaVersion, len(stored.Entries))
			}
			if stored.TotalAmount != 1030 || stored.Status != ledger.StatusConfirmed {
				t.Errorf("expected total 1030 and status kept, got %d / %s", stored.TotalAmount, stored.Status)
			}
		}
		if stored := testutil.ReloadGroup(t, f.db, unbalanced.ID); stored.SchemaVersion != models.SchemaVersionLegacy {
			t.Error("expected unbalanced group left in the legacy layout")
		}
		if stored := testutil.ReloadGroup(t, f.db, empty.ID); stored.SchemaVersion != models.SchemaVersionLegacy {
			t.Error("expected empty group left in the legacy layout")
		}
		if stored := testutil.ReloadGroup(t, f.db, embedded.ID); stored.Version != embedded.Version {
			t.Error("expected already embedded group untouched")
		}

		latest, err := svc.LatestReport(ctxBG)
		testutil.AssertNoError(t, err)
		if latest.ID != report.ID || latest.Migrated != 5 || len(latest.Errors) != 1 {
			t.Errorf("expected persisted report, got %+v", latest)
		}
	})

	t.Run("rerun_is_idempotent", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewMigrationService(f.db, f.funding, ledger.DefaultTolerance, zap.NewNop().Sugar())
		testutil.CreateLegacyTestGroup(t, f.db, f.actor.OrganizationID, ledger.StatusDraft, testutil.LegacyRows(
			testutil.LegacyLine{AccountID: f.cash.ID, Debit: 1},
			testutil.LegacyLine{AccountID: f.revenue.ID, Credit: 1},
		))

		first, err := svc.EmbedEntries(ctxBG, EmbedOptions{})
		testutil.AssertNoError(t, err)
		second, err := svc.EmbedEntries(ctxBG, EmbedOptions{})
		testutil.AssertNoError(t, err)
		if first.Migrated != 1 || second.Migrated != 0 {
			t.Errorf("expected 1 then 0 migrated, got %d then %d", first.Migrated, second.Migrated)
		}
	})

	t.Run("dry_run_writes_nothing", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewMigrationService(f.db, f.funding, ledger.DefaultTolerance, zap.NewNop().Sugar())
		g := testutil.CreateLegacyTestGroup(t, f.db, f.actor.OrganizationID, ledger.StatusDraft, testutil.LegacyRows(
			testutil.LegacyLine{AccountID: f.cash.ID, Debit: 3},
			testutil.LegacyLine{AccountID: f.revenue.ID, Credit: 3},
		))

		report, err := svc.EmbedEntries(ctxBG, EmbedOptions{DryRun: true, SampleSize: 5})
		testutil.AssertNoError(t, err)
		if !report.DryRun || report.Migrated != 1 || report.Sampled != 0 {
			t.Errorf("unexpected dry run report %+v", report)
		}
		if stored := testutil.ReloadGroup(t, f.db, g.ID); stored.SchemaVersion != models.SchemaVersionLegacy {
			t.Error("expected dry run to leave the group in the legacy layout")
		}
	})

	t.Run("migrated_group_reads_the_same", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewMigrationService(f.db, f.funding, ledger.DefaultTolerance, zap.NewNop().Sugar())
		g := testutil.CreateLegacyTestGroup(t, f.db, f.actor.OrganizationID, ledger.StatusConfirmed, testutil.LegacyRows(
			testutil.LegacyLine{AccountID: f.cash.ID, Debit: 99.99},
			testutil.LegacyLine{AccountID: f.revenue.ID, Credit: 99.99},
		))

		before, err := f.groups.GetTransactionGroupByID(ctxBG, f.actor, g.ID)
		testutil.AssertNoError(t, err)
		_, err = svc.EmbedEntries(ctxBG, EmbedOptions{})
		testutil.AssertNoError(t, err)
		after, err := f.groups.GetTransactionGroupByID(ctxBG, f.actor, g.ID)
		testutil.AssertNoError(t, err)

		if len(before.Entries) != len(after.Entries) {
			t.Fatalf("entry count changed: %d -> %d", len(before.Entries), len(after.Entries))
		}
		for i := range before.Entries {
			if before.Entries[i].DebitAmount != after.Entries[i].DebitAmount || before.Entries[i].CreditAmount != after.Entries[i].CreditAmount {
				t.Errorf("entry %d changed: %+v -> %+v", i, before.Entries[i], after.Entries[i])
			}
		}
	})
}

func TestEmbedEntriesFunding(t *testing.T) {
	t.Run("legacy_draws_count_against_source", func(t *testing.T) {
		f := newLedgerFixture(t)
		org := f.actor.OrganizationID
		svc := NewMigrationService(f.db, f.funding, ledger.DefaultTolerance, zap.NewNop().Sugar())
		source := f.postConfirmed(t, 100000)

		groupLevel := testutil.CreateLegacyTestGroup(t, f.db, org, ledger.StatusConfirmed, testutil.LegacyRows(
			testutil.LegacyLine{AccountID: f.expense.ID, Debit: 400},
			testutil.LegacyLine{AccountID: f.bank.ID, Credit: 400},
		))
		testutil.SetGroupSource(t, f.db, groupLevel.ID, source.ID)
		entryLevel := testutil.CreateLegacyTestGroup(t, f.db, org, ledger.StatusConfirmed, testutil.LegacyRows(
			testutil.LegacyLine{AccountID: f.expense.ID, Debit: 100, Source: source.ID},
			testutil.LegacyLine{AccountID: f.bank.ID, Credit: 100},
		))

		report, err := svc.EmbedEntries(ctxBG, EmbedOptions{})
		testutil.AssertNoError(t, err)
		if report.Migrated != 2 || report.Failed != 0 {
			t.Fatalf("expected 2 migrated, got %d migrated / %d failed: %+v", report.Migrated, report.Failed, report.Errors)
		}

		available, err := f.funding.AvailableAmount(f.db, source)
		testutil.AssertNoError(t, err)
		if available != 50000 {
			t.Errorf("expected 50000 available after legacy draws of 400 and 100, got %d", available)
		}
		for _, id := range []string{groupLevel.ID, entryLevel.ID} {
			if stored := testutil.ReloadGroup(t, f.db, id); stored.FundingType != ledger.FundingDerived {
				t.Errorf("expected group %s derived, got %s", id, stored.FundingType)
			}
		}

		_, err = f.spend(t, source.ID, 100000)
		testutil.AssertAppError(t, err, "FUNDING_EXCEEDS_AVAILABLE")
		_, err = f.spend(t, source.ID, 50000)
		testutil.AssertNoError(t, err)
	})

	t.Run("backfills_embedded_groups_without_usages", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewMigrationService(f.db, f.funding, ledger.DefaultTolerance, zap.NewNop().Sugar())
		source := f.postConfirmed(t, 100000)
		drawing := testutil.CreateTestGroup(t, f.db, f.actor.OrganizationID, ledger.StatusConfirmed,
			testutil.BalancedEntries(f.expense.ID, f.bank.ID, 30000))
		testutil.SetGroupSource(t, f.db, drawing.ID, source.ID)

		dry, err := svc.EmbedEntries(ctxBG, EmbedOptions{DryRun: true})
		testutil.AssertNoError(t, err)
		if dry.UsagesBackfilled != 1 {
			t.Errorf("expected dry run to count 1 backfill, got %d", dry.UsagesBackfilled)
		}
		used, err := f.funding.UsedAmount(f.db, source.ID)
		testutil.AssertNoError(t, err)
		if used != 0 {
			t.Errorf("expected dry run to record nothing, got %d used", used)
		}

		first, err := svc.EmbedEntries(ctxBG, EmbedOptions{})
		testutil.AssertNoError(t, err)
		second, err := svc.EmbedEntries(ctxBG, EmbedOptions{})
		testutil.AssertNoError(t, err)
		if first.UsagesBackfilled != 1 || second.UsagesBackfilled != 0 {
			t.Errorf("expected 1 then 0 backfilled, got %d then %d", first.UsagesBackfilled, second.UsagesBackfilled)
		}

		available, err := f.funding.AvailableAmount(f.db, source)
		testutil.AssertNoError(t, err)
		if available != 70000 {
			t.Errorf("expected 70000 available, got %d", available)
		}
		_, err = f.confirm.UnlockTransactionGroup(ctxBG, f.actor, source.ID)
		testutil.AssertDependents(t, err, drawing.ID)
	})

	t.Run("missing_source_is_reported", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewMigrationService(f.db, f.funding, ledger.DefaultTolerance, zap.NewNop().Sugar())
		missing := testutil.NewOrganizationID()
		g := testutil.CreateLegacyTestGroup(t, f.db, f.actor.OrganizationID, ledger.StatusConfirmed, testutil.LegacyRows(
			testutil.LegacyLine{AccountID: f.expense.ID, Debit: 10, Source: missing},
			testutil.LegacyLine{AccountID: f.bank.ID, Credit: 10},
		))

		report, err := svc.EmbedEntries(ctxBG, EmbedOptions{})
		testutil.AssertNoError(t, err)
		if report.Failed != 1 || len(report.Errors) != 1 || !strings.Contains(report.Errors[0].Reason, missing) {
			t.Fatalf("expected the missing source reported, got %d failed / %+v", report.Failed, report.Errors)
		}
		if stored := testutil.ReloadGroup(t, f.db, g.ID); stored.SchemaVersion != models.SchemaVersionLegacy {
			t.Error("expected group left in the legacy layout")
		}
	})

	t.Run("malformed_group_has_no_difference", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewMigrationService(f.db, f.funding, ledger.DefaultTolerance, zap.NewNop().Sugar())
		testutil.CreateLegacyTestGroup(t, f.db, f.actor.OrganizationID, ledger.StatusDraft, testutil.LegacyRows(
			testutil.LegacyLine{AccountID: f.cash.ID, Debit: 10},
		))

		report, err := svc.EmbedEntries(ctxBG, EmbedOptions{})
		testutil.AssertNoError(t, err)
		if report.Failed != 1 || len(report.Errors) != 1 {
			t.Fatalf("expected 1 failure, got %d / %+v", report.Failed, report.Errors)
		}
		if issue := report.Errors[0]; issue.Difference != 0 || issue.TotalDebit != 1000 {
			t.Errorf("expected totals without a difference, got %+v", issue)
		}
	})
}

func TestLatestReportMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewMigrationService(db, NewFundingService(db, zap.NewNop().Sugar()), ledger.DefaultTolerance, zap.NewNop().Sugar())

	_, err := svc.LatestReport(ctxBG)
	testutil.AssertAppError(t, err, "NOT_FOUND")
}
