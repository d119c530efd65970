package services

import (
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
	"ledgerd/internal/testutil"
)

// ledgerFixture wires the ledger services over one test database with a
// small chart of accounts.
type ledgerFixture struct {
	db       *gorm.DB
	actor    Actor
	accounts AccountServicer
	funding  FundingServicer
	groups   TransactionGroupServicer
	confirm  ConfirmationServicer

	cash    *models.Account
	bank    *models.Account
	revenue *models.Account
	expense *models.Account
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	log := zap.NewNop().Sugar()
	org := testutil.NewOrganizationID()
	accounts := NewAccountService(db, log)
	funding := NewFundingService(db, log)

	return &ledgerFixture{
		db:       db,
		actor:    testActor(org),
		accounts: accounts,
		funding:  funding,
		groups:   NewTransactionGroupService(db, accounts, funding, NewUnitCostStore(db), ledger.DefaultTolerance, log),
		confirm:  NewConfirmationService(db, accounts, funding, ledger.DefaultTolerance, log),
		cash:     testutil.CreateTestAccount(t, db, org, models.AccountTypeAsset),
		bank:     testutil.CreateTestAccount(t, db, org, models.AccountTypeAsset),
		revenue:  testutil.CreateTestAccount(t, db, org, models.AccountTypeRevenue),
		expense:  testutil.CreateTestAccount(t, db, org, models.AccountTypeExpense),
	}
}

// post creates a draft group moving amount from revenue into cash.
func (f *ledgerFixture) post(t *testing.T, amount ledger.Amount) *models.TransactionGroup {
	t.Helper()
	g, err := f.groups.CreateTransactionGroup(ctxBG, f.actor, TransactionGroupInput{
		Description: "sale",
		Entries:     testutil.BalancedEntries(f.cash.ID, f.revenue.ID, amount),
	})
	testutil.AssertNoError(t, err)
	return g
}

// postConfirmed creates and confirms a group of amount.
func (f *ledgerFixture) postConfirmed(t *testing.T, amount ledger.Amount) *models.TransactionGroup {
	t.Helper()
	g := f.post(t, amount)
	confirmed, err := f.confirm.ConfirmTransactionGroup(ctxBG, f.actor, g.ID)
	testutil.AssertNoError(t, err)
	return confirmed
}

// spend creates a draft group paying amount of expense out of bank, funded by sourceID.
func (f *ledgerFixture) spend(t *testing.T, sourceID string, amount ledger.Amount) (*models.TransactionGroup, error) {
	t.Helper()
	return f.groups.CreateTransactionGroup(ctxBG, f.actor, TransactionGroupInput{
		Description:         "purchase",
		Entries:             testutil.BalancedEntries(f.expense.ID, f.bank.ID, amount),
		SourceTransactionID: &sourceID,
	})
}
