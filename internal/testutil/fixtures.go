package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
	"ledgerd/internal/uuid"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewOrganizationID returns a fresh organization identifier.
func NewOrganizationID() string {
	return uuid.New()
}

// CreateTestAccount creates an active account of the given type with a unique code.
func CreateTestAccount(t *testing.T, db *gorm.DB, orgID string, accountType models.AccountType) *models.Account {
	t.Helper()

	n := nextID()
	account := &models.Account{
		OrganizationID: orgID,
		Code:           fmt.Sprintf("%d", 1000+n),
		Name:           fmt.Sprintf("Account %d", n),
		AccountType:    accountType,
		NormalBalance:  accountType.NormalBalance(),
		IsActive:       true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateInactiveTestAccount creates a deactivated account.
func CreateInactiveTestAccount(t *testing.T, db *gorm.DB, orgID string, accountType models.AccountType) *models.Account {
	t.Helper()

	account := CreateTestAccount(t, db, orgID, accountType)
	if err := db.Model(account).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate test account: %v", err)
	}
	account.IsActive = false
	return account
}

// BalancedEntries returns a debit on debitAccountID and a credit on
// creditAccountID, both for amount.
func BalancedEntries(debitAccountID, creditAccountID string, amount ledger.Amount) []ledger.Entry {
	return []ledger.Entry{
		{Sequence: 1, AccountID: debitAccountID, DebitAmount: amount},
		{Sequence: 2, AccountID: creditAccountID, CreditAmount: amount},
	}
}

// CreateTestGroup inserts an embedded transaction group directly, bypassing
// validation. Group numbers are drawn from the fixture counter.
func CreateTestGroup(t *testing.T, db *gorm.DB, orgID string, status ledger.Status, entries []ledger.Entry) *models.TransactionGroup {
	t.Helper()

	group := &models.TransactionGroup{
		GroupNumber:     1_000_000 + nextID(),
		OrganizationID:  orgID,
		Description:     "test transaction",
		TransactionDate: time.Now().UTC().Truncate(time.Second),
		Entries:         entries,
		Status:          status,
		TotalAmount:     ledger.TotalAmount(entries),
		FundingType:     ledger.FundingOriginal,
		CreatedBy:       uuid.New(),
		Version:         1,
		SchemaVersion:   models.SchemaVersionEmbedded,
	}
	if status == ledger.StatusConfirmed {
		now := time.Now().UTC()
		group.ConfirmedAt = &now
	}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed to create test transaction group: %v", err)
	}
	return group
}

// CreateLegacyTestGroup inserts a group in the normalized layout: no embedded
// entries, one transaction_entries row per entry, floating-point amounts.
func CreateLegacyTestGroup(t *testing.T, db *gorm.DB, orgID string, status ledger.Status, rows []models.LegacyEntry) *models.TransactionGroup {
	t.Helper()

	var debit, credit float64
	for _, r := range rows {
		debit += r.DebitAmount
		credit += r.CreditAmount
	}
	total := debit
	if credit > total {
		total = credit
	}

	group := &models.TransactionGroup{
		GroupNumber:     1_000_000 + nextID(),
		OrganizationID:  orgID,
		Description:     "legacy transaction",
		TransactionDate: time.Now().UTC().Truncate(time.Second),
		Status:          status,
		TotalAmount:     ledger.AmountFromFloat(total),
		FundingType:     ledger.FundingOriginal,
		CreatedBy:       uuid.New(),
		Version:         1,
		SchemaVersion:   models.SchemaVersionLegacy,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		for i := range rows {
			rows[i].TransactionGroupID = group.ID
			if err := tx.Create(&rows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to create legacy test group: %v", err)
	}
	group.Entries = nil
	return group
}

// LegacyRows builds normalized entry rows numbered from 1.
func LegacyRows(lines ...LegacyLine) []models.LegacyEntry {
	rows := make([]models.LegacyEntry, len(lines))
	for i, l := range lines {
		rows[i] = models.LegacyEntry{
			Sequence:     i + 1,
			AccountID:    l.AccountID,
			DebitAmount:  l.Debit,
			CreditAmount: l.Credit,
		}
		if l.Source != "" {
			source := l.Source
			rows[i].SourceTransactionID = &source
		}
	}
	return rows
}

// LegacyLine is one line of a legacy entry set.
type LegacyLine struct {
	AccountID string
	Debit     float64
	Credit    float64
	Source    string
}

// CreateTestUnitCost stores a pre-computed unit cost for a product.
func CreateTestUnitCost(t *testing.T, db *gorm.DB, orgID, productID string, cost string) *models.UnitCost {
	t.Helper()

	uc := &models.UnitCost{
		OrganizationID: orgID,
		ProductID:      productID,
		ComputedAt:     time.Now().UTC(),
	}
	if err := uc.UnitCost.Scan(cost); err != nil {
		t.Fatalf("invalid unit cost %q: %v", cost, err)
	}
	if err := db.Create(uc).Error; err != nil {
		t.Fatalf("failed to create unit cost: %v", err)
	}
	return uc
}

// SetGroupSource points a stored group at a primary funding source without
// recording any draw.
func SetGroupSource(t *testing.T, db *gorm.DB, groupID, sourceID string) {
	t.Helper()
	if err := db.Model(&models.TransactionGroup{}).Where("id = ?", groupID).
		Update("source_transaction_id", sourceID).Error; err != nil {
		t.Fatalf("failed to set group source: %v", err)
	}
}

// ReloadGroup fetches a group row as stored.
func ReloadGroup(t *testing.T, db *gorm.DB, id string) *models.TransactionGroup {
	t.Helper()

	var g models.TransactionGroup
	if err := db.Where("id = ?", id).First(&g).Error; err != nil {
		t.Fatalf("failed to reload transaction group %s: %v", id, err)
	}
	return &g
}

// ReloadAccount fetches an account row as stored.
func ReloadAccount(t *testing.T, db *gorm.DB, id string) *models.Account {
	t.Helper()

	var a models.Account
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		t.Fatalf("failed to reload account %s: %v", id, err)
	}
	return &a
}
