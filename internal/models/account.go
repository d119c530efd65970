package models

import "ledgerd/internal/ledger"

// AccountType is the classification of an account in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance returns the side on which accounts of this type grow.
func (t AccountType) NormalBalance() ledger.Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return ledger.SideDebit
	default:
		return ledger.SideCredit
	}
}

// Account is a node in an organization's chart of accounts.
type Account struct {
	Base
	OrganizationID string        `gorm:"type:uuid;not null;uniqueIndex:idx_accounts_org_code" json:"organization_id"`
	Code           string        `gorm:"not null;uniqueIndex:idx_accounts_org_code" json:"code"`
	Name           string        `gorm:"not null" json:"name"`
	AccountType    AccountType   `gorm:"not null" json:"account_type"`
	NormalBalance  ledger.Side   `gorm:"not null" json:"normal_balance"`
	ParentID       *string       `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Description    string        `json:"description"`
	IsActive       bool          `gorm:"not null;default:true" json:"is_active"`
	Balance        ledger.Amount `gorm:"type:bigint;not null;default:0" json:"balance"`
}

// Apply returns the account balance after posting e, following the account's
// normal side: debit-normal accounts grow with debits, credit-normal with credits.
func (a *Account) Apply(e ledger.Entry) ledger.Amount {
	delta := e.DebitAmount - e.CreditAmount
	if a.NormalBalance == ledger.SideCredit {
		delta = -delta
	}
	return a.Balance + delta
}
