package models

// LegacyEntry is an entry stored in its own row with a foreign key to its
// group. Amounts are floating-point major units, as they were written before
// entries were embedded in transaction_groups.
type LegacyEntry struct {
	Base
	TransactionGroupID  string   `gorm:"type:uuid;not null;index" json:"transactionGroupId"`
	Sequence            int      `gorm:"not null" json:"sequence"`
	AccountID           string   `gorm:"type:uuid;not null" json:"accountId"`
	DebitAmount         float64  `gorm:"not null;default:0" json:"debitAmount"`
	CreditAmount        float64  `gorm:"not null;default:0" json:"creditAmount"`
	Description         string   `json:"description"`
	SourceTransactionID *string  `gorm:"type:uuid" json:"sourceTransactionId,omitempty"`
	FundingPath         []string `gorm:"type:text;serializer:json" json:"fundingPath,omitempty"`
}

// TableName keeps the table name used by the normalized schema.
func (LegacyEntry) TableName() string {
	return "transaction_entries"
}
