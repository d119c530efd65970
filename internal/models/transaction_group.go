package models

import (
	"time"

	"ledgerd/internal/ledger"
)

// Schema generations of a transaction group row.
const (
	// SchemaVersionLegacy rows keep their entries in the transaction_entries table.
	SchemaVersionLegacy = 1
	// SchemaVersionEmbedded rows carry their entries in the entries column.
	SchemaVersionEmbedded = 2
)

// TransactionGroup is the atomic unit of a ledger posting. Its entries are
// embedded in the row and written together with it.
type TransactionGroup struct {
	Base
	GroupNumber          int64              `gorm:"not null;uniqueIndex" json:"group_number"`
	OrganizationID       string             `gorm:"type:uuid;not null;index" json:"organization_id"`
	Description          string             `json:"description"`
	TransactionDate      time.Time          `gorm:"not null;index" json:"transaction_date"`
	Entries              []ledger.Entry     `gorm:"type:text;serializer:json" json:"entries"`
	Status               ledger.Status      `gorm:"not null;default:'draft';index" json:"status"`
	TotalAmount          ledger.Amount      `gorm:"type:bigint;not null;default:0" json:"total_amount"`
	SourceTransactionID  *string            `gorm:"type:uuid;index" json:"source_transaction_id,omitempty"`
	LinkedTransactionIDs []string           `gorm:"type:text;serializer:json" json:"linked_transaction_ids,omitempty"`
	FundingType          ledger.FundingType `gorm:"not null;default:'original'" json:"funding_type"`
	CreatedBy            string             `gorm:"type:uuid" json:"created_by"`
	ConfirmedAt          *time.Time         `json:"confirmed_at,omitempty"`
	Version              int64              `gorm:"not null;default:1" json:"version"`
	SchemaVersion        int                `gorm:"not null;default:2" json:"schema_version"`
}

// SourceID returns the primary funding source or an empty string.
func (g *TransactionGroup) SourceID() string {
	if g.SourceTransactionID == nil {
		return ""
	}
	return *g.SourceTransactionID
}
