package models

import "ledgerd/internal/ledger"

// FundingUsage records an amount a drawing group takes from a source group.
// Rows are rewritten together with the drawing group's entries.
type FundingUsage struct {
	Base
	SourceGroupID  string        `gorm:"type:uuid;not null;index" json:"source_group_id"`
	DrawingGroupID string        `gorm:"type:uuid;not null;index" json:"drawing_group_id"`
	EntrySequence  int           `gorm:"not null;default:0" json:"entry_sequence"`
	Amount         ledger.Amount `gorm:"type:bigint;not null" json:"amount"`
}
