package models

// SequenceTransactionGroup names the counter that hands out group numbers.
const SequenceTransactionGroup = "transaction_group"

// LedgerSequence is a named monotonically increasing counter.
type LedgerSequence struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}
