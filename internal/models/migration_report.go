package models

import (
	"time"

	"ledgerd/internal/ledger"
)

// MigrationIssue is one group the entry migration refused to write or found
// inconsistent afterwards.
type MigrationIssue struct {
	GroupID     string        `json:"group_id"`
	GroupNumber int64         `json:"group_number"`
	Reason      string        `json:"reason"`
	TotalDebit  ledger.Amount `json:"total_debit"`
	TotalCredit ledger.Amount `json:"total_credit"`
	Difference  ledger.Amount `json:"difference"`
}

// MigrationReport is persisted after each run of the entry migration.
type MigrationReport struct {
	Base
	StartedAt            time.Time        `gorm:"not null" json:"started_at"`
	FinishedAt           time.Time        `gorm:"not null" json:"finished_at"`
	DryRun               bool             `json:"dry_run"`
	Migrated             int              `json:"migrated"`
	Failed               int              `json:"failed"`
	Skipped              int              `json:"skipped"`
	OrphanedEntries      int64            `json:"orphaned_entries"`
	GroupsWithoutEntries int              `json:"groups_without_entries"`
	UsagesBackfilled     int              `json:"usages_backfilled"`
	Sampled              int              `json:"sampled"`
	SampleMismatches     int              `json:"sample_mismatches"`
	Errors               []MigrationIssue `gorm:"type:text;serializer:json" json:"errors"`
}
