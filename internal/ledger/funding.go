package ledger

import (
	"fmt"
	"sort"
)

// FundingType records whether a group stands on its own or draws on others.
type FundingType string

const (
	FundingOriginal FundingType = "original"
	FundingDerived  FundingType = "derived"
)

// Draw is an amount taken from a source transaction group. EntrySequence is
// zero for a group-level draw.
type Draw struct {
	SourceID      string
	EntrySequence int
	Amount        Amount
}

// Draws lists the funding draws declared by a group. Each entry naming a
// source draws its own amount. A group-level source with no entry-level draw
// on it draws the group's total amount.
func Draws(groupSourceID string, entries []Entry) []Draw {
	var draws []Draw
	entryLevel := make(map[string]bool)
	for _, e := range entries {
		if e.SourceTransactionID == "" {
			continue
		}
		entryLevel[e.SourceTransactionID] = true
		draws = append(draws, Draw{
			SourceID:      e.SourceTransactionID,
			EntrySequence: e.Sequence,
			Amount:        e.Amount(),
		})
	}
	if groupSourceID != "" && !entryLevel[groupSourceID] {
		draws = append(draws, Draw{SourceID: groupSourceID, Amount: TotalAmount(entries)})
	}
	return draws
}

// DrawTotals sums draws per source.
func DrawTotals(draws []Draw) map[string]Amount {
	totals := make(map[string]Amount, len(draws))
	for _, d := range draws {
		totals[d.SourceID] += d.Amount
	}
	return totals
}

// SourceIDs returns the distinct sources of draws in sorted order.
func SourceIDs(draws []Draw) []string {
	totals := DrawTotals(draws)
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClassifyFunding returns derived when any draw exists.
func ClassifyFunding(draws []Draw) FundingType {
	if len(draws) > 0 {
		return FundingDerived
	}
	return FundingOriginal
}

// Available is what remains of total after used has been drawn.
func Available(total, used Amount) Amount {
	return total - used
}

// OverdrawError reports a draw larger than what the source has left.
type OverdrawError struct {
	SourceID  string
	Available Amount
	Requested Amount
}

func (e *OverdrawError) Error() string {
	return fmt.Sprintf("source %s has %s available, %s requested", e.SourceID, e.Available, e.Requested)
}

// CheckDraw fails when requested exceeds available. Amounts are never clamped.
func CheckDraw(sourceID string, available, requested Amount) error {
	if requested > available {
		return &OverdrawError{SourceID: sourceID, Available: available, Requested: requested}
	}
	return nil
}
