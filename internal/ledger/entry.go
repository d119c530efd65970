package ledger

// Side is the direction of an entry.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Entry is one debit or credit line of a transaction group. It has no identity
// outside the group that owns it; Sequence orders it within that group.
type Entry struct {
	Sequence            int      `json:"sequence"`
	AccountID           string   `json:"accountId"`
	DebitAmount         Amount   `json:"debitAmount"`
	CreditAmount        Amount   `json:"creditAmount"`
	Description         string   `json:"description,omitempty"`
	SourceTransactionID string   `json:"sourceTransactionId,omitempty"`
	FundingPath         []string `json:"fundingPath,omitempty"`
}

// Side returns the direction of a well-formed entry. Entries with a positive
// debit are debits, everything else is reported as a credit.
func (e Entry) Side() Side {
	if e.DebitAmount > 0 {
		return SideDebit
	}
	return SideCredit
}

// Amount returns the value on the entry's side.
func (e Entry) Amount() Amount {
	if e.DebitAmount > 0 {
		return e.DebitAmount
	}
	return e.CreditAmount
}

// Totals sums debits and credits.
func Totals(entries []Entry) (debit, credit Amount) {
	for _, e := range entries {
		debit += e.DebitAmount
		credit += e.CreditAmount
	}
	return debit, credit
}

// TotalAmount is the larger of the debit and credit totals.
func TotalAmount(entries []Entry) Amount {
	debit, credit := Totals(entries)
	if debit > credit {
		return debit
	}
	return credit
}

// Resequence assigns 1..n sequences to entries that arrived without one,
// keeping any explicit sequence untouched.
func Resequence(entries []Entry) []Entry {
	used := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.Sequence > 0 {
			used[e.Sequence] = true
		}
	}
	next := 1
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if e.Sequence <= 0 {
			for used[next] {
				next++
			}
			e.Sequence = next
			used[next] = true
		}
		out[i] = e
	}
	return out
}
