package ledger

import "fmt"

// MinEntries is the smallest number of entries a transaction group may hold.
const MinEntries = 2

// Problem classifies a single validation failure.
type Problem string

const (
	ProblemInsufficientEntries Problem = "insufficient_entries"
	ProblemMissingAccount      Problem = "missing_account"
	ProblemZeroAmount          Problem = "zero_amount"
	ProblemBothSides           Problem = "both_sides"
	ProblemNegativeAmount      Problem = "negative_amount"
	ProblemDuplicateSequence   Problem = "duplicate_sequence"
	ProblemUnbalanced          Problem = "unbalanced"
)

// EntryError describes one failure. Sequence is zero for group-level problems.
type EntryError struct {
	Sequence int     `json:"sequence,omitempty"`
	Problem  Problem `json:"problem"`
	Message  string  `json:"message"`
}

func (e EntryError) Error() string { return e.Message }

// ValidationResult is the outcome of validating an entry set.
type ValidationResult struct {
	IsValid     bool         `json:"isValid"`
	Errors      []EntryError `json:"errors"`
	TotalDebit  Amount       `json:"totalDebit"`
	TotalCredit Amount       `json:"totalCredit"`
	Difference  Amount       `json:"difference"`
	IsBalanced  bool         `json:"isBalanced"`
}

// Structural reports whether the result failed for a reason other than balance.
func (r ValidationResult) Structural() bool {
	for _, e := range r.Errors {
		if e.Problem != ProblemUnbalanced {
			return true
		}
	}
	return false
}

// First returns the first error, or nil when the entries are valid.
func (r ValidationResult) First() *EntryError {
	if len(r.Errors) == 0 {
		return nil
	}
	return &r.Errors[0]
}

// Validator checks entry sets against the balance invariant.
type Validator struct {
	Tolerance TolerancePolicy
}

// NewValidator creates a Validator using the given tolerance policy.
func NewValidator(tolerance TolerancePolicy) Validator {
	return Validator{Tolerance: tolerance}
}

// Validate checks cardinality, per-entry direction and balance. It does not
// modify its input and may be called any number of times.
func (v Validator) Validate(entries []Entry) ValidationResult {
	var errs []EntryError

	if len(entries) < MinEntries {
		errs = append(errs, EntryError{
			Problem: ProblemInsufficientEntries,
			Message: fmt.Sprintf("at least %d entries are required, got %d", MinEntries, len(entries)),
		})
	}

	seen := make(map[int]bool, len(entries))
	for i, e := range entries {
		label := e.Sequence
		if label == 0 {
			label = i + 1
		}
		if e.Sequence > 0 {
			if seen[e.Sequence] {
				errs = append(errs, EntryError{
					Sequence: e.Sequence,
					Problem:  ProblemDuplicateSequence,
					Message:  fmt.Sprintf("sequence %d is used more than once", e.Sequence),
				})
			}
			seen[e.Sequence] = true
		}
		if e.AccountID == "" {
			errs = append(errs, EntryError{
				Sequence: label,
				Problem:  ProblemMissingAccount,
				Message:  fmt.Sprintf("entry %d has no account", label),
			})
		}
		switch {
		case e.DebitAmount < 0 || e.CreditAmount < 0:
			errs = append(errs, EntryError{
				Sequence: label,
				Problem:  ProblemNegativeAmount,
				Message:  fmt.Sprintf("entry %d has a negative amount", label),
			})
		case e.DebitAmount == 0 && e.CreditAmount == 0:
			errs = append(errs, EntryError{
				Sequence: label,
				Problem:  ProblemZeroAmount,
				Message:  fmt.Sprintf("entry %d needs either a debit or a credit amount", label),
			})
		case e.DebitAmount > 0 && e.CreditAmount > 0:
			errs = append(errs, EntryError{
				Sequence: label,
				Problem:  ProblemBothSides,
				Message:  fmt.Sprintf("entry %d cannot have both a debit and a credit amount", label),
			})
		}
	}

	debit, credit := Totals(entries)
	diff := (debit - credit).Abs()
	balanced := v.Tolerance.Balanced(diff)
	if !balanced {
		errs = append(errs, EntryError{
			Problem: ProblemUnbalanced,
			Message: fmt.Sprintf("debits (%s) and credits (%s) differ by %s", debit, credit, diff),
		})
	}

	return ValidationResult{
		IsValid:     len(errs) == 0,
		Errors:      errs,
		TotalDebit:  debit,
		TotalCredit: credit,
		Difference:  diff,
		IsBalanced:  balanced,
	}
}
