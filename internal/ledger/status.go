package ledger

import (
	"fmt"
	"strings"
)

// Status is the confirmation state of a transaction group.
//
// Transitions:
//
//	draft     → confirmed | cancelled
//	confirmed → draft (unlock, only without live dependents)
//	cancelled → (terminal)
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further change is accepted.
func (s Status) Terminal() bool {
	return s == StatusCancelled
}

var transitions = map[Status][]Status{
	StatusDraft:     {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusDraft},
}

// CanTransition reports whether moving from one status to another is allowed
// by the state machine, ignoring guards that need external data.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionError is returned when a status change is not permitted.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move transaction from %s to %s", e.From, e.To)
}

// Transition validates a status change.
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// StatusError is returned by EnsureStatus when the current status is outside
// the allowed set.
type StatusError struct {
	Current Status
	Allowed []Status
}

func (e *StatusError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("transaction is %s, expected %s", e.Current, strings.Join(allowed, " or "))
}

// EnsureStatus is the generic edit guard: it fails unless current is one of allowed.
func EnsureStatus(current Status, allowed ...Status) error {
	for _, s := range allowed {
		if s == current {
			return nil
		}
	}
	return &StatusError{Current: current, Allowed: allowed}
}
