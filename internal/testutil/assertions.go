package testutil

import (
	"errors"
	"testing"

	apperrors "ledgerd/internal/errors"
)

// AssertAppError checks that err is an *AppError with the expected code and
// returns it for further inspection.
func AssertAppError(t *testing.T, err error, expectedCode string) *apperrors.AppError {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
	return appErr
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AppErrorDetails returns the structured details of an *AppError.
func AppErrorDetails(t *testing.T, err error) map[string]interface{} {
	t.Helper()

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	details, ok := appErr.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map details, got %T", appErr.Details)
	}
	return details
}

// AssertDependents checks that err rejects a change because of exactly the
// given dependent groups, in order.
func AssertDependents(t *testing.T, err error, groupIDs ...string) {
	t.Helper()

	AssertAppError(t, err, "HAS_DEPENDENT_TRANSACTIONS")
	deps, ok := AppErrorDetails(t, err)["dependentTransactions"].([]map[string]interface{})
	if !ok {
		t.Fatalf("expected dependentTransactions in details, got %v", AppErrorDetails(t, err))
	}
	if len(deps) != len(groupIDs) {
		t.Fatalf("expected %d dependents, got %d: %v", len(groupIDs), len(deps), deps)
	}
	for i, id := range groupIDs {
		if deps[i]["id"] != id {
			t.Errorf("dependent %d: expected %s, got %v", i, id, deps[i]["id"])
		}
	}
}
