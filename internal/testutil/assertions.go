package testutil

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
)

// AssertAppError fails unless err carries the AppError code want, directly
// or wrapped.
func AssertAppError(t testing.TB, err error, want string) {
	t.Helper()

	var appErr *apperrors.AppError
	switch {
	case err == nil:
		t.Fatalf("expected %s, got nil", want)
	case !errors.As(err, &appErr):
		t.Fatalf("expected %s, got %T: %v", want, err, err)
	case appErr.Code != want:
		t.Errorf("expected %s, got %s (%s)", want, appErr.Code, appErr.Message)
	}
}

// AssertNoError stops the test on a non-nil err.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertDecimal compares amounts by value, so "1.50" equals "1.5".
func AssertDecimal(t testing.TB, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(D(want)) {
		t.Errorf("expected %s %s, got %s", name, want, got)
	}
}
