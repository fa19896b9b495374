package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{NotFound("task %d not found", 4), KindNotFound},
		{Validation("daysLate must be >= 0"), KindValidation},
		{InsufficientFunds("need %d points", 100), KindInsufficientFunds},
		{Conflict("task changed"), KindConflict},
		{fmt.Errorf("complete task: %w", Conflict("raced")), KindConflict},
		{errors.New("disk full"), KindInternal},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("redeem: %w", InsufficientFunds("balance 60 < cost 100"))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Error("expected errors.Is to match ErrInsufficientFunds")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("did not expect errors.Is to match ErrNotFound")
	}
	if err.Error() != "redeem: balance 60 < cost 100" {
		t.Errorf("message = %q", err.Error())
	}
}
