package domain

import (
	"context"
	"errors"
	"testing"
)

func TestStoreUnavailable_KeepsCause(t *testing.T) {
	err := StoreUnavailable("select order", context.DeadlineExceeded)

	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatal("expected ErrStoreUnavailable")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected the driver cause to stay matchable")
	}
	if IsNotFound(err) {
		t.Fatal("store failure is not a not-found")
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "order", err: ErrOrderNotFound, want: true},
		{name: "buyer", err: ErrBuyerNotFound, want: true},
		{name: "wrapped", err: errors.Join(ErrOrderNotFound, errors.New("ctx")), want: true},
		{name: "other", err: ErrInvalidOrder, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidation(t *testing.T) {
	for _, err := range []error{ErrInvalidQuantity, ErrInvalidDiscount, ErrInvalidOrder, ErrInvalidOrderTransition, ErrInvalidBuyer, ErrExpiredCard} {
		if !IsValidation(err) {
			t.Errorf("expected %v to be a validation error", err)
		}
	}
	for _, err := range []error{ErrOrderNotFound, ErrStoreUnavailable, nil} {
		if IsValidation(err) {
			t.Errorf("expected %v not to be a validation error", err)
		}
	}
}
