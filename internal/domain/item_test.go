package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDeriveAvailability(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		current  AvailabilityStatus
		want     AvailabilityStatus
	}{
		{
			name:     "zero quantity always sold",
			quantity: 0,
			current:  AvailabilityAvailable,
			want:     AvailabilitySold,
		},
		{
			name:     "negative quantity treated as sold",
			quantity: -1,
			current:  AvailabilityAvailable,
			want:     AvailabilitySold,
		},
		{
			name:     "positive quantity resurrects sold",
			quantity: 3,
			current:  AvailabilitySold,
			want:     AvailabilityAvailable,
		},
		{
			name:     "positive quantity keeps manual reserved",
			quantity: 2,
			current:  AvailabilityReserved,
			want:     AvailabilityReserved,
		},
		{
			name:     "positive quantity keeps manual pending",
			quantity: 1,
			current:  AvailabilityPending,
			want:     AvailabilityPending,
		},
		{
			name:     "positive quantity with empty status",
			quantity: 1,
			current:  "",
			want:     AvailabilityAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveAvailability(tt.quantity, tt.current)
			if got != tt.want {
				t.Errorf("DeriveAvailability(%d, %s) = %s, want %s", tt.quantity, tt.current, got, tt.want)
			}
		})
	}
}

func TestItemValidateInvariants(t *testing.T) {
	valid := Item{
		ID:        "item-1",
		TagNumber: "C001",
		Breed:     "Holstein",
		Price:     decimal.NewFromInt(150000),
		Quantity:  2,
		Status:    AvailabilityAvailable,
	}

	if errs := valid.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	bad := Item{
		TagNumber: " ",
		Breed:     "",
		Price:     decimal.Zero,
		Quantity:  -1,
		Status:    "Unknown",
	}

	errs := bad.ValidateInvariants()
	for _, want := range []error{
		ErrItemTagRequired,
		ErrItemBreedRequired,
		ErrItemPriceInvalid,
		ErrItemQuantityNegative,
		ErrItemStatusInvalid,
	} {
		found := false
		for _, err := range errs {
			if errors.Is(err, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected error %v in %v", want, errs)
		}
	}
}

func TestItemPrimaryImage(t *testing.T) {
	item := Item{}
	if got := item.PrimaryImage(); got != "" {
		t.Fatalf("expected empty primary image, got %q", got)
	}

	item.Images = []string{"https://cdn.example/one.jpg", "https://cdn.example/two.jpg"}
	if got := item.PrimaryImage(); got != "https://cdn.example/one.jpg" {
		t.Fatalf("expected first image as primary, got %q", got)
	}
}
