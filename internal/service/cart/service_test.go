package cart

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

func sampleItem(id string, price int64) domain.Item {
	return domain.Item{
		ID:        id,
		TagNumber: "T-" + id,
		Breed:     "Sokoto Gudali",
		Price:     decimal.NewFromInt(price),
		Quantity:  1,
		Status:    domain.AvailabilityAvailable,
		Images:    []string{"https://cdn.example/" + id + ".jpg"},
	}
}

func TestService_AddIsIdempotentPerItem(t *testing.T) {
	svc := NewService()

	cart, err := svc.Add("session-1", sampleItem("item-a", 150000))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Lines))
	}

	cart, err = svc.Add("session-1", sampleItem("item-a", 150000))
	if err != nil {
		t.Fatalf("repeat add: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("repeat add must be no-op, got %d lines", len(cart.Lines))
	}

	cart, err = svc.Add("session-1", sampleItem("item-b", 90000))
	if err != nil {
		t.Fatalf("add second: %v", err)
	}
	if len(cart.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(cart.Lines))
	}
	if !cart.Total().Equal(decimal.NewFromInt(240000)) {
		t.Fatalf("unexpected total: %s", cart.Total())
	}
}

func TestService_RemoveAndClear(t *testing.T) {
	svc := NewService()

	if _, err := svc.Add("session-1", sampleItem("item-a", 100)); err != nil {
		t.Fatalf("add: %v", err)
	}

	cart, err := svc.Remove("session-1", "item-missing")
	if err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("remove of absent item must be no-op, got %d lines", len(cart.Lines))
	}

	cart, err = svc.Remove("session-1", "item-a")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(cart.Lines))
	}

	if _, err := svc.Add("session-1", sampleItem("item-b", 100)); err != nil {
		t.Fatalf("add: %v", err)
	}
	svc.Clear("session-1")
	if got := svc.Get("session-1"); len(got.Lines) != 0 {
		t.Fatalf("expected cleared cart, got %d lines", len(got.Lines))
	}
}

func TestService_SessionsAreIsolated(t *testing.T) {
	svc := NewService()

	if _, err := svc.Add("session-1", sampleItem("item-a", 100)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add("session-2", sampleItem("item-b", 200)); err != nil {
		t.Fatalf("add: %v", err)
	}

	if cart := svc.Get("session-1"); !cart.Contains("item-a") || cart.Contains("item-b") {
		t.Fatalf("unexpected session-1 cart: %+v", cart)
	}
	if cart := svc.Get("session-2"); !cart.Contains("item-b") || cart.Contains("item-a") {
		t.Fatalf("unexpected session-2 cart: %+v", cart)
	}
}

func TestService_SnapshotSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carts.json")

	first := NewService(WithSnapshotPath(path))
	if _, err := first.Add("session-1", sampleItem("item-a", 150000)); err != nil {
		t.Fatalf("add: %v", err)
	}

	second := NewService(WithSnapshotPath(path))
	cart := second.Get("session-1")
	if len(cart.Lines) != 1 || cart.Lines[0].ItemID != "item-a" {
		t.Fatalf("restored cart mismatch: %+v", cart)
	}
	if !cart.Lines[0].Price.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("restored price mismatch: %s", cart.Lines[0].Price)
	}
}

func TestService_RequiresSession(t *testing.T) {
	svc := NewService()

	if _, err := svc.Add("", sampleItem("item-a", 100)); err == nil {
		t.Fatal("expected error for empty session id")
	}
	if _, err := svc.Remove("", "item-a"); err == nil {
		t.Fatal("expected error for empty session id")
	}
}
