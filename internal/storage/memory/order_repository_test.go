package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/obinnaokafor/stockyard/internal/domain"
)

func TestOrderRepository_ListAllFallsBackToSnapshots(t *testing.T) {
	store := NewStore()
	items := NewItemRepository(store)
	orders := NewOrderRepository(store)
	checkout := NewCheckoutRepository(store)

	seedItem(t, store, "item-kept", 2, domain.AvailabilityAvailable, 80000)
	seedItem(t, store, "item-doomed", 1, domain.AvailabilityAvailable, 95000)

	if _, err := checkout.Commit(context.Background(), commitFor("R-kept", "item-kept")); err != nil {
		t.Fatalf("commit kept: %v", err)
	}
	if _, err := checkout.Commit(context.Background(), commitFor("R-doomed", "item-doomed")); err != nil {
		t.Fatalf("commit doomed: %v", err)
	}

	if err := items.Delete(context.Background(), "item-doomed"); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	all, err := orders.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}

	for _, admin := range all {
		switch admin.ItemID {
		case "item-kept":
			if admin.ItemDeleted {
				t.Fatal("item-kept must not be marked deleted")
			}
			if admin.DisplayBreed != "Sokoto Gudali" {
				t.Fatalf("unexpected display breed: %s", admin.DisplayBreed)
			}
		case "item-doomed":
			if !admin.ItemDeleted {
				t.Fatal("item-doomed must be marked deleted")
			}
			// Витрина собирается из снимка на заказе.
			if admin.DisplayTag != "T-item-doomed" {
				t.Fatalf("unexpected snapshot tag: %s", admin.DisplayTag)
			}
		default:
			t.Fatalf("unexpected order for item %s", admin.ItemID)
		}
	}
}

func TestOrderRepository_UpdateDeliveryStatus(t *testing.T) {
	store := NewStore()
	orders := NewOrderRepository(store)
	checkout := NewCheckoutRepository(store)

	seedItem(t, store, "item-d", 1, domain.AvailabilityAvailable, 70000)
	res, err := checkout.Commit(context.Background(), commitFor("R-d", "item-d"))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	orderID := res.OrderIDs[0]
	if err := orders.UpdateDeliveryStatus(context.Background(), orderID, domain.DeliveryStatusShipped); err != nil {
		t.Fatalf("update delivery status: %v", err)
	}

	order, err := orders.Get(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.DeliveryStatus != domain.DeliveryStatusShipped {
		t.Fatalf("expected Shipped, got %s", order.DeliveryStatus)
	}
	if order.PaymentStatus != domain.PaymentStatusSuccessful {
		t.Fatalf("payment status must stay untouched, got %s", order.PaymentStatus)
	}

	if err := orders.UpdateDeliveryStatus(context.Background(), "missing", domain.DeliveryStatusDelivered); err == nil || !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListByBuyerAndReference(t *testing.T) {
	store := NewStore()
	orders := NewOrderRepository(store)
	checkout := NewCheckoutRepository(store)

	seedItem(t, store, "item-a", 3, domain.AvailabilityAvailable, 60000)

	commit := commitFor("R-multi", "item-a")
	commit.Lines = append(commit.Lines, domain.CheckoutLine{ItemID: "item-a"})
	if _, err := checkout.Commit(context.Background(), commit); err != nil {
		t.Fatalf("commit: %v", err)
	}

	guest := commitFor("R-guest", "item-a")
	guest.BuyerID = ""
	guest.GuestEmail = "guest@example.com"
	if _, err := checkout.Commit(context.Background(), guest); err != nil {
		t.Fatalf("guest commit: %v", err)
	}

	byBuyer, err := orders.ListByBuyer(context.Background(), "buyer-1")
	if err != nil {
		t.Fatalf("list by buyer: %v", err)
	}
	if len(byBuyer) != 2 {
		t.Fatalf("expected 2 buyer orders, got %d", len(byBuyer))
	}

	byRef, err := orders.ListByPaymentReference(context.Background(), "R-multi")
	if err != nil {
		t.Fatalf("list by reference: %v", err)
	}
	if len(byRef) != 2 {
		t.Fatalf("expected 2 orders for R-multi, got %d", len(byRef))
	}
	for _, order := range byRef {
		if order.PaymentReference != "R-multi" {
			t.Fatalf("unexpected reference: %s", order.PaymentReference)
		}
	}
}
