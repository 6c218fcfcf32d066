package models

import "testing"

func TestCartUpsertItem(t *testing.T) {
	cart := Cart{}
	cart.UpsertItem(CartItem{TicketTypeID: 1, Quantity: 2, UnitPrice: 1000})
	cart.UpsertItem(CartItem{TicketTypeID: 2, Quantity: 1, UnitPrice: 500})
	cart.UpsertItem(CartItem{TicketTypeID: 1, Quantity: 5, UnitPrice: 1100})

	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(cart.Items))
	}
	// Upsert replaces in place, preserving line order.
	if cart.Items[0].TicketTypeID != 1 || cart.Items[0].Quantity != 5 || cart.Items[0].UnitPrice != 1100 {
		t.Errorf("line 0 not replaced: %+v", cart.Items[0])
	}
	if cart.Subtotal() != 5*1100+500 {
		t.Errorf("Subtotal() = %d, want %d", cart.Subtotal(), 5*1100+500)
	}
	if cart.TicketCount() != 6 {
		t.Errorf("TicketCount() = %d, want 6", cart.TicketCount())
	}
}

func TestCartRemoveItem(t *testing.T) {
	cart := Cart{Items: []CartItem{{TicketTypeID: 1, Quantity: 2}}}
	cart.RemoveItem(1)
	if !cart.IsEmpty() {
		t.Error("cart should be empty after removing its only line")
	}
	// Removing an absent line is a no-op.
	cart.RemoveItem(99)
	if !cart.IsEmpty() {
		t.Error("removing an absent line should not change the cart")
	}
}

func TestCartEventIDs(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{TicketTypeID: 1, EventID: 10},
		{TicketTypeID: 2, EventID: 10},
		{TicketTypeID: 3, EventID: 20},
	}}
	ids := cart.EventIDs()
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 20 {
		t.Errorf("EventIDs() = %v, want [10 20]", ids)
	}
}
