package repositories

import (
	"testing"

	"tixmarket/internal/models"
)

func discountLines(prices ...int) []models.CartItem {
	items := make([]models.CartItem, len(prices))
	for i, price := range prices {
		items[i] = models.CartItem{TicketTypeID: i + 1, Quantity: 1, UnitPrice: price}
	}
	return items
}

func TestAllocateDiscount(t *testing.T) {
	tests := []struct {
		name     string
		items    []models.CartItem
		discount int
		want     map[int]int
	}{
		{
			name:     "even split",
			items:    discountLines(5000, 5000),
			discount: 1000,
			want:     map[int]int{1: 500, 2: 500},
		},
		{
			name:     "remainder lands on last line",
			items:    discountLines(3333, 3333, 3334),
			discount: 1000,
			want:     map[int]int{1: 333, 2: 333, 3: 334},
		},
		{
			name:     "proportional to line totals",
			items:    discountLines(9000, 1000),
			discount: 500,
			want:     map[int]int{1: 450, 2: 50},
		},
		{
			name:     "discount clamped to subtotal",
			items:    discountLines(2000, 1000),
			discount: 5000,
			want:     map[int]int{1: 2000, 2: 1000},
		},
		{
			name:     "zero discount allocates nothing",
			items:    discountLines(5000),
			discount: 0,
			want:     map[int]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AllocateDiscount(tt.items, tt.discount)
			if len(got) != len(tt.want) {
				t.Fatalf("AllocateDiscount() = %v, want %v", got, tt.want)
			}
			total := 0
			for id, share := range tt.want {
				if got[id] != share {
					t.Errorf("line %d share = %d, want %d", id, got[id], share)
				}
				total += got[id]
			}
			subtotal := 0
			for _, item := range tt.items {
				subtotal += item.UnitPrice * item.Quantity
			}
			expected := tt.discount
			if expected > subtotal {
				expected = subtotal
			}
			if expected > 0 && total != expected {
				t.Errorf("allocations sum to %d, want %d", total, expected)
			}
		})
	}
}

func TestGroupByOrganizer(t *testing.T) {
	types := map[int]*models.TicketType{
		1: {ID: 1, OrganizerID: 7},
		2: {ID: 2, OrganizerID: 3},
		3: {ID: 3, OrganizerID: 7},
	}
	items := []models.CartItem{
		{TicketTypeID: 1, Quantity: 2, UnitPrice: 5000},
		{TicketTypeID: 2, Quantity: 1, UnitPrice: 3000},
		{TicketTypeID: 3, Quantity: 1, UnitPrice: 2000},
	}

	groups := groupByOrganizer(items, types)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].organizerID != 3 || groups[1].organizerID != 7 {
		t.Errorf("groups must be ordered by organizer id, got %d then %d",
			groups[0].organizerID, groups[1].organizerID)
	}
	if len(groups[0].items) != 1 || groups[0].items[0].TicketTypeID != 2 {
		t.Errorf("organizer 3 group should hold only ticket type 2, got %v", groups[0].items)
	}
	if len(groups[1].items) != 2 {
		t.Errorf("organizer 7 group should hold 2 lines, got %d", len(groups[1].items))
	}
}
