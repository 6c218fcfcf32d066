package models

import "testing"

func TestTicketTypeAvailable(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		sold     int
		reserved int
		want     int
	}{
		{"untouched quota", 100, 0, 0, 100},
		{"partially sold", 100, 60, 10, 30},
		{"sold out", 100, 100, 0, 0},
		{"corrupt counters clamp to zero", 100, 90, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticketType := TicketType{QuotaTotal: tt.total, QuotaSold: tt.sold, QuotaReserved: tt.reserved}
			if got := ticketType.Available(); got != tt.want {
				t.Errorf("Available() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTicketTypeCheckQuotaInvariant(t *testing.T) {
	ok := TicketType{QuotaTotal: 10, QuotaSold: 6, QuotaReserved: 4}
	if !ok.CheckQuotaInvariant() {
		t.Error("quota at capacity should satisfy the invariant")
	}
	bad := TicketType{QuotaTotal: 10, QuotaSold: 7, QuotaReserved: 4}
	if bad.CheckQuotaInvariant() {
		t.Error("quota over capacity should violate the invariant")
	}
}

func TestEffectiveCommissionRate(t *testing.T) {
	eventRate := 8.0
	organizerRate := 6.5
	marketplace := &Marketplace{CommissionRate: 5.0}

	tests := []struct {
		name      string
		event     *Event
		organizer *Organizer
		want      float64
	}{
		{"marketplace default", &Event{}, &Organizer{}, 5.0},
		{"organizer override", &Event{}, &Organizer{CommissionRate: &organizerRate}, 6.5},
		{"event override wins", &Event{CommissionRate: &eventRate}, &Organizer{CommissionRate: &organizerRate}, 8.0},
		{"nil event and organizer", nil, nil, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveCommissionRate(tt.event, tt.organizer, marketplace); got != tt.want {
				t.Errorf("EffectiveCommissionRate() = %v, want %v", got, tt.want)
			}
		})
	}
}
