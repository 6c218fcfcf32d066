package services

import (
	"context"
	"fmt"

	"tixmarket/internal/models"
)

// CatalogReader is the catalog access the availability validator needs
type CatalogReader interface {
	GetTicketType(ctx context.Context, id int) (*models.TicketType, error)
	GetTicketTypes(ctx context.Context, ids []int) (map[int]*models.TicketType, error)
}

// AvailabilityService validates cart lines against the live catalog. Its
// reads are unlocked snapshots; the reservation transaction re-checks
// under row locks, so a pass here is advisory, not a hold.
type AvailabilityService struct {
	catalog CatalogReader
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(catalog CatalogReader) *AvailabilityService {
	return &AvailabilityService{catalog: catalog}
}

// LineValidation is the verdict for one cart line
type LineValidation struct {
	TicketTypeID int                `json:"ticket_type_id"`
	Valid        bool               `json:"valid"`
	Reason       string             `json:"reason,omitempty"`
	Requested    int                `json:"requested"`
	Available    int                `json:"available"`
	UnitPrice    int                `json:"unit_price"`
	TicketType   *models.TicketType `json:"-"`
}

// ValidationResult aggregates per-line verdicts. Subtotal is computed from
// live prices, not the cart's snapshots.
type ValidationResult struct {
	Valid    bool             `json:"valid"`
	Lines    []LineValidation `json:"lines"`
	Subtotal int              `json:"subtotal"`
}

// FirstError converts the first failing line into its typed error, or nil
// if every line passed.
func (vr *ValidationResult) FirstError() error {
	for _, line := range vr.Lines {
		if line.Valid {
			continue
		}
		switch line.Reason {
		case "not_found":
			return &models.NotFoundError{Resource: "ticket type", ID: fmt.Sprintf("%d", line.TicketTypeID)}
		case "limit_exceeded":
			return &models.LimitError{TicketTypeID: line.TicketTypeID, MaxPerOrder: line.Available}
		default:
			return &models.AvailabilityError{
				TicketTypeID: line.TicketTypeID,
				Requested:    line.Requested,
				Available:    line.Available,
			}
		}
	}
	return nil
}

// ValidateCartItems checks every line against the live catalog: the ticket
// type must exist in this marketplace, be on sale, honor its per-order cap
// and have enough availability. Any failing line invalidates the whole
// result.
func (s *AvailabilityService) ValidateCartItems(ctx context.Context, marketplaceID int, items []models.CartItem) (*ValidationResult, error) {
	ids := make([]int, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.TicketTypeID)
	}
	types, err := s.catalog.GetTicketTypes(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket types: %w", err)
	}

	result := &ValidationResult{Valid: true}
	for _, item := range items {
		line := LineValidation{
			TicketTypeID: item.TicketTypeID,
			Requested:    item.Quantity,
		}
		tt, ok := types[item.TicketTypeID]
		switch {
		case !ok || tt.MarketplaceID != marketplaceID:
			line.Reason = "not_found"
		case !tt.IsActive():
			line.Reason = "not_on_sale"
			line.TicketType = tt
		case tt.MaxPerOrder > 0 && item.Quantity > tt.MaxPerOrder:
			line.Reason = "limit_exceeded"
			line.Available = tt.MaxPerOrder
			line.TicketType = tt
		case item.Quantity > tt.Available():
			line.Reason = "insufficient_availability"
			line.Available = tt.Available()
			line.UnitPrice = tt.Price
			line.TicketType = tt
		default:
			line.Valid = true
			line.Available = tt.Available()
			line.UnitPrice = tt.Price
			line.TicketType = tt
			result.Subtotal += tt.Price * item.Quantity
		}
		if !line.Valid {
			result.Valid = false
		}
		result.Lines = append(result.Lines, line)
	}
	return result, nil
}
