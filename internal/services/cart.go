package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tixmarket/internal/models"
	"tixmarket/internal/utils"
)

// CartStore is the session persistence the cart service needs
type CartStore interface {
	PutCart(ctx context.Context, cart *models.Cart) error
	GetCart(ctx context.Context, token string) (*models.Cart, error)
	DeleteCart(ctx context.Context, token string) error
}

// CartService handles cart business logic. Carts are bearer-token owned
// blobs; every successful mutation rewrites the blob and resets its TTL.
type CartService struct {
	store   CartStore
	catalog CatalogReader
	promos  *PromoService
}

// NewCartService creates a new cart service
func NewCartService(store CartStore, catalog CatalogReader, promos *PromoService) *CartService {
	return &CartService{store: store, catalog: catalog, promos: promos}
}

// Get retrieves a cart by token
func (s *CartService) Get(ctx context.Context, token string) (*models.Cart, error) {
	cart, err := s.store.GetCart(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrCartNotFound) {
			return nil, &models.NotFoundError{Resource: "cart", ID: token}
		}
		return nil, err
	}
	return cart, nil
}

// getOrCreate loads the cart for a token, minting a fresh cart when the
// token is empty or its cart has expired.
func (s *CartService) getOrCreate(ctx context.Context, marketplace *models.Marketplace, token string) (*models.Cart, error) {
	if token != "" {
		cart, err := s.store.GetCart(ctx, token)
		if err == nil {
			if cart.MarketplaceID != marketplace.ID {
				return nil, &models.AuthorizationError{Message: "cart belongs to a different marketplace"}
			}
			return cart, nil
		}
		if !errors.Is(err, models.ErrCartNotFound) {
			return nil, err
		}
	}
	fresh, err := utils.GenerateToken(utils.CartTokenPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to generate cart token: %w", err)
	}
	return &models.Cart{
		Token:         fresh,
		MarketplaceID: marketplace.ID,
		Currency:      marketplace.Currency,
	}, nil
}

// Add puts quantity tickets of a type into the cart, merging with any
// existing line. The merged quantity is checked against live availability
// and the per-order cap, and the line's price snapshot is refreshed.
func (s *CartService) Add(ctx context.Context, marketplace *models.Marketplace, token string, ticketTypeID, quantity int) (*models.Cart, error) {
	if quantity < 1 || quantity > models.CartMaxQuantity {
		return nil, &models.ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("quantity must be between 1 and %d", models.CartMaxQuantity),
		}
	}

	cart, err := s.getOrCreate(ctx, marketplace, token)
	if err != nil {
		return nil, err
	}

	tt, err := s.catalog.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	if tt.MarketplaceID != marketplace.ID {
		return nil, &models.NotFoundError{Resource: "ticket type", ID: fmt.Sprintf("%d", ticketTypeID)}
	}
	if !tt.IsActive() {
		return nil, &models.AvailabilityError{TicketTypeID: tt.ID, Requested: quantity, Available: 0}
	}

	merged := quantity
	if existing := cart.FindItem(ticketTypeID); existing != nil {
		merged += existing.Quantity
	}
	if tt.MaxPerOrder > 0 && merged > tt.MaxPerOrder {
		return nil, &models.LimitError{TicketTypeID: tt.ID, MaxPerOrder: tt.MaxPerOrder}
	}
	if available := tt.Available(); merged > available {
		return nil, &models.AvailabilityError{TicketTypeID: tt.ID, Requested: merged, Available: available}
	}

	cart.UpsertItem(models.CartItem{
		TicketTypeID: tt.ID,
		EventID:      tt.EventID,
		Quantity:     merged,
		UnitPrice:    tt.Price,
		AddedAt:      time.Now(),
	})
	if err := s.store.PutCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// UpdateQuantity sets a line's quantity directly. Zero removes the line.
// Availability is not re-checked here; checkout revalidates everything.
func (s *CartService) UpdateQuantity(ctx context.Context, token string, ticketTypeID, quantity int) (*models.Cart, error) {
	if quantity < 0 || quantity > models.CartMaxQuantity {
		return nil, &models.ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("quantity must be between 0 and %d", models.CartMaxQuantity),
		}
	}

	cart, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	item := cart.FindItem(ticketTypeID)
	if item == nil {
		return nil, &models.NotFoundError{Resource: "cart item", ID: fmt.Sprintf("%d", ticketTypeID)}
	}
	if quantity == 0 {
		cart.RemoveItem(ticketTypeID)
	} else {
		item.Quantity = quantity
	}
	if err := s.store.PutCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// Remove drops a line from the cart. Removing an absent line is a no-op.
func (s *CartService) Remove(ctx context.Context, token string, ticketTypeID int) (*models.Cart, error) {
	cart, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	cart.RemoveItem(ticketTypeID)
	if err := s.store.PutCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// Clear empties the cart and drops any applied promo. Clearing an expired
// or unknown cart succeeds silently.
func (s *CartService) Clear(ctx context.Context, token string) error {
	cart, err := s.store.GetCart(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrCartNotFound) {
			return nil
		}
		return err
	}
	cart.Items = nil
	cart.Promo = nil
	return s.store.PutCart(ctx, cart)
}

// ApplyPromo validates a code against the cart and snapshots it onto the
// cart. Usage counters are untouched until an order commits.
func (s *CartService) ApplyPromo(ctx context.Context, marketplace *models.Marketplace, token, code string) (*models.Cart, error) {
	cart, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, &models.ValidationError{Field: "promo_code", Message: "cannot apply a promo code to an empty cart"}
	}

	promo, err := s.promos.ValidateForCart(ctx, marketplace.ID, code, cart)
	if err != nil {
		if errors.Is(err, models.ErrPromoNotFound) {
			return nil, &models.NotFoundError{Resource: "promo code", ID: code}
		}
		return nil, err
	}

	cart.Promo = &models.CartPromo{
		Code:          promo.Code,
		DiscountType:  promo.DiscountType,
		DiscountValue: promo.DiscountValue,
		MaxDiscount:   promo.MaxDiscount,
	}
	if err := s.store.PutCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// RemovePromo drops the applied promo code, if any.
func (s *CartService) RemovePromo(ctx context.Context, token string) (*models.Cart, error) {
	cart, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	cart.Promo = nil
	if err := s.store.PutCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}
