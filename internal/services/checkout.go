package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"tixmarket/internal/models"
	"tixmarket/internal/payment"
	"tixmarket/internal/repositories"
	"tixmarket/internal/utils"
)

// CheckoutStore is the session persistence the checkout manager needs
type CheckoutStore interface {
	GetCart(ctx context.Context, token string) (*models.Cart, error)
	DeleteCart(ctx context.Context, token string) error
	PutCheckout(ctx context.Context, session *models.CheckoutSession) error
	ConsumeCheckout(ctx context.Context, id string) (*models.CheckoutSession, error)
}

// OrderCreator is the reservation transaction surface the checkout
// manager hands off to
type OrderCreator interface {
	CreateFromCheckout(ctx context.Context, params repositories.CreateOrderParams) (*repositories.CheckoutOrders, error)
	SetPaymentReference(ctx context.Context, checkoutID, reference string) error
}

// EventReader loads events for commission resolution
type EventReader interface {
	GetEvents(ctx context.Context, ids []int) (map[int]*models.Event, error)
}

// OrganizerReader loads organizers for commission resolution
type OrganizerReader interface {
	GetOrganizers(ctx context.Context, ids []int) (map[int]*models.Organizer, error)
}

// GatewayResolver builds the payment gateway for a marketplace
type GatewayResolver func(marketplace *models.Marketplace) (payment.Gateway, error)

// CheckoutService freezes carts into single-use checkout sessions and
// completes them into orders plus a payment intent.
type CheckoutService struct {
	store        CheckoutStore
	availability *AvailabilityService
	promos       *PromoService
	orders       OrderCreator
	events       EventReader
	organizers   OrganizerReader
	gateways     GatewayResolver
	baseURL      string
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	store CheckoutStore,
	availability *AvailabilityService,
	promos *PromoService,
	orders OrderCreator,
	events EventReader,
	organizers OrganizerReader,
	gateways GatewayResolver,
	baseURL string,
) *CheckoutService {
	return &CheckoutService{
		store:        store,
		availability: availability,
		promos:       promos,
		orders:       orders,
		events:       events,
		organizers:   organizers,
		gateways:     gateways,
		baseURL:      baseURL,
	}
}

// CompleteResult is what a finished checkout hands back to the buyer
type CompleteResult struct {
	Orders      []*models.Order `json:"orders"`
	Total       int             `json:"total"`
	Currency    string          `json:"currency"`
	Reference   string          `json:"reference"`
	RedirectURL string          `json:"redirect_url,omitempty"`
}

// Init freezes a cart into a 15-minute single-use checkout session with
// locked totals. The cart itself stays alive; only completion consumes it.
func (s *CheckoutService) Init(ctx context.Context, marketplace *models.Marketplace, cartToken string) (*models.CheckoutSession, error) {
	cart, err := s.store.GetCart(ctx, cartToken)
	if err != nil {
		if errors.Is(err, models.ErrCartNotFound) {
			return nil, &models.NotFoundError{Resource: "cart", ID: cartToken}
		}
		return nil, err
	}
	if cart.MarketplaceID != marketplace.ID {
		return nil, &models.AuthorizationError{Message: "cart belongs to a different marketplace"}
	}
	if cart.IsEmpty() {
		return nil, &models.ValidationError{Field: "cart", Message: "cart is empty"}
	}

	validation, err := s.availability.ValidateCartItems(ctx, marketplace.ID, cart.Items)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, validation.FirstError()
	}

	// Lock in live prices; the cart's snapshots may be stale.
	items := make([]models.CartItem, len(cart.Items))
	copy(items, cart.Items)
	for i := range items {
		for _, line := range validation.Lines {
			if line.TicketTypeID == items[i].TicketTypeID {
				items[i].UnitPrice = line.UnitPrice
			}
		}
	}
	subtotal := validation.Subtotal

	var promoSnapshot *models.CartPromo
	discount := 0
	if cart.Promo != nil {
		promo, err := s.promos.ValidateForCart(ctx, marketplace.ID, cart.Promo.Code, cart)
		if err != nil {
			if errors.Is(err, models.ErrPromoNotFound) {
				return nil, &models.ValidationError{Field: "promo_code", Message: "applied promo code no longer exists"}
			}
			return nil, err
		}
		promoSnapshot = &models.CartPromo{
			Code:          promo.Code,
			DiscountType:  promo.DiscountType,
			DiscountValue: promo.DiscountValue,
			MaxDiscount:   promo.MaxDiscount,
		}
		discount = CalculateDiscount(promo, subtotal)
	}

	total := subtotal - discount
	if marketplace.CommissionMode == models.CommissionOnTop {
		commission, err := s.previewCommission(ctx, marketplace, items, validation, discount)
		if err != nil {
			return nil, err
		}
		total += commission
	}

	id, err := utils.GenerateToken(utils.CheckoutTokenPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to generate checkout id: %w", err)
	}
	now := time.Now()
	session := &models.CheckoutSession{
		ID:             id,
		CartToken:      cart.Token,
		MarketplaceID:  marketplace.ID,
		Items:          items,
		Promo:          promoSnapshot,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Total:          total,
		Currency:       cart.Currency,
		PaymentMethods: []string{marketplace.PaymentProcessor},
		CreatedAt:      now,
		ExpiresAt:      now.Add(models.CheckoutTTL),
	}
	if err := s.store.PutCheckout(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}
	return session, nil
}

// previewCommission mirrors the per-line commission computation the
// reservation transaction performs, so the displayed total matches the
// charged total for additive-commission marketplaces.
func (s *CheckoutService) previewCommission(ctx context.Context, marketplace *models.Marketplace, items []models.CartItem, validation *ValidationResult, discount int) (int, error) {
	types := make(map[int]*models.TicketType, len(validation.Lines))
	for _, line := range validation.Lines {
		types[line.TicketTypeID] = line.TicketType
	}

	var eventIDs, organizerIDs []int
	seenEvent, seenOrganizer := map[int]bool{}, map[int]bool{}
	for _, tt := range types {
		if !seenEvent[tt.EventID] {
			seenEvent[tt.EventID] = true
			eventIDs = append(eventIDs, tt.EventID)
		}
		if !seenOrganizer[tt.OrganizerID] {
			seenOrganizer[tt.OrganizerID] = true
			organizerIDs = append(organizerIDs, tt.OrganizerID)
		}
	}
	events, err := s.events.GetEvents(ctx, eventIDs)
	if err != nil {
		return 0, err
	}
	organizers, err := s.organizers.GetOrganizers(ctx, organizerIDs)
	if err != nil {
		return 0, err
	}

	lineDiscounts := repositories.AllocateDiscount(items, discount)
	commission := 0
	for _, item := range items {
		tt := types[item.TicketTypeID]
		rate := models.EffectiveCommissionRate(events[tt.EventID], organizers[tt.OrganizerID], marketplace)
		net := item.UnitPrice*item.Quantity - lineDiscounts[item.TicketTypeID]
		commission += int(math.Round(float64(net) * rate / 100))
	}
	return commission, nil
}

// Complete consumes a checkout session exactly once, runs the reservation
// transaction and initiates payment. The session token is claimed
// atomically up front, so two racing completions cannot both proceed.
func (s *CheckoutService) Complete(ctx context.Context, marketplace *models.Marketplace, checkoutID string, info *models.CustomerInfo) (*CompleteResult, error) {
	if err := models.ValidateCustomerInfo(info); err != nil {
		return nil, err
	}

	session, err := s.store.ConsumeCheckout(ctx, checkoutID)
	if err != nil {
		if errors.Is(err, models.ErrCheckoutNotFound) {
			return nil, &models.ExpiredError{Resource: "checkout session", ID: checkoutID}
		}
		return nil, err
	}
	if session.MarketplaceID != marketplace.ID {
		return nil, &models.AuthorizationError{Message: "checkout session belongs to a different marketplace"}
	}
	if session.IsExpired(time.Now()) {
		return nil, &models.ExpiredError{Resource: "checkout session", ID: checkoutID}
	}

	// Advisory re-check before entering the locked transaction, so a
	// plainly lost race gets a clean availability error.
	validation, err := s.availability.ValidateCartItems(ctx, marketplace.ID, session.Items)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, validation.FirstError()
	}

	var promo *models.PromoCode
	if session.Promo != nil {
		promo, err = s.promos.ValidateForCart(ctx, marketplace.ID, session.Promo.Code,
			&models.Cart{Items: session.Items})
		if err != nil {
			if errors.Is(err, models.ErrPromoNotFound) {
				return nil, &models.ValidationError{Field: "promo_code", Message: "applied promo code no longer exists"}
			}
			return nil, err
		}
	}

	passwordHash := ""
	if info.Password != "" {
		passwordHash, err = utils.HashPassword(info.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	created, err := s.orders.CreateFromCheckout(ctx, repositories.CreateOrderParams{
		Marketplace:  marketplace,
		Checkout:     session,
		Customer:     info,
		PasswordHash: passwordHash,
		Promo:        promo,
	})
	if err != nil {
		return nil, err
	}

	// The cart served its purpose; losing this delete only means the cart
	// lingers until its TTL.
	if err := s.store.DeleteCart(ctx, session.CartToken); err != nil {
		log.Printf("failed to delete cart %s after checkout: %v", session.CartToken, err)
	}

	intent, err := s.initiatePayment(ctx, marketplace, session, created, info)
	if err != nil {
		// Orders stay pending; the buyer can retry payment until the
		// reservation hold lapses and the sweep releases the seats.
		return nil, err
	}

	result := &CompleteResult{
		Orders:      created.Orders,
		Total:       created.Total,
		Currency:    session.Currency,
		Reference:   intent.Reference,
		RedirectURL: intent.RedirectURL,
	}
	return result, nil
}

func (s *CheckoutService) initiatePayment(ctx context.Context, marketplace *models.Marketplace, session *models.CheckoutSession, created *repositories.CheckoutOrders, info *models.CustomerInfo) (*payment.PaymentIntent, error) {
	gateway, err := s.gateways(marketplace)
	if err != nil {
		return nil, err
	}

	primary := created.Orders[0]
	intent, err := gateway.CreatePayment(ctx, &payment.PaymentContext{
		OrderID:       primary.ID,
		OrderNumber:   primary.OrderNumber,
		Amount:        created.Total,
		Currency:      session.Currency,
		CustomerEmail: info.Email,
		CustomerName:  info.FullName(),
		CustomerPhone: info.Phone,
		Description:   fmt.Sprintf("Order %s", primary.OrderNumber),
		ReturnURL:     fmt.Sprintf("%s/%s/payment/return", s.baseURL, marketplace.Slug),
		CancelURL:     fmt.Sprintf("%s/%s/payment/cancel", s.baseURL, marketplace.Slug),
		CallbackURL:   fmt.Sprintf("%s/payment/callback/%s", s.baseURL, marketplace.Slug),
		Metadata:      map[string]string{"checkout_id": session.ID},
	})
	if err != nil {
		var paymentErr *models.PaymentError
		if errors.As(err, &paymentErr) {
			return nil, err
		}
		return nil, &models.PaymentError{Processor: gateway.Name(), Message: err.Error()}
	}

	if err := s.orders.SetPaymentReference(ctx, session.ID, intent.Reference); err != nil {
		return nil, err
	}
	return intent, nil
}
