package services

import (
	"context"
	"math"
	"time"

	"tixmarket/internal/models"
)

// PromoReader is the promo code access the evaluator needs
type PromoReader interface {
	GetByCode(ctx context.Context, marketplaceID int, code string) (*models.PromoCode, error)
}

// PromoService evaluates promo codes against carts. Evaluation never
// mutates usage counters; times_used moves only inside the reservation
// transaction.
type PromoService struct {
	promos PromoReader
}

// NewPromoService creates a new promo service
func NewPromoService(promos PromoReader) *PromoService {
	return &PromoService{promos: promos}
}

// ValidateForCart resolves a code within the marketplace scope and checks
// every eligibility rule against the cart. Returns the live promo row on
// success.
func (s *PromoService) ValidateForCart(ctx context.Context, marketplaceID int, code string, cart *models.Cart) (*models.PromoCode, error) {
	promo, err := s.promos.GetByCode(ctx, marketplaceID, code)
	if err != nil {
		return nil, err
	}
	if !promo.Active {
		return nil, &models.ValidationError{Field: "promo_code", Message: "promo code is not active"}
	}
	if !promo.IsWithinWindow(time.Now()) {
		return nil, &models.ValidationError{Field: "promo_code", Message: "promo code is outside its validity window"}
	}
	if promo.IsExhausted() {
		return nil, &models.ValidationError{Field: "promo_code", Message: "promo code has reached its usage limit"}
	}
	if promo.MinPurchase > 0 && cart.Subtotal() < promo.MinPurchase {
		return nil, &models.ValidationError{Field: "promo_code", Message: "cart total is below the promo code minimum"}
	}
	if promo.MinTickets > 0 && cart.TicketCount() < promo.MinTickets {
		return nil, &models.ValidationError{Field: "promo_code", Message: "cart has too few tickets for this promo code"}
	}
	if !promo.AppliesToEvents(cart.EventIDs()) {
		return nil, &models.ValidationError{Field: "promo_code", Message: "promo code does not apply to these events"}
	}
	return promo, nil
}

// CalculateDiscount computes the discount a promo yields on an amount in
// minor units. Percent discounts round half away from zero and honor the
// max discount cap; fixed discounts never exceed the amount itself. The
// result is never negative.
func CalculateDiscount(promo *models.PromoCode, amount int) int {
	if amount <= 0 {
		return 0
	}
	var discount int
	switch promo.DiscountType {
	case models.DiscountPercent:
		discount = int(math.Round(float64(amount) * float64(promo.DiscountValue) / 100))
		if promo.MaxDiscount > 0 && discount > promo.MaxDiscount {
			discount = promo.MaxDiscount
		}
	case models.DiscountFixed:
		discount = promo.DiscountValue
	}
	if discount > amount {
		discount = amount
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// DiscountForCartPromo applies the snapshot carried on a cart or checkout
// session without a database round trip.
func DiscountForCartPromo(promo *models.CartPromo, amount int) int {
	if promo == nil {
		return 0
	}
	return CalculateDiscount(&models.PromoCode{
		DiscountType:  promo.DiscountType,
		DiscountValue: promo.DiscountValue,
		MaxDiscount:   promo.MaxDiscount,
	}, amount)
}
