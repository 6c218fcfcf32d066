package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tixmarket/internal/models"
)

// fakeCartStore keeps carts in a map, standing in for Redis.
type fakeCartStore struct {
	carts map[string]*models.Cart
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{carts: make(map[string]*models.Cart)}
}

func (f *fakeCartStore) PutCart(ctx context.Context, cart *models.Cart) error {
	copied := *cart
	copied.Items = append([]models.CartItem(nil), cart.Items...)
	f.carts[cart.Token] = &copied
	return nil
}

func (f *fakeCartStore) GetCart(ctx context.Context, token string) (*models.Cart, error) {
	cart, ok := f.carts[token]
	if !ok {
		return nil, models.ErrCartNotFound
	}
	copied := *cart
	copied.Items = append([]models.CartItem(nil), cart.Items...)
	return &copied, nil
}

func (f *fakeCartStore) DeleteCart(ctx context.Context, token string) error {
	delete(f.carts, token)
	return nil
}

func testMarketplace() *models.Marketplace {
	return &models.Marketplace{ID: 1, Slug: "fest", Currency: "RON", CommissionRate: 5}
}

func newCartService(catalog *MockCatalogReader) (*CartService, *fakeCartStore) {
	store := newFakeCartStore()
	return NewCartService(store, catalog, NewPromoService(new(MockPromoReader))), store
}

func TestCartAdd(t *testing.T) {
	catalog := new(MockCatalogReader)
	catalog.On("GetTicketType", mock.Anything, 1).Return(activeType(1, 1, 5000, 100, 0, 10), nil)
	svc, _ := newCartService(catalog)

	cart, err := svc.Add(context.Background(), testMarketplace(), "", 1, 2)
	assert.NoError(t, err)
	assert.NotEmpty(t, cart.Token)
	assert.Equal(t, "RON", cart.Currency)
	assert.Equal(t, 2, cart.TicketCount())
	assert.Equal(t, 10000, cart.Subtotal())

	// Adding again merges into the existing line.
	cart, err = svc.Add(context.Background(), testMarketplace(), cart.Token, 1, 3)
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartAddQuantityBounds(t *testing.T) {
	svc, _ := newCartService(new(MockCatalogReader))

	for _, quantity := range []int{0, -1, 11} {
		_, err := svc.Add(context.Background(), testMarketplace(), "", 1, quantity)
		var validationErr *models.ValidationError
		assert.ErrorAs(t, err, &validationErr, "quantity %d must be rejected", quantity)
	}
}

func TestCartAddMergedQuantityChecks(t *testing.T) {
	catalog := new(MockCatalogReader)
	catalog.On("GetTicketType", mock.Anything, 1).Return(activeType(1, 1, 5000, 100, 0, 6), nil)
	catalog.On("GetTicketType", mock.Anything, 2).Return(activeType(2, 1, 5000, 100, 97, 10), nil)
	svc, _ := newCartService(catalog)

	// 4 + 4 crosses max_per_order 6.
	cart, err := svc.Add(context.Background(), testMarketplace(), "", 1, 4)
	assert.NoError(t, err)
	_, err = svc.Add(context.Background(), testMarketplace(), cart.Token, 1, 4)
	var limitErr *models.LimitError
	assert.ErrorAs(t, err, &limitErr)

	// 2 + 2 crosses the 3 remaining seats.
	cart, err = svc.Add(context.Background(), testMarketplace(), "", 2, 2)
	assert.NoError(t, err)
	_, err = svc.Add(context.Background(), testMarketplace(), cart.Token, 2, 2)
	var availErr *models.AvailabilityError
	assert.ErrorAs(t, err, &availErr)
	assert.Equal(t, 4, availErr.Requested)
	assert.Equal(t, 3, availErr.Available)
}

func TestCartAddRefreshesPriceSnapshot(t *testing.T) {
	catalog := new(MockCatalogReader)
	catalog.On("GetTicketType", mock.Anything, 1).Return(activeType(1, 1, 5000, 100, 0, 10), nil).Once()
	catalog.On("GetTicketType", mock.Anything, 1).Return(activeType(1, 1, 6000, 100, 0, 10), nil).Once()
	svc, _ := newCartService(catalog)

	cart, err := svc.Add(context.Background(), testMarketplace(), "", 1, 1)
	assert.NoError(t, err)
	assert.Equal(t, 5000, cart.Items[0].UnitPrice)

	cart, err = svc.Add(context.Background(), testMarketplace(), cart.Token, 1, 1)
	assert.NoError(t, err)
	assert.Equal(t, 6000, cart.Items[0].UnitPrice, "merged line carries the fresh price")
}

func TestCartUpdateQuantity(t *testing.T) {
	catalog := new(MockCatalogReader)
	catalog.On("GetTicketType", mock.Anything, 1).Return(activeType(1, 1, 5000, 100, 0, 10), nil)
	svc, _ := newCartService(catalog)

	cart, err := svc.Add(context.Background(), testMarketplace(), "", 1, 2)
	assert.NoError(t, err)

	cart, err = svc.UpdateQuantity(context.Background(), cart.Token, 1, 7)
	assert.NoError(t, err)
	assert.Equal(t, 7, cart.Items[0].Quantity)

	// Zero removes the line.
	cart, err = svc.UpdateQuantity(context.Background(), cart.Token, 1, 0)
	assert.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	// Updating an absent line fails.
	_, err = svc.UpdateQuantity(context.Background(), cart.Token, 1, 2)
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCartRemoveIsIdempotent(t *testing.T) {
	catalog := new(MockCatalogReader)
	catalog.On("GetTicketType", mock.Anything, 1).Return(activeType(1, 1, 5000, 100, 0, 10), nil)
	svc, _ := newCartService(catalog)

	cart, err := svc.Add(context.Background(), testMarketplace(), "", 1, 2)
	assert.NoError(t, err)

	cart, err = svc.Remove(context.Background(), cart.Token, 99)
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	cart, err = svc.Remove(context.Background(), cart.Token, 1)
	assert.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartAddRemoveAddRoundTrip(t *testing.T) {
	catalog := new(MockCatalogReader)
	catalog.On("GetTicketType", mock.Anything, 1).Return(activeType(1, 1, 5000, 100, 0, 10), nil)
	svc, _ := newCartService(catalog)

	cartA, err := svc.Add(context.Background(), testMarketplace(), "", 1, 3)
	assert.NoError(t, err)
	cartA, err = svc.Remove(context.Background(), cartA.Token, 1)
	assert.NoError(t, err)
	assert.True(t, cartA.IsEmpty())
	cartA, err = svc.Add(context.Background(), testMarketplace(), cartA.Token, 1, 3)
	assert.NoError(t, err)

	cartB, err := svc.Add(context.Background(), testMarketplace(), "", 1, 3)
	assert.NoError(t, err)

	assert.Len(t, cartA.Items, 1)
	assert.Equal(t, cartB.TicketCount(), cartA.TicketCount())
	assert.Equal(t, cartB.Subtotal(), cartA.Subtotal())
	assert.Equal(t, 3, cartA.Items[0].Quantity)
	assert.Equal(t, 15000, cartA.Subtotal())
}

func TestCartClearUnknownToken(t *testing.T) {
	svc, _ := newCartService(new(MockCatalogReader))
	assert.NoError(t, svc.Clear(context.Background(), "cart_gone"))
}

func TestCartApplyPromo(t *testing.T) {
	catalog := new(MockCatalogReader)
	catalog.On("GetTicketType", mock.Anything, 1).Return(activeType(1, 1, 5000, 100, 0, 10), nil)

	promos := new(MockPromoReader)
	promos.On("GetByCode", mock.Anything, 1, "SAVE10").Return(&models.PromoCode{
		Code: "SAVE10", DiscountType: models.DiscountPercent, DiscountValue: 10, Active: true,
	}, nil)

	store := newFakeCartStore()
	svc := NewCartService(store, catalog, NewPromoService(promos))

	cart, err := svc.Add(context.Background(), testMarketplace(), "", 1, 2)
	assert.NoError(t, err)

	cart, err = svc.ApplyPromo(context.Background(), testMarketplace(), cart.Token, "SAVE10")
	assert.NoError(t, err)
	assert.NotNil(t, cart.Promo)
	assert.Equal(t, "SAVE10", cart.Promo.Code)

	cart, err = svc.RemovePromo(context.Background(), cart.Token)
	assert.NoError(t, err)
	assert.Nil(t, cart.Promo)
}
