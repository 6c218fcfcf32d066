package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tixmarket/internal/models"
	"tixmarket/internal/repositories"
)

type MockMarketplaceReader struct {
	mock.Mock
}

func (m *MockMarketplaceReader) GetBySlug(ctx context.Context, slug string) (*models.Marketplace, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Marketplace), args.Error(1)
}

type MockOrderFinalizer struct {
	mock.Mock
}

func (m *MockOrderFinalizer) FinalizeSuccess(ctx context.Context, marketplaceID int, reference string) (*repositories.FinalizeResult, error) {
	args := m.Called(ctx, marketplaceID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.FinalizeResult), args.Error(1)
}

func (m *MockOrderFinalizer) MarkPaymentFailed(ctx context.Context, marketplaceID int, reference, reason string) error {
	args := m.Called(ctx, marketplaceID, reference, reason)
	return args.Error(0)
}

func (m *MockOrderFinalizer) GetTickets(ctx context.Context, orderID int) ([]models.Ticket, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]models.Ticket), args.Error(1)
}

type MockCustomerReader struct {
	mock.Mock
}

func (m *MockCustomerReader) GetByID(ctx context.Context, id int) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func newCallbackFixture() (*CallbackService, *MockMarketplaceReader, *MockOrderFinalizer, *MockCustomerReader) {
	marketplaces := new(MockMarketplaceReader)
	orders := new(MockOrderFinalizer)
	customers := new(MockCustomerReader)
	customers.On("GetByID", mock.Anything, mock.Anything).Return(&models.Customer{
		ID: 1, Email: "ana@example.com", FirstName: "Ana", LastName: "Pop",
	}, nil).Maybe()

	svc := NewCallbackService(marketplaces, orders, customers, mockGatewayResolver, nil, nil)
	return svc, marketplaces, orders, customers
}

func mockTenant() *models.Marketplace {
	return &models.Marketplace{ID: 1, Slug: "fest", PaymentProcessor: "mock"}
}

func TestCallbackSuccess(t *testing.T) {
	svc, marketplaces, orders, _ := newCallbackFixture()
	marketplaces.On("GetBySlug", mock.Anything, "fest").Return(mockTenant(), nil)
	orders.On("FinalizeSuccess", mock.Anything, 1, "pay_123").Return(&repositories.FinalizeResult{
		Orders: []*models.Order{{ID: 1, OrderNumber: "MKT-A2B3C4D5", PaymentStatus: models.PaymentPaid}},
	}, nil)

	outcome, err := svc.HandleCallback(context.Background(), "fest",
		[]byte(`{"reference":"pay_123","status":"success"}`), nil)
	assert.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.False(t, outcome.AlreadyPaid)
	orders.AssertExpectations(t)
}

func TestCallbackReplayIsIdempotent(t *testing.T) {
	svc, marketplaces, orders, _ := newCallbackFixture()
	marketplaces.On("GetBySlug", mock.Anything, "fest").Return(mockTenant(), nil)
	orders.On("FinalizeSuccess", mock.Anything, 1, "pay_123").Return(&repositories.FinalizeResult{
		Orders:      []*models.Order{{ID: 1, PaymentStatus: models.PaymentPaid}},
		AlreadyPaid: true,
	}, nil)

	outcome, err := svc.HandleCallback(context.Background(), "fest",
		[]byte(`{"reference":"pay_123","status":"success"}`), nil)
	assert.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.True(t, outcome.AlreadyPaid, "replayed callback reports settled without mutating")
}

func TestCallbackUnknownOrder(t *testing.T) {
	svc, marketplaces, orders, _ := newCallbackFixture()
	marketplaces.On("GetBySlug", mock.Anything, "fest").Return(mockTenant(), nil)
	orders.On("FinalizeSuccess", mock.Anything, 1, "pay_ghost").Return(nil, models.ErrOrderNotFound)

	_, err := svc.HandleCallback(context.Background(), "fest",
		[]byte(`{"reference":"pay_ghost","status":"success"}`), nil)
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCallbackFailureRecordsMessage(t *testing.T) {
	svc, marketplaces, orders, _ := newCallbackFixture()
	marketplaces.On("GetBySlug", mock.Anything, "fest").Return(mockTenant(), nil)
	orders.On("MarkPaymentFailed", mock.Anything, 1, "pay_123", "card declined").Return(nil)

	outcome, err := svc.HandleCallback(context.Background(), "fest",
		[]byte(`{"reference":"pay_123","status":"failed","message":"card declined"}`), nil)
	assert.NoError(t, err)
	assert.False(t, outcome.Success)
	orders.AssertExpectations(t)
	orders.AssertNotCalled(t, "FinalizeSuccess", mock.Anything, mock.Anything, mock.Anything)
}

func TestCallbackMalformedPayload(t *testing.T) {
	svc, marketplaces, orders, _ := newCallbackFixture()
	marketplaces.On("GetBySlug", mock.Anything, "fest").Return(mockTenant(), nil)

	_, err := svc.HandleCallback(context.Background(), "fest", []byte(`not json`), nil)
	var paymentErr *models.PaymentError
	assert.ErrorAs(t, err, &paymentErr)
	orders.AssertNotCalled(t, "FinalizeSuccess", mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "MarkPaymentFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCallbackSettlesOnlyResolvedTenant(t *testing.T) {
	svc, marketplaces, orders, _ := newCallbackFixture()
	marketplaces.On("GetBySlug", mock.Anything, "other").Return(&models.Marketplace{
		ID: 2, Slug: "other", PaymentProcessor: "mock",
	}, nil)
	// The reference belongs to marketplace 1; the lookup scoped to
	// marketplace 2 must come back empty.
	orders.On("FinalizeSuccess", mock.Anything, 2, "pay_123").Return(nil, models.ErrOrderNotFound)

	_, err := svc.HandleCallback(context.Background(), "other",
		[]byte(`{"reference":"pay_123","status":"success"}`), nil)
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
	orders.AssertExpectations(t)
}
