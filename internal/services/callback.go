package services

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"tixmarket/internal/models"
	"tixmarket/internal/repositories"
)

// MarketplaceReader resolves the tenant a callback is addressed to
type MarketplaceReader interface {
	GetBySlug(ctx context.Context, slug string) (*models.Marketplace, error)
}

// OrderFinalizer is the settlement surface the callback handler drives
type OrderFinalizer interface {
	FinalizeSuccess(ctx context.Context, marketplaceID int, reference string) (*repositories.FinalizeResult, error)
	MarkPaymentFailed(ctx context.Context, marketplaceID int, reference, reason string) error
	GetTickets(ctx context.Context, orderID int) ([]models.Ticket, error)
}

// CustomerReader loads buyer contact details for notifications
type CustomerReader interface {
	GetByID(ctx context.Context, id int) (*models.Customer, error)
}

// OrderPublisher emits settled-order events to the message bus
type OrderPublisher interface {
	PublishOrderPaid(ctx context.Context, order *models.Order, email string) error
}

// ConfirmationMailer delivers order confirmation emails
type ConfirmationMailer interface {
	SendOrderConfirmation(order *models.Order, email, name string, tickets []models.Ticket) error
}

// CallbackService processes payment processor notifications. Deliveries
// are at-least-once and may arrive out of order, so every path is
// idempotent and an unknown reference mutates nothing.
type CallbackService struct {
	marketplaces MarketplaceReader
	orders       OrderFinalizer
	customers    CustomerReader
	gateways     GatewayResolver
	publisher    OrderPublisher
	mailer       ConfirmationMailer
}

// NewCallbackService creates a new callback service. Publisher and mailer
// may be nil; the corresponding side effect is then skipped.
func NewCallbackService(
	marketplaces MarketplaceReader,
	orders OrderFinalizer,
	customers CustomerReader,
	gateways GatewayResolver,
	publisher OrderPublisher,
	mailer ConfirmationMailer,
) *CallbackService {
	return &CallbackService{
		marketplaces: marketplaces,
		orders:       orders,
		customers:    customers,
		gateways:     gateways,
		publisher:    publisher,
		mailer:       mailer,
	}
}

// CallbackOutcome reports what a processed notification did
type CallbackOutcome struct {
	Reference   string `json:"reference"`
	Success     bool   `json:"success"`
	AlreadyPaid bool   `json:"already_paid,omitempty"`
}

// HandleCallback verifies and applies one processor notification for the
// given marketplace. Settlement is scoped to the resolved marketplace, so
// a reference belonging to another tenant reads as not found. Side effects
// (webhook event, confirmation email) fire only on the first successful
// settlement and never block or fail the callback response.
func (s *CallbackService) HandleCallback(ctx context.Context, marketplaceSlug string, payload []byte, headers http.Header) (*CallbackOutcome, error) {
	marketplace, err := s.marketplaces.GetBySlug(ctx, marketplaceSlug)
	if err != nil {
		return nil, err
	}
	gateway, err := s.gateways(marketplace)
	if err != nil {
		return nil, err
	}

	result, err := gateway.HandleCallback(payload, headers)
	if err != nil {
		var paymentErr *models.PaymentError
		if errors.As(err, &paymentErr) {
			return nil, err
		}
		return nil, &models.PaymentError{Processor: gateway.Name(), Message: err.Error()}
	}

	if !result.Success {
		if err := s.orders.MarkPaymentFailed(ctx, marketplace.ID, result.Reference, result.Message); err != nil {
			if errors.Is(err, models.ErrOrderNotFound) {
				return nil, &models.NotFoundError{Resource: "order", ID: result.Reference}
			}
			return nil, err
		}
		log.Printf("Payment failed for %s: %s", result.Reference, result.Message)
		return &CallbackOutcome{Reference: result.Reference, Success: false}, nil
	}

	finalized, err := s.orders.FinalizeSuccess(ctx, marketplace.ID, result.Reference)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return nil, &models.NotFoundError{Resource: "order", ID: result.Reference}
		}
		return nil, err
	}

	if !finalized.AlreadyPaid {
		go s.notifySettled(finalized.Orders)
	}
	return &CallbackOutcome{
		Reference:   result.Reference,
		Success:     true,
		AlreadyPaid: finalized.AlreadyPaid,
	}, nil
}

// notifySettled fires the post-settlement side effects. Failures are
// logged and never propagated; the money already moved.
func (s *CallbackService) notifySettled(orders []*models.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, order := range orders {
		if !order.IsPaid() {
			continue
		}
		customer, err := s.customers.GetByID(ctx, order.CustomerID)
		if err != nil {
			log.Printf("failed to load customer for order %s: %v", order.OrderNumber, err)
			continue
		}

		if s.publisher != nil {
			if err := s.publisher.PublishOrderPaid(ctx, order, customer.Email); err != nil {
				log.Printf("failed to publish order event for %s: %v", order.OrderNumber, err)
			}
		}
		if s.mailer != nil {
			tickets, err := s.orders.GetTickets(ctx, order.ID)
			if err != nil {
				log.Printf("failed to load tickets for order %s: %v", order.OrderNumber, err)
			}
			if err := s.mailer.SendOrderConfirmation(order, customer.Email, customer.FullName(), tickets); err != nil {
				log.Printf("failed to send confirmation for order %s: %v", order.OrderNumber, err)
			}
		}
	}
}
