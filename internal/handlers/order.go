package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tixmarket/internal/models"
)

// OrderReader is the order lookup surface the status endpoint needs
type OrderReader interface {
	GetByNumber(ctx context.Context, number string) (*models.Order, error)
	GetItems(ctx context.Context, orderID int) ([]models.OrderItem, error)
	GetTickets(ctx context.Context, orderID int) ([]models.Ticket, error)
}

// OrderHandler exposes order status lookups for buyers polling after
// payment.
type OrderHandler struct {
	orders OrderReader
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders OrderReader) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Status handles GET /api/:marketplace/orders/:number/status
func (h *OrderHandler) Status(c *gin.Context) {
	marketplace := currentMarketplace(c)
	order, err := h.orders.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			respondError(c, &models.NotFoundError{Resource: "order", ID: c.Param("number")})
			return
		}
		respondError(c, err)
		return
	}
	if order.MarketplaceID != marketplace.ID {
		respondError(c, &models.NotFoundError{Resource: "order", ID: c.Param("number")})
		return
	}

	response := gin.H{
		"order_number":   order.OrderNumber,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"total":          order.Total,
		"currency":       order.Currency,
		"expires_at":     order.ExpiresAt,
		"paid_at":        order.PaidAt,
	}
	if order.PaymentStatus == models.PaymentFailed && order.FailureReason != "" {
		response["failure_reason"] = order.FailureReason
	}

	// Ticket codes only appear once the payment settled.
	if order.IsPaid() {
		items, err := h.orders.GetItems(c.Request.Context(), order.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		tickets, err := h.orders.GetTickets(c.Request.Context(), order.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		response["items"] = items
		response["tickets"] = tickets
	}
	c.JSON(http.StatusOK, response)
}
