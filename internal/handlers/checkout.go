package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tixmarket/internal/models"
	"tixmarket/internal/services"
)

// CheckoutHandler exposes checkout initialization and completion
type CheckoutHandler struct {
	checkouts *services.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkouts *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkouts: checkouts}
}

// Init handles POST /api/:marketplace/checkout
func (h *CheckoutHandler) Init(c *gin.Context) {
	session, err := h.checkouts.Init(c.Request.Context(), currentMarketplace(c), cartToken(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"checkout_id":     session.ID,
		"items":           session.Items,
		"promo":           session.Promo,
		"subtotal":        session.Subtotal,
		"discount_amount": session.DiscountAmount,
		"total":           session.Total,
		"currency":        session.Currency,
		"payment_methods": session.PaymentMethods,
		"expires_at":      session.ExpiresAt,
	})
}

type completeRequest struct {
	Customer models.CustomerInfo `json:"customer" binding:"required"`
}

// Complete handles POST /api/:marketplace/checkout/:id/complete
func (h *CheckoutHandler) Complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &models.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	result, err := h.checkouts.Complete(c.Request.Context(), currentMarketplace(c), c.Param("id"), &req.Customer)
	if err != nil {
		respondError(c, err)
		return
	}

	orderNumbers := make([]string, 0, len(result.Orders))
	for _, order := range result.Orders {
		orderNumbers = append(orderNumbers, order.OrderNumber)
	}
	c.JSON(http.StatusCreated, gin.H{
		"orders":       orderNumbers,
		"total":        result.Total,
		"currency":     result.Currency,
		"reference":    result.Reference,
		"redirect_url": result.RedirectURL,
	})
}
