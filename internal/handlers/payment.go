package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tixmarket/internal/services"
)

// PaymentHandler receives processor callbacks. The route is per
// marketplace so each tenant's processor verifies with its own credentials.
type PaymentHandler struct {
	callbacks *services.CallbackService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(callbacks *services.CallbackService) *PaymentHandler {
	return &PaymentHandler{callbacks: callbacks}
}

// Callback handles POST /payment/callback/:marketplace
func (h *PaymentHandler) Callback(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	outcome, err := h.callbacks.HandleCallback(c.Request.Context(), c.Param("marketplace"), payload, c.Request.Header)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}
