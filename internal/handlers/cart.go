package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tixmarket/internal/models"
	"tixmarket/internal/services"
)

const cartTokenHeader = "X-Cart-Token"
const cartTokenCookie = "cart_token"

// CartHandler exposes the cart over HTTP. The bearer token travels in the
// X-Cart-Token header or a cookie; responses echo it in both so either
// kind of client stays in sync.
type CartHandler struct {
	carts *services.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

func cartToken(c *gin.Context) string {
	if token := c.GetHeader(cartTokenHeader); token != "" {
		return token
	}
	if token, err := c.Cookie(cartTokenCookie); err == nil {
		return token
	}
	return ""
}

func respondCart(c *gin.Context, cart *models.Cart) {
	c.Header(cartTokenHeader, cart.Token)
	c.SetCookie(cartTokenCookie, cart.Token, int(models.CartTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"token":        cart.Token,
		"items":        cart.Items,
		"promo":        cart.Promo,
		"subtotal":     cart.Subtotal(),
		"ticket_count": cart.TicketCount(),
		"currency":     cart.Currency,
	})
}

// Get handles GET /api/:marketplace/cart
func (h *CartHandler) Get(c *gin.Context) {
	cart, err := h.carts.Get(c.Request.Context(), cartToken(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondCart(c, cart)
}

type addItemRequest struct {
	TicketTypeID int `json:"ticket_type_id" binding:"required"`
	Quantity     int `json:"quantity" binding:"required"`
}

// AddItem handles POST /api/:marketplace/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &models.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	cart, err := h.carts.Add(c.Request.Context(), currentMarketplace(c), cartToken(c), req.TicketTypeID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCart(c, cart)
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// UpdateItem handles PATCH /api/:marketplace/cart/items/:ticketTypeID
func (h *CartHandler) UpdateItem(c *gin.Context) {
	ticketTypeID, err := strconv.Atoi(c.Param("ticketTypeID"))
	if err != nil {
		respondError(c, &models.ValidationError{Field: "ticket_type_id", Message: "must be an integer"})
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &models.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	cart, err := h.carts.UpdateQuantity(c.Request.Context(), cartToken(c), ticketTypeID, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCart(c, cart)
}

// RemoveItem handles DELETE /api/:marketplace/cart/items/:ticketTypeID
func (h *CartHandler) RemoveItem(c *gin.Context) {
	ticketTypeID, err := strconv.Atoi(c.Param("ticketTypeID"))
	if err != nil {
		respondError(c, &models.ValidationError{Field: "ticket_type_id", Message: "must be an integer"})
		return
	}
	cart, err := h.carts.Remove(c.Request.Context(), cartToken(c), ticketTypeID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCart(c, cart)
}

// Clear handles DELETE /api/:marketplace/cart
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), cartToken(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

type applyPromoRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyPromo handles POST /api/:marketplace/cart/promo
func (h *CartHandler) ApplyPromo(c *gin.Context) {
	var req applyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &models.ValidationError{Field: "code", Message: "promo code is required"})
		return
	}
	cart, err := h.carts.ApplyPromo(c.Request.Context(), currentMarketplace(c), cartToken(c), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCart(c, cart)
}

// RemovePromo handles DELETE /api/:marketplace/cart/promo
func (h *CartHandler) RemovePromo(c *gin.Context) {
	cart, err := h.carts.RemovePromo(c.Request.Context(), cartToken(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondCart(c, cart)
}
