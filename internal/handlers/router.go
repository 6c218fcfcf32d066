package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Router wires every HTTP surface onto a gin engine
type Router struct {
	marketplaces MarketplaceResolver
	carts        *CartHandler
	checkouts    *CheckoutHandler
	payments     *PaymentHandler
	orders       *OrderHandler
}

// NewRouter creates a new router over the given handlers
func NewRouter(
	marketplaces MarketplaceResolver,
	carts *CartHandler,
	checkouts *CheckoutHandler,
	payments *PaymentHandler,
	orders *OrderHandler,
) *Router {
	return &Router{
		marketplaces: marketplaces,
		carts:        carts,
		checkouts:    checkouts,
		payments:     payments,
		orders:       orders,
	}
}

// Engine builds the gin engine with all routes registered
func (r *Router) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", cartTokenHeader},
		ExposeHeaders:    []string{cartTokenHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Processor callbacks are not tenant-sessioned; the slug in the path
	// selects whose credentials verify the payload.
	engine.POST("/payment/callback/:marketplace", r.payments.Callback)

	api := engine.Group("/api/:marketplace")
	api.Use(resolveMarketplace(r.marketplaces))
	{
		api.GET("/cart", r.carts.Get)
		api.POST("/cart/items", r.carts.AddItem)
		api.PATCH("/cart/items/:ticketTypeID", r.carts.UpdateItem)
		api.DELETE("/cart/items/:ticketTypeID", r.carts.RemoveItem)
		api.DELETE("/cart", r.carts.Clear)
		api.POST("/cart/promo", r.carts.ApplyPromo)
		api.DELETE("/cart/promo", r.carts.RemovePromo)

		api.POST("/checkout", r.checkouts.Init)
		api.POST("/checkout/:id/complete", r.checkouts.Complete)

		api.GET("/orders/:number/status", r.orders.Status)
	}
	return engine
}
