package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"tixmarket/internal/models"
)

const marketplaceKey = "marketplace"

// MarketplaceResolver loads marketplaces for tenant-scoped routes
type MarketplaceResolver interface {
	GetBySlug(ctx context.Context, slug string) (*models.Marketplace, error)
}

// resolveMarketplace loads the tenant named in the route and stashes it in
// the request context. Every storefront route runs behind this.
func resolveMarketplace(resolver MarketplaceResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		marketplace, err := resolver.GetBySlug(c.Request.Context(), c.Param("marketplace"))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		c.Set(marketplaceKey, marketplace)
		c.Next()
	}
}

func currentMarketplace(c *gin.Context) *models.Marketplace {
	return c.MustGet(marketplaceKey).(*models.Marketplace)
}
