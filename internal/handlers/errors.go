package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tixmarket/internal/models"
)

// respondError maps the error taxonomy onto HTTP. Availability failures
// carry the live counts so clients can adjust without another round trip.
func respondError(c *gin.Context, err error) {
	var (
		validationErr   *models.ValidationError
		notFoundErr     *models.NotFoundError
		availabilityErr *models.AvailabilityError
		limitErr        *models.LimitError
		authErr         *models.AuthorizationError
		expiredErr      *models.ExpiredError
		oversoldErr     *models.OversoldError
		paymentErr      *models.PaymentError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Code(), "field": validationErr.Field, "message": validationErr.Message,
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{
			"error": notFoundErr.Code(), "message": notFoundErr.Error(),
		})
	case errors.As(err, &availabilityErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":          availabilityErr.Code(),
			"message":        availabilityErr.Error(),
			"ticket_type_id": availabilityErr.TicketTypeID,
			"requested":      availabilityErr.Requested,
			"available":      availabilityErr.Available,
		})
	case errors.As(err, &limitErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          limitErr.Code(),
			"message":        limitErr.Error(),
			"ticket_type_id": limitErr.TicketTypeID,
			"max_per_order":  limitErr.MaxPerOrder,
		})
	case errors.As(err, &authErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error": authErr.Code(), "message": authErr.Error(),
		})
	case errors.As(err, &expiredErr):
		c.JSON(http.StatusGone, gin.H{
			"error": expiredErr.Code(), "message": expiredErr.Error(),
		})
	case errors.As(err, &oversoldErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":          oversoldErr.Code(),
			"message":        oversoldErr.Error(),
			"ticket_type_id": oversoldErr.TicketTypeID,
			"requested":      oversoldErr.Requested,
			"available":      oversoldErr.Available,
		})
	case errors.As(err, &paymentErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error": paymentErr.Code(), "processor": paymentErr.Processor, "message": paymentErr.Message,
		})
	default:
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal_error", "message": "something went wrong",
		})
	}
}
