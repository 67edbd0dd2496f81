package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/fiftydrive/fifty-drive-backend/internal/orders"
)

// respondError translates domain errors into HTTP responses. Conflicts
// of state (races lost, busy drivers, terminal orders) map to 409 so
// clients can distinguish "retry another order" from "bad request".
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(404, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrAlreadyAccepted),
		errors.Is(err, orders.ErrNotAvailable),
		errors.Is(err, orders.ErrAlreadyTerminal),
		errors.Is(err, orders.ErrConflict),
		errors.Is(err, orders.ErrDuplicateRating):
		c.JSON(409, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, orders.ErrValidation):
		c.JSON(400, gin.H{"error": err.Error()})
	default:
		c.JSON(500, gin.H{"error": "Internal server error"})
	}
}
