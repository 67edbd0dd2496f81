package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fiftydrive/fifty-drive-backend/internal/ratings"
)

type RateOrderInput struct {
	ToUserID uint   `json:"toUserId" binding:"required"`
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Comment  string `json:"comment"`
}

// RateOrder records a rating for the other party of a completed order.
func RateOrder(agg *ratings.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}
		var input RateOrderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		result, err := agg.AddRating(c.Request.Context(), orderID, c.GetUint("userId"),
			input.ToUserID, input.Rating, input.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(201, gin.H{"result": result})
	}
}
