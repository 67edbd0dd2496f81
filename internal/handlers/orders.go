package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fiftydrive/fifty-drive-backend/internal/dispatch"
	"github.com/fiftydrive/fifty-drive-backend/internal/geo"
	"github.com/fiftydrive/fifty-drive-backend/internal/models"
	"github.com/fiftydrive/fifty-drive-backend/internal/pricing"
)

type CreateOrderInput struct {
	FromAddress string `json:"fromAddress" binding:"required"`
	ToAddress   string `json:"toAddress" binding:"required"`
	RideClass   string `json:"rideClass" binding:"required,oneof=economy comfort"`
}

// CreateOrder prices the route and opens a pending order for the
// authenticated passenger.
func CreateOrder(svc *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CreateOrderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		order, err := svc.CreateOrder(c.Request.Context(), c.GetUint("userId"),
			input.FromAddress, input.ToAddress, models.RideClass(input.RideClass))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(201, gin.H{"order": order})
	}
}

type EstimateInput struct {
	FromAddress string `json:"fromAddress" binding:"required"`
	ToAddress   string `json:"toAddress" binding:"required"`
}

// EstimatePrice quotes every ride class for a route without creating
// an order.
func EstimatePrice(rates pricing.Table, estimator *geo.Estimator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input EstimateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		distanceKm := estimator.DistanceKm(c.Request.Context(), input.FromAddress, input.ToAddress)
		quotes := gin.H{}
		for class := range rates {
			est, err := rates.Estimate(distanceKm, class)
			if err != nil {
				respondError(c, err)
				return
			}
			quotes[string(class)] = est
		}

		c.JSON(200, gin.H{
			"distanceKm":        distanceKm,
			"travelTimeMinutes": estimator.TravelTimeMinutes(distanceKm),
			"quotes":            quotes,
		})
	}
}

// ListPendingOrders shows drivers the open orders, oldest first.
func ListPendingOrders(svc *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		pending, err := svc.ListPendingOrders(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"orders": pending})
	}
}

// AcceptOrder claims a pending order for the authenticated driver.
// Losing the race returns 409.
func AcceptOrder(svc *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}
		order, err := svc.Accept(c.Request.Context(), orderID, c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"order": order})
	}
}

type AdvanceInput struct {
	Status string `json:"status" binding:"required,oneof=driver_started driver_arrived in_progress completed cancelled"`
}

// AdvanceOrder moves the order along the lifecycle on behalf of the
// assigned driver.
func AdvanceOrder(svc *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}
		var input AdvanceInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		order, err := svc.Advance(c.Request.Context(), orderID, c.GetUint("userId"), models.OrderStatus(input.Status))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"order": order})
	}
}

type CompleteInput struct {
	ActualCost *float64 `json:"actualCost"`
}

// CompleteOrder finishes the ride, optionally with a metered cost.
func CompleteOrder(svc *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}
		var input CompleteInput
		if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		order, err := svc.Complete(c.Request.Context(), orderID, c.GetUint("userId"), input.ActualCost)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"order": order})
	}
}

// CancelOrder aborts a non-terminal order for either party.
func CancelOrder(svc *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}
		order, err := svc.Cancel(c.Request.Context(), orderID, c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"order": order})
	}
}

// ActiveOrder returns the caller's current non-terminal order.
func ActiveOrder(svc *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.Role(c.GetString("role"))
		order, err := svc.ActiveOrder(c.Request.Context(), c.GetUint("userId"), role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"order": order})
	}
}

// OrderHistory lists the caller's past orders, newest first.
func OrderHistory(svc *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		role := models.Role(c.GetString("role"))
		history, err := svc.OrderHistory(c.Request.Context(), c.GetUint("userId"), role, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"orders": history})
	}
}

// GetOrder returns a single order visible to its parties.
func GetOrder(svc *dispatch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}
		order, err := svc.GetOrder(c.Request.Context(), orderID)
		if err != nil {
			respondError(c, err)
			return
		}

		userID := c.GetUint("userId")
		if order.PassengerID != userID && (order.DriverID == nil || *order.DriverID != userID) {
			c.JSON(403, gin.H{"error": "Not a party of this order"})
			return
		}
		c.JSON(200, gin.H{"order": order})
	}
}

func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid order id"})
		return 0, false
	}
	return uint(id), true
}
