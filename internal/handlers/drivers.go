package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fiftydrive/fifty-drive-backend/internal/earnings"
	"github.com/fiftydrive/fifty-drive-backend/internal/models"
	"github.com/fiftydrive/fifty-drive-backend/internal/orders"
	"github.com/fiftydrive/fifty-drive-backend/internal/services"
)

type DriverProfileInput struct {
	CarModel  string `json:"carModel" binding:"required"`
	CarNumber string `json:"carNumber" binding:"required"`
}

// CreateDriverProfile registers the car details for a driver account.
func CreateDriverProfile(store orders.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input DriverProfileInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		userID := c.GetUint("userId")
		user, err := store.UserByID(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		if user.Role != models.RoleDriver {
			c.JSON(403, gin.H{"error": "Only drivers can register a driver profile"})
			return
		}

		if _, err := store.DriverProfile(c.Request.Context(), userID); err == nil {
			c.JSON(409, gin.H{"error": "Driver profile already exists"})
			return
		}

		profile := models.DriverProfile{
			UserID:       userID,
			CarModel:     input.CarModel,
			CarNumber:    input.CarNumber,
			Availability: models.DriverAvailable,
		}
		if err := store.CreateDriverProfile(c.Request.Context(), &profile); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, gin.H{"profile": profile})
	}
}

// UploadVehiclePhoto stores the car photo and records its URL on the
// driver profile.
func UploadVehiclePhoto(store orders.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		profile, err := store.DriverProfile(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}

		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(400, gin.H{"error": "photo file is required"})
			return
		}

		url, err := services.UploadImage(file, "vehicles")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to upload photo"})
			return
		}

		profile.VehiclePhotoURL = url
		if err := store.UpdateDriverProfile(c.Request.Context(), profile); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"vehiclePhotoUrl": url})
	}
}

type AvailabilityInput struct {
	Availability string `json:"availability" binding:"required,oneof=available busy"`
}

// SetAvailability applies a manual availability change. Going available
// is refused while the driver still holds an active order.
func SetAvailability(store orders.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input AvailabilityInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		userID := c.GetUint("userId")
		availability := models.Availability(input.Availability)
		if err := store.SetDriverAvailability(c.Request.Context(), userID, availability); err != nil {
			respondError(c, err)
			return
		}

		_ = services.CacheDriverAvailability(c.Request.Context(), userID, availability)
		c.JSON(200, gin.H{"availability": availability})
	}
}

// ListAvailableDrivers returns the current driver pool.
func ListAvailableDrivers(store orders.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		drivers, err := store.AvailableDrivers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"drivers": drivers})
	}
}

// DriverStats returns the dashboard figures for the caller.
func DriverStats(ledger *earnings.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := ledger.StatsFor(c.Request.Context(), c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"stats": stats})
	}
}
