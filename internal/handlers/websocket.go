package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
	"github.com/fiftydrive/fifty-drive-backend/internal/services"
)

// WebSocketHandler upgrades the connection for live order updates.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := models.Role(c.GetString("role"))

		services.HandleWebSocket(hub, c.Writer, c.Request, userID, role)
	}
}
