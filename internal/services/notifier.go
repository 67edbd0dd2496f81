package services

import (
	"context"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
)

// OrderNotifier pushes order lifecycle updates to connected apps over
// the websocket hub and mirrors them to Redis pub/sub. Everything here
// is best-effort: dispatch never waits on delivery.
type OrderNotifier struct {
	Hub *Hub
}

func NewOrderNotifier(hub *Hub) *OrderNotifier {
	return &OrderNotifier{Hub: hub}
}

// OrderCreated offers a fresh pending order to the whole driver pool.
func (n *OrderNotifier) OrderCreated(o *models.Order) {
	if n.Hub != nil {
		if msg := marshalMessage("new_order", orderPayload(o)); msg != nil {
			n.Hub.BroadcastToRole(models.RoleDriver, msg)
		}
	}
	_ = PublishOrderUpdate(context.Background(), o)
}

// OrderUpdated informs both parties of a status change.
func (n *OrderNotifier) OrderUpdated(o *models.Order) {
	if n.Hub != nil {
		if msg := marshalMessage("order_update", orderPayload(o)); msg != nil {
			n.Hub.BroadcastToUser(o.PassengerID, msg)
			if o.DriverID != nil {
				n.Hub.BroadcastToUser(*o.DriverID, msg)
			}
		}
	}
	_ = PublishOrderUpdate(context.Background(), o)

	if o.DriverID != nil {
		availability := models.DriverBusy
		if o.Status.Terminal() {
			availability = models.DriverAvailable
		}
		_ = CacheDriverAvailability(context.Background(), *o.DriverID, availability)
	}
}

func orderPayload(o *models.Order) map[string]interface{} {
	return map[string]interface{}{
		"orderId":       o.ID,
		"status":        o.Status,
		"fromAddress":   o.FromAddress,
		"toAddress":     o.ToAddress,
		"rideClass":     o.RideClass,
		"distanceKm":    o.DistanceKm,
		"estimatedCost": o.EstimatedCost,
		"actualCost":    o.ActualCost,
		"driverId":      o.DriverID,
	}
}
