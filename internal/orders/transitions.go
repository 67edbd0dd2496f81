package orders

import "github.com/fiftydrive/fifty-drive-backend/internal/models"

// successors is the single source of truth for the order state machine:
//
//	pending -> accepted -> driver_started -> driver_arrived -> in_progress -> completed
//
// driver_arrived may skip straight to completed (short hops where the
// passenger boards immediately), and accepted may skip driver_started.
// cancelled is reachable from pending, accepted and driver_started only;
// once the driver has arrived the ride must finish.
var successors = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {
		models.OrderStatusAccepted,
		models.OrderStatusCancelled,
	},
	models.OrderStatusAccepted: {
		models.OrderStatusDriverStarted,
		models.OrderStatusDriverArrived,
		models.OrderStatusCancelled,
	},
	models.OrderStatusDriverStarted: {
		models.OrderStatusDriverArrived,
		models.OrderStatusCancelled,
	},
	models.OrderStatusDriverArrived: {
		models.OrderStatusInProgress,
		models.OrderStatusCompleted,
	},
	models.OrderStatusInProgress: {
		models.OrderStatusCompleted,
	},
	models.OrderStatusCompleted: nil,
	models.OrderStatusCancelled: nil,
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range successors[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in the given status may still be
// cancelled by the passenger or the assigned driver.
func Cancellable(s models.OrderStatus) bool {
	return CanTransition(s, models.OrderStatusCancelled)
}

// completablePredecessors lists the states Complete accepts as current.
func completablePredecessors() []models.OrderStatus {
	return []models.OrderStatus{models.OrderStatusDriverArrived, models.OrderStatusInProgress}
}
