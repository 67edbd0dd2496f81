package orders

import (
	"testing"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct {
		from, to models.OrderStatus
	}{
		{models.OrderStatusPending, models.OrderStatusAccepted},
		{models.OrderStatusPending, models.OrderStatusCancelled},
		{models.OrderStatusAccepted, models.OrderStatusDriverStarted},
		{models.OrderStatusAccepted, models.OrderStatusDriverArrived},
		{models.OrderStatusAccepted, models.OrderStatusCancelled},
		{models.OrderStatusDriverStarted, models.OrderStatusDriverArrived},
		{models.OrderStatusDriverStarted, models.OrderStatusCancelled},
		{models.OrderStatusDriverArrived, models.OrderStatusInProgress},
		{models.OrderStatusDriverArrived, models.OrderStatusCompleted},
		{models.OrderStatusInProgress, models.OrderStatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to models.OrderStatus
	}{
		{models.OrderStatusPending, models.OrderStatusCompleted},
		{models.OrderStatusPending, models.OrderStatusDriverStarted},
		{models.OrderStatusAccepted, models.OrderStatusCompleted},
		{models.OrderStatusDriverArrived, models.OrderStatusCancelled},
		{models.OrderStatusInProgress, models.OrderStatusCancelled},
		{models.OrderStatusCompleted, models.OrderStatusCancelled},
		{models.OrderStatusCancelled, models.OrderStatusAccepted},
		{models.OrderStatusCompleted, models.OrderStatusPending},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestTerminalStatesHaveNoSuccessors(t *testing.T) {
	for _, s := range []models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
		if got := successors[s]; len(got) != 0 {
			t.Errorf("%s should have no successors, got %v", s, got)
		}
	}
}

func TestCancellable(t *testing.T) {
	yes := []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusAccepted,
		models.OrderStatusDriverStarted,
	}
	for _, s := range yes {
		if !Cancellable(s) {
			t.Errorf("%s should be cancellable", s)
		}
	}

	no := []models.OrderStatus{
		models.OrderStatusDriverArrived,
		models.OrderStatusInProgress,
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	}
	for _, s := range no {
		if Cancellable(s) {
			t.Errorf("%s should not be cancellable", s)
		}
	}
}
