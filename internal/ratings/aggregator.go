package ratings

import (
	"context"
	"fmt"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
	"github.com/fiftydrive/fifty-drive-backend/internal/orders"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Aggregator validates and records ratings. The store performs the
// append + order-column write + average recomputation atomically; this
// layer owns the business rules: completed orders only, parties rate
// each other, one rating per (order, rater).
type Aggregator struct {
	store orders.Store
}

func NewAggregator(store orders.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Result reports where the rating landed and the recipient's new mean.
type Result struct {
	OrderID   uint    `json:"orderId"`
	ToUserID  uint    `json:"toUserId"`
	NewRating float64 `json:"newRating"`
}

func (a *Aggregator) AddRating(ctx context.Context, orderID, fromUserID, toUserID uint, rating int, comment string) (*Result, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", orders.ErrValidation, MinRating, MaxRating)
	}
	order, err := a.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: only completed orders can be rated", orders.ErrValidation)
	}
	if order.DriverID == nil {
		return nil, fmt.Errorf("%w: order has no driver", orders.ErrValidation)
	}
	// The rater must be a party of the order and the recipient the
	// other party.
	switch fromUserID {
	case order.PassengerID:
		if toUserID != *order.DriverID {
			return nil, fmt.Errorf("%w: passenger can only rate the order's driver", orders.ErrValidation)
		}
	case *order.DriverID:
		if toUserID != order.PassengerID {
			return nil, fmt.Errorf("%w: driver can only rate the order's passenger", orders.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: rater is not a party of the order", orders.ErrValidation)
	}

	avg, err := a.store.AddRating(ctx, &models.RatingRecord{
		OrderID:    orderID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Rating:     rating,
		Comment:    comment,
	})
	if err != nil {
		return nil, err
	}
	return &Result{OrderID: orderID, ToUserID: toUserID, NewRating: avg}, nil
}
