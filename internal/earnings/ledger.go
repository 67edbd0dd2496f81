package earnings

import (
	"context"
	"fmt"
	"time"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
	"github.com/fiftydrive/fifty-drive-backend/internal/orders"
)

// Period selects the earnings window, anchored to local midnight the
// way the statements read to drivers ("today", "last 7 days", ...).
type Period string

const (
	PeriodToday   Period = "today"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodAllTime Period = "all"
)

// Ledger is the read side of the order store: per-driver sums over
// completed orders. It holds no state of its own.
type Ledger struct {
	store orders.Store
	now   func() time.Time
}

func NewLedger(store orders.Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// EarningsFor sums actual cost over the driver's completed orders in
// the period. No completed orders is a zero, not an error.
func (l *Ledger) EarningsFor(ctx context.Context, driverID uint, period Period) (float64, error) {
	since, err := l.periodStart(period)
	if err != nil {
		return 0, err
	}
	return l.store.SumEarnings(ctx, driverID, since)
}

// CompletedOrdersCount counts finished rides for either role.
func (l *Ledger) CompletedOrdersCount(ctx context.Context, userID uint, role models.Role) (int64, error) {
	return l.store.CompletedOrdersCount(ctx, userID, role)
}

// DriverStats bundles the figures shown on the driver dashboard.
type DriverStats struct {
	Rating          float64 `json:"rating"`
	CompletedOrders int64   `json:"completedOrders"`
	TotalEarnings   float64 `json:"totalEarnings"`
	EarningsToday   float64 `json:"earningsToday"`
}

func (l *Ledger) StatsFor(ctx context.Context, driverID uint) (*DriverStats, error) {
	user, err := l.store.UserByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	profile, err := l.store.DriverProfile(ctx, driverID)
	if err != nil {
		return nil, err
	}
	count, err := l.store.CompletedOrdersCount(ctx, driverID, models.RoleDriver)
	if err != nil {
		return nil, err
	}
	today, err := l.EarningsFor(ctx, driverID, PeriodToday)
	if err != nil {
		return nil, err
	}
	return &DriverStats{
		Rating:          user.Rating,
		CompletedOrders: count,
		TotalEarnings:   profile.TotalEarnings,
		EarningsToday:   today,
	}, nil
}

func (l *Ledger) periodStart(period Period) (*time.Time, error) {
	now := l.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var since time.Time
	switch period {
	case PeriodToday:
		since = midnight
	case PeriodWeek:
		since = midnight.AddDate(0, 0, -7)
	case PeriodMonth:
		since = midnight.AddDate(0, 0, -30)
	case PeriodAllTime, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown period %q", orders.ErrValidation, period)
	}
	return &since, nil
}
