package orders

import (
	"context"
	"time"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
)

// Store owns the Users, DriverProfiles, Orders and RatingRecords
// relations. It enforces the order state machine, the at-most-one
// active order per passenger and per driver invariant, and the
// atomicity of acceptance: the status compare-and-swap and the driver
// available->busy flip happen in one unit, so a driver is never shown
// as available while already assigned.
//
// Implementations: GormStore (postgres) and MemoryStore (tests, dev).
type Store interface {
	// Users and driver profiles.
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateDriverProfile(ctx context.Context, p *models.DriverProfile) error
	DriverProfile(ctx context.Context, userID uint) (*models.DriverProfile, error)
	UpdateDriverProfile(ctx context.Context, p *models.DriverProfile) error
	AvailableDrivers(ctx context.Context) ([]models.DriverProfile, error)
	// SetDriverAvailability applies a manual status change. Flipping to
	// available is refused with ErrConflict while the driver holds a
	// non-terminal order.
	SetDriverAvailability(ctx context.Context, userID uint, a models.Availability) error

	// Orders.
	CreateOrder(ctx context.Context, o *models.Order) error
	OrderByID(ctx context.Context, id uint) (*models.Order, error)
	// ActiveOrderFor returns the single non-terminal order for a user,
	// most recent first if the invariant were ever violated, or
	// ErrNotFound when there is none.
	ActiveOrderFor(ctx context.Context, userID uint, role models.Role) (*models.Order, error)
	// PendingOrders returns pending orders oldest first.
	PendingOrders(ctx context.Context) ([]models.Order, error)
	OrderHistory(ctx context.Context, userID uint, role models.Role, limit int) ([]models.Order, error)

	// Lifecycle transitions. Each call is serialized per order.
	Accept(ctx context.Context, orderID, driverID uint) (*models.Order, error)
	Advance(ctx context.Context, orderID uint, target models.OrderStatus) (*models.Order, error)
	Complete(ctx context.Context, orderID uint, actualCost *float64) (*models.Order, error)
	Cancel(ctx context.Context, orderID uint) (*models.Order, error)

	// Ratings. AddRating appends the record, writes the order-side
	// rating column and returns the recipient's recomputed average.
	AddRating(ctx context.Context, rec *models.RatingRecord) (float64, error)

	// Read-side aggregates.
	SumEarnings(ctx context.Context, driverID uint, since *time.Time) (float64, error)
	CompletedOrdersCount(ctx context.Context, userID uint, role models.Role) (int64, error)
}
