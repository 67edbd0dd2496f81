package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
)

// GormStore is the postgres-backed Store. Acceptance races are settled
// by a compare-and-swap UPDATE on status = 'pending' inside a
// transaction that also flips the driver to busy; losers are told
// apart from missing orders by re-reading the row.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.Rating == 0 {
		u.Rating = models.DefaultRating
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: email already registered", ErrValidation)
		}
		return err
	}
	return nil
}

func (s *GormStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &u, nil
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &u, nil
}

func (s *GormStore) CreateDriverProfile(ctx context.Context, p *models.DriverProfile) error {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, p.UserID).Error; err != nil {
		return translateNotFound(err)
	}
	if u.Role != models.RoleDriver {
		return fmt.Errorf("%w: user is not a driver", ErrValidation)
	}
	if p.Availability == "" {
		p.Availability = models.DriverAvailable
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: driver profile already exists", ErrValidation)
		}
		return err
	}
	return nil
}

func (s *GormStore) DriverProfile(ctx context.Context, userID uint) (*models.DriverProfile, error) {
	var p models.DriverProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}

func (s *GormStore) UpdateDriverProfile(ctx context.Context, p *models.DriverProfile) error {
	res := s.db.WithContext(ctx).Model(&models.DriverProfile{}).
		Where("user_id = ?", p.UserID).
		Updates(map[string]interface{}{
			"car_model":         p.CarModel,
			"car_number":        p.CarNumber,
			"vehicle_photo_url": p.VehiclePhotoURL,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AvailableDrivers(ctx context.Context) ([]models.DriverProfile, error) {
	var out []models.DriverProfile
	err := s.db.WithContext(ctx).
		Where("availability = ?", models.DriverAvailable).
		Order("user_id").
		Find(&out).Error
	return out, err
}

func (s *GormStore) SetDriverAvailability(ctx context.Context, userID uint, a models.Availability) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if a == models.DriverAvailable {
			var n int64
			if err := tx.Model(&models.Order{}).
				Where("driver_id = ? AND status NOT IN ?", userID, terminalStatuses()).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrConflict
			}
		}
		res := tx.Model(&models.DriverProfile{}).
			Where("user_id = ?", userID).
			Update("availability", a)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) CreateOrder(ctx context.Context, o *models.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Order{}).
			Where("passenger_id = ? AND status NOT IN ?", o.PassengerID, terminalStatuses()).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
		o.Status = models.OrderStatusPending
		return tx.Create(o).Error
	})
}

func (s *GormStore) OrderByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := s.db.WithContext(ctx).Preload("Passenger").Preload("Driver").First(&o, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &o, nil
}

func (s *GormStore) ActiveOrderFor(ctx context.Context, userID uint, role models.Role) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).
		Where(roleColumn(role)+" = ? AND status NOT IN ?", userID, terminalStatuses()).
		Order("created_at DESC, id DESC").
		First(&o).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &o, nil
}

func (s *GormStore) PendingOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	err := s.db.WithContext(ctx).Preload("Passenger").
		Where("status = ?", models.OrderStatusPending).
		Order("created_at, id").
		Find(&out).Error
	return out, err
}

func (s *GormStore) OrderHistory(ctx context.Context, userID uint, role models.Role, limit int) ([]models.Order, error) {
	q := s.db.WithContext(ctx).
		Where(roleColumn(role)+" = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Order
	err := q.Find(&out).Error
	return out, err
}

func (s *GormStore) Accept(ctx context.Context, orderID, driverID uint) (*models.Order, error) {
	var accepted models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Driver goes busy first; if that CAS fails the driver is
		// either unknown or already on a ride.
		res := tx.Model(&models.DriverProfile{}).
			Where("user_id = ? AND availability = ?", driverID, models.DriverAvailable).
			Update("availability", models.DriverBusy)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var p models.DriverProfile
			if err := tx.Where("user_id = ?", driverID).First(&p).Error; err != nil {
				return translateNotFound(err)
			}
			return ErrNotAvailable
		}

		res = tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderStatusPending).
			Updates(map[string]interface{}{
				"driver_id": driverID,
				"status":    models.OrderStatusAccepted,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var o models.Order
			if err := tx.First(&o, orderID).Error; err != nil {
				return translateNotFound(err)
			}
			if o.Status.Terminal() {
				return ErrAlreadyTerminal
			}
			return ErrAlreadyAccepted
		}
		return tx.First(&accepted, orderID).Error
	})
	if err != nil {
		return nil, err
	}
	return &accepted, nil
}

func (s *GormStore) Advance(ctx context.Context, orderID uint, target models.OrderStatus) (*models.Order, error) {
	if target == models.OrderStatusCompleted || target == models.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: use Complete or Cancel for terminal states", ErrInvalidTransition)
	}
	if target == models.OrderStatusAccepted || target == models.OrderStatusPending {
		return nil, fmt.Errorf("%w: acceptance goes through Accept", ErrInvalidTransition)
	}
	var out models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": target}
		if target == models.OrderStatusInProgress {
			updates["started_at"] = time.Now()
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", orderID, predecessorsOf(target)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.classifyFailedTransition(tx, orderID, target)
		}
		return tx.First(&out, orderID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) Complete(ctx context.Context, orderID uint, actualCost *float64) (*models.Order, error) {
	var out models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, orderID).Error; err != nil {
			return translateNotFound(err)
		}
		cost := o.EstimatedCost
		if actualCost != nil {
			cost = *actualCost
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", orderID, completablePredecessors()).
			Updates(map[string]interface{}{
				"status":       models.OrderStatusCompleted,
				"completed_at": time.Now(),
				"actual_cost":  cost,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.classifyFailedTransition(tx, orderID, models.OrderStatusCompleted)
		}
		if o.DriverID != nil {
			if err := tx.Model(&models.DriverProfile{}).
				Where("user_id = ?", *o.DriverID).
				Updates(map[string]interface{}{
					"availability":   models.DriverAvailable,
					"total_earnings": gorm.Expr("total_earnings + ?", cost),
				}).Error; err != nil {
				return err
			}
		}
		return tx.First(&out, orderID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) Cancel(ctx context.Context, orderID uint) (*models.Order, error) {
	var out models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, orderID).Error; err != nil {
			return translateNotFound(err)
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", orderID, cancellableStatuses()).
			Update("status", models.OrderStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.classifyFailedTransition(tx, orderID, models.OrderStatusCancelled)
		}
		if o.DriverID != nil {
			if err := tx.Model(&models.DriverProfile{}).
				Where("user_id = ?", *o.DriverID).
				Update("availability", models.DriverAvailable).Error; err != nil {
				return err
			}
		}
		return tx.First(&out, orderID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) AddRating(ctx context.Context, rec *models.RatingRecord) (float64, error) {
	var avg float64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, rec.OrderID).Error; err != nil {
			return translateNotFound(err)
		}
		var existing int64
		if err := tx.Model(&models.RatingRecord{}).
			Where("order_id = ? AND from_user_id = ?", rec.OrderID, rec.FromUserID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateRating
		}
		if err := tx.Create(rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateRating
			}
			return err
		}

		column := "driver_rating"
		if rec.ToUserID == o.PassengerID {
			column = "passenger_rating"
		}
		if err := tx.Model(&models.Order{}).
			Where("id = ?", rec.OrderID).
			Update(column, rec.Rating).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.RatingRecord{}).
			Where("to_user_id = ?", rec.ToUserID).
			Select("AVG(rating)").
			Scan(&avg).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", rec.ToUserID).
			Update("rating", avg).Error
	})
	if err != nil {
		return 0, err
	}
	return avg, nil
}

func (s *GormStore) SumEarnings(ctx context.Context, driverID uint, since *time.Time) (float64, error) {
	q := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("driver_id = ? AND status = ?", driverID, models.OrderStatusCompleted)
	if since != nil {
		q = q.Where("completed_at >= ?", *since)
	}
	var total float64
	err := q.Select("COALESCE(SUM(actual_cost), 0)").Scan(&total).Error
	return total, err
}

func (s *GormStore) CompletedOrdersCount(ctx context.Context, userID uint, role models.Role) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where(roleColumn(role)+" = ? AND status = ?", userID, models.OrderStatusCompleted).
		Count(&n).Error
	return n, err
}

// classifyFailedTransition re-reads the order after a CAS update
// matched no rows and returns the precise typed failure.
func (s *GormStore) classifyFailedTransition(tx *gorm.DB, orderID uint, target models.OrderStatus) error {
	var o models.Order
	if err := tx.First(&o, orderID).Error; err != nil {
		return translateNotFound(err)
	}
	if o.Status.Terminal() {
		return ErrAlreadyTerminal
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func roleColumn(role models.Role) string {
	if role == models.RoleDriver {
		return "driver_id"
	}
	return "passenger_id"
}

func terminalStatuses() []models.OrderStatus {
	return []models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusCancelled}
}

func cancellableStatuses() []models.OrderStatus {
	return []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusAccepted,
		models.OrderStatusDriverStarted,
	}
}

// predecessorsOf returns the statuses from which target is reachable.
func predecessorsOf(target models.OrderStatus) []models.OrderStatus {
	var out []models.OrderStatus
	for from, tos := range successors {
		for _, to := range tos {
			if to == target {
				out = append(out, from)
			}
		}
	}
	return out
}
