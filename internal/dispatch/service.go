package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
	"github.com/fiftydrive/fifty-drive-backend/internal/observability"
	"github.com/fiftydrive/fifty-drive-backend/internal/orders"
	"github.com/fiftydrive/fifty-drive-backend/internal/pricing"
)

// DistanceEstimator measures the distance between two addresses. It
// never fails; unresolvable addresses produce a fallback estimate.
type DistanceEstimator interface {
	DistanceKm(ctx context.Context, fromAddr, toAddr string) float64
}

// Notifier pushes order updates to connected parties. Implementations
// are best-effort; the dispatch engine does not depend on delivery.
type Notifier interface {
	OrderCreated(o *models.Order)
	OrderUpdated(o *models.Order)
}

// EventPublisher streams lifecycle events for analytics.
type EventPublisher interface {
	PublishOrderEvent(o *models.Order) error
}

// Service orchestrates the order lifecycle on top of the store: it
// prices and creates orders, offers them to drivers, arbitrates the
// acceptance race and applies actor rules to every transition.
type Service struct {
	store    orders.Store
	rates    pricing.Table
	distance DistanceEstimator
	notifier Notifier
	events   EventPublisher
	log      *slog.Logger
}

func NewService(store orders.Store, rates pricing.Table, distance DistanceEstimator, notifier Notifier, events EventPublisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		rates:    rates,
		distance: distance,
		notifier: notifier,
		events:   events,
		log:      log,
	}
}

// CreateOrder prices the route and persists a pending order, then
// offers it to the driver pool. A passenger with an active order gets
// ErrConflict and no row is written.
func (s *Service) CreateOrder(ctx context.Context, passengerID uint, fromAddr, toAddr string, class models.RideClass) (*models.Order, error) {
	if fromAddr == "" || toAddr == "" {
		return nil, fmt.Errorf("%w: both addresses are required", orders.ErrValidation)
	}
	user, err := s.store.UserByID(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RolePassenger {
		return nil, fmt.Errorf("%w: only passengers can create orders", orders.ErrValidation)
	}

	distanceKm := s.distance.DistanceKm(ctx, fromAddr, toAddr)
	est, err := s.rates.Estimate(distanceKm, class)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		PassengerID:   passengerID,
		FromAddress:   fromAddr,
		ToAddress:     toAddr,
		RideClass:     class,
		DistanceKm:    distanceKm,
		EstimatedCost: est.Cost,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	observability.OrdersCreated.Inc()
	s.log.Info("order created",
		"order_id", order.ID,
		"passenger_id", passengerID,
		"ride_class", class,
		"distance_km", distanceKm,
		"estimated_cost", est.Cost,
	)
	s.publish(order)
	if s.notifier != nil {
		s.notifier.OrderCreated(order)
	}
	return order, nil
}

// ListPendingOrders returns open orders oldest first, so drivers see
// the longest-waiting passengers at the top.
func (s *Service) ListPendingOrders(ctx context.Context) ([]models.Order, error) {
	return s.store.PendingOrders(ctx)
}

// Accept assigns the order to the driver. Exactly one concurrent
// caller wins; losers get ErrAlreadyAccepted and busy drivers
// ErrNotAvailable. The status swap and the driver busy flip are one
// atomic unit in the store.
func (s *Service) Accept(ctx context.Context, orderID, driverID uint) (*models.Order, error) {
	order, err := s.store.Accept(ctx, orderID, driverID)
	if err != nil {
		if errors.Is(err, orders.ErrAlreadyAccepted) {
			// Expected under contention, not log-worthy.
			observability.AcceptRacesLost.Inc()
		}
		return nil, err
	}
	observability.OrdersAccepted.Inc()
	s.log.Info("order accepted", "order_id", order.ID, "driver_id", driverID)
	s.publish(order)
	if s.notifier != nil {
		s.notifier.OrderUpdated(order)
	}
	return order, nil
}

// Advance moves an order along the lifecycle on behalf of its driver.
// driver_started, driver_arrived and in_progress may only be set by
// the assigned driver; completed routes through Complete with no
// actual cost supplied.
func (s *Service) Advance(ctx context.Context, orderID, actorID uint, target models.OrderStatus) (*models.Order, error) {
	if target == models.OrderStatusCancelled {
		return s.Cancel(ctx, orderID, actorID)
	}
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.DriverID == nil || *order.DriverID != actorID {
		return nil, fmt.Errorf("%w: only the assigned driver may advance the order", orders.ErrInvalidTransition)
	}
	if target == models.OrderStatusCompleted {
		return s.complete(ctx, order, nil)
	}
	updated, err := s.store.Advance(ctx, orderID, target)
	if err != nil {
		return nil, err
	}
	s.log.Info("order advanced", "order_id", orderID, "status", target)
	s.publish(updated)
	if s.notifier != nil {
		s.notifier.OrderUpdated(updated)
	}
	return updated, nil
}

// Complete finishes the ride, optionally recording a metered actual
// cost; absent one, the estimate becomes the actual cost. The driver
// returns to the pool and earns the final amount.
func (s *Service) Complete(ctx context.Context, orderID, actorID uint, actualCost *float64) (*models.Order, error) {
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.DriverID == nil || *order.DriverID != actorID {
		return nil, fmt.Errorf("%w: only the assigned driver may complete the order", orders.ErrInvalidTransition)
	}
	if actualCost != nil && *actualCost < 0 {
		return nil, fmt.Errorf("%w: actual cost must be non-negative", orders.ErrValidation)
	}
	return s.complete(ctx, order, actualCost)
}

func (s *Service) complete(ctx context.Context, order *models.Order, actualCost *float64) (*models.Order, error) {
	updated, err := s.store.Complete(ctx, order.ID, actualCost)
	if err != nil {
		return nil, err
	}
	observability.OrdersCompleted.Inc()
	s.log.Info("order completed", "order_id", updated.ID, "actual_cost", updated.FinalCost())
	s.publish(updated)
	if s.notifier != nil {
		s.notifier.OrderUpdated(updated)
	}
	return updated, nil
}

// Cancel aborts a non-terminal order. The passenger may cancel their
// own order, the assigned driver theirs; an assigned driver is freed.
func (s *Service) Cancel(ctx context.Context, orderID, actorID uint) (*models.Order, error) {
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	isPassenger := order.PassengerID == actorID
	isDriver := order.DriverID != nil && *order.DriverID == actorID
	if !isPassenger && !isDriver {
		return nil, fmt.Errorf("%w: only the passenger or the assigned driver may cancel", orders.ErrInvalidTransition)
	}
	updated, err := s.store.Cancel(ctx, orderID)
	if err != nil {
		return nil, err
	}
	observability.OrdersCancelled.Inc()
	s.log.Info("order cancelled", "order_id", orderID, "actor_id", actorID)
	s.publish(updated)
	if s.notifier != nil {
		s.notifier.OrderUpdated(updated)
	}
	return updated, nil
}

// ActiveOrder returns the user's single non-terminal order, or
// ErrNotFound.
func (s *Service) ActiveOrder(ctx context.Context, userID uint, role models.Role) (*models.Order, error) {
	return s.store.ActiveOrderFor(ctx, userID, role)
}

func (s *Service) OrderHistory(ctx context.Context, userID uint, role models.Role, limit int) ([]models.Order, error) {
	return s.store.OrderHistory(ctx, userID, role, limit)
}

func (s *Service) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.store.OrderByID(ctx, orderID)
}

func (s *Service) publish(o *models.Order) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(o); err != nil {
		s.log.Warn("order event publish failed", "order_id", o.ID, "err", err)
	}
}
