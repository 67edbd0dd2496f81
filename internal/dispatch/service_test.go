package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
	"github.com/fiftydrive/fifty-drive-backend/internal/orders"
	"github.com/fiftydrive/fifty-drive-backend/internal/pricing"
)

type fixedDistance struct {
	km float64
}

func (f fixedDistance) DistanceKm(_ context.Context, _, _ string) float64 {
	return f.km
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []uint
	updated []uint
}

func (r *recordingNotifier) OrderCreated(o *models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, o.ID)
}

func (r *recordingNotifier) OrderUpdated(o *models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, o.ID)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.OrderStatus
	err    error
}

func (f *fakePublisher) PublishOrderEvent(o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, o.Status)
	return f.err
}

type fixture struct {
	svc      *Service
	store    *orders.MemoryStore
	notifier *recordingNotifier
	events   *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := orders.NewMemoryStore()
	notifier := &recordingNotifier{}
	events := &fakePublisher{}
	svc := NewService(store, pricing.DefaultTable(), fixedDistance{km: 10}, notifier, events, nil)
	return &fixture{svc: svc, store: store, notifier: notifier, events: events}
}

func (f *fixture) passenger(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, FullName: "Passenger", Phone: "+79991110001", Role: models.RolePassenger}
	if err := f.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func (f *fixture) driver(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, FullName: "Driver", Phone: "+79991110002", Role: models.RoleDriver}
	if err := f.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	p := &models.DriverProfile{UserID: u.ID, CarModel: "Skoda Octavia", CarNumber: "B777OP"}
	if err := f.store.CreateDriverProfile(context.Background(), p); err != nil {
		t.Fatalf("CreateDriverProfile: %v", err)
	}
	return u
}

func TestCreateOrderPricesRoute(t *testing.T) {
	f := newFixture(t)
	p := f.passenger(t, "p@example.com")

	order, err := f.svc.CreateOrder(context.Background(), p.ID, "Tverskaya 1", "Arbat 10", models.RideClassEconomy)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if order.DistanceKm != 10 {
		t.Errorf("distance = %v, want 10", order.DistanceKm)
	}
	// 100 base + 10km * 15/km
	if order.EstimatedCost != 250 {
		t.Errorf("estimated cost = %v, want 250", order.EstimatedCost)
	}
	if len(f.notifier.created) != 1 {
		t.Errorf("drivers not notified of new order")
	}
	if len(f.events.events) != 1 {
		t.Errorf("no lifecycle event published")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	p := f.passenger(t, "p@example.com")
	d := f.driver(t, "d@example.com")

	ctx := context.Background()
	if _, err := f.svc.CreateOrder(ctx, p.ID, "", "Arbat 10", models.RideClassEconomy); !errors.Is(err, orders.ErrValidation) {
		t.Errorf("empty origin: expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.CreateOrder(ctx, d.ID, "A", "B", models.RideClassEconomy); !errors.Is(err, orders.ErrValidation) {
		t.Errorf("driver as passenger: expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.CreateOrder(ctx, p.ID, "A", "B", models.RideClass("luxury")); !errors.Is(err, orders.ErrValidation) {
		t.Errorf("unknown class: expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.CreateOrder(ctx, 9999, "A", "B", models.RideClassEconomy); !errors.Is(err, orders.ErrNotFound) {
		t.Errorf("unknown passenger: expected ErrNotFound, got %v", err)
	}
}

func TestSecondActiveOrderRejected(t *testing.T) {
	f := newFixture(t)
	p := f.passenger(t, "p@example.com")

	ctx := context.Background()
	if _, err := f.svc.CreateOrder(ctx, p.ID, "A", "B", models.RideClassEconomy); err != nil {
		t.Fatalf("first order: %v", err)
	}
	if _, err := f.svc.CreateOrder(ctx, p.ID, "C", "D", models.RideClassEconomy); !errors.Is(err, orders.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAdvanceRequiresAssignedDriver(t *testing.T) {
	f := newFixture(t)
	p := f.passenger(t, "p@example.com")
	d := f.driver(t, "d@example.com")
	other := f.driver(t, "other@example.com")

	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, p.ID, "A", "B", models.RideClassEconomy)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := f.svc.Accept(ctx, order.ID, d.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if _, err := f.svc.Advance(ctx, order.ID, other.ID, models.OrderStatusDriverStarted); !errors.Is(err, orders.ErrInvalidTransition) {
		t.Errorf("other driver advancing: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.svc.Advance(ctx, order.ID, p.ID, models.OrderStatusDriverStarted); !errors.Is(err, orders.ErrInvalidTransition) {
		t.Errorf("passenger advancing: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.svc.Advance(ctx, order.ID, d.ID, models.OrderStatusDriverStarted); err != nil {
		t.Errorf("assigned driver advancing: %v", err)
	}
}

func TestAdvanceToCompletedUsesEstimate(t *testing.T) {
	f := newFixture(t)
	p := f.passenger(t, "p@example.com")
	d := f.driver(t, "d@example.com")

	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, p.ID, "A", "B", models.RideClassEconomy)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := f.svc.Accept(ctx, order.ID, d.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := f.svc.Advance(ctx, order.ID, d.ID, models.OrderStatusDriverArrived); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	done, err := f.svc.Advance(ctx, order.ID, d.ID, models.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("Advance to completed: %v", err)
	}
	if done.ActualCost == nil || *done.ActualCost != 250 {
		t.Fatalf("actual cost = %v, want the 250 estimate", done.ActualCost)
	}
}

func TestCompleteWithMeteredCost(t *testing.T) {
	f := newFixture(t)
	p := f.passenger(t, "p@example.com")
	d := f.driver(t, "d@example.com")

	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, p.ID, "A", "B", models.RideClassEconomy)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := f.svc.Accept(ctx, order.ID, d.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := f.svc.Advance(ctx, order.ID, d.ID, models.OrderStatusDriverArrived); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	negative := -10.0
	if _, err := f.svc.Complete(ctx, order.ID, d.ID, &negative); !errors.Is(err, orders.ErrValidation) {
		t.Fatalf("negative cost: expected ErrValidation, got %v", err)
	}

	metered := 320.0
	done, err := f.svc.Complete(ctx, order.ID, d.ID, &metered)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.ActualCost == nil || *done.ActualCost != 320 {
		t.Fatalf("actual cost = %v, want 320", done.ActualCost)
	}
}

func TestCancelActorRules(t *testing.T) {
	f := newFixture(t)
	p := f.passenger(t, "p@example.com")
	d := f.driver(t, "d@example.com")
	stranger := f.passenger(t, "stranger@example.com")

	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, p.ID, "A", "B", models.RideClassEconomy)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, order.ID, stranger.ID); !errors.Is(err, orders.ErrInvalidTransition) {
		t.Errorf("stranger cancelling: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.svc.Cancel(ctx, order.ID, d.ID); !errors.Is(err, orders.ErrInvalidTransition) {
		t.Errorf("unassigned driver cancelling: expected ErrInvalidTransition, got %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, order.ID, p.ID)
	if err != nil {
		t.Fatalf("passenger cancel: %v", err)
	}
	if cancelled.Status != models.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}

	if _, err := f.svc.Cancel(ctx, order.ID, p.ID); !errors.Is(err, orders.ErrAlreadyTerminal) {
		t.Fatalf("cancelling terminal order: expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestAcceptRaceSurfacesAlreadyAccepted(t *testing.T) {
	f := newFixture(t)
	p := f.passenger(t, "p@example.com")
	d1 := f.driver(t, "d1@example.com")
	d2 := f.driver(t, "d2@example.com")

	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, p.ID, "A", "B", models.RideClassEconomy)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if _, err := f.svc.Accept(ctx, order.ID, d1.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := f.svc.Accept(ctx, order.ID, d2.ID); !errors.Is(err, orders.ErrAlreadyAccepted) {
		t.Fatalf("expected ErrAlreadyAccepted, got %v", err)
	}
}

func TestFullRideScenario(t *testing.T) {
	f := newFixture(t)
	p := f.passenger(t, "p@example.com")
	a := f.driver(t, "a@example.com")
	b := f.driver(t, "b@example.com")

	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, p.ID, "Tverskaya 1", "Arbat 10", models.RideClassEconomy)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.EstimatedCost != 250 {
		t.Fatalf("estimated cost = %v, want 250", order.EstimatedCost)
	}

	if _, err := f.svc.Accept(ctx, order.ID, a.ID); err != nil {
		t.Fatalf("driver A accept: %v", err)
	}
	if _, err := f.svc.Accept(ctx, order.ID, b.ID); !errors.Is(err, orders.ErrAlreadyAccepted) {
		t.Fatalf("driver B accept: expected ErrAlreadyAccepted, got %v", err)
	}

	for _, target := range []models.OrderStatus{
		models.OrderStatusDriverStarted,
		models.OrderStatusDriverArrived,
		models.OrderStatusCompleted,
	} {
		if _, err := f.svc.Advance(ctx, order.ID, a.ID, target); err != nil {
			t.Fatalf("Advance to %s: %v", target, err)
		}
	}

	profile, err := f.store.DriverProfile(ctx, a.ID)
	if err != nil {
		t.Fatalf("DriverProfile: %v", err)
	}
	if profile.Availability != models.DriverAvailable {
		t.Errorf("driver A availability = %s, want available", profile.Availability)
	}
	if profile.TotalEarnings != 250 {
		t.Errorf("driver A earnings = %v, want the 250 estimate", profile.TotalEarnings)
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	p := f.passenger(t, "p@example.com")

	if _, err := f.svc.CreateOrder(context.Background(), p.ID, "A", "B", models.RideClassEconomy); err != nil {
		t.Fatalf("CreateOrder should tolerate publish failure, got %v", err)
	}
}
