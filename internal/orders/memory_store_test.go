package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
)

func newTestPassenger(t *testing.T, m *MemoryStore, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, FullName: "Test Passenger", Phone: "+79990000001", Role: models.RolePassenger}
	if err := m.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func newTestDriver(t *testing.T, m *MemoryStore, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, FullName: "Test Driver", Phone: "+79990000002", Role: models.RoleDriver}
	if err := m.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	p := &models.DriverProfile{UserID: u.ID, CarModel: "Kia Rio", CarNumber: "A123BC"}
	if err := m.CreateDriverProfile(context.Background(), p); err != nil {
		t.Fatalf("CreateDriverProfile: %v", err)
	}
	return u
}

func newTestOrder(t *testing.T, m *MemoryStore, passengerID uint) *models.Order {
	t.Helper()
	o := &models.Order{
		PassengerID:   passengerID,
		FromAddress:   "Tverskaya 1",
		ToAddress:     "Arbat 10",
		RideClass:     models.RideClassEconomy,
		DistanceKm:    10,
		EstimatedCost: 250,
	}
	if err := m.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return o
}

func TestCreateOrderRejectsSecondActiveOrder(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPassenger(t, m, "p@example.com")
	newTestOrder(t, m, p.ID)

	err := m.CreateOrder(context.Background(), &models.Order{
		PassengerID: p.ID,
		FromAddress: "A",
		ToAddress:   "B",
		RideClass:   models.RideClassEconomy,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestConcurrentAcceptHasExactlyOneWinner(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPassenger(t, m, "p@example.com")
	o := newTestOrder(t, m, p.ID)

	const drivers = 10
	ids := make([]uint, drivers)
	for i := range ids {
		d := newTestDriver(t, m, string(rune('a'+i))+"@drivers.example.com")
		ids[i] = d.ID
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners []uint
	var losers int
	for _, id := range ids {
		wg.Add(1)
		go func(driverID uint) {
			defer wg.Done()
			_, err := m.Accept(context.Background(), o.ID, driverID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, driverID)
			case errors.Is(err, ErrAlreadyAccepted):
				losers++
			default:
				t.Errorf("unexpected accept error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(winners))
	}
	if losers != drivers-1 {
		t.Fatalf("expected %d losers, got %d", drivers-1, losers)
	}

	got, err := m.OrderByID(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("OrderByID: %v", err)
	}
	if got.Status != models.OrderStatusAccepted {
		t.Fatalf("order status = %s, want accepted", got.Status)
	}
	if got.DriverID == nil || *got.DriverID != winners[0] {
		t.Fatalf("order assigned to wrong driver")
	}

	// Only the winner flipped to busy.
	for _, id := range ids {
		profile, err := m.DriverProfile(context.Background(), id)
		if err != nil {
			t.Fatalf("DriverProfile: %v", err)
		}
		want := models.DriverAvailable
		if id == winners[0] {
			want = models.DriverBusy
		}
		if profile.Availability != want {
			t.Errorf("driver %d availability = %s, want %s", id, profile.Availability, want)
		}
	}
}

func TestAcceptByBusyDriver(t *testing.T) {
	m := NewMemoryStore()
	p1 := newTestPassenger(t, m, "p1@example.com")
	p2 := newTestPassenger(t, m, "p2@example.com")
	d := newTestDriver(t, m, "d@example.com")

	o1 := newTestOrder(t, m, p1.ID)
	o2 := newTestOrder(t, m, p2.ID)

	if _, err := m.Accept(context.Background(), o1.ID, d.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := m.Accept(context.Background(), o2.ID, d.ID); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("expected ErrNotAvailable, got %v", err)
	}
}

func TestAcceptTerminalOrder(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPassenger(t, m, "p@example.com")
	d := newTestDriver(t, m, "d@example.com")
	o := newTestOrder(t, m, p.ID)

	if _, err := m.Cancel(context.Background(), o.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := m.Accept(context.Background(), o.ID, d.ID); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestAdvanceRejectsTerminalAndAcceptTargets(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPassenger(t, m, "p@example.com")
	o := newTestOrder(t, m, p.ID)

	for _, target := range []models.OrderStatus{
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
		models.OrderStatusAccepted,
		models.OrderStatusPending,
	} {
		if _, err := m.Advance(context.Background(), o.ID, target); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Advance to %s: expected ErrInvalidTransition, got %v", target, err)
		}
	}
}

func TestFullLifecycleSetsTimestamps(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPassenger(t, m, "p@example.com")
	d := newTestDriver(t, m, "d@example.com")
	o := newTestOrder(t, m, p.ID)

	ctx := context.Background()
	if _, err := m.Accept(ctx, o.ID, d.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	for _, target := range []models.OrderStatus{
		models.OrderStatusDriverStarted,
		models.OrderStatusDriverArrived,
		models.OrderStatusInProgress,
	} {
		if _, err := m.Advance(ctx, o.ID, target); err != nil {
			t.Fatalf("Advance to %s: %v", target, err)
		}
	}

	got, err := m.OrderByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("OrderByID: %v", err)
	}
	if got.StartedAt == nil {
		t.Fatal("StartedAt not set on in_progress")
	}

	done, err := m.Complete(ctx, o.ID, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatal("CompletedAt not set")
	}
	if done.ActualCost == nil || *done.ActualCost != 250 {
		t.Fatalf("actual cost should default to the estimate, got %v", done.ActualCost)
	}
}

func TestCompleteCreditsDriverAndFreesThem(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPassenger(t, m, "p@example.com")
	d := newTestDriver(t, m, "d@example.com")
	o := newTestOrder(t, m, p.ID)

	ctx := context.Background()
	if _, err := m.Accept(ctx, o.ID, d.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := m.Advance(ctx, o.ID, models.OrderStatusDriverArrived); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	metered := 300.0
	if _, err := m.Complete(ctx, o.ID, &metered); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	profile, err := m.DriverProfile(ctx, d.ID)
	if err != nil {
		t.Fatalf("DriverProfile: %v", err)
	}
	if profile.Availability != models.DriverAvailable {
		t.Errorf("driver availability = %s, want available", profile.Availability)
	}
	if profile.TotalEarnings != 300 {
		t.Errorf("TotalEarnings = %v, want 300", profile.TotalEarnings)
	}

	if _, err := m.Complete(ctx, o.ID, nil); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("double complete: expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestCancelAssignedOrderFreesDriver(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPassenger(t, m, "p@example.com")
	d := newTestDriver(t, m, "d@example.com")
	o := newTestOrder(t, m, p.ID)

	ctx := context.Background()
	if _, err := m.Accept(ctx, o.ID, d.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := m.Cancel(ctx, o.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	profile, err := m.DriverProfile(ctx, d.ID)
	if err != nil {
		t.Fatalf("DriverProfile: %v", err)
	}
	if profile.Availability != models.DriverAvailable {
		t.Errorf("driver availability = %s, want available", profile.Availability)
	}
}

func TestCancelAfterArrivalRejected(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPassenger(t, m, "p@example.com")
	d := newTestDriver(t, m, "d@example.com")
	o := newTestOrder(t, m, p.ID)

	ctx := context.Background()
	if _, err := m.Accept(ctx, o.ID, d.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := m.Advance(ctx, o.ID, models.OrderStatusDriverArrived); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := m.Cancel(ctx, o.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestSetDriverAvailabilityGuardsActiveOrder(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPassenger(t, m, "p@example.com")
	d := newTestDriver(t, m, "d@example.com")
	o := newTestOrder(t, m, p.ID)

	ctx := context.Background()
	if _, err := m.Accept(ctx, o.ID, d.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := m.SetDriverAvailability(ctx, d.ID, models.DriverAvailable); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if _, err := m.Cancel(ctx, o.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := m.SetDriverAvailability(ctx, d.ID, models.DriverAvailable); err != nil {
		t.Fatalf("SetDriverAvailability after cancel: %v", err)
	}
}

func TestActiveOrderFor(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPassenger(t, m, "p@example.com")
	d := newTestDriver(t, m, "d@example.com")

	ctx := context.Background()
	if _, err := m.ActiveOrderFor(ctx, p.ID, models.RolePassenger); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no orders, got %v", err)
	}

	o := newTestOrder(t, m, p.ID)
	got, err := m.ActiveOrderFor(ctx, p.ID, models.RolePassenger)
	if err != nil {
		t.Fatalf("ActiveOrderFor passenger: %v", err)
	}
	if got.ID != o.ID {
		t.Fatalf("got order %d, want %d", got.ID, o.ID)
	}

	if _, err := m.ActiveOrderFor(ctx, d.ID, models.RoleDriver); !errors.Is(err, ErrNotFound) {
		t.Fatalf("driver should have no active order yet, got %v", err)
	}
	if _, err := m.Accept(ctx, o.ID, d.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	got, err = m.ActiveOrderFor(ctx, d.ID, models.RoleDriver)
	if err != nil {
		t.Fatalf("ActiveOrderFor driver: %v", err)
	}
	if got.ID != o.ID {
		t.Fatalf("got order %d, want %d", got.ID, o.ID)
	}
}

func TestAddRatingDeduplicates(t *testing.T) {
	m := NewMemoryStore()
	p := newTestPassenger(t, m, "p@example.com")
	d := newTestDriver(t, m, "d@example.com")
	o := newTestOrder(t, m, p.ID)

	ctx := context.Background()
	if _, err := m.Accept(ctx, o.ID, d.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := m.Advance(ctx, o.ID, models.OrderStatusDriverArrived); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := m.Complete(ctx, o.ID, nil); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	avg, err := m.AddRating(ctx, &models.RatingRecord{OrderID: o.ID, FromUserID: p.ID, ToUserID: d.ID, Rating: 4})
	if err != nil {
		t.Fatalf("AddRating: %v", err)
	}
	if avg != 4 {
		t.Fatalf("average = %v, want 4", avg)
	}

	_, err = m.AddRating(ctx, &models.RatingRecord{OrderID: o.ID, FromUserID: p.ID, ToUserID: d.ID, Rating: 5})
	if !errors.Is(err, ErrDuplicateRating) {
		t.Fatalf("expected ErrDuplicateRating, got %v", err)
	}

	// The other direction is still open.
	if _, err := m.AddRating(ctx, &models.RatingRecord{OrderID: o.ID, FromUserID: d.ID, ToUserID: p.ID, Rating: 5}); err != nil {
		t.Fatalf("driver rating passenger: %v", err)
	}

	got, err := m.OrderByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("OrderByID: %v", err)
	}
	if got.DriverRating == nil || *got.DriverRating != 4 {
		t.Errorf("DriverRating = %v, want 4", got.DriverRating)
	}
	if got.PassengerRating == nil || *got.PassengerRating != 5 {
		t.Errorf("PassengerRating = %v, want 5", got.PassengerRating)
	}
}

func TestPendingOrdersOldestFirst(t *testing.T) {
	m := NewMemoryStore()
	p1 := newTestPassenger(t, m, "p1@example.com")
	p2 := newTestPassenger(t, m, "p2@example.com")
	o1 := newTestOrder(t, m, p1.ID)
	o2 := newTestOrder(t, m, p2.ID)

	pending, err := m.PendingOrders(context.Background())
	if err != nil {
		t.Fatalf("PendingOrders: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending orders, want 2", len(pending))
	}
	if pending[0].ID != o1.ID || pending[1].ID != o2.ID {
		t.Fatalf("pending orders out of order: %d, %d", pending[0].ID, pending[1].ID)
	}
}
