package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
)

// MemoryStore is a mutex-serialized in-memory Store. It backs the test
// suite and lets the API run without a database DSN configured.
type MemoryStore struct {
	mu           sync.Mutex
	users        map[uint]*models.User
	usersByEmail map[string]uint
	drivers      map[uint]*models.DriverProfile
	orderSeq     uint
	userSeq      uint
	ordersByID   map[uint]*models.Order
	ratings      []models.RatingRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[uint]*models.User),
		usersByEmail: make(map[string]uint),
		drivers:      make(map[uint]*models.DriverProfile),
		ordersByID:   make(map[uint]*models.Order),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := m.usersByEmail[email]; ok {
		return fmt.Errorf("%w: email already registered", ErrValidation)
	}
	m.userSeq++
	u.ID = m.userSeq
	u.CreatedAt = time.Now()
	if u.Rating == 0 {
		u.Rating = models.DefaultRating
	}
	cp := *u
	m.users[u.ID] = &cp
	m.usersByEmail[email] = u.ID
	return nil
}

func (m *MemoryStore) UserByID(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *MemoryStore) CreateDriverProfile(_ context.Context, p *models.DriverProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[p.UserID]
	if !ok {
		return ErrNotFound
	}
	if u.Role != models.RoleDriver {
		return fmt.Errorf("%w: user is not a driver", ErrValidation)
	}
	if _, ok := m.drivers[p.UserID]; ok {
		return fmt.Errorf("%w: driver profile already exists", ErrValidation)
	}
	if p.Availability == "" {
		p.Availability = models.DriverAvailable
	}
	p.CreatedAt = time.Now()
	cp := *p
	m.drivers[p.UserID] = &cp
	return nil
}

func (m *MemoryStore) DriverProfile(_ context.Context, userID uint) (*models.DriverProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.drivers[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) UpdateDriverProfile(_ context.Context, p *models.DriverProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.drivers[p.UserID]
	if !ok {
		return ErrNotFound
	}
	cur.CarModel = p.CarModel
	cur.CarNumber = p.CarNumber
	cur.VehiclePhotoURL = p.VehiclePhotoURL
	return nil
}

func (m *MemoryStore) AvailableDrivers(_ context.Context) ([]models.DriverProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DriverProfile
	for _, p := range m.drivers {
		if p.Availability == models.DriverAvailable {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryStore) SetDriverAvailability(_ context.Context, userID uint, a models.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.drivers[userID]
	if !ok {
		return ErrNotFound
	}
	if a == models.DriverAvailable && m.activeOrderLocked(userID, models.RoleDriver) != nil {
		return ErrConflict
	}
	p.Availability = a
	return nil
}

func (m *MemoryStore) CreateOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[o.PassengerID]; !ok {
		return ErrNotFound
	}
	if m.activeOrderLocked(o.PassengerID, models.RolePassenger) != nil {
		return ErrConflict
	}
	m.orderSeq++
	o.ID = m.orderSeq
	o.Status = models.OrderStatusPending
	o.CreatedAt = time.Now()
	cp := *o
	m.ordersByID[o.ID] = &cp
	return nil
}

func (m *MemoryStore) OrderByID(_ context.Context, id uint) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

// activeOrderLocked returns the most recent non-terminal order for a
// user, or nil. Callers hold m.mu.
func (m *MemoryStore) activeOrderLocked(userID uint, role models.Role) *models.Order {
	var best *models.Order
	for _, o := range m.ordersByID {
		if o.Status.Terminal() {
			continue
		}
		if !orderBelongsTo(o, userID, role) {
			continue
		}
		if best == nil || o.CreatedAt.After(best.CreatedAt) || (o.CreatedAt.Equal(best.CreatedAt) && o.ID > best.ID) {
			best = o
		}
	}
	return best
}

func orderBelongsTo(o *models.Order, userID uint, role models.Role) bool {
	if role == models.RoleDriver {
		return o.DriverID != nil && *o.DriverID == userID
	}
	return o.PassengerID == userID
}

func (m *MemoryStore) ActiveOrderFor(_ context.Context, userID uint, role models.Role) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.activeOrderLocked(userID, role)
	if o == nil {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) PendingOrders(_ context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.ordersByID {
		if o.Status == models.OrderStatusPending {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) OrderHistory(_ context.Context, userID uint, role models.Role, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.ordersByID {
		if orderBelongsTo(o, userID, role) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Accept(_ context.Context, orderID, driverID uint) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ordersByID[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	p, ok := m.drivers[driverID]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status != models.OrderStatusPending {
		if o.Status.Terminal() {
			return nil, ErrAlreadyTerminal
		}
		return nil, ErrAlreadyAccepted
	}
	if p.Availability != models.DriverAvailable {
		return nil, ErrNotAvailable
	}
	id := driverID
	o.DriverID = &id
	o.Status = models.OrderStatusAccepted
	p.Availability = models.DriverBusy
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) Advance(_ context.Context, orderID uint, target models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ordersByID[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	if target == models.OrderStatusCompleted || target == models.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: use Complete or Cancel for terminal states", ErrInvalidTransition)
	}
	if target == models.OrderStatusAccepted || target == models.OrderStatusPending {
		return nil, fmt.Errorf("%w: acceptance goes through Accept", ErrInvalidTransition)
	}
	if o.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if !CanTransition(o.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}
	o.Status = target
	if target == models.OrderStatusInProgress && o.StartedAt == nil {
		now := time.Now()
		o.StartedAt = &now
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) Complete(_ context.Context, orderID uint, actualCost *float64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ordersByID[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if !CanTransition(o.Status, models.OrderStatusCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, models.OrderStatusCompleted)
	}
	cost := o.EstimatedCost
	if actualCost != nil {
		cost = *actualCost
	}
	now := time.Now()
	o.Status = models.OrderStatusCompleted
	o.CompletedAt = &now
	o.ActualCost = &cost
	if o.DriverID != nil {
		if p, ok := m.drivers[*o.DriverID]; ok {
			p.Availability = models.DriverAvailable
			p.TotalEarnings += cost
		}
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) Cancel(_ context.Context, orderID uint) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ordersByID[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if !Cancellable(o.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, models.OrderStatusCancelled)
	}
	o.Status = models.OrderStatusCancelled
	if o.DriverID != nil {
		if p, ok := m.drivers[*o.DriverID]; ok {
			p.Availability = models.DriverAvailable
		}
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) AddRating(_ context.Context, rec *models.RatingRecord) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.ordersByID[rec.OrderID]
	if !ok {
		return 0, ErrNotFound
	}
	to, ok := m.users[rec.ToUserID]
	if !ok {
		return 0, ErrNotFound
	}
	for _, r := range m.ratings {
		if r.OrderID == rec.OrderID && r.FromUserID == rec.FromUserID {
			return 0, ErrDuplicateRating
		}
	}
	rec.CreatedAt = time.Now()
	m.ratings = append(m.ratings, *rec)

	if rec.ToUserID == o.PassengerID {
		v := rec.Rating
		o.PassengerRating = &v
	} else {
		v := rec.Rating
		o.DriverRating = &v
	}

	var sum, n int
	for _, r := range m.ratings {
		if r.ToUserID == rec.ToUserID {
			sum += r.Rating
			n++
		}
	}
	avg := float64(sum) / float64(n)
	to.Rating = avg
	return avg, nil
}

func (m *MemoryStore) SumEarnings(_ context.Context, driverID uint, since *time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, o := range m.ordersByID {
		if o.Status != models.OrderStatusCompleted || o.DriverID == nil || *o.DriverID != driverID {
			continue
		}
		if since != nil && (o.CompletedAt == nil || o.CompletedAt.Before(*since)) {
			continue
		}
		total += o.FinalCost()
	}
	return total, nil
}

func (m *MemoryStore) CompletedOrdersCount(_ context.Context, userID uint, role models.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.ordersByID {
		if o.Status == models.OrderStatusCompleted && orderBelongsTo(o, userID, role) {
			n++
		}
	}
	return n, nil
}
