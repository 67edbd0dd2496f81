package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
)

type RideClass string

const (
	RideClassEconomy RideClass = "economy"
	RideClassComfort RideClass = "comfort"
)

// OrderStatus is the closed set of lifecycle states. Callers never write
// the status column directly; all transitions go through the order store.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusAccepted      OrderStatus = "accepted"
	OrderStatusDriverStarted OrderStatus = "driver_started"
	OrderStatusDriverArrived OrderStatus = "driver_arrived"
	OrderStatusInProgress    OrderStatus = "in_progress"
	OrderStatusCompleted     OrderStatus = "completed"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

// Terminal reports whether the status ends the order lifecycle.
// Terminal orders are retained for history and never mutated again.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type Availability string

const (
	DriverAvailable Availability = "available"
	DriverBusy      Availability = "busy"
)

// DefaultRating is assigned to every user at registration.
const DefaultRating = 5.0

type User struct {
	gorm.Model
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string  `gorm:"column:password_hash;not null" json:"-"`
	FullName     string  `gorm:"not null" json:"fullName"`
	Phone        string  `gorm:"not null" json:"phone"`
	Role         Role    `gorm:"not null" json:"role"`
	Rating       float64 `gorm:"not null;default:5.0" json:"rating"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashed)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// DriverProfile holds the driver-only attributes of a user. Availability
// is owned by the order store: it flips to busy when an order is accepted
// and back to available only when the order reaches a terminal state.
type DriverProfile struct {
	gorm.Model
	UserID          uint         `gorm:"uniqueIndex;not null" json:"userId"`
	CarModel        string       `gorm:"not null" json:"carModel"`
	CarNumber       string       `gorm:"not null" json:"carNumber"`
	Availability    Availability `gorm:"not null;default:'available'" json:"availability"`
	TotalEarnings   float64      `gorm:"not null;default:0" json:"totalEarnings"`
	VehiclePhotoURL string       `json:"vehiclePhotoUrl,omitempty"`
	User            *User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (DriverProfile) TableName() string {
	return "driver_profiles"
}

type Order struct {
	gorm.Model
	PassengerID     uint        `gorm:"not null;index" json:"passengerId"`
	DriverID        *uint       `gorm:"index" json:"driverId,omitempty"`
	FromAddress     string      `gorm:"not null" json:"fromAddress"`
	ToAddress       string      `gorm:"not null" json:"toAddress"`
	RideClass       RideClass   `gorm:"not null" json:"rideClass"`
	DistanceKm      float64     `json:"distanceKm"`
	EstimatedCost   float64     `json:"estimatedCost"`
	ActualCost      *float64    `json:"actualCost,omitempty"`
	Status          OrderStatus `gorm:"not null;default:'pending';index" json:"status"`
	StartedAt       *time.Time  `json:"startedAt,omitempty"`
	CompletedAt     *time.Time  `json:"completedAt,omitempty"`
	PassengerRating *int        `json:"passengerRating,omitempty"`
	DriverRating    *int        `json:"driverRating,omitempty"`
	Passenger       *User       `json:"passenger,omitempty" gorm:"foreignKey:PassengerID"`
	Driver          *User       `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

func (Order) TableName() string {
	return "orders"
}

// FinalCost is the actual cost when recorded, the estimate otherwise.
func (o *Order) FinalCost() float64 {
	if o.ActualCost != nil {
		return *o.ActualCost
	}
	return o.EstimatedCost
}

// RatingRecord is the append-only log feeding user rating averages.
// A user may rate a given order at most once.
type RatingRecord struct {
	gorm.Model
	OrderID    uint   `gorm:"not null;uniqueIndex:idx_order_rater,priority:1" json:"orderId"`
	FromUserID uint   `gorm:"not null;uniqueIndex:idx_order_rater,priority:2" json:"fromUserId"`
	ToUserID   uint   `gorm:"not null;index" json:"toUserId"`
	Rating     int    `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment    string `json:"comment,omitempty"`
}

func (RatingRecord) TableName() string {
	return "rating_records"
}
