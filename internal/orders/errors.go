package orders

import "errors"

// Typed failures surfaced to callers. Concurrent-mutation outcomes
// (ErrAlreadyAccepted, ErrAlreadyTerminal) are expected under load and
// should be handled, not logged as errors.
var (
	// ErrConflict: the passenger already has a non-terminal order.
	ErrConflict = errors.New("passenger already has an active order")

	// ErrAlreadyAccepted: another driver won the acceptance race.
	ErrAlreadyAccepted = errors.New("order already accepted by another driver")

	// ErrNotAvailable: the driver is busy and cannot accept orders.
	ErrNotAvailable = errors.New("driver is not available")

	// ErrInvalidTransition: the requested status change is not a legal
	// successor of the current status, or the actor may not perform it.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrAlreadyTerminal: the order is completed or cancelled.
	ErrAlreadyTerminal = errors.New("order is already in a terminal state")

	// ErrNotFound: unknown user, driver or order id.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRating: the same user already rated this order.
	ErrDuplicateRating = errors.New("order already rated by this user")

	// ErrValidation: malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
)
