// Package orderflow holds the order workflow rules shared by the API server
// and the kitchen dashboard: statuses, order types, legal transitions and the
// single next action a kitchen operator may take on an order.
package orderflow

import (
	"errors"
	"fmt"
)

// Status is the workflow stage of an order.
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Type decides which terminal action applies once an order is ready.
type Type string

const (
	TypeDelivery Type = "delivery"
	TypePickup   Type = "pickup"
	TypeCounter  Type = "counter"
)

// ErrInvalidTransition is wrapped by ValidateTransition.
var ErrInvalidTransition = errors.New("invalid status transition")

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAccepted, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Valid reports whether t is a known order type.
func (t Type) Valid() bool {
	switch t {
	case TypeDelivery, TypePickup, TypeCounter:
		return true
	}
	return false
}

// IsDelivery reports whether the order leaves the shop with a courier.
func (t Type) IsDelivery() bool {
	return t == TypeDelivery
}

// allowedTransitions maps a status to the statuses it can move to.
// Forward moves never skip a stage.
var allowedTransitions = map[Status][]Status{
	StatusAccepted:  {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered, StatusCancelled},
}

// ValidateTransition checks that moving from current to next is allowed.
func ValidateTransition(current, next Status) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("%w: cannot transition from %s", ErrInvalidTransition, current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, current, next)
}
