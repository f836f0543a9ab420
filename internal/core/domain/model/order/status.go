package order

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status represents the lifecycle state of an order as seen by the delivery
// core. The order workflow owns the earlier states; the core only drives the
// transitions below.
//
// State transitions:
//
//	Confirmed ──> InDelivery ──> Delivered
//	                  │ ^
//	                  └─┘ (reassignment keeps the order in delivery)
//
// Status is a value object that validates state transitions and provides
// string representations for persistence and display.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	Unknown Status = iota

	// Confirmed is the state in which the order workflow hands the order to
	// the delivery core. Orders in this status are awaiting agent assignment.
	Confirmed

	// InDelivery indicates a delivery attempt exists for the order.
	// Reassignment keeps the order in this status.
	InDelivery

	// Delivered indicates the order reached the customer. This is a final
	// state for the delivery core; payment settlement continues separately
	// on the delivery record.
	Delivered
)

// getStatusStrings returns a map of Status values to their string representations.
func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:    "Unknown",
		Confirmed:  "Confirmed",
		InDelivery: "InDelivery",
		Delivered:  "Delivered",
	}
}

// getValidStatusStrings returns a map of only valid Status values.
func getValidStatusStrings() map[Status]string {
	//nolint:exhaustive // Unknown is intentionally excluded as it's invalid
	return map[Status]string{
		Confirmed:  "Confirmed",
		InDelivery: "InDelivery",
		Delivered:  "Delivered",
	}
}

// Validate checks if the Status value is valid.
func (s Status) Validate() error {
	if _, ok := getValidStatusStrings()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the human-readable name of the status.
// Implements the fmt.Stringer interface; safe on any Status value.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// StartDelivery transitions the status to InDelivery.
//
// Valid transitions:
//   - Confirmed -> InDelivery (initial assignment)
//   - InDelivery -> InDelivery (reassignment after a failed attempt)
//
// Returns (0, error) if the transition is not allowed from the current status.
func (s Status) StartDelivery() (Status, error) {
	if s != Confirmed && s != InDelivery {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to start delivery", s.String()),
		)
	}

	return InDelivery, nil
}

// Deliver transitions the status to Delivered.
//
// Valid transitions:
//   - InDelivery -> Delivered
//
// Delivered is a final state with no further transitions possible.
func (s Status) Deliver() (Status, error) {
	if s != InDelivery {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to deliver", s.String()),
		)
	}

	return Delivered, nil
}
