package order

import (
	"errors"
	"fmt"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// ErrOrderIsNotConstructed is returned when an Order instance was not created
// through the NewOrder or RestoreOrder factory functions.
var ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")

// Order represents a customer order in the system. The order workflow owns
// most of the order lifecycle; the delivery core holds a read/limited-write
// reference and mutates the order only at delivery assignment and completion.
//
// Order follows these invariants:
//   - Must have a valid unique identifier and delivery location
//   - Total amount must be positive
//   - Customer contact must be present (used for delivery notifications)
//   - Status transitions follow the rules in Status
//
// The struct uses private fields to ensure encapsulation and maintains its
// invariants through validated methods.
type Order struct {
	// id is the unique identifier for the order
	id kernel.UUID

	// customerContact is the customer's notification recipient (phone number)
	customerContact string

	// street is the human-readable delivery address
	street string

	// location is the delivery destination
	location kernel.GeoPoint

	// totalAmount is the order total in the platform currency
	totalAmount float64

	// paymentMethod determines whether cash handling applies at delivery
	paymentMethod PaymentMethod

	// status is the current state in the order lifecycle
	status Status

	// paid records whether payment has been received (at completion for
	// prepaid orders, at cash collection for cash-on-delivery orders)
	paid bool

	// guard ensures the order was created via a constructor
	guard guard.ConstructorGuard
}

// NewOrder creates a new Order in Confirmed status with validation. This is
// the only way to create a fresh Order, ensuring all business invariants are
// maintained.
func NewOrder(
	id kernel.UUID,
	customerContact string,
	street string,
	location kernel.GeoPoint,
	totalAmount float64,
	paymentMethod PaymentMethod,
) (*Order, error) {
	o := &Order{
		status: Confirmed,
		guard:  guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(id),
		o.setCustomerContact(customerContact),
		o.setStreet(street),
		o.setLocation(location),
		o.setTotalAmount(totalAmount),
		o.setPaymentMethod(paymentMethod),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// RestoreOrder reconstructs an Order aggregate from persistent storage,
// preserving its persisted status and payment state. The restored order
// behaves identically to one created through normal domain operations.
func RestoreOrder(
	id kernel.UUID,
	customerContact string,
	street string,
	location kernel.GeoPoint,
	totalAmount float64,
	paymentMethod PaymentMethod,
	status Status,
	paid bool,
) (*Order, error) {
	o := &Order{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(id),
		o.setCustomerContact(customerContact),
		o.setStreet(street),
		o.setLocation(location),
		o.setTotalAmount(totalAmount),
		o.setPaymentMethod(paymentMethod),
		status.Validate(),
	); err != nil {
		return nil, err
	}

	o.status = status
	o.paid = paid
	return o, nil
}

// Validate ensures the Order instance was properly constructed.
func (o *Order) Validate() error {
	if o == nil {
		return ErrOrderIsNotConstructed
	}
	return o.guard.Validate(ErrOrderIsNotConstructed)
}

// IsEqual compares two orders by their unique identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

// ID returns the order's unique identifier.
func (o *Order) ID() kernel.UUID {
	return o.id
}

// CustomerContact returns the customer's notification recipient.
func (o *Order) CustomerContact() string {
	return o.customerContact
}

// Street returns the human-readable delivery address.
func (o *Order) Street() string {
	return o.street
}

// Location returns the delivery destination.
func (o *Order) Location() kernel.GeoPoint {
	return o.location
}

// TotalAmount returns the order total.
func (o *Order) TotalAmount() float64 {
	return o.totalAmount
}

// PaymentMethod returns how the customer pays for the order.
func (o *Order) PaymentMethod() PaymentMethod {
	return o.paymentMethod
}

// Status returns the current status of the order.
func (o *Order) Status() Status {
	return o.status
}

// IsPaid reports whether payment has been received for the order.
func (o *Order) IsPaid() bool {
	return o.paid
}

// StartDelivery marks the order as having an active delivery attempt.
// Valid from Confirmed (initial assignment) and InDelivery (reassignment).
func (o *Order) StartDelivery() error {
	newStatus, err := o.status.StartDelivery()
	if err != nil {
		return err
	}

	o.status = newStatus
	return nil
}

// Deliver marks the order as delivered to the customer. Prepaid orders are
// marked paid at the same time; cash orders become paid when the collection
// is recorded on the delivery.
func (o *Order) Deliver() error {
	newStatus, err := o.status.Deliver()
	if err != nil {
		return err
	}

	o.status = newStatus
	if o.paymentMethod == Prepaid {
		o.paid = true
	}
	return nil
}

// MarkPaid records that payment has been received for the order.
func (o *Order) MarkPaid() {
	o.paid = true
}

// setID validates and sets the order's unique identifier.
func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

// setCustomerContact validates and sets the customer's notification recipient.
func (o *Order) setCustomerContact(contact string) error {
	if contact == "" {
		return errs.NewValueIsRequiredError("customer contact")
	}
	o.customerContact = contact
	return nil
}

// setStreet validates and sets the delivery address.
func (o *Order) setStreet(street string) error {
	if street == "" {
		return errs.NewValueIsRequiredError("street")
	}
	o.street = street
	return nil
}

// setLocation validates and sets the delivery destination.
func (o *Order) setLocation(location kernel.GeoPoint) error {
	if err := location.Validate(); err != nil {
		return err
	}
	o.location = location
	return nil
}

// setTotalAmount validates and sets the order total.
func (o *Order) setTotalAmount(amount float64) error {
	if amount <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("total amount is invalid",
			fmt.Errorf("%f is not greater than 0", amount))
	}
	o.totalAmount = amount
	return nil
}

// setPaymentMethod validates and sets the payment method.
func (o *Order) setPaymentMethod(method PaymentMethod) error {
	if err := method.Validate(); err != nil {
		return err
	}
	o.paymentMethod = method
	return nil
}
