package commands

import (
	"errors"
	"fmt"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrCreateOrderCommandIsNotConstructed = errors.New(
	"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
)

// CreateOrderCommand registers a new order awaiting assignment.
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	orderID         kernel.UUID
	customerContact string
	street          string
	location        kernel.GeoPoint
	totalAmount     float64
	paymentMethod   order.PaymentMethod

	guard guard.ConstructorGuard
}

// NewCreateOrderCommand creates a command to register a new order.
func NewCreateOrderCommand(
	orderID kernel.UUID,
	customerContact string,
	street string,
	location kernel.GeoPoint,
	totalAmount float64,
	paymentMethod order.PaymentMethod,
) (CreateOrderCommand, error) {
	command := CreateOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		command.setOrderID(orderID),
		command.setCustomerContact(customerContact),
		command.setStreet(street),
		command.setLocation(location),
		command.setTotalAmount(totalAmount),
		command.setPaymentMethod(paymentMethod),
	); err != nil {
		return CreateOrderCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

// OrderID returns the unique identifier for the order.
func (c CreateOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

// CustomerContact returns the customer's notification address.
func (c CreateOrderCommand) CustomerContact() string {
	return c.customerContact
}

// Street returns the delivery destination street address.
func (c CreateOrderCommand) Street() string {
	return c.street
}

// Location returns the delivery destination coordinates.
func (c CreateOrderCommand) Location() kernel.GeoPoint {
	return c.location
}

// TotalAmount returns the order total.
func (c CreateOrderCommand) TotalAmount() float64 {
	return c.totalAmount
}

// PaymentMethod returns how the order is paid.
func (c CreateOrderCommand) PaymentMethod() order.PaymentMethod {
	return c.paymentMethod
}

func (c *CreateOrderCommand) setOrderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.orderID = id
	return nil
}

func (c *CreateOrderCommand) setCustomerContact(contact string) error {
	if strings.TrimSpace(contact) == "" {
		return errs.NewValueIsRequiredError("customerContact")
	}

	c.customerContact = contact
	return nil
}

func (c *CreateOrderCommand) setStreet(street string) error {
	if strings.TrimSpace(street) == "" {
		return errs.NewValueIsRequiredError("street")
	}

	c.street = street
	return nil
}

func (c *CreateOrderCommand) setLocation(location kernel.GeoPoint) error {
	if err := location.Validate(); err != nil {
		return err
	}

	c.location = location
	return nil
}

func (c *CreateOrderCommand) setTotalAmount(amount float64) error {
	if amount <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("total amount is invalid",
			fmt.Errorf("%f is not greater than 0", amount))
	}

	c.totalAmount = amount
	return nil
}

func (c *CreateOrderCommand) setPaymentMethod(method order.PaymentMethod) error {
	if err := method.Validate(); err != nil {
		return err
	}

	c.paymentMethod = method
	return nil
}
