package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrRequestRedeliveryCommandIsNotConstructed = errors.New(
	"RequestRedeliveryCommand must be created via NewRequestRedeliveryCommand constructor",
)

// RequestRedeliveryCommand asks for another delivery attempt on an order
// whose previous attempt failed. An order gets at most three attempts.
type RequestRedeliveryCommand struct {
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

// NewRequestRedeliveryCommand creates a command requesting a new attempt.
func NewRequestRedeliveryCommand(orderID kernel.UUID) (RequestRedeliveryCommand, error) {
	command := RequestRedeliveryCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := command.setOrderID(orderID); err != nil {
		return RequestRedeliveryCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c RequestRedeliveryCommand) Validate() error {
	return c.guard.Validate(ErrRequestRedeliveryCommandIsNotConstructed)
}

// OrderID returns the order to redeliver.
func (c RequestRedeliveryCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c *RequestRedeliveryCommand) setOrderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.orderID = id
	return nil
}
