package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrAssignDeliveryCommandIsNotConstructed = errors.New(
	"AssignDeliveryCommand must be created via NewAssignDeliveryCommand constructor",
)

// AssignDeliveryCommand requests a delivery agent for a confirmed order.
// The handler ranks eligible agents, offers the assignment to the best one
// and arms the confirmation deadline.
//
// Example:
//
//	cmd, err := NewAssignDeliveryCommand(orderID)
//	if err != nil {
//	    return err
//	}
//	deliveryID, err := handler.Handle(ctx, cmd)
//	if errors.Is(err, ErrNoAgentsAvailable) {
//	    // surface as pending, re-trigger later
//	}
type AssignDeliveryCommand struct {
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

// NewAssignDeliveryCommand creates a command to assign an agent to the order.
func NewAssignDeliveryCommand(orderID kernel.UUID) (AssignDeliveryCommand, error) {
	command := AssignDeliveryCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := command.setOrderID(orderID); err != nil {
		return AssignDeliveryCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c AssignDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrAssignDeliveryCommandIsNotConstructed)
}

// OrderID returns the order to assign.
func (c AssignDeliveryCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c *AssignDeliveryCommand) setOrderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.orderID = id
	return nil
}
