package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrHoldDeliveryCommandIsNotConstructed = errors.New(
	"HoldDeliveryCommand must be created via NewHoldDeliveryCommand constructor",
)

// HoldDeliveryCommand places an in-progress delivery on hold for human
// intervention. A held delivery keeps being monitored but is exempt from
// the automatic delay failure.
type HoldDeliveryCommand struct {
	deliveryID kernel.UUID
	reason     string

	guard guard.ConstructorGuard
}

// NewHoldDeliveryCommand creates a command to hold the delivery.
func NewHoldDeliveryCommand(deliveryID kernel.UUID, reason string) (HoldDeliveryCommand, error) {
	command := HoldDeliveryCommand{
		reason: reason,
		guard:  guard.NewConstructorGuard(),
	}

	if err := command.setDeliveryID(deliveryID); err != nil {
		return HoldDeliveryCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c HoldDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrHoldDeliveryCommandIsNotConstructed)
}

// DeliveryID returns the delivery to hold.
func (c HoldDeliveryCommand) DeliveryID() kernel.UUID {
	return c.deliveryID
}

// Reason returns the operator's explanation, possibly empty.
func (c HoldDeliveryCommand) Reason() string {
	return c.reason
}

func (c *HoldDeliveryCommand) setDeliveryID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.deliveryID = id
	return nil
}
