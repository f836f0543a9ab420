package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrUpdateLocationCommandIsNotConstructed = errors.New(
	"UpdateLocationCommand must be created via NewUpdateLocationCommand constructor",
)

// UpdateLocationCommand carries a position report from the field for an
// in-progress delivery.
type UpdateLocationCommand struct {
	deliveryID kernel.UUID
	location   kernel.GeoPoint

	guard guard.ConstructorGuard
}

// NewUpdateLocationCommand creates a command with the agent's reported
// position.
func NewUpdateLocationCommand(deliveryID kernel.UUID, location kernel.GeoPoint) (UpdateLocationCommand, error) {
	command := UpdateLocationCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		command.setDeliveryID(deliveryID),
		command.setLocation(location),
	); err != nil {
		return UpdateLocationCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c UpdateLocationCommand) Validate() error {
	return c.guard.Validate(ErrUpdateLocationCommandIsNotConstructed)
}

// DeliveryID returns the delivery being reported on.
func (c UpdateLocationCommand) DeliveryID() kernel.UUID {
	return c.deliveryID
}

// Location returns the reported position.
func (c UpdateLocationCommand) Location() kernel.GeoPoint {
	return c.location
}

func (c *UpdateLocationCommand) setDeliveryID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.deliveryID = id
	return nil
}

func (c *UpdateLocationCommand) setLocation(location kernel.GeoPoint) error {
	if err := location.Validate(); err != nil {
		return err
	}

	c.location = location
	return nil
}
