package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrResolveFraudAlertCommandIsNotConstructed = errors.New(
	"ResolveFraudAlertCommand must be created via NewResolveFraudAlertCommand constructor",
)

// ResolveFraudAlertCommand closes a disputed settlement after a manual
// review. A cleared dispute restores the delivery to the paid state and
// lifts the agent's restriction; a confirmed one keeps both in place.
type ResolveFraudAlertCommand struct {
	deliveryID     kernel.UUID
	confirmedFraud bool
	notes          string

	guard guard.ConstructorGuard
}

// NewResolveFraudAlertCommand creates a command closing the dispute.
func NewResolveFraudAlertCommand(deliveryID kernel.UUID, confirmedFraud bool, notes string) (ResolveFraudAlertCommand, error) {
	command := ResolveFraudAlertCommand{
		confirmedFraud: confirmedFraud,
		notes:          notes,
		guard:          guard.NewConstructorGuard(),
	}

	if err := command.setDeliveryID(deliveryID); err != nil {
		return ResolveFraudAlertCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c ResolveFraudAlertCommand) Validate() error {
	return c.guard.Validate(ErrResolveFraudAlertCommandIsNotConstructed)
}

// DeliveryID returns the disputed delivery.
func (c ResolveFraudAlertCommand) DeliveryID() kernel.UUID {
	return c.deliveryID
}

// ConfirmedFraud reports the reviewer's verdict.
func (c ResolveFraudAlertCommand) ConfirmedFraud() bool {
	return c.confirmedFraud
}

// Notes returns the reviewer's remarks, possibly empty.
func (c ResolveFraudAlertCommand) Notes() string {
	return c.notes
}

func (c *ResolveFraudAlertCommand) setDeliveryID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.deliveryID = id
	return nil
}
