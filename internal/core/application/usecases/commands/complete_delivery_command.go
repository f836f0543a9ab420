package commands

import (
	"errors"
	"fmt"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrCompleteDeliveryCommandIsNotConstructed = errors.New(
	"CompleteDeliveryCommand must be created via NewCompleteDeliveryCommand constructor",
)

// CompleteDeliveryCommand records the drop-off of an in-progress delivery.
// For cash-on-delivery orders it carries the amount collected at the door;
// for prepaid orders the amount is absent.
type CompleteDeliveryCommand struct {
	deliveryID    kernel.UUID
	cashCollected *float64

	guard guard.ConstructorGuard
}

// NewCompleteDeliveryCommand creates a command recording the drop-off.
// cashCollected is nil for prepaid orders.
func NewCompleteDeliveryCommand(deliveryID kernel.UUID, cashCollected *float64) (CompleteDeliveryCommand, error) {
	command := CompleteDeliveryCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		command.setDeliveryID(deliveryID),
		command.setCashCollected(cashCollected),
	); err != nil {
		return CompleteDeliveryCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c CompleteDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrCompleteDeliveryCommandIsNotConstructed)
}

// DeliveryID returns the delivery being completed.
func (c CompleteDeliveryCommand) DeliveryID() kernel.UUID {
	return c.deliveryID
}

// CashCollected returns the amount collected at the door, nil for prepaid
// orders.
func (c CompleteDeliveryCommand) CashCollected() *float64 {
	return c.cashCollected
}

func (c *CompleteDeliveryCommand) setDeliveryID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.deliveryID = id
	return nil
}

func (c *CompleteDeliveryCommand) setCashCollected(amount *float64) error {
	if amount != nil && *amount <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("collected amount is invalid",
			fmt.Errorf("%f is not greater than 0", *amount))
	}

	c.cashCollected = amount
	return nil
}
