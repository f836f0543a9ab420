package commands

import (
	"errors"
	"fmt"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrRecordRemittanceCommandIsNotConstructed = errors.New(
	"RecordRemittanceCommand must be created via NewRecordRemittanceCommand constructor",
)

// RecordRemittanceCommand records the hand-over of collected cash to the
// company, with an optional proof reference such as a deposit slip number.
type RecordRemittanceCommand struct {
	deliveryID kernel.UUID
	amount     float64
	proof      string

	guard guard.ConstructorGuard
}

// NewRecordRemittanceCommand creates a command recording the remittance.
func NewRecordRemittanceCommand(deliveryID kernel.UUID, amount float64, proof string) (RecordRemittanceCommand, error) {
	command := RecordRemittanceCommand{
		proof: proof,
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		command.setDeliveryID(deliveryID),
		command.setAmount(amount),
	); err != nil {
		return RecordRemittanceCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c RecordRemittanceCommand) Validate() error {
	return c.guard.Validate(ErrRecordRemittanceCommandIsNotConstructed)
}

// DeliveryID returns the delivery being settled.
func (c RecordRemittanceCommand) DeliveryID() kernel.UUID {
	return c.deliveryID
}

// Amount returns the remitted amount. A zero amount is a valid declaration
// that nothing was handed over.
func (c RecordRemittanceCommand) Amount() float64 {
	return c.amount
}

// Proof returns the proof reference, possibly empty.
func (c RecordRemittanceCommand) Proof() string {
	return c.proof
}

func (c *RecordRemittanceCommand) setDeliveryID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.deliveryID = id
	return nil
}

func (c *RecordRemittanceCommand) setAmount(amount float64) error {
	if amount < 0 {
		return errs.NewValueIsInvalidErrorWithCause("remitted amount is invalid",
			fmt.Errorf("%f is negative", amount))
	}

	c.amount = amount
	return nil
}
