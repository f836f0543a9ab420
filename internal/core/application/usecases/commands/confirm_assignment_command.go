package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrConfirmAssignmentCommandIsNotConstructed = errors.New(
	"ConfirmAssignmentCommand must be created via NewConfirmAssignmentCommand constructor",
)

// ConfirmAssignmentCommand carries an agent's answer to an assignment offer.
// Acceptance moves the delivery in progress and starts monitoring; rejection
// escalates to the next ranked candidate, exactly like a confirmation
// timeout.
type ConfirmAssignmentCommand struct {
	deliveryID kernel.UUID
	accepted   bool

	guard guard.ConstructorGuard
}

// NewConfirmAssignmentCommand creates a command with the agent's answer.
func NewConfirmAssignmentCommand(deliveryID kernel.UUID, accepted bool) (ConfirmAssignmentCommand, error) {
	command := ConfirmAssignmentCommand{
		accepted: accepted,
		guard:    guard.NewConstructorGuard(),
	}

	if err := command.setDeliveryID(deliveryID); err != nil {
		return ConfirmAssignmentCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c ConfirmAssignmentCommand) Validate() error {
	return c.guard.Validate(ErrConfirmAssignmentCommandIsNotConstructed)
}

// DeliveryID returns the delivery being answered.
func (c ConfirmAssignmentCommand) DeliveryID() kernel.UUID {
	return c.deliveryID
}

// Accepted reports whether the agent took the assignment.
func (c ConfirmAssignmentCommand) Accepted() bool {
	return c.accepted
}

func (c *ConfirmAssignmentCommand) setDeliveryID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.deliveryID = id
	return nil
}
