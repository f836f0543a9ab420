package commands

import (
	"errors"
	"fmt"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrCreateAgentCommandIsNotConstructed = errors.New(
	"CreateAgentCommand must be created via NewCreateAgentCommand constructor",
)

// CreateAgentCommand registers a new delivery agent.
type CreateAgentCommand struct { //nolint:recvcheck //using for validation
	agentID     kernel.UUID
	name        string
	contact     string
	maxWorkload int

	guard guard.ConstructorGuard
}

// NewCreateAgentCommand creates a command to register a new agent.
func NewCreateAgentCommand(agentID kernel.UUID, name, contact string, maxWorkload int) (CreateAgentCommand, error) {
	command := CreateAgentCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		command.setAgentID(agentID),
		command.setName(name),
		command.setContact(contact),
		command.setMaxWorkload(maxWorkload),
	); err != nil {
		return CreateAgentCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
func (c CreateAgentCommand) Validate() error {
	return c.guard.Validate(ErrCreateAgentCommandIsNotConstructed)
}

// AgentID returns the unique identifier for the agent.
func (c CreateAgentCommand) AgentID() kernel.UUID {
	return c.agentID
}

// Name returns the agent's display name.
func (c CreateAgentCommand) Name() string {
	return c.name
}

// Contact returns the agent's notification address.
func (c CreateAgentCommand) Contact() string {
	return c.contact
}

// MaxWorkload returns the number of concurrent deliveries the agent accepts.
func (c CreateAgentCommand) MaxWorkload() int {
	return c.maxWorkload
}

func (c *CreateAgentCommand) setAgentID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	c.agentID = id
	return nil
}

func (c *CreateAgentCommand) setName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errs.NewValueIsRequiredError("name")
	}

	c.name = name
	return nil
}

func (c *CreateAgentCommand) setContact(contact string) error {
	if strings.TrimSpace(contact) == "" {
		return errs.NewValueIsRequiredError("contact")
	}

	c.contact = contact
	return nil
}

func (c *CreateAgentCommand) setMaxWorkload(maxWorkload int) error {
	if maxWorkload <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("max workload is invalid",
			fmt.Errorf("%d is not greater than 0", maxWorkload))
	}

	c.maxWorkload = maxWorkload
	return nil
}
