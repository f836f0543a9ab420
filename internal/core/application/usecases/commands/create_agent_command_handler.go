package commands

import (
	"context"

	"dispatch/internal/core/domain/model/agent"
)

// CreateAgentCommandHandler registers new delivery agents. A fresh agent
// starts available, with no cash history and a clean fraud record.
type CreateAgentCommandHandler struct {
	uowFactory AgentUoWFactory
}

// NewCreateAgentCommandHandler creates a handler for agent registration.
func NewCreateAgentCommandHandler(uowFactory AgentUoWFactory) CreateAgentCommandHandler {
	return CreateAgentCommandHandler{
		uowFactory: uowFactory,
	}
}

// Handle persists the new agent.
func (h *CreateAgentCommandHandler) Handle(ctx context.Context, command CreateAgentCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	a, err := agent.NewAgent(command.AgentID(), command.Name(), command.Contact(), command.MaxWorkload())
	if err != nil {
		return err
	}

	if err = uow.AgentRepository().Add(ctx, a); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
