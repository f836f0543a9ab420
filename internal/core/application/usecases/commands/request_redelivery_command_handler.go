package commands

import (
	"context"
	"log/slog"

	"dispatch/internal/core/domain/model/kernel"
)

// maxRedeliveryAttempts caps how many prior attempts an order may carry
// before a redelivery request is refused.
const maxRedeliveryAttempts = 2

// RequestRedeliveryCommandHandler starts another delivery attempt on an
// order whose previous attempt failed. It delegates to the assignment
// coordinator, which excludes agents that already tried the order.
type RequestRedeliveryCommandHandler struct {
	assigner AttemptAssigner
	logger   *slog.Logger
}

// NewRequestRedeliveryCommandHandler creates a handler for redelivery
// requests.
func NewRequestRedeliveryCommandHandler(assigner AttemptAssigner, logger *slog.Logger) RequestRedeliveryCommandHandler {
	return RequestRedeliveryCommandHandler{
		assigner: assigner,
		logger:   logger.With("component", "redelivery"),
	}
}

// Handle starts the next attempt and returns the new delivery's identifier.
// ErrMaxAttemptsReached is returned once the order has exhausted its
// attempts.
func (h RequestRedeliveryCommandHandler) Handle(ctx context.Context, command RequestRedeliveryCommand) (kernel.UUID, error) {
	if err := command.Validate(); err != nil {
		return kernel.UUID{}, err
	}

	deliveryID, err := h.assigner.AssignNextAttempt(ctx, command.OrderID(), maxRedeliveryAttempts)
	if err != nil {
		return kernel.UUID{}, err
	}

	h.logger.InfoContext(ctx, "redelivery attempt started",
		"orderID", command.OrderID(),
		"deliveryID", deliveryID)
	return deliveryID, nil
}
