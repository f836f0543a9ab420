package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dispatch/internal/core/ports"
	"dispatch/internal/scheduling"
)

// HoldDeliveryCommandHandler escalates an in-progress delivery to the held
// sub-state on an operator's request.
type HoldDeliveryCommandHandler struct {
	uowFactory UoWFactory
	locks      *scheduling.KeyedMutex
	alerts     Alerts
	logger     *slog.Logger
}

// NewHoldDeliveryCommandHandler creates a handler for hold requests.
func NewHoldDeliveryCommandHandler(
	uowFactory UoWFactory,
	locks *scheduling.KeyedMutex,
	alerts Alerts,
	logger *slog.Logger,
) HoldDeliveryCommandHandler {
	return HoldDeliveryCommandHandler{
		uowFactory: uowFactory,
		locks:      locks,
		alerts:     alerts,
		logger:     logger.With("component", "hold"),
	}
}

// Handle places the delivery on hold.
func (h HoldDeliveryCommandHandler) Handle(ctx context.Context, command HoldDeliveryCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	unlock := h.locks.Lock(command.DeliveryID())
	defer unlock()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	d, err := uow.DeliveryRepository().Get(ctx, command.DeliveryID())
	if err != nil {
		return err
	}
	if err = d.Escalate(); err != nil {
		return err
	}
	if err = uow.DeliveryRepository().Update(ctx, d); err != nil {
		return err
	}

	if auditErr := uow.AuditLog().Record(ctx, ports.AuditEvent{
		EventType:  ports.AuditDeliveryEscalated,
		DeliveryID: d.ID(),
		AgentID:    d.AgentID(),
		Details:    command.Reason(),
		OccurredAt: time.Now(),
	}); auditErr != nil {
		h.logger.WarnContext(ctx, "audit record failed",
			"eventType", ports.AuditDeliveryEscalated,
			"error", auditErr)
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.alerts.Operations(ctx, fmt.Sprintf(
		"delivery %s placed on hold: %s", d.ID(), command.Reason()))
	return nil
}
