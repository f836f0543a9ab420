package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/scheduling"
)

// ConfirmAssignmentCommandHandler processes an agent's answer to an
// assignment offer. Acceptance commits the transition first and only then
// cancels the confirmation deadline; if the deadline fires in that window,
// its status re-check sees the delivery is no longer assigned and no-ops,
// so a timely confirmation never loses to its own timeout.
type ConfirmAssignmentCommandHandler struct {
	uowFactory UoWFactory
	escalator  AssignmentEscalator
	watcher    DeliveryWatcher
	locks      *scheduling.KeyedMutex
	alerts     Alerts
	logger     *slog.Logger
}

// NewConfirmAssignmentCommandHandler creates a handler for assignment answers.
func NewConfirmAssignmentCommandHandler(
	uowFactory UoWFactory,
	escalator AssignmentEscalator,
	watcher DeliveryWatcher,
	locks *scheduling.KeyedMutex,
	alerts Alerts,
	logger *slog.Logger,
) ConfirmAssignmentCommandHandler {
	return ConfirmAssignmentCommandHandler{
		uowFactory: uowFactory,
		escalator:  escalator,
		watcher:    watcher,
		locks:      locks,
		alerts:     alerts,
		logger:     logger.With("component", "confirmation"),
	}
}

// Handle processes the agent's answer.
func (h ConfirmAssignmentCommandHandler) Handle(ctx context.Context, command ConfirmAssignmentCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	orderID, status, err := h.lookupAttempt(ctx, command.DeliveryID())
	if err != nil {
		return err
	}
	if status != delivery.Assigned {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%s delivery is not awaiting confirmation", status.String()))
	}

	if !command.Accepted() {
		return h.escalator.EscalateToNextCandidate(ctx, orderID, "agent rejected the assignment")
	}

	return h.accept(ctx, orderID, command.DeliveryID())
}

// lookupAttempt resolves the delivery's order and current status. The
// accepting path re-reads the delivery under the order's lock; this read
// only decides which lock to take.
func (h ConfirmAssignmentCommandHandler) lookupAttempt(
	ctx context.Context,
	deliveryID kernel.UUID,
) (kernel.UUID, delivery.Status, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return kernel.UUID{}, delivery.Unknown, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	d, err := uow.DeliveryRepository().Get(ctx, deliveryID)
	if err != nil {
		return kernel.UUID{}, delivery.Unknown, err
	}
	return d.OrderID(), d.Status(), nil
}

func (h ConfirmAssignmentCommandHandler) accept(ctx context.Context, orderID, deliveryID kernel.UUID) error {
	unlock := h.locks.Lock(orderID)
	defer unlock()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	d, err := uow.DeliveryRepository().Get(ctx, deliveryID)
	if err != nil {
		return err
	}
	if err = d.Confirm(); err != nil {
		return err
	}
	if err = uow.DeliveryRepository().Update(ctx, d); err != nil {
		return err
	}

	o, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return err
	}

	if auditErr := uow.AuditLog().Record(ctx, ports.AuditEvent{
		EventType:  ports.AuditAssignmentConfirmed,
		DeliveryID: d.ID(),
		AgentID:    d.AgentID(),
		Details:    fmt.Sprintf("attempt %d confirmed", d.Attempt()),
		OccurredAt: time.Now(),
	}); auditErr != nil {
		h.logger.WarnContext(ctx, "audit record failed",
			"eventType", ports.AuditAssignmentConfirmed,
			"error", auditErr)
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.escalator.CancelConfirmation(orderID)
	h.watcher.Watch(deliveryID)
	h.alerts.Customer(ctx, o.CustomerContact(), fmt.Sprintf(
		"your order is on its way, expected by %s",
		d.ScheduledTime().Format(time.Kitchen)))

	return nil
}
