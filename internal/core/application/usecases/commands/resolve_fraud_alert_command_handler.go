package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dispatch/internal/core/ports"
	"dispatch/internal/scheduling"
)

// ResolveFraudAlertCommandHandler applies a reviewer's verdict to a disputed
// settlement. Clearing the dispute also lifts the agent's restriction early;
// the score and flags stay on record either way.
type ResolveFraudAlertCommandHandler struct {
	uowFactory UoWFactory
	locks      *scheduling.KeyedMutex
	alerts     Alerts
	logger     *slog.Logger
}

// NewResolveFraudAlertCommandHandler creates a handler for dispute verdicts.
func NewResolveFraudAlertCommandHandler(
	uowFactory UoWFactory,
	locks *scheduling.KeyedMutex,
	alerts Alerts,
	logger *slog.Logger,
) ResolveFraudAlertCommandHandler {
	return ResolveFraudAlertCommandHandler{
		uowFactory: uowFactory,
		locks:      locks,
		alerts:     alerts,
		logger:     logger.With("component", "fraud-review"),
	}
}

// Handle closes the dispute with the reviewer's verdict.
func (h ResolveFraudAlertCommandHandler) Handle(ctx context.Context, command ResolveFraudAlertCommand) error {
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
	if err = d.ResolveDispute(command.ConfirmedFraud()); err != nil {
		return err
	}
	if err = uow.DeliveryRepository().Update(ctx, d); err != nil {
		return err
	}

	now := time.Now()
	verdict := "cleared"
	if command.ConfirmedFraud() {
		verdict = "confirmed"
	}

	if !command.ConfirmedFraud() {
		a, agentErr := uow.AgentRepository().Get(ctx, d.AgentID())
		if agentErr != nil {
			return agentErr
		}
		a.LiftRestriction()
		if err = uow.AgentRepository().Update(ctx, a); err != nil {
			return err
		}

		if auditErr := uow.AuditLog().Record(ctx, ports.AuditEvent{
			EventType:  ports.AuditAgentRestrictionLift,
			DeliveryID: d.ID(),
			AgentID:    a.ID(),
			Details:    "restriction lifted after dispute cleared",
			OccurredAt: now,
		}); auditErr != nil {
			h.logger.WarnContext(ctx, "audit record failed",
				"eventType", ports.AuditAgentRestrictionLift,
				"error", auditErr)
		}
	}

	if auditErr := uow.AuditLog().Record(ctx, ports.AuditEvent{
		EventType:  ports.AuditFraudAlertResolved,
		DeliveryID: d.ID(),
		AgentID:    d.AgentID(),
		Details:    fmt.Sprintf("verdict %s: %s", verdict, command.Notes()),
		OccurredAt: now,
	}); auditErr != nil {
		h.logger.WarnContext(ctx, "audit record failed",
			"eventType", ports.AuditFraudAlertResolved,
			"error", auditErr)
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.alerts.Finance(ctx, fmt.Sprintf(
		"dispute on delivery %s resolved as %s", d.ID(), verdict))
	return nil
}
