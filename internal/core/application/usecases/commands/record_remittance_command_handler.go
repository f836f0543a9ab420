package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/scheduling"
)

// RecordRemittanceCommandHandler settles a cash delivery. The remittance is
// verified against the collection before the agent's lifetime totals absorb
// it, so the fraud score reflects the agent's standing at the moment the
// cash changed hands. A score at or above the fraud threshold moves the
// delivery into dispute, registers an incident against the agent and
// restricts the agent from new assignments; a passing score marks the
// delivery verified. The remittance itself is recorded either way.
type RecordRemittanceCommandHandler struct {
	uowFactory UoWFactory
	verifier   services.RemittanceVerifier
	locks      *scheduling.KeyedMutex
	alerts     Alerts
	logger     *slog.Logger
}

// NewRecordRemittanceCommandHandler creates a handler for remittance records.
func NewRecordRemittanceCommandHandler(
	uowFactory UoWFactory,
	verifier services.RemittanceVerifier,
	locks *scheduling.KeyedMutex,
	alerts Alerts,
	logger *slog.Logger,
) RecordRemittanceCommandHandler {
	return RecordRemittanceCommandHandler{
		uowFactory: uowFactory,
		verifier:   verifier,
		locks:      locks,
		alerts:     alerts,
		logger:     logger.With("component", "settlement"),
	}
}

// Handle records and verifies the remittance.
func (h RecordRemittanceCommandHandler) Handle(ctx context.Context, command RecordRemittanceCommand) error {
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
	a, err := uow.AgentRepository().Get(ctx, d.AgentID())
	if err != nil {
		return err
	}

	now := time.Now()
	if err = d.RecordRemittance(command.Amount(), command.Proof(), now); err != nil {
		return err
	}

	result, err := h.verifier.Verify(d, a)
	if err != nil {
		return err
	}
	if err = d.AttachFraudAssessment(result.Score, result.Flags); err != nil {
		return err
	}

	if err = a.AddRemittance(command.Amount()); err != nil {
		return err
	}

	var post []func()
	if result.Breach {
		if err = d.Dispute(); err != nil {
			return err
		}
		a.RegisterFraudIncident()
		restrictedUntil := now.Add(services.RestrictionDuration)
		if err = a.Restrict(restrictedUntil); err != nil {
			return err
		}

		h.recordAudit(ctx, uow.AuditLog(), ports.AuditEvent{
			EventType:  ports.AuditFraudAlertRaised,
			DeliveryID: d.ID(),
			AgentID:    a.ID(),
			Details:    fmt.Sprintf("fraud score %.2f, flags: %s", result.Score, flagSummary(result)),
			OccurredAt: now,
		})
		h.recordAudit(ctx, uow.AuditLog(), ports.AuditEvent{
			EventType:  ports.AuditAgentRestricted,
			DeliveryID: d.ID(),
			AgentID:    a.ID(),
			Details:    fmt.Sprintf("restricted until %s", restrictedUntil.Format(time.RFC3339)),
			OccurredAt: now,
		})

		deliveryID := d.ID()
		agentID := a.ID()
		score := result.Score
		summary := flagSummary(result)
		post = append(post, func() {
			h.alerts.Finance(ctx, fmt.Sprintf(
				"fraud alert on delivery %s: agent %s scored %.2f (%s), agent restricted until %s",
				deliveryID, agentID, score, summary, restrictedUntil.Format(time.RFC3339)))
		})
	} else {
		if err = d.MarkVerified(); err != nil {
			return err
		}

		h.recordAudit(ctx, uow.AuditLog(), ports.AuditEvent{
			EventType:  ports.AuditCashRemitted,
			DeliveryID: d.ID(),
			AgentID:    a.ID(),
			Details:    fmt.Sprintf("remitted %.2f, fraud score %.2f", command.Amount(), result.Score),
			OccurredAt: now,
		})
	}

	if collected := d.CashCollected(); collected != nil && math.Abs(command.Amount()-*collected) > 0.001 {
		deliveryID := d.ID()
		amount := command.Amount()
		expected := *collected
		post = append(post, func() {
			h.alerts.Operations(ctx, fmt.Sprintf(
				"delivery %s remitted %.2f against a collection of %.2f",
				deliveryID, amount, expected))
		})
	}

	if err = uow.DeliveryRepository().Update(ctx, d); err != nil {
		return err
	}
	if err = uow.AgentRepository().Update(ctx, a); err != nil {
		return err
	}
	if err = uow.Commit(ctx); err != nil {
		return err
	}

	for _, fn := range post {
		fn()
	}
	return nil
}

func (h RecordRemittanceCommandHandler) recordAudit(ctx context.Context, log ports.AuditLog, event ports.AuditEvent) {
	if err := log.Record(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "audit record failed",
			"eventType", event.EventType,
			"error", err)
	}
}

func flagSummary(result services.VerificationResult) string {
	if len(result.Flags) == 0 {
		return "none"
	}

	types := make([]string, 0, len(result.Flags))
	for _, flag := range result.Flags {
		types = append(types, flag.Type())
	}
	return strings.Join(types, ", ")
}
