package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/scheduling"
)

// CompleteDeliveryCommandHandler records a drop-off. It completes the
// delivery and the order, stops monitoring, and for cash orders records the
// collection: the delivery moves to the unpaid settlement state and the
// agent's lifetime collection total grows. A collection that does not match
// the order total raises an informational discrepancy alert without
// blocking the completion.
type CompleteDeliveryCommandHandler struct {
	uowFactory UoWFactory
	watcher    DeliveryWatcher
	locks      *scheduling.KeyedMutex
	alerts     Alerts
	logger     *slog.Logger
}

// NewCompleteDeliveryCommandHandler creates a handler for drop-off records.
func NewCompleteDeliveryCommandHandler(
	uowFactory UoWFactory,
	watcher DeliveryWatcher,
	locks *scheduling.KeyedMutex,
	alerts Alerts,
	logger *slog.Logger,
) CompleteDeliveryCommandHandler {
	return CompleteDeliveryCommandHandler{
		uowFactory: uowFactory,
		watcher:    watcher,
		locks:      locks,
		alerts:     alerts,
		logger:     logger.With("component", "completion"),
	}
}

// CompletionResult describes the delivery after the drop-off was recorded.
// CashCollected is nil for prepaid orders.
type CompletionResult struct {
	DeliveryID    kernel.UUID
	OrderID       kernel.UUID
	AgentID       kernel.UUID
	Attempt       int
	Status        string
	CashCollected *float64
	CompletedAt   time.Time
}

// Handle records the drop-off and returns the resulting delivery state.
func (h CompleteDeliveryCommandHandler) Handle(ctx context.Context, command CompleteDeliveryCommand) (CompletionResult, error) {
	if err := command.Validate(); err != nil {
		return CompletionResult{}, err
	}

	unlock := h.locks.Lock(command.DeliveryID())
	defer unlock()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return CompletionResult{}, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	d, err := uow.DeliveryRepository().Get(ctx, command.DeliveryID())
	if err != nil {
		return CompletionResult{}, err
	}
	o, err := uow.OrderRepository().Get(ctx, d.OrderID())
	if err != nil {
		return CompletionResult{}, err
	}

	now := time.Now()
	if err = d.Complete(now); err != nil {
		return CompletionResult{}, err
	}
	if err = o.Deliver(); err != nil {
		return CompletionResult{}, err
	}

	var discrepancy string
	if o.PaymentMethod().IsCash() {
		if command.CashCollected() == nil {
			return CompletionResult{}, errs.NewValueIsRequiredError("cashCollected")
		}
		collected := *command.CashCollected()

		if err = d.RecordCollection(collected); err != nil {
			return CompletionResult{}, err
		}
		o.MarkPaid()

		a, agentErr := uow.AgentRepository().Get(ctx, d.AgentID())
		if agentErr != nil {
			return CompletionResult{}, agentErr
		}
		if err = a.AddCollection(collected); err != nil {
			return CompletionResult{}, err
		}
		if err = uow.AgentRepository().Update(ctx, a); err != nil {
			return CompletionResult{}, err
		}

		if math.Abs(collected-o.TotalAmount()) > 0.001 {
			discrepancy = fmt.Sprintf(
				"delivery %s collected %.2f against an order total of %.2f",
				d.ID(), collected, o.TotalAmount())
		}

		h.recordAudit(ctx, uow.AuditLog(), ports.AuditEvent{
			EventType:  ports.AuditCashCollected,
			DeliveryID: d.ID(),
			AgentID:    d.AgentID(),
			Details:    fmt.Sprintf("collected %.2f", collected),
			OccurredAt: now,
		})
	}

	if err = uow.DeliveryRepository().Update(ctx, d); err != nil {
		return CompletionResult{}, err
	}
	if err = uow.OrderRepository().Update(ctx, o); err != nil {
		return CompletionResult{}, err
	}

	h.recordAudit(ctx, uow.AuditLog(), ports.AuditEvent{
		EventType:  ports.AuditDeliveryCompleted,
		DeliveryID: d.ID(),
		AgentID:    d.AgentID(),
		Details:    fmt.Sprintf("attempt %d completed", d.Attempt()),
		OccurredAt: now,
	})

	if err = uow.Commit(ctx); err != nil {
		return CompletionResult{}, err
	}

	h.watcher.Unwatch(d.ID())
	h.alerts.Customer(ctx, o.CustomerContact(), "your order has been delivered")
	if discrepancy != "" {
		h.alerts.Operations(ctx, discrepancy)
	}

	return CompletionResult{
		DeliveryID:    d.ID(),
		OrderID:       d.OrderID(),
		AgentID:       d.AgentID(),
		Attempt:       d.Attempt(),
		Status:        d.Status().String(),
		CashCollected: d.CashCollected(),
		CompletedAt:   now,
	}, nil
}

func (h CompleteDeliveryCommandHandler) recordAudit(ctx context.Context, log ports.AuditLog, event ports.AuditEvent) {
	if err := log.Record(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "audit record failed",
			"eventType", event.EventType,
			"error", err)
	}
}
