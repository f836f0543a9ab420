package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dispatch/internal/core/domain/model/agent"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/scheduling"
)

var (
	// ErrNoAgentsAvailable means no eligible agent exists right now. The
	// caller surfaces the order as pending and re-triggers later.
	ErrNoAgentsAvailable = errors.New("no agents available")

	// ErrAssignmentExhausted means every ranked candidate timed out or
	// rejected the offer. The order needs manual assignment.
	ErrAssignmentExhausted = errors.New("assignment exhausted")

	// ErrOrderHasActiveDelivery means the order already has a delivery in
	// the assigned or in-progress states.
	ErrOrderHasActiveDelivery = errors.New("order already has an active delivery")

	// ErrMaxAttemptsReached means the order hit the redelivery attempt cap.
	ErrMaxAttemptsReached = errors.New("max delivery attempts reached")
)

// AssignmentConfig tunes the assignment protocol. Zero values fall back to
// the production defaults.
type AssignmentConfig struct {
	// ConfirmationTimeout is how long an offered agent has to confirm.
	ConfirmationTimeout time.Duration

	// DeliveryWindow is the promised time between assignment and drop-off;
	// it sets the new delivery's scheduled time.
	DeliveryWindow time.Duration
}

func (c AssignmentConfig) withDefaults() AssignmentConfig {
	if c.ConfirmationTimeout <= 0 {
		c.ConfirmationTimeout = 15 * time.Minute
	}
	if c.DeliveryWindow <= 0 {
		c.DeliveryWindow = 45 * time.Minute
	}
	return c
}

// AssignDeliveryCommandHandler coordinates agent assignment: it ranks
// eligible agents, offers the order to the best candidate, arms the
// confirmation deadline and walks down the ranked list as candidates time
// out or reject.
//
// The handler keeps two pieces of in-process state: the remaining ranked
// candidates per order (so a timeout moves to the next candidate of the
// original ranking, not a fresh selection) and the armed deadlines. The
// store stays the source of truth for delivery state; every timer callback
// re-reads the delivery and no-ops if it is no longer awaiting confirmation.
type AssignDeliveryCommandHandler struct {
	uowFactory UoWFactory
	selector   services.AgentSelector
	timers     *scheduling.TimerSet
	locks      *scheduling.KeyedMutex
	alerts     Alerts
	config     AssignmentConfig
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[kernel.UUID][]services.Candidate
}

// NewAssignDeliveryCommandHandler creates the assignment coordinator.
func NewAssignDeliveryCommandHandler(
	uowFactory UoWFactory,
	selector services.AgentSelector,
	timers *scheduling.TimerSet,
	locks *scheduling.KeyedMutex,
	alerts Alerts,
	config AssignmentConfig,
	logger *slog.Logger,
) *AssignDeliveryCommandHandler {
	return &AssignDeliveryCommandHandler{
		uowFactory: uowFactory,
		selector:   selector,
		timers:     timers,
		locks:      locks,
		alerts:     alerts,
		config:     config.withDefaults(),
		logger:     logger.With("component", "assignment"),
		pending:    make(map[kernel.UUID][]services.Candidate),
	}
}

// ConfirmationTimeout returns the configured confirmation deadline.
func (h *AssignDeliveryCommandHandler) ConfirmationTimeout() time.Duration {
	return h.config.ConfirmationTimeout
}

// Handle processes the assignment command: selects candidates, creates the
// delivery attempt for the top one and arms the confirmation deadline.
// Returns the new delivery's identifier.
func (h *AssignDeliveryCommandHandler) Handle(ctx context.Context, command AssignDeliveryCommand) (kernel.UUID, error) {
	if err := command.Validate(); err != nil {
		return kernel.UUID{}, err
	}

	unlock := h.locks.Lock(command.OrderID())
	defer unlock()

	return h.assignAttempt(ctx, command.OrderID(), false, 0)
}

// AssignNextAttempt creates a new delivery attempt for an order whose
// previous attempts failed, enforcing the attempt cap. Used by the
// redelivery flow.
func (h *AssignDeliveryCommandHandler) AssignNextAttempt(
	ctx context.Context,
	orderID kernel.UUID,
	maxPriorAttempts int,
) (kernel.UUID, error) {
	unlock := h.locks.Lock(orderID)
	defer unlock()

	return h.assignAttempt(ctx, orderID, false, maxPriorAttempts)
}

// ReassignAfterFailure assigns the order to a fresh agent after its active
// delivery auto-failed, excluding every previously tried agent.
func (h *AssignDeliveryCommandHandler) ReassignAfterFailure(ctx context.Context, orderID kernel.UUID) error {
	unlock := h.locks.Lock(orderID)
	defer unlock()

	_, err := h.assignAttempt(ctx, orderID, true, 0)
	return err
}

// CancelConfirmation disarms the order's confirmation deadline and drops the
// remaining ranked candidates. Called when the offered agent confirms.
func (h *AssignDeliveryCommandHandler) CancelConfirmation(orderID kernel.UUID) {
	h.timers.CancelDeadline(orderID)

	h.mu.Lock()
	delete(h.pending, orderID)
	h.mu.Unlock()
}

// RearmConfirmation re-arms a confirmation deadline, used by the recovery
// job for assignments whose in-memory deadline was lost in a restart.
func (h *AssignDeliveryCommandHandler) RearmConfirmation(orderID kernel.UUID, remaining time.Duration) {
	h.timers.ArmDeadline(orderID, remaining, func() {
		h.onConfirmationDeadline(orderID)
	})
}

// EscalateToNextCandidate fails the order's unconfirmed delivery attempt and
// offers the order to the next ranked candidate. It no-ops when the active
// delivery is no longer awaiting confirmation, which resolves the race
// between a firing deadline and a concurrent confirmation in favor of the
// confirmation.
//
// When the ranked list is exhausted it alerts operations and returns
// ErrAssignmentExhausted. When the list was lost in a restart it falls back
// to a fresh selection that excludes every previously tried agent.
func (h *AssignDeliveryCommandHandler) EscalateToNextCandidate(
	ctx context.Context,
	orderID kernel.UUID,
	reason string,
) error {
	unlock := h.locks.Lock(orderID)
	defer unlock()

	h.timers.CancelDeadline(orderID)

	failed, active, err := h.failUnconfirmedAttempt(ctx, orderID, reason)
	if err != nil {
		return err
	}
	if !failed && active {
		return nil
	}

	h.mu.Lock()
	remaining, tracked := h.pending[orderID]
	if tracked && len(remaining) == 0 {
		delete(h.pending, orderID)
	}
	var next services.Candidate
	if tracked && len(remaining) > 0 {
		next = remaining[0]
		h.pending[orderID] = remaining[1:]
	}
	h.mu.Unlock()

	switch {
	case tracked && len(remaining) == 0:
		h.alerts.Operations(ctx, fmt.Sprintf(
			"assignment exhausted for order %s, manual assignment required", orderID))
		return ErrAssignmentExhausted

	case tracked:
		if err := h.offerToCandidate(ctx, orderID, next); err != nil {
			// Put the candidate back so a retry resumes from the same
			// position in the ranked list.
			h.mu.Lock()
			h.pending[orderID] = append([]services.Candidate{next}, h.pending[orderID]...)
			h.mu.Unlock()
			return err
		}
		return nil

	default:
		if !failed {
			// Stale trigger: no attempt to fail and no ranked list to
			// resume.
			return nil
		}
		// The ranked list did not survive a restart. Fall back to a fresh
		// selection without the agents that already had their chance.
		_, err := h.assignAttempt(ctx, orderID, true, 0)
		if errors.Is(err, ErrNoAgentsAvailable) {
			h.alerts.Operations(ctx, fmt.Sprintf(
				"assignment exhausted for order %s, manual assignment required", orderID))
			return ErrAssignmentExhausted
		}
		return err
	}
}

// assignAttempt runs a full selection pass and offers the order to the top
// candidate. The caller must hold the order's lock.
func (h *AssignDeliveryCommandHandler) assignAttempt(
	ctx context.Context,
	orderID kernel.UUID,
	excludeTriedAgents bool,
	maxPriorAttempts int,
) (kernel.UUID, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return kernel.UUID{}, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	o, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return kernel.UUID{}, err
	}

	attempts, err := uow.DeliveryRepository().GetAllByOrder(ctx, orderID)
	if err != nil {
		return kernel.UUID{}, err
	}
	for _, prior := range attempts {
		if prior.Status().IsActive() {
			return kernel.UUID{}, ErrOrderHasActiveDelivery
		}
	}
	if maxPriorAttempts > 0 && len(attempts) > maxPriorAttempts {
		return kernel.UUID{}, ErrMaxAttemptsReached
	}

	excluded := make(map[kernel.UUID]bool)
	if excludeTriedAgents {
		for _, prior := range attempts {
			excluded[prior.AgentID()] = true
		}
	}

	candidates, agents, err := h.rankCandidates(ctx, uow, o, excluded)
	if err != nil {
		return kernel.UUID{}, err
	}
	if len(candidates) == 0 {
		return kernel.UUID{}, ErrNoAgentsAvailable
	}

	now := time.Now()
	top := candidates[0]
	d, err := delivery.NewDelivery(
		kernel.NewUUID(), orderID, top.AgentID, len(attempts)+1, now.Add(h.config.DeliveryWindow), now)
	if err != nil {
		return kernel.UUID{}, err
	}

	if err = o.StartDelivery(); err != nil {
		return kernel.UUID{}, err
	}
	if err = uow.OrderRepository().Update(ctx, o); err != nil {
		return kernel.UUID{}, err
	}
	if err = uow.DeliveryRepository().Add(ctx, d); err != nil {
		return kernel.UUID{}, err
	}

	h.recordAudit(ctx, uow.AuditLog(), ports.AuditEvent{
		EventType:  ports.AuditAssignmentOffered,
		DeliveryID: d.ID(),
		AgentID:    top.AgentID,
		Details:    fmt.Sprintf("attempt %d, score %.2f", d.Attempt(), top.Score),
		OccurredAt: now,
	})

	if err = uow.Commit(ctx); err != nil {
		return kernel.UUID{}, err
	}

	h.mu.Lock()
	h.pending[orderID] = candidates[1:]
	h.mu.Unlock()

	h.timers.ArmDeadline(orderID, h.config.ConfirmationTimeout, func() {
		h.onConfirmationDeadline(orderID)
	})

	h.alerts.Agent(ctx, agents[top.AgentID].Contact(), fmt.Sprintf(
		"new delivery %s offered to you, confirm within %s",
		d.ID(), h.config.ConfirmationTimeout))

	return d.ID(), nil
}

// rankCandidates loads the available agents with their delivery statistics
// and ranks them for the order.
func (h *AssignDeliveryCommandHandler) rankCandidates(
	ctx context.Context,
	uow UoW,
	o *order.Order,
	excluded map[kernel.UUID]bool,
) ([]services.Candidate, map[kernel.UUID]*agent.Agent, error) {
	available, err := uow.AgentRepository().GetAllAvailable(ctx)
	if err != nil {
		return nil, nil, err
	}

	eligible := make([]*agent.Agent, 0, len(available))
	ids := make([]kernel.UUID, 0, len(available))
	for _, a := range available {
		if excluded[a.ID()] {
			continue
		}
		eligible = append(eligible, a)
		ids = append(ids, a.ID())
	}

	stats, err := uow.DeliveryRepository().GetStatsByAgents(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	workloads := make([]services.AgentWorkload, 0, len(eligible))
	byID := make(map[kernel.UUID]*agent.Agent, len(eligible))
	for _, a := range eligible {
		s := stats[a.ID()]
		workloads = append(workloads, services.AgentWorkload{
			Agent:               a,
			ActiveDeliveries:    s.ActiveCount,
			CompletedDeliveries: s.CompletedCount,
			FailedDeliveries:    s.FailedCount,
		})
		byID[a.ID()] = a
	}

	candidates, err := h.selector.SelectCandidates(o, workloads, time.Now())
	if err != nil {
		return nil, nil, err
	}
	return candidates, byID, nil
}

// offerToCandidate creates the next delivery attempt for a candidate popped
// from the ranked list. The caller must hold the order's lock.
func (h *AssignDeliveryCommandHandler) offerToCandidate(
	ctx context.Context,
	orderID kernel.UUID,
	candidate services.Candidate,
) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	o, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return err
	}
	a, err := uow.AgentRepository().Get(ctx, candidate.AgentID)
	if err != nil {
		return err
	}
	attempts, err := uow.DeliveryRepository().GetAllByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	now := time.Now()
	d, err := delivery.NewDelivery(
		kernel.NewUUID(), orderID, candidate.AgentID, len(attempts)+1, now.Add(h.config.DeliveryWindow), now)
	if err != nil {
		return err
	}

	if err = o.StartDelivery(); err != nil {
		return err
	}
	if err = uow.OrderRepository().Update(ctx, o); err != nil {
		return err
	}
	if err = uow.DeliveryRepository().Add(ctx, d); err != nil {
		return err
	}

	h.recordAudit(ctx, uow.AuditLog(), ports.AuditEvent{
		EventType:  ports.AuditAssignmentOffered,
		DeliveryID: d.ID(),
		AgentID:    candidate.AgentID,
		Details:    fmt.Sprintf("attempt %d, score %.2f", d.Attempt(), candidate.Score),
		OccurredAt: now,
	})

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.timers.ArmDeadline(orderID, h.config.ConfirmationTimeout, func() {
		h.onConfirmationDeadline(orderID)
	})

	h.alerts.Agent(ctx, a.Contact(), fmt.Sprintf(
		"new delivery %s offered to you, confirm within %s",
		d.ID(), h.config.ConfirmationTimeout))

	return nil
}

// failUnconfirmedAttempt fails the order's active delivery if it is still
// awaiting confirmation. failed reports whether an attempt was failed now;
// active reports whether the order still has an active delivery (a confirmed
// attempt stays untouched). No active delivery with failed=false means a
// previous escalation already failed the attempt, so the candidate walk may
// resume.
func (h *AssignDeliveryCommandHandler) failUnconfirmedAttempt(
	ctx context.Context,
	orderID kernel.UUID,
	reason string,
) (failed bool, active bool, err error) {
	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return false, false, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	d, err := uow.DeliveryRepository().GetActiveByOrder(ctx, orderID)
	if errors.Is(err, errs.ErrObjectNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	if d.Status() != delivery.Assigned {
		return false, true, nil
	}

	if err = d.Fail(reason); err != nil {
		return false, true, err
	}
	if err = uow.DeliveryRepository().Update(ctx, d); err != nil {
		return false, true, err
	}

	h.recordAudit(ctx, uow.AuditLog(), ports.AuditEvent{
		EventType:  ports.AuditAssignmentTimedOut,
		DeliveryID: d.ID(),
		AgentID:    d.AgentID(),
		Details:    reason,
		OccurredAt: time.Now(),
	})

	if err = uow.Commit(ctx); err != nil {
		return false, true, err
	}
	return true, true, nil
}

// onConfirmationDeadline is the armed deadline callback. It runs detached
// from any request, so failures end up in the log instead of a caller.
func (h *AssignDeliveryCommandHandler) onConfirmationDeadline(orderID kernel.UUID) {
	ctx := context.Background()
	err := h.EscalateToNextCandidate(ctx, orderID, "confirmation timeout")
	if err != nil && !errors.Is(err, ErrAssignmentExhausted) {
		h.logger.ErrorContext(ctx, "confirmation timeout escalation failed",
			"orderID", orderID,
			"error", err)
	}
}

// recordAudit writes an audit event and logs failures instead of failing the
// surrounding transition.
func (h *AssignDeliveryCommandHandler) recordAudit(ctx context.Context, log ports.AuditLog, event ports.AuditEvent) {
	if err := log.Record(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "audit record failed",
			"eventType", event.EventType,
			"error", err)
	}
}
