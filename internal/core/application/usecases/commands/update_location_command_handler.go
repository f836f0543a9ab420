package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/scheduling"
)

// MonitorConfig tunes the delivery monitor. Zero values fall back to the
// production defaults.
type MonitorConfig struct {
	// TickInterval is the cadence of the periodic re-check per delivery.
	TickInterval time.Duration

	// DelayNoticeThreshold is the projected delay beyond which the one-shot
	// delay notification fires.
	DelayNoticeThreshold time.Duration

	// DelayFailureThreshold is the projected delay beyond which an unheld
	// delivery auto-fails and the order is reassigned.
	DelayFailureThreshold time.Duration
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = 5 * time.Minute
	}
	if c.DelayNoticeThreshold <= 0 {
		c.DelayNoticeThreshold = 15 * time.Minute
	}
	if c.DelayFailureThreshold <= 0 {
		c.DelayFailureThreshold = 120 * time.Minute
	}
	return c
}

// UpdateLocationCommandHandler is the delivery monitor. It reacts to two
// triggers: position reports pushed from the field (Handle) and the
// periodic tick it runs per watched delivery (HandleTick). Both recompute
// the arrival projection and apply the same delay policy:
//
//   - past the notice threshold: notify customer and agent once, fan an
//     urgent alert out to operations, move the delivery to the delayed
//     sub-state;
//   - past the failure threshold: auto-fail the delivery and reassign the
//     order, unless a human has placed the delivery on hold.
//
// Every trigger re-reads the delivery from the store under the delivery's
// lock and checks the status before acting, so a tick racing a completion
// or a stop degrades to a no-op.
type UpdateLocationCommandHandler struct {
	uowFactory UoWFactory
	estimator  ports.ArrivalEstimator
	reassigner OrderReassigner
	timers     *scheduling.TimerSet
	locks      *scheduling.KeyedMutex
	alerts     Alerts
	config     MonitorConfig
	logger     *slog.Logger
}

// NewUpdateLocationCommandHandler creates the delivery monitor.
func NewUpdateLocationCommandHandler(
	uowFactory UoWFactory,
	estimator ports.ArrivalEstimator,
	reassigner OrderReassigner,
	timers *scheduling.TimerSet,
	locks *scheduling.KeyedMutex,
	alerts Alerts,
	config MonitorConfig,
	logger *slog.Logger,
) *UpdateLocationCommandHandler {
	return &UpdateLocationCommandHandler{
		uowFactory: uowFactory,
		estimator:  estimator,
		reassigner: reassigner,
		timers:     timers,
		locks:      locks,
		alerts:     alerts,
		config:     config.withDefaults(),
		logger:     logger.With("component", "monitor"),
	}
}

// Watch starts the periodic tick for a delivery that entered progress.
func (h *UpdateLocationCommandHandler) Watch(deliveryID kernel.UUID) {
	h.timers.StartTicks(deliveryID, h.config.TickInterval, func() {
		ctx := context.Background()
		if err := h.HandleTick(ctx, deliveryID); err != nil {
			h.logger.ErrorContext(ctx, "monitor tick failed",
				"deliveryID", deliveryID,
				"error", err)
		}
	})
}

// Unwatch stops the periodic tick for a delivery.
func (h *UpdateLocationCommandHandler) Unwatch(deliveryID kernel.UUID) {
	h.timers.StopTicks(deliveryID)
}

// TickInterval returns the configured tick cadence.
func (h *UpdateLocationCommandHandler) TickInterval() time.Duration {
	return h.config.TickInterval
}

// Handle processes a position report from the field.
func (h *UpdateLocationCommandHandler) Handle(ctx context.Context, command UpdateLocationCommand) error {
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
	if !d.Status().IsInProgress() {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%s delivery does not accept position reports", d.Status().String()))
	}

	o, err := uow.OrderRepository().Get(ctx, d.OrderID())
	if err != nil {
		return err
	}

	now := time.Now()
	eta, err := h.estimator.EstimateArrival(ctx, command.Location(), o.Location(), now)
	if err != nil {
		return err
	}
	delayMinutes := projectedDelayMinutes(eta, d.ScheduledTime())

	if err = d.UpdateProgress(command.Location(), eta, delayMinutes, now); err != nil {
		return err
	}

	a, err := uow.AgentRepository().Get(ctx, d.AgentID())
	if err != nil {
		return err
	}
	if err = a.UpdateLocation(command.Location()); err != nil {
		return err
	}
	if err = uow.AgentRepository().Update(ctx, a); err != nil {
		return err
	}

	post, err := h.applyDelayPolicy(ctx, uow, o, d, delayMinutes, now)
	if err != nil {
		return err
	}

	if err = uow.DeliveryRepository().Update(ctx, d); err != nil {
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

// HandleTick is the periodic re-check for one watched delivery. A tick that
// finds the delivery out of progress stops the watch and does nothing else.
func (h *UpdateLocationCommandHandler) HandleTick(ctx context.Context, deliveryID kernel.UUID) error {
	unlock := h.locks.Lock(deliveryID)
	defer unlock()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	d, err := uow.DeliveryRepository().Get(ctx, deliveryID)
	if errors.Is(err, errs.ErrObjectNotFound) {
		h.Unwatch(deliveryID)
		return nil
	}
	if err != nil {
		return err
	}
	if !d.Status().IsInProgress() {
		h.Unwatch(deliveryID)
		return nil
	}

	o, err := uow.OrderRepository().Get(ctx, d.OrderID())
	if err != nil {
		return err
	}

	now := time.Now()
	eta := now
	if loc := d.CurrentLocation(); loc != nil {
		eta, err = h.estimator.EstimateArrival(ctx, *loc, o.Location(), now)
		if err != nil {
			return err
		}
	}
	delayMinutes := projectedDelayMinutes(eta, d.ScheduledTime())

	if err = d.UpdateEstimate(eta, delayMinutes); err != nil {
		return err
	}

	post, err := h.applyDelayPolicy(ctx, uow, o, d, delayMinutes, now)
	if err != nil {
		return err
	}

	if err = uow.DeliveryRepository().Update(ctx, d); err != nil {
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

// applyDelayPolicy applies the notice and failure thresholds to the freshly
// projected delay. State changes happen on the aggregates inside the open
// transaction; notifications and reassignment are returned as post-commit
// actions so they never precede a transition that might still roll back.
func (h *UpdateLocationCommandHandler) applyDelayPolicy(
	ctx context.Context,
	uow UoW,
	o *order.Order,
	d *delivery.Delivery,
	delayMinutes int,
	now time.Time,
) ([]func(), error) {
	var post []func()

	if d.Status() == delivery.InProgress && delayMinutes > int(h.config.DelayNoticeThreshold.Minutes()) {
		if err := d.MarkDelayed(delayMinutes); err != nil {
			return nil, err
		}

		a, err := uow.AgentRepository().Get(ctx, d.AgentID())
		if err != nil {
			return nil, err
		}

		h.recordAudit(ctx, uow.AuditLog(), ports.AuditEvent{
			EventType:  ports.AuditDeliveryDelayed,
			DeliveryID: d.ID(),
			AgentID:    d.AgentID(),
			Details:    fmt.Sprintf("projected delay %d minutes", delayMinutes),
			OccurredAt: now,
		})

		deliveryID := d.ID()
		customerContact := o.CustomerContact()
		agentContact := a.Contact()
		post = append(post, func() {
			h.alerts.Customer(ctx, customerContact, fmt.Sprintf(
				"your delivery is running about %d minutes late, sorry for the wait", delayMinutes))
			h.alerts.Agent(ctx, agentContact, fmt.Sprintf(
				"delivery %s is projected %d minutes late", deliveryID, delayMinutes))
			h.alerts.Operations(ctx, fmt.Sprintf(
				"URGENT: delivery %s projected %d minutes late", deliveryID, delayMinutes))
		})
	}

	failable := d.Status() == delivery.InProgress || d.Status() == delivery.InProgressDelayed
	if failable && delayMinutes > int(h.config.DelayFailureThreshold.Minutes()) {
		reason := fmt.Sprintf("projected delay %d minutes exceeded the %d minute limit",
			delayMinutes, int(h.config.DelayFailureThreshold.Minutes()))
		if err := d.Fail(reason); err != nil {
			return nil, err
		}

		h.recordAudit(ctx, uow.AuditLog(), ports.AuditEvent{
			EventType:  ports.AuditDeliveryFailed,
			DeliveryID: d.ID(),
			AgentID:    d.AgentID(),
			Details:    reason,
			OccurredAt: now,
		})

		deliveryID := d.ID()
		orderID := d.OrderID()
		post = append(post, func() {
			h.Unwatch(deliveryID)
			h.alerts.Operations(ctx, fmt.Sprintf(
				"delivery %s auto-failed: %s", deliveryID, reason))

			if err := h.reassigner.ReassignAfterFailure(ctx, orderID); err != nil {
				h.logger.ErrorContext(ctx, "reassignment after auto-failure failed",
					"orderID", orderID,
					"error", err)
				h.alerts.Operations(ctx, fmt.Sprintf(
					"order %s could not be reassigned after auto-failure, manual assignment required", orderID))
			}
		})
	}

	return post, nil
}

func (h *UpdateLocationCommandHandler) recordAudit(ctx context.Context, log ports.AuditLog, event ports.AuditEvent) {
	if err := log.Record(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "audit record failed",
			"eventType", event.EventType,
			"error", err)
	}
}

// projectedDelayMinutes converts an arrival projection to whole minutes past
// the schedule, never negative.
func projectedDelayMinutes(eta, scheduled time.Time) int {
	minutes := int(eta.Sub(scheduled).Minutes())
	if minutes < 0 {
		return 0
	}
	return minutes
}
