package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"
)

// confirmationRecoverer is the slice of the assignment coordinator the
// recovery job needs: re-arming lost confirmation deadlines and escalating
// the ones that expired while the process was down.
type confirmationRecoverer interface {
	RearmConfirmation(orderID kernel.UUID, remaining time.Duration)
	EscalateToNextCandidate(ctx context.Context, orderID kernel.UUID, reason string) error
	ConfirmationTimeout() time.Duration
}

// RecoveryJob rebuilds the in-process lifecycle state after a restart. The
// confirmation deadlines and monitoring ticks live in memory; the store
// keeps enough state to reconstruct both.
type RecoveryJob struct {
	uowFactory commands.UoWFactory
	recoverer  confirmationRecoverer
	watcher    commands.DeliveryWatcher
	logger     *slog.Logger
}

// NewRecoveryJob creates the startup recovery job.
func NewRecoveryJob(
	uowFactory commands.UoWFactory,
	recoverer confirmationRecoverer,
	watcher commands.DeliveryWatcher,
	logger *slog.Logger,
) *RecoveryJob {
	return &RecoveryJob{
		uowFactory: uowFactory,
		recoverer:  recoverer,
		watcher:    watcher,
		logger:     logger.With("component", "recovery_job"),
	}
}

// Run scans the store once and rebuilds timers: deliveries still awaiting
// confirmation get their deadline re-armed (or escalated when it expired
// while the process was down), in-progress deliveries get their monitoring
// tick back.
func (j *RecoveryJob) Run(ctx context.Context) error {
	now := time.Now().UTC()
	timeout := j.recoverer.ConfirmationTimeout()

	uow := j.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	awaiting, err := uow.DeliveryRepository().GetAllAssignedBefore(ctx, now)
	if err != nil {
		return err
	}

	inProgress, err := uow.DeliveryRepository().GetAllInProgress(ctx)
	if err != nil {
		return err
	}

	if err = uow.Rollback(ctx); err != nil {
		j.logger.WarnContext(ctx, "recovery scan rollback failed", "error", err)
	}

	rearmed, escalated := 0, 0
	for _, d := range awaiting {
		expiry := d.CreatedAt().Add(timeout)
		if expiry.After(now) {
			j.recoverer.RearmConfirmation(d.OrderID(), expiry.Sub(now))
			rearmed++
			continue
		}

		escalated++
		if err = j.recoverer.EscalateToNextCandidate(
			ctx, d.OrderID(), "confirmation deadline expired during downtime"); err != nil {
			if errors.Is(err, commands.ErrAssignmentExhausted) {
				continue
			}
			j.logger.ErrorContext(ctx, "failed to escalate expired assignment",
				"order_id", d.OrderID(),
				"error", err)
		}
	}

	for _, d := range inProgress {
		j.watcher.Watch(d.ID())
	}

	j.logger.InfoContext(ctx, "lifecycle state recovered",
		"deadlines_rearmed", rearmed,
		"assignments_escalated", escalated,
		"deliveries_watched", len(inProgress))
	return nil
}
