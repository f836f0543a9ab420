package jobs

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/ports"

	"github.com/robfig/cron/v3"
)

// RestrictionExpiryJob lifts agent restrictions whose window has passed.
// Runs hourly; an agent coming off restriction becomes selectable on the
// next assignment pass.
type RestrictionExpiryJob struct {
	uowFactory commands.AgentUoWFactory
	cron       *cron.Cron
	logger     *slog.Logger
}

// NewRestrictionExpiryJob creates a new job for expiring agent restrictions.
func NewRestrictionExpiryJob(uowFactory commands.AgentUoWFactory, logger *slog.Logger) *RestrictionExpiryJob {
	return &RestrictionExpiryJob{
		uowFactory: uowFactory,
		cron:       cron.New(),
		logger:     logger.With("component", "restriction_expiry_job"),
	}
}

// Start begins the restriction expiry job on an hourly schedule.
func (j *RestrictionExpiryJob) Start() error {
	_, err := j.cron.AddFunc("@hourly", func() {
		ctx := context.Background()
		if err := j.RunOnce(ctx); err != nil {
			j.logger.ErrorContext(ctx, "restriction expiry job failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "restriction expiry job started (running hourly)")
	return nil
}

// Stop stops the restriction expiry job.
func (j *RestrictionExpiryJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "restriction expiry job stopped")
}

// RunOnce lifts every restriction that expired before now. Exposed for the
// scheduler callback and for tests.
func (j *RestrictionExpiryJob) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()

	uow := j.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	expired, err := uow.AgentRepository().GetAllRestrictedBefore(ctx, now)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return uow.Rollback(ctx)
	}

	for _, a := range expired {
		a.LiftRestriction()
		if err = uow.AgentRepository().Update(ctx, a); err != nil {
			return err
		}

		if err = uow.AuditLog().Record(ctx, ports.AuditEvent{
			EventType:  ports.AuditAgentRestrictionLift,
			AgentID:    a.ID(),
			Details:    "restriction window expired",
			OccurredAt: now,
		}); err != nil {
			j.logger.WarnContext(ctx, "failed to record restriction lift",
				"agent_id", a.ID(),
				"error", err)
		}
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	j.logger.InfoContext(ctx, "expired restrictions lifted", "count", len(expired))
	return nil
}
