package jobs

import (
	"context"
	"fmt"
)

// JobManager coordinates the background jobs of the application: the one-shot
// startup recovery and the recurring restriction expiry.
type JobManager struct {
	recoveryJob          *RecoveryJob
	restrictionExpiryJob *RestrictionExpiryJob
}

// NewJobManager creates a new job manager from the already-wired jobs.
func NewJobManager(recoveryJob *RecoveryJob, restrictionExpiryJob *RestrictionExpiryJob) *JobManager {
	return &JobManager{
		recoveryJob:          recoveryJob,
		restrictionExpiryJob: restrictionExpiryJob,
	}
}

// StartAll runs the startup recovery and starts the scheduled jobs.
// Returns an error if recovery fails or any job fails to start.
func (jm *JobManager) StartAll(ctx context.Context) error {
	if err := jm.recoveryJob.Run(ctx); err != nil {
		return fmt.Errorf("failed to recover lifecycle state: %w", err)
	}

	if err := jm.restrictionExpiryJob.Start(); err != nil {
		return fmt.Errorf("failed to start restriction expiry job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.restrictionExpiryJob.Stop()
}
