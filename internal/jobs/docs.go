// Package jobs provides background tasks for the delivery lifecycle.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3
// plus the one-shot startup recovery the lifecycle needs after a restart.
//
// # Available Jobs
//
// 1. RecoveryJob - Runs once at startup to rebuild in-memory lifecycle
// state: confirmation deadlines are re-armed from the persisted assignment
// times (expired ones escalate to the next candidate) and in-progress
// deliveries are put back under periodic monitoring.
//
// 2. RestrictionExpiryJob - Runs hourly to lift agent restrictions whose
// window has passed, returning those agents to the selectable pool.
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	jobManager := jobs.NewJobManager(recoveryJob, restrictionExpiryJob)
//
//	if err := jobManager.StartAll(ctx); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//
//	defer jobManager.StopAll()
//
// # Error Handling
//
// - Recovery treats an exhausted candidate list as an expected outcome; the
// assignment coordinator already alerted operations about it.
// - The restriction expiry job logs failures and retries on the next tick.
package jobs
