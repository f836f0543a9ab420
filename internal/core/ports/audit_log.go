package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// Audit event types recorded by the delivery core.
const (
	AuditAssignmentOffered    = "assignment_offered"
	AuditAssignmentConfirmed  = "assignment_confirmed"
	AuditAssignmentTimedOut   = "assignment_timed_out"
	AuditDeliveryDelayed      = "delivery_delayed"
	AuditDeliveryEscalated    = "delivery_escalated"
	AuditDeliveryCompleted    = "delivery_completed"
	AuditDeliveryFailed       = "delivery_failed"
	AuditCashCollected        = "cash_collected"
	AuditCashRemitted         = "cash_remitted"
	AuditFraudAlertRaised     = "fraud_alert_raised"
	AuditFraudAlertResolved   = "fraud_alert_resolved"
	AuditAgentRestricted      = "agent_restricted"
	AuditAgentRestrictionLift = "agent_restriction_lifted"
)

// AuditEvent is one recorded fact about a delivery's lifecycle.
type AuditEvent struct {
	// EventType is one of the Audit* constants.
	EventType string

	// DeliveryID references the delivery the event belongs to, zero for
	// agent-only events.
	DeliveryID kernel.UUID

	// AgentID references the agent involved, zero when not applicable.
	AgentID kernel.UUID

	// Details is a human-readable description of what happened.
	Details string

	// OccurredAt is when the event happened.
	OccurredAt time.Time
}

// AuditLog records lifecycle events for later inspection. Writes are
// best-effort from the caller's point of view: a failed audit write never
// unwinds the state transition it describes.
type AuditLog interface {
	Record(ctx context.Context, event AuditEvent) error
}
