// Package auditrepo persists the delivery lifecycle audit trail.
package auditrepo

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventDTO represents one recorded lifecycle event. Rows are append-only.
type AuditEventDTO struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	EventType  string    `gorm:"type:varchar(64);not null;index"`
	DeliveryID uuid.UUID `gorm:"type:uuid;not null;index"`
	AgentID    uuid.UUID `gorm:"type:uuid;index"`
	Details    string    `gorm:"type:text"`
	OccurredAt time.Time `gorm:"index"`
}

// TableName specifies the database table name for audit events.
// Overrides GORM's default naming convention to use "audit_events".
func (AuditEventDTO) TableName() string {
	return "audit_events"
}
