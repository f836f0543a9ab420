package auditrepo

import (
	"context"

	"dispatch/internal/core/ports"

	"gorm.io/gorm"
)

// GormAuditLog implements AuditLog using GORM.
type GormAuditLog struct {
	db *gorm.DB
}

// NewGormAuditLog creates a new GORM audit log.
func NewGormAuditLog(db *gorm.DB) *GormAuditLog {
	return &GormAuditLog{db: db}
}

// Record appends one lifecycle event to the audit trail.
func (l *GormAuditLog) Record(ctx context.Context, event ports.AuditEvent) error {
	dto := AuditEventDTO{
		EventType:  event.EventType,
		DeliveryID: event.DeliveryID.Bytes(),
		AgentID:    event.AgentID.Bytes(),
		Details:    event.Details,
		OccurredAt: event.OccurredAt,
	}
	return l.db.WithContext(ctx).Create(&dto).Error
}
