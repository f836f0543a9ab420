package deliveryrepo

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDeliveryRepository implements DeliveryRepository using GORM.
type GormDeliveryRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

// aggregateTracker defines the interface for tracking aggregates.
type aggregateTracker interface {
	TrackAggregate(id kernel.UUID, aggregate any)
}

// NewGormDeliveryRepository creates a new GORM delivery repository.
func NewGormDeliveryRepository(db *gorm.DB, tracker aggregateTracker) *GormDeliveryRepository {
	return &GormDeliveryRepository{
		db:      db,
		tracker: tracker,
	}
}

func activeStatuses() []int {
	return []int{
		int(delivery.Assigned),
		int(delivery.InProgress),
		int(delivery.InProgressDelayed),
		int(delivery.InProgressEscalated),
	}
}

func inProgressStatuses() []int {
	return []int{
		int(delivery.InProgress),
		int(delivery.InProgressDelayed),
		int(delivery.InProgressEscalated),
	}
}

func completedStatuses() []int {
	return []int{
		int(delivery.Completed),
		int(delivery.DeliveredUnpaid),
		int(delivery.DeliveredPaid),
		int(delivery.PaymentDisputed),
	}
}

// Add saves a new delivery to the database.
func (r *GormDeliveryRepository) Add(ctx context.Context, aggregate *delivery.Delivery) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return err
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// Update saves an existing delivery to the database.
func (r *GormDeliveryRepository) Update(ctx context.Context, aggregate *delivery.Delivery) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	// Save with FullSaveAssociations keeps the fraud flag rows in sync with
	// the aggregate's findings.
	result := r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(&dto)
	if result.Error != nil {
		return result.Error
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// Get retrieves a delivery by ID.
func (r *GormDeliveryRepository) Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto DeliveryDTO
	err := r.db.WithContext(ctx).Preload("FraudFlags").First(&dto, "id = ?", id.Bytes()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("delivery", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// GetActiveByOrder retrieves the order's single active delivery attempt.
func (r *GormDeliveryRepository) GetActiveByOrder(ctx context.Context, orderID kernel.UUID) (*delivery.Delivery, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	var dto DeliveryDTO
	err := r.db.WithContext(ctx).Preload("FraudFlags").
		First(&dto, "order_id = ? AND status IN ?", orderID.Bytes(), activeStatuses()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("active delivery for order", orderID.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// GetAllByOrder retrieves the order's full attempt lineage, oldest first.
func (r *GormDeliveryRepository) GetAllByOrder(ctx context.Context, orderID kernel.UUID) ([]*delivery.Delivery, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	var dtos []DeliveryDTO
	err := r.db.WithContext(ctx).Preload("FraudFlags").
		Order("attempt").
		Find(&dtos, "order_id = ?", orderID.Bytes()).Error
	if err != nil {
		return nil, err
	}

	return r.toDomainSlice(dtos)
}

// GetStatsByAgents returns per-agent delivery statistics in a single query.
// Agents without delivery records are absent from the result; the zero value
// of AgentDeliveryStats covers them.
func (r *GormDeliveryRepository) GetStatsByAgents(
	ctx context.Context,
	agentIDs []kernel.UUID,
) (map[kernel.UUID]ports.AgentDeliveryStats, error) {
	stats := make(map[kernel.UUID]ports.AgentDeliveryStats, len(agentIDs))
	if len(agentIDs) == 0 {
		return stats, nil
	}

	rawIDs := make([]uuid.UUID, 0, len(agentIDs))
	for _, id := range agentIDs {
		rawIDs = append(rawIDs, id.Bytes())
	}

	rows, err := r.db.WithContext(ctx).Raw(`
		SELECT
			agent_id,
			COUNT(*) FILTER (WHERE status IN ?) AS active_count,
			COUNT(*) FILTER (WHERE status IN ?) AS completed_count,
			COUNT(*) FILTER (WHERE status = ?) AS failed_count
		FROM deliveries
		WHERE agent_id IN ?
		GROUP BY agent_id
	`, activeStatuses(), completedStatuses(), int(delivery.Failed), rawIDs).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rawID uuid.UUID
		var entry ports.AgentDeliveryStats

		if err = rows.Scan(&rawID, &entry.ActiveCount, &entry.CompletedCount, &entry.FailedCount); err != nil {
			return nil, err
		}

		agentID, idErr := kernel.UUIDFromBytes(rawID[:])
		if idErr != nil {
			return nil, idErr
		}
		stats[agentID] = entry
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// GetAllInProgress retrieves all deliveries in an in-progress status.
func (r *GormDeliveryRepository) GetAllInProgress(ctx context.Context) ([]*delivery.Delivery, error) {
	var dtos []DeliveryDTO
	err := r.db.WithContext(ctx).Preload("FraudFlags").
		Find(&dtos, "status IN ?", inProgressStatuses()).Error
	if err != nil {
		return nil, err
	}

	return r.toDomainSlice(dtos)
}

// GetAllAssignedBefore retrieves deliveries still awaiting confirmation whose
// assignment happened before the given instant.
func (r *GormDeliveryRepository) GetAllAssignedBefore(ctx context.Context, deadline time.Time) ([]*delivery.Delivery, error) {
	var dtos []DeliveryDTO
	err := r.db.WithContext(ctx).Preload("FraudFlags").
		Find(&dtos, "status = ? AND created_at < ?", int(delivery.Assigned), deadline).Error
	if err != nil {
		return nil, err
	}

	return r.toDomainSlice(dtos)
}

func (r *GormDeliveryRepository) toDomainSlice(dtos []DeliveryDTO) ([]*delivery.Delivery, error) {
	deliveries := make([]*delivery.Delivery, 0, len(dtos))
	for _, dto := range dtos {
		d, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}

	return deliveries, nil
}
