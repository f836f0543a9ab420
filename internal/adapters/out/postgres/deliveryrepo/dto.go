// Package deliveryrepo provides data transfer objects and mapping functions for delivery persistence.
// This package implements the repository pattern for the delivery domain aggregate, handling
// the conversion between domain entities and database representations.
package deliveryrepo

import (
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// DeliveryDTO represents the database structure for persisting delivery attempts.
// An order accumulates one row per attempt; the status index serves the
// monitoring and recovery scans.
type DeliveryDTO struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID            uuid.UUID `gorm:"type:uuid;not null;index"`
	AgentID            uuid.UUID `gorm:"type:uuid;not null;index"`
	Attempt            int       `gorm:"type:smallint;not null"`
	CreatedAt          time.Time
	ScheduledTime      time.Time
	CompletedTime      *time.Time
	CurrentLat         *float64 `gorm:"type:double precision"`
	CurrentLon         *float64 `gorm:"type:double precision"`
	LastLocationUpdate *time.Time
	EstimatedArrival   *time.Time
	DelayMinutes       int    `gorm:"type:int"`
	FailureReason      string `gorm:"type:text"`
	CashCollected      *float64
	CashRemitted       *float64
	RemittanceTime     *time.Time
	RemittanceProof    string `gorm:"type:text"`
	RemittanceVerified bool
	FraudScore         *float64
	Resolution         int            `gorm:"type:smallint"`
	Status             int            `gorm:"type:smallint;index"`
	FraudFlags         []FraudFlagDTO `gorm:"foreignKey:DeliveryID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for delivery entities.
// Overrides GORM's default naming convention to use "deliveries".
func (DeliveryDTO) TableName() string {
	return "deliveries"
}

// FraudFlagDTO represents one verification finding attached to a delivery.
type FraudFlagDTO struct {
	ID          uint              `gorm:"primaryKey;autoIncrement"`
	DeliveryID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	FlagType    string            `gorm:"type:varchar(64);not null"`
	Description string            `gorm:"type:text"`
	Severity    float64           `gorm:"not null"`
	Evidence    map[string]string `gorm:"serializer:json"`
}

// TableName specifies the database table name for fraud flag entities.
// Overrides GORM's default naming convention to use "fraud_flags".
func (FraudFlagDTO) TableName() string {
	return "fraud_flags"
}

// fromDomain converts a delivery domain aggregate to its database representation.
func fromDomain(d *delivery.Delivery) DeliveryDTO {
	deliveryID := d.ID().Bytes()

	var lat, lon *float64
	if loc := d.CurrentLocation(); loc != nil {
		latValue, lonValue := loc.Lat(), loc.Lon()
		lat, lon = &latValue, &lonValue
	}

	flags := make([]FraudFlagDTO, 0, len(d.FraudFlags()))
	for _, flag := range d.FraudFlags() {
		flags = append(flags, FraudFlagDTO{
			DeliveryID:  deliveryID,
			FlagType:    flag.Type(),
			Description: flag.Description(),
			Severity:    flag.Severity(),
			Evidence:    flag.Evidence(),
		})
	}

	return DeliveryDTO{
		ID:                 deliveryID,
		OrderID:            d.OrderID().Bytes(),
		AgentID:            d.AgentID().Bytes(),
		Attempt:            d.Attempt(),
		CreatedAt:          d.CreatedAt(),
		ScheduledTime:      d.ScheduledTime(),
		CompletedTime:      d.CompletedTime(),
		CurrentLat:         lat,
		CurrentLon:         lon,
		LastLocationUpdate: d.LastLocationUpdate(),
		EstimatedArrival:   d.EstimatedArrival(),
		DelayMinutes:       d.DelayMinutes(),
		FailureReason:      d.FailureReason(),
		CashCollected:      d.CashCollected(),
		CashRemitted:       d.CashRemitted(),
		RemittanceTime:     d.RemittanceTime(),
		RemittanceProof:    d.RemittanceProof(),
		RemittanceVerified: d.IsRemittanceVerified(),
		FraudScore:         d.FraudScore(),
		Resolution:         int(d.DisputeResolution()),
		Status:             int(d.Status()),
		FraudFlags:         flags,
	}
}

// toDomain converts a database DTO to a delivery domain aggregate.
// Reconstructs the complete aggregate including the settlement state and
// fraud findings using RestoreDelivery.
func toDomain(dto DeliveryDTO) (*delivery.Delivery, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return nil, err
	}
	agentID, err := kernel.UUIDFromBytes(dto.AgentID[:])
	if err != nil {
		return nil, err
	}

	var location *kernel.GeoPoint
	if dto.CurrentLat != nil && dto.CurrentLon != nil {
		point, locErr := kernel.NewGeoPoint(*dto.CurrentLat, *dto.CurrentLon)
		if locErr != nil {
			return nil, locErr
		}
		location = &point
	}

	flags := make([]delivery.FraudFlag, 0, len(dto.FraudFlags))
	for _, flagDTO := range dto.FraudFlags {
		flag, flagErr := delivery.NewFraudFlag(
			flagDTO.FlagType, flagDTO.Description, flagDTO.Severity, flagDTO.Evidence)
		if flagErr != nil {
			return nil, flagErr
		}
		flags = append(flags, flag)
	}

	return delivery.RestoreDelivery(delivery.Snapshot{
		ID:                 id,
		OrderID:            orderID,
		AgentID:            agentID,
		Attempt:            dto.Attempt,
		CreatedAt:          dto.CreatedAt,
		ScheduledTime:      dto.ScheduledTime,
		CompletedTime:      dto.CompletedTime,
		CurrentLocation:    location,
		LastLocationUpdate: dto.LastLocationUpdate,
		EstimatedArrival:   dto.EstimatedArrival,
		DelayMinutes:       dto.DelayMinutes,
		FailureReason:      dto.FailureReason,
		CashCollected:      dto.CashCollected,
		CashRemitted:       dto.CashRemitted,
		RemittanceTime:     dto.RemittanceTime,
		RemittanceProof:    dto.RemittanceProof,
		RemittanceVerified: dto.RemittanceVerified,
		FraudScore:         dto.FraudScore,
		FraudFlags:         flags,
		Resolution:         delivery.Resolution(dto.Resolution),
		Status:             delivery.Status(dto.Status),
	})
}
