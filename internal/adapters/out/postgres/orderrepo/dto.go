// Package orderrepo provides data transfer objects and mapping functions for order persistence.
// This package implements the repository pattern for the order domain aggregate, handling
// the conversion between domain entities and database representations.
package orderrepo

import (
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO represents the database structure for persisting order aggregates.
// Maps order domain entities to relational database tables with proper indexing
// for efficient querying by status.
type OrderDTO struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey"`
	CustomerContact string      `gorm:"type:text"`
	Street          string      `gorm:"type:text"`
	Location        GeoPointDTO `gorm:"embedded;embeddedPrefix:location_"`
	TotalAmount     float64
	PaymentMethod   int `gorm:"type:smallint"`
	Status          int `gorm:"type:smallint;index"`
	Paid            bool
}

// TableName specifies the database table name for order entities.
// Overrides GORM's default naming convention to use "orders".
func (OrderDTO) TableName() string {
	return "orders"
}

// GeoPointDTO represents embedded geographic coordinates within the order table.
// Stores the drop-off position for the delivery.
type GeoPointDTO struct {
	Lat float64 `gorm:"type:double precision"`
	Lon float64 `gorm:"type:double precision"`
}

// fromDomain converts an order domain aggregate to its database representation.
func fromDomain(o *order.Order) OrderDTO {
	return OrderDTO{
		ID:              o.ID().Bytes(),
		CustomerContact: o.CustomerContact(),
		Street:          o.Street(),
		Location: GeoPointDTO{
			Lat: o.Location().Lat(),
			Lon: o.Location().Lon(),
		},
		TotalAmount:   o.TotalAmount(),
		PaymentMethod: int(o.PaymentMethod()),
		Status:        int(o.Status()),
		Paid:          o.IsPaid(),
	}
}

// toDomain converts a database DTO to an order domain aggregate.
// Reconstructs the complete aggregate including status and payment state using RestoreOrder.
func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	location, err := kernel.NewGeoPoint(dto.Location.Lat, dto.Location.Lon)
	if err != nil {
		return nil, err
	}

	return order.RestoreOrder(
		id,
		dto.CustomerContact,
		dto.Street,
		location,
		dto.TotalAmount,
		order.PaymentMethod(dto.PaymentMethod),
		order.Status(dto.Status),
		dto.Paid,
	)
}
