// Package agentrepo provides data transfer objects and mapping functions for agent persistence.
// This package implements the repository pattern for the agent domain aggregate, handling
// the conversion between domain entities and database representations.
package agentrepo

import (
	"time"

	"dispatch/internal/core/domain/model/agent"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// AgentDTO represents the database structure for persisting agent aggregates.
// Maps agent domain entities to relational database tables with proper indexing
// for the availability and restriction scans the selector and jobs run.
type AgentDTO struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"type:text"`
	Contact         string    `gorm:"type:text"`
	IsAvailable     bool      `gorm:"index"`
	MaxWorkload     int       `gorm:"type:smallint"`
	LocationLat     *float64  `gorm:"type:double precision"`
	LocationLon     *float64  `gorm:"type:double precision"`
	TotalCollected  float64
	TotalRemitted   float64
	FraudIncidents  int        `gorm:"type:smallint"`
	RestrictedUntil *time.Time `gorm:"index"`
}

// TableName specifies the database table name for agent entities.
// Overrides GORM's default naming convention to use "agents".
func (AgentDTO) TableName() string {
	return "agents"
}

// fromDomain converts an agent domain aggregate to its database representation.
func fromDomain(a *agent.Agent) AgentDTO {
	var lat, lon *float64
	if loc := a.LastKnownLocation(); loc != nil {
		latValue, lonValue := loc.Lat(), loc.Lon()
		lat, lon = &latValue, &lonValue
	}

	return AgentDTO{
		ID:              a.ID().Bytes(),
		Name:            a.Name(),
		Contact:         a.Contact(),
		IsAvailable:     a.IsAvailable(),
		MaxWorkload:     a.MaxWorkload(),
		LocationLat:     lat,
		LocationLon:     lon,
		TotalCollected:  a.TotalCollected(),
		TotalRemitted:   a.TotalRemitted(),
		FraudIncidents:  a.FraudIncidents(),
		RestrictedUntil: a.RestrictedUntil(),
	}
}

// toDomain converts a database DTO to an agent domain aggregate.
// The remittance rating is recomputed from the totals during restoration.
func toDomain(dto AgentDTO) (*agent.Agent, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	var location *kernel.GeoPoint
	if dto.LocationLat != nil && dto.LocationLon != nil {
		point, locErr := kernel.NewGeoPoint(*dto.LocationLat, *dto.LocationLon)
		if locErr != nil {
			return nil, locErr
		}
		location = &point
	}

	return agent.RestoreAgent(
		id,
		dto.Name,
		dto.Contact,
		dto.IsAvailable,
		dto.MaxWorkload,
		location,
		dto.TotalCollected,
		dto.TotalRemitted,
		dto.FraudIncidents,
		dto.RestrictedUntil,
	)
}
