// Package queries contains read operations for retrieving system state.
// Implements the Query pattern for read operations in the CQRS architecture.
// Queries return optimized read models for specific use cases.
package queries

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var (
	ErrGetActiveDeliveriesQueryIsNotConstructed = errors.New(
		"GetActiveDeliveriesQuery must be created via NewGetActiveDeliveriesQuery constructor",
	)
)

// GetActiveDeliveriesQuery retrieves every delivery attempt that currently
// occupies an order's active slot: awaiting confirmation or in progress.
// Used by the operations dashboard to watch the fleet.
type GetActiveDeliveriesQuery struct {
	guard guard.ConstructorGuard
}

// NewGetActiveDeliveriesQuery creates a query to retrieve all active
// deliveries. This is a parameterless query.
func NewGetActiveDeliveriesQuery() GetActiveDeliveriesQuery {
	return GetActiveDeliveriesQuery{guard: guard.NewConstructorGuard()}
}

// Validate ensures the query was created through the constructor.
// Returns ErrGetActiveDeliveriesQueryIsNotConstructed if validation fails.
func (q GetActiveDeliveriesQuery) Validate() error {
	return q.guard.Validate(ErrGetActiveDeliveriesQueryIsNotConstructed)
}

// GetActiveDeliveriesQueryResponse represents one active delivery in the
// read model, joined with the order destination and the agent's name.
type GetActiveDeliveriesQueryResponse struct {
	DeliveryID       kernel.UUID
	OrderID          kernel.UUID
	AgentID          kernel.UUID
	AgentName        string
	Attempt          int
	Status           string
	ScheduledTime    time.Time
	EstimatedArrival *time.Time
	DelayMinutes     int
	Street           string
	CustomerContact  string
}
