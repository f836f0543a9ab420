package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
)

// AgentDeliveryStats summarizes an agent's delivery records for selection.
type AgentDeliveryStats struct {
	// ActiveCount is the agent's number of deliveries in an active status.
	ActiveCount int

	// CompletedCount is the agent's number of completed deliveries,
	// including the settled cash states.
	CompletedCount int

	// FailedCount is the agent's number of failed delivery attempts.
	FailedCount int
}

// DeliveryRepository defines the persistence contract for delivery attempts.
// An order accumulates delivery records across reassignment and redelivery;
// at most one of them is active at a time.
type DeliveryRepository interface {
	// Add persists a new delivery aggregate to storage.
	// The delivery must be valid and not already exist in the repository.
	Add(ctx context.Context, aggregate *delivery.Delivery) error

	// Update persists changes to an existing delivery aggregate.
	// The delivery must exist in the repository and be valid.
	Update(ctx context.Context, aggregate *delivery.Delivery) error

	// Get retrieves a delivery aggregate by its unique identifier.
	Get(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error)

	// GetActiveByOrder retrieves the order's single active delivery attempt,
	// if any. Returns an ObjectNotFoundError when no attempt is active.
	GetActiveByOrder(ctx context.Context, orderID kernel.UUID) (*delivery.Delivery, error)

	// GetAllByOrder retrieves the order's full attempt lineage, oldest
	// first. Used to cap redelivery and to exclude previously tried agents.
	GetAllByOrder(ctx context.Context, orderID kernel.UUID) ([]*delivery.Delivery, error)

	// GetStatsByAgents returns per-agent delivery statistics for the given
	// agents in a single query.
	GetStatsByAgents(ctx context.Context, agentIDs []kernel.UUID) (map[kernel.UUID]AgentDeliveryStats, error)

	// GetAllInProgress retrieves all deliveries in an in-progress status.
	// Used to resume monitoring after a restart.
	GetAllInProgress(ctx context.Context) ([]*delivery.Delivery, error)

	// GetAllAssignedBefore retrieves deliveries still awaiting confirmation
	// whose assignment happened before the given instant. Used to recover
	// lost confirmation deadlines after a restart.
	GetAllAssignedBefore(ctx context.Context, deadline time.Time) ([]*delivery.Delivery, error)
}
