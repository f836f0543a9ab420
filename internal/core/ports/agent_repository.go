package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/agent"
	"dispatch/internal/core/domain/model/kernel"
)

// AgentRepository defines the persistence contract for agent aggregates.
type AgentRepository interface {
	// Add persists a new agent aggregate to storage.
	// The agent must be valid and not already exist in the repository.
	Add(ctx context.Context, aggregate *agent.Agent) error

	// Update persists changes to an existing agent aggregate.
	// The agent must exist in the repository and be valid.
	Update(ctx context.Context, aggregate *agent.Agent) error

	// Get retrieves an agent aggregate by its unique identifier.
	Get(ctx context.Context, id kernel.UUID) (*agent.Agent, error)

	// GetAllAvailable retrieves all agents with the on-duty switch set.
	// Restriction and workload filtering happen in the selector, which needs
	// the full picture for its ranking.
	GetAllAvailable(ctx context.Context) ([]*agent.Agent, error)

	// GetAllRestrictedBefore retrieves agents whose restriction expires
	// before the given instant. Used by the restriction expiry job.
	GetAllRestrictedBefore(ctx context.Context, deadline time.Time) ([]*agent.Agent, error)
}
