// Package commands contains business operations that modify system state.
// Implements the Command pattern for write operations in the CQRS architecture.
// All commands follow a consistent pattern: validation, transaction management, and persistence.
//
// The assignment, monitoring and settlement handlers are stateful: they own
// the in-process timers and per-delivery locks that drive the lifecycle, and
// they re-read delivery state from the store inside every timer callback
// before acting on it.
package commands

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command handlers.
// These abstractions ensure data consistency across aggregate boundaries.
type (
	// TxManager handles database transaction lifecycle.
	// Ensures atomic operations across multiple repository calls.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// OrderRepoFactory provides access to the order repository within a transaction.
	OrderRepoFactory interface {
		OrderRepository() ports.OrderRepository
	}

	// AgentRepoFactory provides access to the agent repository within a transaction.
	AgentRepoFactory interface {
		AgentRepository() ports.AgentRepository
	}

	// DeliveryRepoFactory provides access to the delivery repository within a transaction.
	DeliveryRepoFactory interface {
		DeliveryRepository() ports.DeliveryRepository
	}

	// AuditLogFactory provides access to the audit log within a transaction.
	AuditLogFactory interface {
		AuditLog() ports.AuditLog
	}

	// AgentUoW manages transactions for agent-only operations.
	AgentUoW interface {
		TxManager
		AgentRepoFactory
		AuditLogFactory
	}

	// AgentUoWFactory creates new agent unit of work instances.
	AgentUoWFactory interface {
		Create() AgentUoW
	}

	// OrderUoW manages transactions for order-only operations.
	OrderUoW interface {
		TxManager
		OrderRepoFactory
	}

	// OrderUoWFactory creates new order unit of work instances.
	OrderUoWFactory interface {
		Create() OrderUoW
	}

	// UoW manages transactions across the order, agent and delivery
	// aggregates plus the audit log. Used by the lifecycle handlers, which
	// routinely touch several aggregates per transition.
	//
	// Example:
	//   uow := factory.Create()
	//   err := uow.Begin(ctx)
	//   defer uow.Rollback(ctx)
	//
	//   deliveryRepo := uow.DeliveryRepository()
	//   agentRepo := uow.AgentRepository()
	//   // ... perform operations
	//
	//   err = uow.Commit(ctx)
	UoW interface {
		TxManager
		OrderRepoFactory
		AgentRepoFactory
		DeliveryRepoFactory
		AuditLogFactory
	}

	// UoWFactory creates new unit of work instances for cross-aggregate operations.
	UoWFactory interface {
		Create() UoW
	}
)

// Collaboration interfaces between the lifecycle handlers. Each handler
// depends on the narrow slice of another handler's behavior it actually
// uses; the composition root wires the concrete handlers together.
type (
	// AssignmentEscalator is the confirmation-phase surface of the
	// assignment coordinator: cancelling a pending confirmation deadline on
	// acceptance, and moving on to the next ranked candidate on rejection.
	AssignmentEscalator interface {
		CancelConfirmation(orderID kernel.UUID)
		EscalateToNextCandidate(ctx context.Context, orderID kernel.UUID, reason string) error
	}

	// OrderReassigner reassigns an order to a fresh agent after its active
	// delivery failed.
	OrderReassigner interface {
		ReassignAfterFailure(ctx context.Context, orderID kernel.UUID) error
	}

	// DeliveryWatcher starts and stops periodic monitoring of a delivery.
	DeliveryWatcher interface {
		Watch(deliveryID kernel.UUID)
		Unwatch(deliveryID kernel.UUID)
	}

	// AttemptAssigner runs a fresh assignment attempt for an order, honoring
	// the cap on prior attempts.
	AttemptAssigner interface {
		AssignNextAttempt(ctx context.Context, orderID kernel.UUID, maxPriorAttempts int) (kernel.UUID, error)
	}
)
