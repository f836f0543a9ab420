package queries

import (
	"context"
	"database/sql"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetActiveDeliveriesQueryHandler retrieves active deliveries from the
// database. Uses direct SQL for optimal read performance in the CQRS pattern.
type GetActiveDeliveriesQueryHandler struct {
	db *gorm.DB
}

// NewGetActiveDeliveriesQueryHandler creates a handler for active delivery
// retrieval queries. Requires a GORM database connection for query execution.
func NewGetActiveDeliveriesQueryHandler(db *gorm.DB) GetActiveDeliveriesQueryHandler {
	return GetActiveDeliveriesQueryHandler{db: db}
}

// Handle executes the query to retrieve all active deliveries joined with
// their order destination and agent name, sorted by schedule promise.
func (h GetActiveDeliveriesQueryHandler) Handle(
	ctx context.Context,
	query GetActiveDeliveriesQuery,
) ([]GetActiveDeliveriesQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	activeStatuses := []int{
		int(delivery.Assigned),
		int(delivery.InProgress),
		int(delivery.InProgressDelayed),
		int(delivery.InProgressEscalated),
	}

	deliveries := make([]GetActiveDeliveriesQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			d.id,
			d.order_id,
			d.agent_id,
			a.name,
			d.attempt,
			d.status,
			d.scheduled_time,
			d.estimated_arrival,
			d.delay_minutes,
			o.street,
			o.customer_contact
		FROM deliveries d
		JOIN orders o ON o.id = d.order_id
		JOIN agents a ON a.id = d.agent_id
		WHERE d.status IN ?
		ORDER BY d.scheduled_time
	`, activeStatuses).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var resp GetActiveDeliveriesQueryResponse
		var id, orderID, agentID uuid.UUID
		var status int
		var estimatedArrival sql.NullTime

		err = rows.Scan(
			&id,
			&orderID,
			&agentID,
			&resp.AgentName,
			&resp.Attempt,
			&status,
			&resp.ScheduledTime,
			&estimatedArrival,
			&resp.DelayMinutes,
			&resp.Street,
			&resp.CustomerContact,
		)
		if err != nil {
			return nil, err
		}

		if resp.DeliveryID, err = kernel.UUIDFromBytes(id[:]); err != nil {
			return nil, err
		}
		if resp.OrderID, err = kernel.UUIDFromBytes(orderID[:]); err != nil {
			return nil, err
		}
		if resp.AgentID, err = kernel.UUIDFromBytes(agentID[:]); err != nil {
			return nil, err
		}

		resp.Status = delivery.Status(status).String()
		if estimatedArrival.Valid {
			eta := estimatedArrival.Time
			resp.EstimatedArrival = &eta
		}

		deliveries = append(deliveries, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return deliveries, nil
}
