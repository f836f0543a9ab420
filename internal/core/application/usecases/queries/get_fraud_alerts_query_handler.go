package queries

import (
	"context"
	"database/sql"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetFraudAlertsQueryHandler retrieves disputed settlements from the
// database. Uses direct SQL for optimal read performance in the CQRS pattern.
type GetFraudAlertsQueryHandler struct {
	db *gorm.DB
}

// NewGetFraudAlertsQueryHandler creates a handler for fraud alert retrieval
// queries. Requires a GORM database connection for query execution.
func NewGetFraudAlertsQueryHandler(db *gorm.DB) GetFraudAlertsQueryHandler {
	return GetFraudAlertsQueryHandler{db: db}
}

// Handle executes the query to retrieve disputed settlements joined with the
// accused agent, oldest remittance first.
func (h GetFraudAlertsQueryHandler) Handle(
	ctx context.Context,
	query GetFraudAlertsQuery,
) ([]GetFraudAlertsQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	resolutions := []int{int(delivery.ResolutionNone)}
	if query.IncludeResolved() {
		resolutions = append(resolutions,
			int(delivery.ResolutionCleared), int(delivery.ResolutionConfirmedFraud))
	}

	alerts := make([]GetFraudAlertsQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			d.id,
			d.order_id,
			d.agent_id,
			a.name,
			d.cash_collected,
			d.cash_remitted,
			d.fraud_score,
			d.remittance_time,
			d.resolution,
			COUNT(f.id) AS flag_count
		FROM deliveries d
		JOIN agents a ON a.id = d.agent_id
		LEFT JOIN fraud_flags f ON f.delivery_id = d.id
		WHERE d.status = ? AND d.resolution IN ?
		GROUP BY d.id, d.order_id, d.agent_id, a.name, d.cash_collected,
			d.cash_remitted, d.fraud_score, d.remittance_time, d.resolution
		ORDER BY d.remittance_time
	`, int(delivery.PaymentDisputed), resolutions).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var resp GetFraudAlertsQueryResponse
		var id, orderID, agentID uuid.UUID
		var collected, remitted, score sql.NullFloat64
		var remittanceTime sql.NullTime
		var resolution int

		err = rows.Scan(
			&id,
			&orderID,
			&agentID,
			&resp.AgentName,
			&collected,
			&remitted,
			&score,
			&remittanceTime,
			&resolution,
			&resp.FlagCount,
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

		resp.CashCollected = collected.Float64
		resp.CashRemitted = remitted.Float64
		resp.FraudScore = score.Float64
		if remittanceTime.Valid {
			at := remittanceTime.Time
			resp.RemittanceTime = &at
		}
		resp.Resolution = delivery.Resolution(resolution).String()

		alerts = append(alerts, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}
