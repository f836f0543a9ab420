package queries

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var (
	ErrGetFraudAlertsQueryIsNotConstructed = errors.New(
		"GetFraudAlertsQuery must be created via NewGetFraudAlertsQuery constructor",
	)
)

// GetFraudAlertsQuery retrieves settlements that remittance verification sent
// to manual fraud review. By default only open disputes are returned;
// includeResolved widens the result to confirmed-fraud verdicts as well.
type GetFraudAlertsQuery struct {
	includeResolved bool

	guard guard.ConstructorGuard
}

// NewGetFraudAlertsQuery creates a query to retrieve disputed settlements.
func NewGetFraudAlertsQuery(includeResolved bool) GetFraudAlertsQuery {
	return GetFraudAlertsQuery{
		includeResolved: includeResolved,
		guard:           guard.NewConstructorGuard(),
	}
}

// IncludeResolved reports whether resolved disputes are part of the result.
func (q GetFraudAlertsQuery) IncludeResolved() bool {
	return q.includeResolved
}

// Validate ensures the query was created through the constructor.
// Returns ErrGetFraudAlertsQueryIsNotConstructed if validation fails.
func (q GetFraudAlertsQuery) Validate() error {
	return q.guard.Validate(ErrGetFraudAlertsQueryIsNotConstructed)
}

// GetFraudAlertsQueryResponse represents one disputed settlement in the read
// model, joined with the accused agent.
type GetFraudAlertsQueryResponse struct {
	DeliveryID     kernel.UUID
	OrderID        kernel.UUID
	AgentID        kernel.UUID
	AgentName      string
	CashCollected  float64
	CashRemitted   float64
	FraudScore     float64
	RemittanceTime *time.Time
	Resolution     string
	FlagCount      int
}
