package agent

import (
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// ErrAgentIsNotConstructed is returned when an Agent instance was not created
// through the NewAgent or RestoreAgent factory functions.
var ErrAgentIsNotConstructed = errors.New("Agent must be created via NewAgent constructor")

// Agent represents a delivery agent: the person carrying packages and, for
// cash orders, collecting and remitting money. Selection ranks agents by a
// composite score; remittance verification feeds their fraud history back
// into that score.
//
// Agent follows these invariants:
//   - Must have a valid unique identifier, name and contact
//   - Max workload must be positive
//   - Remittance rating stays within [0, 1]
//   - A restriction always carries an expiry instant
type Agent struct {
	// id is the unique identifier for the agent
	id kernel.UUID

	// name is the agent's display name
	name string

	// contact is the agent's notification recipient (phone number)
	contact string

	// isAvailable is the agent's self-reported on-duty switch
	isAvailable bool

	// maxWorkload caps concurrent active deliveries for scoring purposes
	maxWorkload int

	// lastKnownLocation is the agent's last reported position, nil if the
	// agent never reported one
	lastKnownLocation *kernel.GeoPoint

	// totalCollected is the lifetime cash amount collected from customers
	totalCollected float64

	// totalRemitted is the lifetime cash amount handed back by the agent
	totalRemitted float64

	// remittanceRating is min(1, totalRemitted/totalCollected), 1 for agents
	// with no cash history
	remittanceRating float64

	// fraudIncidents counts confirmed fraud findings against the agent
	fraudIncidents int

	// restrictedUntil blocks the agent from selection until this instant,
	// nil when unrestricted
	restrictedUntil *time.Time

	// guard ensures the agent was created via a constructor
	guard guard.ConstructorGuard
}

// NewAgent creates a new available Agent with a clean cash history.
func NewAgent(id kernel.UUID, name, contact string, maxWorkload int) (*Agent, error) {
	a := &Agent{
		isAvailable:      true,
		remittanceRating: 1,
		guard:            guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		a.setID(id),
		a.setName(name),
		a.setContact(contact),
		a.setMaxWorkload(maxWorkload),
	); err != nil {
		return nil, err
	}

	return a, nil
}

// RestoreAgent reconstructs an Agent aggregate from persistent storage.
func RestoreAgent(
	id kernel.UUID,
	name string,
	contact string,
	isAvailable bool,
	maxWorkload int,
	lastKnownLocation *kernel.GeoPoint,
	totalCollected float64,
	totalRemitted float64,
	fraudIncidents int,
	restrictedUntil *time.Time,
) (*Agent, error) {
	a := &Agent{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		a.setID(id),
		a.setName(name),
		a.setContact(contact),
		a.setMaxWorkload(maxWorkload),
	); err != nil {
		return nil, err
	}

	if lastKnownLocation != nil {
		if err := lastKnownLocation.Validate(); err != nil {
			return nil, err
		}
	}
	if totalCollected < 0 || totalRemitted < 0 || fraudIncidents < 0 {
		return nil, errs.NewValueIsInvalidError("agent cash history is invalid")
	}

	a.isAvailable = isAvailable
	a.lastKnownLocation = lastKnownLocation
	a.totalCollected = totalCollected
	a.totalRemitted = totalRemitted
	a.fraudIncidents = fraudIncidents
	a.restrictedUntil = restrictedUntil
	a.recalculateRating()
	return a, nil
}

// Validate ensures the Agent instance was properly constructed.
func (a *Agent) Validate() error {
	if a == nil {
		return ErrAgentIsNotConstructed
	}
	return a.guard.Validate(ErrAgentIsNotConstructed)
}

// IsEqual compares two agents by their unique identifiers.
func (a *Agent) IsEqual(other *Agent) bool {
	return other != nil && a.id.IsEqual(other.id)
}

// ID returns the agent's unique identifier.
func (a *Agent) ID() kernel.UUID {
	return a.id
}

// Name returns the agent's display name.
func (a *Agent) Name() string {
	return a.name
}

// Contact returns the agent's notification recipient.
func (a *Agent) Contact() string {
	return a.contact
}

// IsAvailable returns the agent's on-duty switch.
func (a *Agent) IsAvailable() bool {
	return a.isAvailable
}

// MaxWorkload returns the agent's concurrent delivery cap.
func (a *Agent) MaxWorkload() int {
	return a.maxWorkload
}

// LastKnownLocation returns the agent's last reported position, nil if the
// agent never reported one.
func (a *Agent) LastKnownLocation() *kernel.GeoPoint {
	return a.lastKnownLocation
}

// TotalCollected returns the lifetime cash amount collected from customers.
func (a *Agent) TotalCollected() float64 {
	return a.totalCollected
}

// TotalRemitted returns the lifetime cash amount handed back by the agent.
func (a *Agent) TotalRemitted() float64 {
	return a.totalRemitted
}

// RemittanceRating returns the agent's cash reliability in [0, 1].
func (a *Agent) RemittanceRating() float64 {
	return a.remittanceRating
}

// HasCashHistory reports whether the agent has ever collected cash. Agents
// without history get a neutral rating during selection.
func (a *Agent) HasCashHistory() bool {
	return a.totalCollected > 0
}

// FraudIncidents returns the number of confirmed fraud findings.
func (a *Agent) FraudIncidents() int {
	return a.fraudIncidents
}

// RestrictedUntil returns the restriction expiry, nil when unrestricted.
func (a *Agent) RestrictedUntil() *time.Time {
	return a.restrictedUntil
}

// IsRestrictedAt reports whether a restriction is in force at the given
// instant.
func (a *Agent) IsRestrictedAt(now time.Time) bool {
	return a.restrictedUntil != nil && now.Before(*a.restrictedUntil)
}

// IsEligibleAt reports whether the agent may be offered new assignments at
// the given instant: on duty and not under an active restriction.
func (a *Agent) IsEligibleAt(now time.Time) bool {
	return a.isAvailable && !a.IsRestrictedAt(now)
}

// SetAvailability flips the agent's on-duty switch.
func (a *Agent) SetAvailability(available bool) {
	a.isAvailable = available
}

// UpdateLocation records the agent's reported position.
func (a *Agent) UpdateLocation(location kernel.GeoPoint) error {
	if err := location.Validate(); err != nil {
		return err
	}

	a.lastKnownLocation = &location
	return nil
}

// AddCollection adds a cash collection to the agent's lifetime totals.
func (a *Agent) AddCollection(amount float64) error {
	if amount <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("collected amount is invalid",
			fmt.Errorf("%f is not greater than 0", amount))
	}

	a.totalCollected += amount
	a.recalculateRating()
	return nil
}

// AddRemittance adds a cash remittance to the agent's lifetime totals.
func (a *Agent) AddRemittance(amount float64) error {
	if amount < 0 {
		return errs.NewValueIsInvalidErrorWithCause("remitted amount is invalid",
			fmt.Errorf("%f is negative", amount))
	}

	a.totalRemitted += amount
	a.recalculateRating()
	return nil
}

// RegisterFraudIncident records a confirmed fraud finding against the agent.
func (a *Agent) RegisterFraudIncident() {
	a.fraudIncidents++
}

// Restrict blocks the agent from selection until the given instant.
func (a *Agent) Restrict(until time.Time) error {
	if until.IsZero() {
		return errs.NewValueIsRequiredError("until")
	}

	a.restrictedUntil = &until
	return nil
}

// LiftRestriction removes an expired or manually cleared restriction.
func (a *Agent) LiftRestriction() {
	a.restrictedUntil = nil
}

// recalculateRating refreshes the remittance rating from lifetime totals.
// Agents with no cash history keep the perfect default.
func (a *Agent) recalculateRating() {
	if a.totalCollected <= 0 {
		a.remittanceRating = 1
		return
	}

	rating := a.totalRemitted / a.totalCollected
	if rating > 1 {
		rating = 1
	}
	a.remittanceRating = rating
}

// setID validates and sets the agent's unique identifier.
func (a *Agent) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	a.id = id
	return nil
}

// setName validates and sets the agent's display name.
func (a *Agent) setName(name string) error {
	if name == "" {
		return errs.NewValueIsRequiredError("name")
	}
	a.name = name
	return nil
}

// setContact validates and sets the agent's notification recipient.
func (a *Agent) setContact(contact string) error {
	if contact == "" {
		return errs.NewValueIsRequiredError("contact")
	}
	a.contact = contact
	return nil
}

// setMaxWorkload validates and sets the concurrent delivery cap.
func (a *Agent) setMaxWorkload(maxWorkload int) error {
	if maxWorkload <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("max workload is invalid",
			fmt.Errorf("%d is not greater than 0", maxWorkload))
	}
	a.maxWorkload = maxWorkload
	return nil
}
