package delivery

import (
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// ErrDeliveryIsNotConstructed is returned when a Delivery instance was not
// created through the NewDelivery or RestoreDelivery factory functions.
var ErrDeliveryIsNotConstructed = errors.New("Delivery must be created via NewDelivery constructor")

// Delivery is the aggregate root of a single delivery attempt. An order may
// have several attempts over its lifetime, but at most one active at a time;
// each attempt tracks its own confirmation, progress, completion and, for
// cash orders, settlement state.
//
// Delivery follows these invariants:
//   - Must reference a valid order and agent
//   - Attempt numbers start at 1 and grow with each redelivery
//   - Status transitions follow the rules in Status
//   - Cash fields are only populated past Completed, in collection order
type Delivery struct {
	// id is the unique identifier for the delivery attempt
	id kernel.UUID

	// orderID references the order being delivered
	orderID kernel.UUID

	// agentID references the agent assigned to this attempt
	agentID kernel.UUID

	// attempt is the 1-based attempt number for the order
	attempt int

	// createdAt is when the attempt was assigned; the confirmation deadline
	// is measured from this instant
	createdAt time.Time

	// scheduledTime is the promised completion time; delay is measured
	// against it
	scheduledTime time.Time

	// completedTime is when the package was dropped off, nil until Completed
	completedTime *time.Time

	// currentLocation is the agent's last reported position, nil until the
	// first progress update
	currentLocation *kernel.GeoPoint

	// lastLocationUpdate is when currentLocation was reported
	lastLocationUpdate *time.Time

	// estimatedArrival is the projected completion time from the last
	// progress update
	estimatedArrival *time.Time

	// delayMinutes is how far the projection runs past scheduledTime,
	// zero when on schedule
	delayMinutes int

	// failureReason explains a Failed status
	failureReason string

	// cashCollected is the amount taken from the customer, nil until the
	// collection is recorded
	cashCollected *float64

	// cashRemitted is the amount the agent handed over, nil until the
	// remittance is recorded
	cashRemitted *float64

	// remittanceTime is when the remittance was recorded
	remittanceTime *time.Time

	// remittanceProof is the agent-supplied proof reference (receipt number,
	// transfer id)
	remittanceProof string

	// remittanceVerified is set once verification or review clears the
	// settlement
	remittanceVerified bool

	// fraudScore is the weighted verification score in [0, 1], nil until
	// verification ran
	fraudScore *float64

	// fraudFlags are the findings behind the fraud score
	fraudFlags []FraudFlag

	// resolution is the outcome of manual review on a disputed settlement
	resolution Resolution

	// status is the current state in the delivery lifecycle
	status Status

	// guard ensures the delivery was created via a constructor
	guard guard.ConstructorGuard
}

// NewDelivery creates a new delivery attempt in Assigned status. The
// confirmation deadline runs from now; the schedule promise is scheduledTime.
func NewDelivery(
	id kernel.UUID,
	orderID kernel.UUID,
	agentID kernel.UUID,
	attempt int,
	scheduledTime time.Time,
	now time.Time,
) (*Delivery, error) {
	d := &Delivery{
		status: Assigned,
		guard:  guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		d.setID(id),
		d.setOrderID(orderID),
		d.setAgentID(agentID),
		d.setAttempt(attempt),
		d.setScheduledTime(scheduledTime),
		d.setCreatedAt(now),
	); err != nil {
		return nil, err
	}

	return d, nil
}

// Snapshot carries the full persisted state of a delivery attempt between
// the repository layer and RestoreDelivery.
type Snapshot struct {
	ID                 kernel.UUID
	OrderID            kernel.UUID
	AgentID            kernel.UUID
	Attempt            int
	CreatedAt          time.Time
	ScheduledTime      time.Time
	CompletedTime      *time.Time
	CurrentLocation    *kernel.GeoPoint
	LastLocationUpdate *time.Time
	EstimatedArrival   *time.Time
	DelayMinutes       int
	FailureReason      string
	CashCollected      *float64
	CashRemitted       *float64
	RemittanceTime     *time.Time
	RemittanceProof    string
	RemittanceVerified bool
	FraudScore         *float64
	FraudFlags         []FraudFlag
	Resolution         Resolution
	Status             Status
}

// RestoreDelivery reconstructs a Delivery aggregate from persistent storage.
// The restored delivery behaves identically to one that reached the same
// state through normal domain operations.
func RestoreDelivery(s Snapshot) (*Delivery, error) {
	d := &Delivery{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		d.setID(s.ID),
		d.setOrderID(s.OrderID),
		d.setAgentID(s.AgentID),
		d.setAttempt(s.Attempt),
		d.setScheduledTime(s.ScheduledTime),
		d.setCreatedAt(s.CreatedAt),
		s.Status.Validate(),
		s.Resolution.Validate(),
	); err != nil {
		return nil, err
	}

	d.completedTime = s.CompletedTime
	d.currentLocation = s.CurrentLocation
	d.lastLocationUpdate = s.LastLocationUpdate
	d.estimatedArrival = s.EstimatedArrival
	d.delayMinutes = s.DelayMinutes
	d.failureReason = s.FailureReason
	d.cashCollected = s.CashCollected
	d.cashRemitted = s.CashRemitted
	d.remittanceTime = s.RemittanceTime
	d.remittanceProof = s.RemittanceProof
	d.remittanceVerified = s.RemittanceVerified
	d.fraudScore = s.FraudScore
	d.fraudFlags = s.FraudFlags
	d.resolution = s.Resolution
	d.status = s.Status
	return d, nil
}

// Validate ensures the Delivery instance was properly constructed.
func (d *Delivery) Validate() error {
	if d == nil {
		return ErrDeliveryIsNotConstructed
	}
	return d.guard.Validate(ErrDeliveryIsNotConstructed)
}

// IsEqual compares two deliveries by their unique identifiers.
func (d *Delivery) IsEqual(other *Delivery) bool {
	return other != nil && d.id.IsEqual(other.id)
}

// ID returns the delivery attempt's unique identifier.
func (d *Delivery) ID() kernel.UUID {
	return d.id
}

// OrderID returns the identifier of the order being delivered.
func (d *Delivery) OrderID() kernel.UUID {
	return d.orderID
}

// AgentID returns the identifier of the assigned agent.
func (d *Delivery) AgentID() kernel.UUID {
	return d.agentID
}

// Attempt returns the 1-based attempt number for the order.
func (d *Delivery) Attempt() int {
	return d.attempt
}

// CreatedAt returns when the attempt was assigned.
func (d *Delivery) CreatedAt() time.Time {
	return d.createdAt
}

// ScheduledTime returns the promised completion time.
func (d *Delivery) ScheduledTime() time.Time {
	return d.scheduledTime
}

// CompletedTime returns when the package was dropped off, nil before that.
func (d *Delivery) CompletedTime() *time.Time {
	return d.completedTime
}

// CurrentLocation returns the agent's last reported position, nil before the
// first progress update.
func (d *Delivery) CurrentLocation() *kernel.GeoPoint {
	return d.currentLocation
}

// LastLocationUpdate returns when the current location was reported.
func (d *Delivery) LastLocationUpdate() *time.Time {
	return d.lastLocationUpdate
}

// EstimatedArrival returns the projected completion time, nil before the
// first progress update.
func (d *Delivery) EstimatedArrival() *time.Time {
	return d.estimatedArrival
}

// DelayMinutes returns how far the projection runs past the schedule.
func (d *Delivery) DelayMinutes() int {
	return d.delayMinutes
}

// FailureReason explains a Failed status, empty otherwise.
func (d *Delivery) FailureReason() string {
	return d.failureReason
}

// CashCollected returns the amount taken from the customer, nil until
// recorded.
func (d *Delivery) CashCollected() *float64 {
	return d.cashCollected
}

// CashRemitted returns the amount the agent handed over, nil until recorded.
func (d *Delivery) CashRemitted() *float64 {
	return d.cashRemitted
}

// RemittanceTime returns when the remittance was recorded.
func (d *Delivery) RemittanceTime() *time.Time {
	return d.remittanceTime
}

// RemittanceProof returns the agent-supplied proof reference.
func (d *Delivery) RemittanceProof() string {
	return d.remittanceProof
}

// IsRemittanceVerified reports whether the settlement has been cleared.
func (d *Delivery) IsRemittanceVerified() bool {
	return d.remittanceVerified
}

// FraudScore returns the verification score, nil until verification ran.
func (d *Delivery) FraudScore() *float64 {
	return d.fraudScore
}

// FraudFlags returns the findings behind the fraud score.
func (d *Delivery) FraudFlags() []FraudFlag {
	return d.fraudFlags
}

// DisputeResolution returns the outcome of manual review, ResolutionNone
// while the dispute is open.
func (d *Delivery) DisputeResolution() Resolution {
	return d.resolution
}

// Status returns the current status of the delivery attempt.
func (d *Delivery) Status() Status {
	return d.status
}

// DelayNotified reports whether the one-shot delay notification has fired
// for this attempt.
func (d *Delivery) DelayNotified() bool {
	return d.status == InProgressDelayed || d.status == InProgressEscalated
}

// RequiresIntervention reports whether a human has placed the delivery on
// hold. Held deliveries are exempt from automatic failure.
func (d *Delivery) RequiresIntervention() bool {
	return d.status == InProgressEscalated
}

// Confirm records the agent's acceptance of the assignment.
func (d *Delivery) Confirm() error {
	newStatus, err := d.status.Confirm()
	if err != nil {
		return err
	}

	d.status = newStatus
	return nil
}

// UpdateProgress records a position report from the agent together with the
// recomputed arrival projection. Valid only while the delivery is in
// progress.
func (d *Delivery) UpdateProgress(location kernel.GeoPoint, eta time.Time, delayMinutes int, at time.Time) error {
	if !d.status.IsInProgress() {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%s delivery does not accept progress updates", d.status.String()))
	}
	if err := location.Validate(); err != nil {
		return err
	}
	if delayMinutes < 0 {
		delayMinutes = 0
	}

	d.currentLocation = &location
	d.lastLocationUpdate = &at
	d.estimatedArrival = &eta
	d.delayMinutes = delayMinutes
	return nil
}

// UpdateEstimate refreshes the arrival projection without a new position
// report. Used by the periodic monitor tick.
func (d *Delivery) UpdateEstimate(eta time.Time, delayMinutes int) error {
	if !d.status.IsInProgress() {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%s delivery does not accept progress updates", d.status.String()))
	}
	if delayMinutes < 0 {
		delayMinutes = 0
	}

	d.estimatedArrival = &eta
	d.delayMinutes = delayMinutes
	return nil
}

// MarkDelayed records that the delay threshold was crossed and the delay
// notification fired. One-shot per attempt.
func (d *Delivery) MarkDelayed(delayMinutes int) error {
	newStatus, err := d.status.MarkDelayed()
	if err != nil {
		return err
	}

	d.status = newStatus
	if delayMinutes > d.delayMinutes {
		d.delayMinutes = delayMinutes
	}
	return nil
}

// Escalate places the delivery on hold for human intervention.
func (d *Delivery) Escalate() error {
	newStatus, err := d.status.Escalate()
	if err != nil {
		return err
	}

	d.status = newStatus
	return nil
}

// Complete records the drop-off at the given instant.
func (d *Delivery) Complete(at time.Time) error {
	newStatus, err := d.status.Complete()
	if err != nil {
		return err
	}

	d.status = newStatus
	d.completedTime = &at
	return nil
}

// Fail abandons the attempt with a reason (confirmation timeout, agent
// rejection, excessive delay).
func (d *Delivery) Fail(reason string) error {
	newStatus, err := d.status.Fail()
	if err != nil {
		return err
	}

	d.status = newStatus
	d.failureReason = reason
	return nil
}

// RecordCollection records the cash amount taken from the customer at the
// door. Valid only on a completed cash delivery.
func (d *Delivery) RecordCollection(amount float64) error {
	if amount <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("collected amount is invalid",
			fmt.Errorf("%f is not greater than 0", amount))
	}

	newStatus, err := d.status.RecordCollection()
	if err != nil {
		return err
	}

	d.status = newStatus
	d.cashCollected = &amount
	return nil
}

// RecordRemittance records the agent handing over the collected cash.
// Verification runs afterwards on the recorded values.
func (d *Delivery) RecordRemittance(amount float64, proof string, at time.Time) error {
	if amount < 0 {
		return errs.NewValueIsInvalidErrorWithCause("remitted amount is invalid",
			fmt.Errorf("%f is negative", amount))
	}

	newStatus, err := d.status.RecordRemittance()
	if err != nil {
		return err
	}

	d.status = newStatus
	d.cashRemitted = &amount
	d.remittanceProof = proof
	d.remittanceTime = &at
	return nil
}

// AttachFraudAssessment stores the verification outcome on the delivery.
// Valid once the remittance is recorded.
func (d *Delivery) AttachFraudAssessment(score float64, flags []FraudFlag) error {
	if score < 0 || score > 1 {
		return errs.NewValueIsOutOfRangeError("fraudScore", score, 0.0, 1.0)
	}
	if d.status != DeliveredPaid && d.status != PaymentDisputed {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%s delivery does not accept a fraud assessment", d.status.String()))
	}

	d.fraudScore = &score
	d.fraudFlags = flags
	return nil
}

// MarkVerified clears the settlement after verification found nothing
// suspicious.
func (d *Delivery) MarkVerified() error {
	if d.status != DeliveredPaid {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%s delivery cannot be marked verified", d.status.String()))
	}

	d.remittanceVerified = true
	return nil
}

// Dispute sends the settlement to the manual fraud review queue.
func (d *Delivery) Dispute() error {
	newStatus, err := d.status.Dispute()
	if err != nil {
		return err
	}

	d.status = newStatus
	d.remittanceVerified = false
	d.resolution = ResolutionNone
	return nil
}

// ResolveDispute records the outcome of manual review. A cleared dispute
// returns the delivery to DeliveredPaid and marks the settlement verified;
// a confirmed fraud keeps the delivery disputed with the finding recorded.
func (d *Delivery) ResolveDispute(confirmedFraud bool) error {
	if d.status != PaymentDisputed {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%s delivery has no open dispute", d.status.String()))
	}
	if d.resolution != ResolutionNone {
		return errs.NewValueIsInvalidErrorWithCause("resolution is invalid",
			fmt.Errorf("dispute already resolved as %s", d.resolution.String()))
	}

	if confirmedFraud {
		d.resolution = ResolutionConfirmedFraud
		return nil
	}

	newStatus, err := d.status.Resolve()
	if err != nil {
		return err
	}

	d.status = newStatus
	d.resolution = ResolutionCleared
	d.remittanceVerified = true
	return nil
}

// setID validates and sets the delivery's unique identifier.
func (d *Delivery) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	d.id = id
	return nil
}

// setOrderID validates and sets the order reference.
func (d *Delivery) setOrderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	d.orderID = id
	return nil
}

// setAgentID validates and sets the agent reference.
func (d *Delivery) setAgentID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	d.agentID = id
	return nil
}

// setAttempt validates and sets the attempt number.
func (d *Delivery) setAttempt(attempt int) error {
	if attempt < 1 {
		return errs.NewValueIsInvalidErrorWithCause("attempt is invalid",
			fmt.Errorf("%d is not greater than 0", attempt))
	}
	d.attempt = attempt
	return nil
}

// setScheduledTime validates and sets the promised completion time.
func (d *Delivery) setScheduledTime(t time.Time) error {
	if t.IsZero() {
		return errs.NewValueIsRequiredError("scheduledTime")
	}
	d.scheduledTime = t
	return nil
}

// setCreatedAt validates and sets the assignment instant.
func (d *Delivery) setCreatedAt(t time.Time) error {
	if t.IsZero() {
		return errs.NewValueIsRequiredError("createdAt")
	}
	d.createdAt = t
	return nil
}
