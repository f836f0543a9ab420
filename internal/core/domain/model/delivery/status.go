package delivery

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status represents the lifecycle state of a delivery attempt.
//
// State transitions:
//
//	Assigned ──confirm──> InProgress ──────────────────────────┐
//	   │                      │                                │
//	   │ timeout/reject       │ delay > threshold              │ drop-off
//	   v                      v                                v
//	 Failed <────────── InProgressDelayed ──hold──> InProgressEscalated
//	                          │                                │
//	                          └────────── drop-off ────────────┤
//	                                                           v
//	                                                       Completed
//	                                                           │ cash collected
//	                                                           v
//	                                                    DeliveredUnpaid
//	                                                           │ cash remitted
//	                                                           v
//	                                                     DeliveredPaid
//	                                                       │        ^
//	                                          fraud score  │        │ dispute
//	                                                       v        │ resolved
//	                                                   PaymentDisputed
//
// The in-progress sub-states are explicit statuses rather than boolean
// flags: InProgressDelayed records that the delay notification fired,
// InProgressEscalated records that a human is intervening. All three
// in-progress states plus Assigned count as "active" for the
// one-active-delivery-per-order invariant.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	Unknown Status = iota

	// Assigned means an agent was selected and the confirmation deadline is
	// armed. The attempt fails if the agent does not confirm in time.
	Assigned

	// InProgress means the agent confirmed and is delivering, on schedule.
	InProgress

	// InProgressDelayed means the delivery exceeded the delay threshold and
	// the one-shot delay notification has fired.
	InProgressDelayed

	// InProgressEscalated means a human placed the delivery on hold.
	// Escalated deliveries are exempt from automatic failure.
	InProgressEscalated

	// Completed means the package was dropped off. Cash orders continue to
	// the settlement states below; prepaid orders end here.
	Completed

	// Failed means the attempt was abandoned (confirmation timeout, agent
	// rejection, or excessive delay). The order may get a new attempt.
	Failed

	// DeliveredUnpaid means cash was collected from the customer but the
	// agent has not yet remitted it.
	DeliveredUnpaid

	// DeliveredPaid means the agent remitted the collected cash.
	DeliveredPaid

	// PaymentDisputed means remittance verification flagged the settlement
	// for manual fraud review.
	PaymentDisputed
)

// getStatusStrings returns a map of Status values to their string representations.
func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:             "Unknown",
		Assigned:            "Assigned",
		InProgress:          "InProgress",
		InProgressDelayed:   "InProgressDelayed",
		InProgressEscalated: "InProgressEscalated",
		Completed:           "Completed",
		Failed:              "Failed",
		DeliveredUnpaid:     "DeliveredUnpaid",
		DeliveredPaid:       "DeliveredPaid",
		PaymentDisputed:     "PaymentDisputed",
	}
}

// Validate checks if the Status value is valid.
func (s Status) Validate() error {
	if s <= Unknown || s > PaymentDisputed {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid",
			fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the human-readable name of the status.
// Implements the fmt.Stringer interface; safe on any Status value.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// IsInProgress reports whether the delivery is actively moving, in any of
// the in-progress sub-states.
func (s Status) IsInProgress() bool {
	return s == InProgress || s == InProgressDelayed || s == InProgressEscalated
}

// IsActive reports whether the delivery occupies the order's single active
// slot (awaiting confirmation or in progress).
func (s Status) IsActive() bool {
	return s == Assigned || s.IsInProgress()
}

// transition validates a status change and returns the target status.
func (s Status) transition(to Status, allowedFrom ...Status) (Status, error) {
	for _, from := range allowedFrom {
		if s == from {
			return to, nil
		}
	}
	return 0, errs.NewValueIsInvalidErrorWithCause(
		"status is invalid",
		fmt.Errorf("%s is not a valid status to enter %s", s.String(), to.String()),
	)
}

// Confirm transitions Assigned -> InProgress.
func (s Status) Confirm() (Status, error) {
	return s.transition(InProgress, Assigned)
}

// MarkDelayed transitions InProgress -> InProgressDelayed. The transition is
// valid only from the on-schedule sub-state, which makes the delay
// notification a one-shot edge.
func (s Status) MarkDelayed() (Status, error) {
	return s.transition(InProgressDelayed, InProgress)
}

// Escalate transitions an in-progress delivery to InProgressEscalated.
func (s Status) Escalate() (Status, error) {
	return s.transition(InProgressEscalated, InProgress, InProgressDelayed)
}

// Complete transitions any in-progress sub-state to Completed.
func (s Status) Complete() (Status, error) {
	return s.transition(Completed, InProgress, InProgressDelayed, InProgressEscalated)
}

// Fail transitions an unconfirmed or in-progress delivery to Failed.
func (s Status) Fail() (Status, error) {
	return s.transition(Failed, Assigned, InProgress, InProgressDelayed, InProgressEscalated)
}

// RecordCollection transitions Completed -> DeliveredUnpaid.
func (s Status) RecordCollection() (Status, error) {
	return s.transition(DeliveredUnpaid, Completed)
}

// RecordRemittance transitions DeliveredUnpaid -> DeliveredPaid.
func (s Status) RecordRemittance() (Status, error) {
	return s.transition(DeliveredPaid, DeliveredUnpaid)
}

// Dispute transitions DeliveredPaid -> PaymentDisputed.
func (s Status) Dispute() (Status, error) {
	return s.transition(PaymentDisputed, DeliveredPaid)
}

// Resolve transitions PaymentDisputed back to DeliveredPaid after manual
// review cleared the dispute.
func (s Status) Resolve() (Status, error) {
	return s.transition(DeliveredPaid, PaymentDisputed)
}
