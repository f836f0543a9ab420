package delivery

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Well-known fraud flag types raised by remittance verification.
const (
	// FraudFlagAmountDiscrepancy means the remitted amount does not match the
	// collected amount.
	FraudFlagAmountDiscrepancy = "amount_discrepancy"

	// FraudFlagDelayedRemittance means the agent took too long to remit the
	// collected cash.
	FraudFlagDelayedRemittance = "delayed_remittance"
)

// FraudFlag is a single finding produced by remittance verification. A
// delivery accumulates flags; their weighted severities form the fraud score.
type FraudFlag struct {
	// flagType is one of the FraudFlag* constants
	flagType string

	// description is a human-readable explanation for the review queue
	description string

	// severity is the flag's contribution weight in [0, 1]
	severity float64

	// evidence holds supporting values, e.g. the expected and actual amounts
	evidence map[string]string
}

// NewFraudFlag creates a validated fraud flag. The evidence map is copied.
func NewFraudFlag(flagType, description string, severity float64, evidence map[string]string) (FraudFlag, error) {
	if flagType == "" {
		return FraudFlag{}, errs.NewValueIsRequiredError("flagType")
	}
	if severity < 0 || severity > 1 {
		return FraudFlag{}, errs.NewValueIsOutOfRangeError("severity", severity, 0.0, 1.0)
	}

	f := FraudFlag{
		flagType:    flagType,
		description: description,
		severity:    severity,
	}
	if len(evidence) > 0 {
		f.evidence = make(map[string]string, len(evidence))
		for k, v := range evidence {
			f.evidence[k] = v
		}
	}
	return f, nil
}

// RestoreFraudFlag reconstructs a flag from persistent storage.
func RestoreFraudFlag(flagType, description string, severity float64, evidence map[string]string) (FraudFlag, error) {
	return NewFraudFlag(flagType, description, severity, evidence)
}

// Type returns the flag's type constant.
func (f FraudFlag) Type() string {
	return f.flagType
}

// Description returns the human-readable explanation.
func (f FraudFlag) Description() string {
	return f.description
}

// Severity returns the flag's weight in [0, 1].
func (f FraudFlag) Severity() float64 {
	return f.severity
}

// Evidence returns a copy of the supporting values.
func (f FraudFlag) Evidence() map[string]string {
	if f.evidence == nil {
		return nil
	}
	out := make(map[string]string, len(f.evidence))
	for k, v := range f.evidence {
		out[k] = v
	}
	return out
}

// String returns a short description for logging.
func (f FraudFlag) String() string {
	return fmt.Sprintf("%s(%.2f)", f.flagType, f.severity)
}
