package services

import (
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/agent"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/pkg/errs"
)

const (
	// FraudScoreThreshold is the score at or above which verification treats
	// the settlement as a breach.
	FraudScoreThreshold = 0.7

	// RestrictionDuration is how long a breach blocks the agent from new
	// assignments.
	RestrictionDuration = 7 * 24 * time.Hour

	// remittanceDelayLimit is the delay after which the delayed-remittance
	// flag is raised; it also normalizes the delay term of the fraud score.
	remittanceDelayLimit = 24 * time.Hour

	discrepancyFlagSeverity = 0.8
	delayFlagSeverity       = 0.5
)

// VerificationResult is the outcome of assessing a recorded remittance.
type VerificationResult struct {
	// Score is the fraud score in [0, 1].
	Score float64

	// Flags are the findings behind the score, empty for a clean settlement.
	Flags []delivery.FraudFlag

	// Breach reports whether the score crossed the restriction threshold.
	Breach bool
}

// RemittanceVerifier is a domain service that assesses a recorded cash
// settlement for fraud. It computes the features from the delivery and the
// agent's history, scores them through the ScoringEngine, and raises
// structured flags for the review queue.
//
// The verifier never fails on suspicious input: suspicion always resolves to
// a score plus flags, and the caller acts on the Breach verdict (restrict,
// dispute, escalate) deterministically.
type RemittanceVerifier struct {
	scoring ScoringEngine
}

// NewRemittanceVerifier creates a new RemittanceVerifier instance.
func NewRemittanceVerifier(scoring ScoringEngine) RemittanceVerifier {
	return RemittanceVerifier{scoring: scoring}
}

// Verify assesses the delivery's recorded settlement against the agent's
// history. Both the collection and the remittance must already be recorded.
func (v RemittanceVerifier) Verify(d *delivery.Delivery, a *agent.Agent) (VerificationResult, error) {
	if err := d.Validate(); err != nil {
		return VerificationResult{}, err
	}
	if err := a.Validate(); err != nil {
		return VerificationResult{}, err
	}
	if d.CashCollected() == nil || d.CashRemitted() == nil {
		return VerificationResult{}, errs.NewValueIsInvalidError(
			"delivery settlement is incomplete")
	}

	collected := *d.CashCollected()
	remitted := *d.CashRemitted()

	var flags []delivery.FraudFlag

	discrepancyRatio := 0.0
	if remitted < collected {
		discrepancyRatio = (collected - remitted) / collected
	}
	if remitted != collected {
		flag, err := delivery.NewFraudFlag(
			delivery.FraudFlagAmountDiscrepancy,
			fmt.Sprintf("remitted %.2f of %.2f collected", remitted, collected),
			discrepancyFlagSeverity,
			map[string]string{
				"expected": fmt.Sprintf("%.2f", collected),
				"actual":   fmt.Sprintf("%.2f", remitted),
			},
		)
		if err != nil {
			return VerificationResult{}, err
		}
		flags = append(flags, flag)
	}

	delayTerm, delayFlag, err := v.assessDelay(d)
	if err != nil {
		return VerificationResult{}, err
	}
	if delayFlag != nil {
		flags = append(flags, *delayFlag)
	}

	score := v.scoring.RemittanceFraudScore(
		discrepancyRatio,
		delayTerm,
		1-a.RemittanceRating(),
		v.scoring.FraudIncidentRatio(a.FraudIncidents()),
	)

	return VerificationResult{
		Score:  score,
		Flags:  flags,
		Breach: score >= FraudScoreThreshold,
	}, nil
}

// assessDelay computes the delay term of the fraud score and the
// delayed-remittance flag. A delivery without a completion time is treated
// as maximally delayed.
func (v RemittanceVerifier) assessDelay(d *delivery.Delivery) (float64, *delivery.FraudFlag, error) {
	if d.CompletedTime() == nil || d.RemittanceTime() == nil {
		flag, err := delivery.NewFraudFlag(
			delivery.FraudFlagDelayedRemittance,
			"completion time unknown, remittance delay cannot be verified",
			delayFlagSeverity,
			nil,
		)
		if err != nil {
			return 0, nil, err
		}
		return 1, &flag, nil
	}

	elapsed := d.RemittanceTime().Sub(*d.CompletedTime())
	delayTerm := elapsed.Hours() / remittanceDelayLimit.Hours()
	if delayTerm < 0 {
		delayTerm = 0
	}
	if delayTerm > 1 {
		delayTerm = 1
	}

	if elapsed <= remittanceDelayLimit {
		return delayTerm, nil, nil
	}

	flag, err := delivery.NewFraudFlag(
		delivery.FraudFlagDelayedRemittance,
		fmt.Sprintf("remitted %.0f hours after completion", elapsed.Hours()),
		delayFlagSeverity,
		map[string]string{"hours": fmt.Sprintf("%.0f", elapsed.Hours())},
	)
	if err != nil {
		return 0, nil, err
	}
	return delayTerm, &flag, nil
}
