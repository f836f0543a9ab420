package services

// Weights of the agent fitness score. The workload term is normalized by a
// fixed constant rather than the agent's own cap so that two agents with the
// same absolute load score alike regardless of their configured maximums.
const (
	fitnessDistanceWeight = 0.4
	fitnessWorkloadWeight = 0.3
	fitnessSuccessWeight  = 0.3

	fitnessWorkloadNorm = 10.0
)

// Weights of the remittance fraud score.
const (
	fraudDiscrepancyWeight = 0.3
	fraudDelayWeight       = 0.2
	fraudHistoricalWeight  = 0.3
	fraudIncidentWeight    = 0.2

	fraudIncidentNorm = 5.0
)

// ScoringEngine computes agent fitness and remittance fraud scores. Both are
// simple weighted linear models over pre-normalized features; the engine has
// no side effects and no storage access, callers derive the features from
// store-read state on every trigger.
type ScoringEngine struct{}

// NewScoringEngine creates a new ScoringEngine instance.
func NewScoringEngine() ScoringEngine {
	return ScoringEngine{}
}

// AgentFitness scores an agent's suitability for an assignment.
//
// distanceNorm is the agent's distance to the drop-off normalized to [0, 1]
// (closer is lower). workloadCount is the agent's current number of active
// deliveries. successRate is the agent's reliability in [0, 1].
//
// The result is a weighted sum in [0, 1]: closer, less loaded and more
// reliable agents score higher. The weights do not re-normalize, so a
// perfect agent scores exactly 1.
func (s ScoringEngine) AgentFitness(distanceNorm float64, workloadCount int, successRate float64) float64 {
	workloadTerm := 1 - float64(workloadCount)/fitnessWorkloadNorm
	if workloadTerm < 0 {
		workloadTerm = 0
	}

	return fitnessDistanceWeight*(1-distanceNorm) +
		fitnessWorkloadWeight*workloadTerm +
		fitnessSuccessWeight*successRate
}

// RemittanceFraudScore scores how suspicious a cash settlement looks.
//
// amountDiscrepancyRatio is the shortfall relative to the collected amount.
// remittanceDelay is the delay between completion and remittance in days,
// capped at 1. agentHistoricalRisk is 1 minus the agent's remittance rating.
// agentFraudIncidentRatio is the agent's incident count normalized to [0, 1].
//
// All inputs live in [0, 1] and so does the result.
func (s ScoringEngine) RemittanceFraudScore(
	amountDiscrepancyRatio float64,
	remittanceDelay float64,
	agentHistoricalRisk float64,
	agentFraudIncidentRatio float64,
) float64 {
	return fraudDiscrepancyWeight*amountDiscrepancyRatio +
		fraudDelayWeight*remittanceDelay +
		fraudHistoricalWeight*agentHistoricalRisk +
		fraudIncidentWeight*agentFraudIncidentRatio
}

// FraudIncidentRatio normalizes an agent's incident count for the fraud
// score.
func (s ScoringEngine) FraudIncidentRatio(fraudIncidents int) float64 {
	ratio := float64(fraudIncidents) / fraudIncidentNorm
	if ratio > 1 {
		return 1
	}
	return ratio
}
