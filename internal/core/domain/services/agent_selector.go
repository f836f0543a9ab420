package services

import (
	"sort"
	"time"

	"dispatch/internal/core/domain/model/agent"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// Distance normalization for the fitness score: anything at or beyond this
// many kilometers counts as maximally far.
const distanceNormKm = 20.0

// An agent that never reported a position gets this neutral distance term
// instead of being excluded.
const unknownDistanceNorm = 0.5

// Agents without delivery history get this neutral success rate during
// selection: absence of a track record is moderate uncertainty, not
// perfection.
const coldStartSuccessRate = 0.5

// AgentWorkload pairs an agent with its delivery statistics, as counted by
// the caller from store-read state.
type AgentWorkload struct {
	Agent               *agent.Agent
	ActiveDeliveries    int
	CompletedDeliveries int
	FailedDeliveries    int
}

// Candidate is one ranked selection result.
type Candidate struct {
	// AgentID identifies the ranked agent.
	AgentID kernel.UUID

	// Score is the agent's fitness for this order in [0, 1].
	Score float64

	// DistanceKm is the agent's distance to the drop-off, -1 when the agent
	// never reported a position.
	DistanceKm float64

	// Workload is the agent's active delivery count at selection time.
	Workload int

	// SuccessRate is the reliability figure that went into the score.
	SuccessRate float64
}

// AgentSelector is a domain service that ranks eligible agents for an order
// by their fitness score.
//
// Business rules:
//   - Only available, unrestricted agents are considered
//   - Agents at or over their own workload cap are skipped
//   - Closer, less loaded, more reliable agents rank higher
//   - Equal scores keep the input order (stable sort)
type AgentSelector struct {
	scoring ScoringEngine
}

// NewAgentSelector creates a new AgentSelector instance.
func NewAgentSelector(scoring ScoringEngine) AgentSelector {
	return AgentSelector{scoring: scoring}
}

// SelectCandidates ranks the given agents for the order, best first. An
// empty result means no agent is currently eligible; the caller decides how
// to surface that.
func (s AgentSelector) SelectCandidates(
	o *order.Order,
	agents []AgentWorkload,
	now time.Time,
) ([]Candidate, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(agents))
	for _, aw := range agents {
		if err := aw.Agent.Validate(); err != nil {
			return nil, err
		}

		if !aw.Agent.IsEligibleAt(now) {
			continue
		}
		if aw.ActiveDeliveries >= aw.Agent.MaxWorkload() {
			continue
		}

		distanceKm := -1.0
		distanceNorm := unknownDistanceNorm
		if loc := aw.Agent.LastKnownLocation(); loc != nil {
			km, err := loc.DistanceKm(o.Location())
			if err != nil {
				return nil, err
			}
			distanceKm = km
			distanceNorm = distanceKm / distanceNormKm
			if distanceNorm > 1 {
				distanceNorm = 1
			}
		}

		successRate := coldStartSuccessRate
		if finished := aw.CompletedDeliveries + aw.FailedDeliveries; finished > 0 {
			successRate = float64(aw.CompletedDeliveries) / float64(finished)
		}

		candidates = append(candidates, Candidate{
			AgentID:     aw.Agent.ID(),
			Score:       s.scoring.AgentFitness(distanceNorm, aw.ActiveDeliveries, successRate),
			DistanceKm:  distanceKm,
			Workload:    aw.ActiveDeliveries,
			SuccessRate: successRate,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates, nil
}
