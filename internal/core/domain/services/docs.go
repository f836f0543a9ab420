// Package services contains stateless domain services: the scoring engine
// with the fitness and fraud models, the agent selector that ranks agents
// for an order, and the remittance verifier that assesses cash settlements.
//
// All three recompute from caller-provided state on every invocation and
// never touch storage; persistence and side effects stay with the command
// handlers.
package services
