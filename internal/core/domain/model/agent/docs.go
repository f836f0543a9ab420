// Package agent contains the Agent aggregate: the delivery person the
// orchestrator selects, monitors and, for cash orders, audits. The
// aggregate owns the agent's availability, cash reliability rating and
// fraud restriction state.
package agent
