// Package delivery contains the Delivery aggregate: one delivery attempt of
// an order, from assignment through confirmation, progress monitoring and
// completion, and for cash-on-delivery orders on through cash collection,
// remittance and fraud verification.
//
// The lifecycle is modeled as an explicit state machine on Status. Sub-states
// of "in progress" (delayed, escalated) are first-class statuses so that the
// one-shot delay notification and the human-hold exemption fall out of the
// transition rules instead of side-band flags.
package delivery
