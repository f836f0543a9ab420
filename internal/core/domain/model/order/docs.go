// Package order contains the Order aggregate as seen by the delivery core.
//
// The order workflow (an external collaborator) owns order creation and the
// early lifecycle. The delivery core mutates an order in exactly two places:
// when a delivery attempt is created (Confirmed -> InDelivery) and when the
// delivery completes (InDelivery -> Delivered). Payment settlement for
// cash-on-delivery orders continues on the delivery record after the order
// itself is Delivered.
package order
