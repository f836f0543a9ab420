package order

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// PaymentMethod represents how the customer pays for an order. It determines
// whether cash collection and remittance verification apply at delivery time.
type PaymentMethod int

const (
	// PaymentMethodUnknown represents an invalid or undefined payment method.
	PaymentMethodUnknown PaymentMethod = iota

	// CashOnDelivery means the agent collects cash at the door and must later
	// remit it. Deliveries of such orders go through remittance verification.
	CashOnDelivery

	// Prepaid means the order was settled before delivery. The delivery is
	// marked paid immediately on completion.
	Prepaid
)

// getPaymentMethodStrings returns a map of PaymentMethod values to their names.
func getPaymentMethodStrings() map[PaymentMethod]string {
	return map[PaymentMethod]string{
		PaymentMethodUnknown: "Unknown",
		CashOnDelivery:       "CashOnDelivery",
		Prepaid:              "Prepaid",
	}
}

// Validate checks if the PaymentMethod value is valid.
func (m PaymentMethod) Validate() error {
	if m != CashOnDelivery && m != Prepaid {
		return errs.NewValueIsInvalidErrorWithCause(
			"payment method is invalid",
			fmt.Errorf("%d is not a valid payment method", m),
		)
	}
	return nil
}

// String returns the human-readable name of the payment method.
func (m PaymentMethod) String() string {
	if str, ok := getPaymentMethodStrings()[m]; ok {
		return str
	}
	return "Unknown"
}

// PaymentMethodFromString parses a payment method from its name.
func PaymentMethodFromString(s string) (PaymentMethod, error) {
	for method, name := range getPaymentMethodStrings() {
		if name == s && method != PaymentMethodUnknown {
			return method, nil
		}
	}
	return PaymentMethodUnknown, errs.NewValueIsInvalidErrorWithCause(
		"payment method is invalid",
		fmt.Errorf("%q is not a valid payment method", s),
	)
}

// IsCash reports whether cash is collected at the door for this method.
func (m PaymentMethod) IsCash() bool {
	return m == CashOnDelivery
}
