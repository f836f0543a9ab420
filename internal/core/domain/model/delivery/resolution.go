package delivery

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Resolution is the outcome of a manual fraud review on a disputed delivery.
type Resolution int

const (
	// ResolutionNone means the dispute is still open (or never existed).
	ResolutionNone Resolution = iota

	// ResolutionCleared means review found the settlement legitimate.
	ResolutionCleared

	// ResolutionConfirmedFraud means review confirmed the fraud suspicion.
	ResolutionConfirmedFraud
)

// getResolutionStrings returns a map of Resolution values to their names.
func getResolutionStrings() map[Resolution]string {
	return map[Resolution]string{
		ResolutionNone:           "None",
		ResolutionCleared:        "Cleared",
		ResolutionConfirmedFraud: "ConfirmedFraud",
	}
}

// Validate checks if the Resolution value is valid.
func (r Resolution) Validate() error {
	if r < ResolutionNone || r > ResolutionConfirmedFraud {
		return errs.NewValueIsInvalidErrorWithCause("resolution is invalid",
			fmt.Errorf("%d is not a valid resolution", r))
	}
	return nil
}

// String returns the human-readable name of the resolution.
func (r Resolution) String() string {
	if str, ok := getResolutionStrings()[r]; ok {
		return str
	}
	return "None"
}
