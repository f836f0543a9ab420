package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// ArrivalEstimator projects when an agent at the given position will reach
// the drop-off. Implementations may be as simple as straight-line distance
// over an average speed.
type ArrivalEstimator interface {
	EstimateArrival(ctx context.Context, from kernel.GeoPoint, to kernel.GeoPoint, at time.Time) (time.Time, error)
}
