// Package geo provides the arrival estimation adapter. The estimate is
// straight-line distance over an average urban speed; good enough for the
// delay thresholds the monitor works with.
package geo

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// DefaultSpeedKmh is the assumed average speed of an agent moving through
// city traffic.
const DefaultSpeedKmh = 30.0

// HaversineEstimator implements ArrivalEstimator using great-circle distance
// and a fixed average speed.
type HaversineEstimator struct {
	speedKmh float64
}

// NewHaversineEstimator creates an estimator with the given average speed in
// km/h. Returns an error when the speed is not positive.
func NewHaversineEstimator(speedKmh float64) (*HaversineEstimator, error) {
	if speedKmh <= 0 {
		return nil, errs.NewValueIsInvalidError("speedKmh must be greater than 0")
	}
	return &HaversineEstimator{speedKmh: speedKmh}, nil
}

// EstimateArrival projects the arrival instant for an agent at from heading
// to to, starting at at.
func (e *HaversineEstimator) EstimateArrival(
	_ context.Context,
	from kernel.GeoPoint,
	to kernel.GeoPoint,
	at time.Time,
) (time.Time, error) {
	distanceKm, err := from.DistanceKm(to)
	if err != nil {
		return time.Time{}, err
	}

	travel := time.Duration(distanceKm / e.speedKmh * float64(time.Hour))
	return at.Add(travel), nil
}
