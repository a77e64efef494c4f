package indicator

import (
	"fmt"
	"math"

	"github.com/dnldd/chartview/shared"
)

// compensatedSum is a running sum carrying the low-order bits lost by each addition.
type compensatedSum struct {
	sum  float64
	comp float64
}

// add adds the provided value to the sum.
func (c *compensatedSum) add(v float64) {
	t := c.sum + v
	if math.Abs(c.sum) >= math.Abs(v) {
		c.comp += (c.sum - t) + v
	} else {
		c.comp += (v - t) + c.sum
	}
	c.sum = t
}

// value returns the compensated sum.
func (c *compensatedSum) value() float64 {
	return c.sum + c.comp
}

// windowSum sums the provided points from scratch.
func windowSum(points []shared.IndicatorPoint) compensatedSum {
	var acc compensatedSum
	for idx := range points {
		acc.add(points[idx].Value)
	}
	return acc
}

// MovingAverage computes the trailing simple moving average of the provided points over
// the provided window. A point is produced for every index with a full window behind it,
// indexes before that produce nothing.
//
// The window sum is updated incrementally with compensated arithmetic and recomputed
// from scratch every window steps, so rounding error stays bounded by a single window.
func MovingAverage(points []shared.IndicatorPoint, window int) ([]shared.IndicatorPoint, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: moving average window must be positive, got %d",
			shared.ErrInvalidArgument, window)
	}

	if len(points) < window {
		return []shared.IndicatorPoint{}, nil
	}

	averages := make([]shared.IndicatorPoint, 0, len(points)-window+1)
	size := float64(window)

	var acc compensatedSum
	for idx := range points {
		start := idx - window + 1
		switch {
		case start > 0 && start%window == 0:
			acc = windowSum(points[start : idx+1])
		default:
			acc.add(points[idx].Value)
			if start > 0 {
				acc.add(-points[start-1].Value)
			}
		}
		if start < 0 {
			continue
		}

		averages = append(averages, shared.IndicatorPoint{
			Time:  points[idx].Time,
			Value: acc.value() / size,
		})
	}

	return averages, nil
}

// Volumes projects the volume of the provided bars as indicator points.
func Volumes(bars []shared.Bar) []shared.IndicatorPoint {
	volumes := make([]shared.IndicatorPoint, len(bars))
	for idx := range bars {
		volumes[idx] = shared.IndicatorPoint{Time: bars[idx].Time, Value: bars[idx].Volume}
	}

	return volumes
}

// Closes projects the close of the provided bars as indicator points.
func Closes(bars []shared.Bar) []shared.IndicatorPoint {
	closes := make([]shared.IndicatorPoint, len(bars))
	for idx := range bars {
		closes[idx] = shared.IndicatorPoint{Time: bars[idx].Time, Value: bars[idx].Close}
	}

	return closes
}
