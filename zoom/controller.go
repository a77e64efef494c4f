package zoom

import (
	"fmt"

	"github.com/dnldd/chartview/shared"
)

const (
	// baseVisibleBars is the reference number of visible bars thresholds scale from.
	baseVisibleBars = 700
	// maxZoomOutBars caps the zoom out threshold at the coarse end of the ladder.
	maxZoomOutBars = 3000
	// maxZoomInBars caps the zoom in threshold at the fine end of the ladder.
	maxZoomInBars = 50
	// minVisibleBars is the visible bar count at or below which zooming in is never proposed.
	minVisibleBars = 5
)

// Thresholds represents the hysteresis bounds of a timeframe.
type Thresholds struct {
	ZoomInBars  float64
	ZoomOutBars float64
}

// ComputeThresholds computes the zoom thresholds of the provided timeframe from its
// ladder neighbours.
func ComputeThresholds(current shared.Timeframe) (Thresholds, error) {
	currentMins, err := current.Minutes()
	if err != nil {
		return Thresholds{}, err
	}

	coarser, err := current.Coarser()
	if err != nil {
		return Thresholds{}, err
	}
	coarserMins, err := coarser.Minutes()
	if err != nil {
		return Thresholds{}, err
	}

	finer, err := current.Finer()
	if err != nil {
		return Thresholds{}, err
	}
	finerMins, err := finer.Minutes()
	if err != nil {
		return Thresholds{}, err
	}

	zoomOut := baseVisibleBars * (float64(coarserMins) / float64(currentMins))
	zoomIn := baseVisibleBars / (float64(currentMins) / float64(finerMins))

	return Thresholds{
		ZoomInBars:  min(zoomIn, maxZoomInBars),
		ZoomOutBars: min(zoomOut, maxZoomOutBars),
	}, nil
}

// Direction represents a proposed timeframe move.
type Direction int

const (
	NoChange Direction = iota
	ZoomOut
	ZoomIn
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case NoChange:
		return "none"
	case ZoomOut:
		return "out"
	case ZoomIn:
		return "in"
	default:
		return "unknown"
	}
}

// Decide proposes a timeframe move for the provided visible bar count.
func Decide(visibleBars int, th Thresholds) Direction {
	count := float64(visibleBars)
	switch {
	case count > th.ZoomOutBars:
		return ZoomOut
	case count < th.ZoomInBars && visibleBars > minVisibleBars:
		return ZoomIn
	default:
		return NoChange
	}
}

// Decision represents the outcome of evaluating a viewport for a timeframe change.
type Decision struct {
	Direction Direction
	From      shared.Timeframe
	To        shared.Timeframe
}

// Changed returns whether the decision switches timeframes.
func (d Decision) Changed() bool {
	return d.Direction != NoChange && d.From != d.To
}

// Evaluate computes the thresholds of the current timeframe and decides whether the
// provided visible bar count warrants a timeframe change. Proposals past the ends of the
// ladder resolve to no change.
func Evaluate(current shared.Timeframe, visibleBars int) (Decision, error) {
	th, err := ComputeThresholds(current)
	if err != nil {
		return Decision{}, fmt.Errorf("computing thresholds: %w", err)
	}

	decision := Decision{Direction: Decide(visibleBars, th), From: current, To: current}

	switch decision.Direction {
	case ZoomOut:
		decision.To, err = current.Coarser()
	case ZoomIn:
		decision.To, err = current.Finer()
	}
	if err != nil {
		return Decision{}, err
	}

	if decision.To == current {
		decision.Direction = NoChange
	}

	return decision, nil
}
