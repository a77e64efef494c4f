package shared

import "math"

// Segment represents a directional price move over an interval.
type Segment struct {
	// Start is the segment start time in unix milliseconds.
	Start int64
	// End is the segment end time in unix milliseconds.
	End        int64
	StartValue float64
	// EndValue is nil when the backend did not report an end value.
	EndValue *float64
}

// Valid asserts the segment describes a drawable interval.
func (s *Segment) Valid() bool {
	if s.Start <= 0 || s.End < s.Start || !finite(s.StartValue) {
		return false
	}

	return s.EndValue == nil || finite(*s.EndValue)
}

// Float returns a pointer to the provided value.
func Float(v float64) *float64 {
	return &v
}

// ExtremumKind represents the kind of a price extremum.
type ExtremumKind int

const (
	UnknownExtremum ExtremumKind = iota
	Maximum
	Minimum
)

// String stringifies the provided extremum kind.
func (k ExtremumKind) String() string {
	switch k {
	case Maximum:
		return "maximum"
	case Minimum:
		return "minimum"
	default:
		return "unknown"
	}
}

// Extremum represents a local price maximum or minimum.
type Extremum struct {
	// Timestamp is the extremum time in unix milliseconds.
	Timestamp int64
	Value     float64
	Kind      ExtremumKind
}

// Valid asserts the extremum can be rendered.
func (e *Extremum) Valid() bool {
	return e.Timestamp > 0 && finite(e.Value) && e.Kind != UnknownExtremum
}

// TrendDirection represents the direction of a trend leg.
type TrendDirection int

const (
	UnknownDirection TrendDirection = iota
	Up
	Down
)

// String stringifies the provided trend direction.
func (d TrendDirection) String() string {
	switch d {
	case Up:
		return "U"
	case Down:
		return "D"
	default:
		return "unknown"
	}
}

// TrendPoint represents a timestamped price on a trend.
type TrendPoint struct {
	// Timestamp is the point time in unix milliseconds.
	Timestamp int64
	Value     float64
}

func (p *TrendPoint) valid() bool {
	return p.Timestamp > 0 && finite(p.Value)
}

// VolumeZone represents the price band that traded the most volume during a trend.
type VolumeZone struct {
	StartPrice float64
	EndPrice   float64
}

// Trend represents one leg of a trend decomposition and the point it was invalidated.
type Trend struct {
	Direction     TrendDirection
	Start         TrendPoint
	End           TrendPoint
	Break         TrendPoint
	MaxVolumeZone VolumeZone
}

// Valid asserts the trend carries every point required to draw it.
func (t *Trend) Valid() bool {
	return t.Direction != UnknownDirection && t.Start.valid() && t.End.valid() &&
		t.Break.valid() && finite(t.MaxVolumeZone.StartPrice) && finite(t.MaxVolumeZone.EndPrice)
}

// Overlays represents the analytic overlays computed by the backend for a series.
type Overlays struct {
	Extrema []Extremum
	Waves   []Segment
	Trends  []Trend
}

// finite asserts the provided value is neither NaN nor infinite.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
