package chart

// LineStyle represents the stroke style of a line.
type LineStyle int

const (
	Solid LineStyle = iota
	Dotted
	Dashed
)

// MarkerPosition represents where a marker is drawn relative to its bar.
type MarkerPosition string

const (
	AboveBar MarkerPosition = "aboveBar"
	BelowBar MarkerPosition = "belowBar"
)

// MarkerShape represents the shape of a marker.
type MarkerShape string

const (
	Circle MarkerShape = "circle"
	Square MarkerShape = "square"
)

// LinePoint represents a point of a drawn line.
type LinePoint struct {
	// Time is the point time in unix seconds.
	Time  int64
	Value float64
	// Color overrides the line color from this point onwards when set.
	Color string
}

// Marker represents an annotation attached to a line at a given time.
type Marker struct {
	Time     int64
	Position MarkerPosition
	Color    string
	Shape    MarkerShape
	Text     string
}

// Line represents a drawable line with optional markers.
type Line struct {
	Color   string
	Width   int
	Style   LineStyle
	Points  []LinePoint
	Markers []Marker
}
