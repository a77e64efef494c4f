package shared

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// ParseBar parses a bar from the provided json object.
func ParseBar(data gjson.Result) (Bar, error) {
	if !data.IsObject() {
		return Bar{}, fmt.Errorf("expected a bar object, got %s", data.Type.String())
	}

	tm := data.Get("time")
	if !tm.Exists() {
		return Bar{}, fmt.Errorf("bar has no time field")
	}

	bar := Bar{
		Time:   tm.Int(),
		Open:   data.Get("open").Float(),
		High:   data.Get("high").Float(),
		Low:    data.Get("low").Float(),
		Close:  data.Get("close").Float(),
		Volume: data.Get("volume").Float(),
	}

	return bar, nil
}

// ParseBars parses bars from the provided json data.
func ParseBars(data []gjson.Result) ([]Bar, error) {
	bars := make([]Bar, 0, len(data))
	for idx := range data {
		bar, err := ParseBar(data[idx])
		if err != nil {
			return nil, fmt.Errorf("parsing bar %d: %w", idx, err)
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// parseExtremumKind parses the provided extremum type.
func parseExtremumKind(kind string) ExtremumKind {
	switch kind {
	case "maximum":
		return Maximum
	case "minimum":
		return Minimum
	default:
		return UnknownExtremum
	}
}

// parseTrendDirection parses the provided trend direction.
func parseTrendDirection(direction string) TrendDirection {
	switch direction {
	case "U":
		return Up
	case "D":
		return Down
	default:
		return UnknownDirection
	}
}

// ParseExtrema parses extremum points from the provided json data.
func ParseExtrema(data []gjson.Result) []Extremum {
	extrema := make([]Extremum, 0, len(data))
	for idx := range data {
		extrema = append(extrema, Extremum{
			Timestamp: data[idx].Get("timestamp").Int(),
			Value:     data[idx].Get("value").Float(),
			Kind:      parseExtremumKind(data[idx].Get("type").String()),
		})
	}

	return extrema
}

// ParseSegments parses wave segments from the provided json data. A null or absent
// end value is kept distinct from a zero end value.
func ParseSegments(data []gjson.Result) []Segment {
	segments := make([]Segment, 0, len(data))
	for idx := range data {
		seg := Segment{
			Start:      data[idx].Get("start").Int(),
			End:        data[idx].Get("end").Int(),
			StartValue: data[idx].Get("startValue").Float(),
		}

		endValue := data[idx].Get("endValue")
		if endValue.Exists() && endValue.Type != gjson.Null {
			seg.EndValue = Float(endValue.Float())
		}

		segments = append(segments, seg)
	}

	return segments
}

// parseTrendPoint parses a trend point from the provided json object.
func parseTrendPoint(data gjson.Result) TrendPoint {
	return TrendPoint{
		Timestamp: data.Get("timestamp").Int(),
		Value:     data.Get("value").Float(),
	}
}

// ParseTrends parses trends from the provided json data.
func ParseTrends(data []gjson.Result) []Trend {
	trends := make([]Trend, 0, len(data))
	for idx := range data {
		trends = append(trends, Trend{
			Direction: parseTrendDirection(data[idx].Get("direction").String()),
			Start:     parseTrendPoint(data[idx].Get("startTrend")),
			End:       parseTrendPoint(data[idx].Get("endTrend")),
			Break:     parseTrendPoint(data[idx].Get("breakTrend")),
			MaxVolumeZone: VolumeZone{
				StartPrice: data[idx].Get("maxVolumeZone.startPrice").Float(),
				EndPrice:   data[idx].Get("maxVolumeZone.endPrice").Float(),
			},
		})
	}

	return trends
}

// ParseOverlays parses the extrema, wave and trend overlays from the provided json
// object. Absent overlay sets are left nil.
func ParseOverlays(data gjson.Result) (*Overlays, error) {
	if !data.IsObject() {
		return nil, fmt.Errorf("expected an overlays object, got %s", data.Type.String())
	}

	overlays := &Overlays{}
	if extrema := data.Get("extremum"); extrema.IsArray() {
		overlays.Extrema = ParseExtrema(extrema.Array())
	}
	if waves := data.Get("wave"); waves.IsArray() {
		overlays.Waves = ParseSegments(waves.Array())
	}
	if trends := data.Get("trends"); trends.IsArray() {
		overlays.Trends = ParseTrends(trends.Array())
	}

	return overlays, nil
}
