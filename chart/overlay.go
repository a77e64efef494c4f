package chart

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/dnldd/chartview/segment"
	"github.com/dnldd/chartview/shared"
)

const (
	// msPerSecond converts backend millisecond timestamps to chart seconds.
	msPerSecond = 1000
)

// ExtremaLine builds the extrema line from the provided extremum points. The set is
// rejected whole when any point is invalid.
func ExtremaLine(extrema []shared.Extremum) (Line, error) {
	for idx := range extrema {
		if !extrema[idx].Valid() {
			return Line{}, fmt.Errorf("%w: extremum %d (%d, %v, %s) is invalid",
				shared.ErrInvalidArgument, idx, extrema[idx].Timestamp, extrema[idx].Value,
				extrema[idx].Kind)
		}
	}

	sorted := slices.Clone(extrema)
	slices.SortStableFunc(sorted, func(a, b shared.Extremum) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		default:
			return 0
		}
	})

	line := Line{Color: "orange", Width: 1, Style: Solid}
	for idx := range sorted {
		tm := sorted[idx].Timestamp / msPerSecond
		if len(line.Points) > 0 && line.Points[len(line.Points)-1].Time == tm {
			continue
		}

		line.Points = append(line.Points, LinePoint{Time: tm, Value: sorted[idx].Value})

		marker := Marker{Time: tm, Shape: Circle}
		switch sorted[idx].Kind {
		case shared.Maximum:
			marker.Position = AboveBar
			marker.Color = "red"
		case shared.Minimum:
			marker.Position = BelowBar
			marker.Color = "blue"
		}
		line.Markers = append(line.Markers, marker)
	}

	return line, nil
}

// WaveLine builds the wave line from the provided segments. Invalid segments are dropped
// and the rest compacted before drawing.
func WaveLine(segments []shared.Segment) Line {
	valid := make([]shared.Segment, 0, len(segments))
	for idx := range segments {
		if segments[idx].Valid() {
			valid = append(valid, segments[idx])
		}
	}

	line := Line{Color: "green", Width: 2, Style: Solid}
	for _, seg := range segment.Compact(valid) {
		tm := seg.Start / msPerSecond
		if len(line.Points) > 0 && line.Points[len(line.Points)-1].Time >= tm {
			continue
		}

		color := "red"
		if seg.EndValue != nil && seg.StartValue < *seg.EndValue {
			color = "green"
		}

		line.Points = append(line.Points, LinePoint{Time: tm, Value: seg.StartValue, Color: color})
	}

	return line
}

// trendColors returns the line and range colors of the provided trend direction.
func trendColors(direction shared.TrendDirection) (string, string) {
	if direction == shared.Up {
		return "white", "lime"
	}

	return "yellow", "red"
}

// formatPrice formats the provided price for marker text.
func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// breakEnd returns the time in seconds the break line of the trend at the provided index
// extends to.
func breakEnd(trends []shared.Trend, idx int, lastBarTime int64) int64 {
	trend := trends[idx]
	switch {
	case idx == len(trends)-1:
		if lastBarTime > 0 {
			return lastBarTime
		}
		return trend.End.Timestamp / msPerSecond
	case trend.Break.Timestamp > trend.End.Timestamp && trends[idx+1].End.Timestamp > 0:
		return trends[idx+1].End.Timestamp / msPerSecond
	default:
		return trend.End.Timestamp / msPerSecond
	}
}

// TrendLines builds the trend, break and max volume zone lines of the provided trends.
// The break line of the final trend extends to the provided last bar time. Invalid trends
// are skipped and counted.
func TrendLines(trends []shared.Trend, lastBarTime int64) ([]Line, int) {
	lines := make([]Line, 0, len(trends)*3)
	var skipped int

	for idx := range trends {
		trend := trends[idx]
		if !trend.Valid() {
			skipped++
			continue
		}

		lineColor, rangeColor := trendColors(trend.Direction)
		start := trend.Start.Timestamp / msPerSecond
		end := trend.End.Timestamp / msPerSecond

		startPos, endPos := AboveBar, BelowBar
		if trend.Direction == shared.Down {
			startPos, endPos = BelowBar, AboveBar
		}

		trendLine := Line{
			Color: lineColor,
			Width: 2,
			Style: Solid,
			Points: []LinePoint{
				{Time: start, Value: trend.Start.Value},
				{Time: end, Value: trend.End.Value},
			},
			Markers: []Marker{
				{Time: start, Position: startPos, Color: "yellow", Shape: Square, Text: formatPrice(trend.Start.Value)},
				{Time: end, Position: endPos, Color: "yellow", Shape: Square, Text: formatPrice(trend.End.Value)},
			},
		}

		breakLine := Line{
			Color: lineColor,
			Width: 2,
			Style: Dashed,
			Points: []LinePoint{
				{Time: trend.Break.Timestamp / msPerSecond, Value: trend.Break.Value},
				{Time: breakEnd(trends, idx, lastBarTime), Value: trend.Break.Value},
			},
		}

		zone := trend.MaxVolumeZone
		rangeLine := Line{
			Color: rangeColor,
			Width: 2,
			Style: Dotted,
			Points: []LinePoint{
				{Time: start, Value: zone.StartPrice},
				{Time: start, Value: zone.EndPrice},
				{Time: end, Value: zone.EndPrice},
				{Time: end, Value: zone.StartPrice},
				{Time: start, Value: zone.StartPrice},
			},
		}

		lines = append(lines, trendLine, breakLine, rangeLine)
	}

	return lines, skipped
}
