package chart

import "github.com/dnldd/chartview/shared"

// Renderer defines the push-only render boundary of a chart.
type Renderer interface {
	// RenderBars replaces the bars of the provided series.
	RenderBars(id SeriesID, bars []shared.Bar)
	// RenderIndicator replaces the points of the provided series.
	RenderIndicator(id SeriesID, points []shared.IndicatorPoint)
	// RenderLines replaces the lines drawn by the provided series.
	RenderLines(id SeriesID, lines []Line)
}

// Viewport defines the synchronous viewport queries of a chart.
type Viewport interface {
	// VisibleBarRange returns the visible logical range.
	VisibleBarRange() shared.VisibleRange
	// BarsBeforeLeftEdge returns the number of rendered bars before the left edge of the
	// provided range. It reports false when no bars are rendered.
	BarsBeforeLeftEdge(rng shared.VisibleRange) (int, bool)
	// VisibleTimeRange returns the times of the first and last visible bars in unix seconds.
	VisibleTimeRange() (int64, int64, bool)
}
