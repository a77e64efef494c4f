package shared

import (
	"context"
	"time"
)

// BarFetcher defines the requirements for fetching bar data.
type BarFetcher interface {
	// FetchBars fetches the latest authoritative bars.
	FetchBars(ctx context.Context, symbol string, timeframe Timeframe) ([]Bar, error)
	// FetchHistoryBars fetches older bars, optionally bounded by a start date.
	FetchHistoryBars(ctx context.Context, symbol string, timeframe Timeframe, start time.Time) ([]Bar, error)
}

// OverlayFetcher defines the requirements for fetching analytic overlays.
type OverlayFetcher interface {
	// FetchOverlays fetches the extrema, wave and trend overlays.
	FetchOverlays(ctx context.Context, symbol string, timeframe Timeframe) (*Overlays, error)
}

// Preloader defines the requirements for asking the backend to prepare the next page of history.
type Preloader interface {
	// PreloadHistoryBars prepares older bars, optionally anchored at a start date.
	PreloadHistoryBars(ctx context.Context, symbol string, timeframe Timeframe, start time.Time) error
	// PreloadOverlays prepares the overlays for the preloaded history.
	PreloadOverlays(ctx context.Context, symbol string, timeframe Timeframe) error
}

// DataFetcher defines the requirements for the chart data backend.
type DataFetcher interface {
	BarFetcher
	OverlayFetcher
	Preloader
}
