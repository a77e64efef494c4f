package shared

import "errors"

var (
	// ErrInvalidArgument is returned for malformed inputs such as a non-positive indicator window.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownTimeframe is returned for timeframes not present in the ladder.
	ErrUnknownTimeframe = errors.New("unknown timeframe")
	// ErrFetchFailure is returned when a collaborator fetch fails or returns no data.
	ErrFetchFailure = errors.New("fetch failure")
	// ErrUpdateInProgress is returned when a viewport update cycle is already running.
	ErrUpdateInProgress = errors.New("viewport update in progress")
)
