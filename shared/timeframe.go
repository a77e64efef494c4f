package shared

import (
	"fmt"
	"time"
)

const (
	// StartDateLayout is the format layout for history preload start dates (YYMMDD).
	StartDateLayout = "060102"
)

// Timeframe represents the duration each bar of a series covers.
type Timeframe int

const (
	OneMinute Timeframe = iota
	FiveMinute
	FifteenMinute
	OneHour
	FourHour
	OneDay
)

// ladder is the ordered set of supported timeframes, finest to coarsest.
var ladder = [...]Timeframe{OneMinute, FiveMinute, FifteenMinute, OneHour, FourHour, OneDay}

// Timeframes returns the ordered timeframe ladder, finest to coarsest.
func Timeframes() []Timeframe {
	tfs := ladder
	return tfs[:]
}

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case OneMinute:
		return "1m"
	case FiveMinute:
		return "5m"
	case FifteenMinute:
		return "15m"
	case OneHour:
		return "1h"
	case FourHour:
		return "4h"
	case OneDay:
		return "1d"
	default:
		return "unknown"
	}
}

// ParseTimeframe parses the provided timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	for _, tf := range ladder {
		if tf.String() == s {
			return tf, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownTimeframe, s)
}

// Index returns the position of the timeframe in the ladder.
func (t Timeframe) Index() (int, error) {
	for idx, tf := range ladder {
		if tf == t {
			return idx, nil
		}
	}

	return -1, fmt.Errorf("%w: %d", ErrUnknownTimeframe, int(t))
}

// Minutes returns the number of minutes covered by the timeframe.
func (t Timeframe) Minutes() (int, error) {
	switch t {
	case OneMinute:
		return 1, nil
	case FiveMinute:
		return 5, nil
	case FifteenMinute:
		return 15, nil
	case OneHour:
		return 60, nil
	case FourHour:
		return 4 * 60, nil
	case OneDay:
		return 24 * 60, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownTimeframe, int(t))
	}
}

// Duration returns the timeframe as a duration.
func (t Timeframe) Duration() (time.Duration, error) {
	minutes, err := t.Minutes()
	if err != nil {
		return 0, err
	}

	return time.Duration(minutes) * time.Minute, nil
}

// Coarser returns the next coarser timeframe, clamped to the coarsest.
func (t Timeframe) Coarser() (Timeframe, error) {
	idx, err := t.Index()
	if err != nil {
		return t, err
	}

	if idx == len(ladder)-1 {
		return t, nil
	}

	return ladder[idx+1], nil
}

// Finer returns the next finer timeframe, clamped to the finest.
func (t Timeframe) Finer() (Timeframe, error) {
	idx, err := t.Index()
	if err != nil {
		return t, err
	}

	if idx == 0 {
		return t, nil
	}

	return ladder[idx-1], nil
}
