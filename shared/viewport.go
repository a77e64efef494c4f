package shared

import (
	"errors"
	"fmt"
	"math"
)

// VisibleRange represents the visible logical range of bar indices on a chart.
type VisibleRange struct {
	From float64
	To   float64
}

// BarCount returns the number of bars covered by the range.
func (r VisibleRange) BarCount() int {
	count := math.Round(r.To - r.From)
	if count < 0 || math.IsNaN(count) {
		return 0
	}

	return int(count)
}

// Shift returns the range moved by the provided number of bars.
func (r VisibleRange) Shift(bars int) VisibleRange {
	return VisibleRange{From: r.From + float64(bars), To: r.To + float64(bars)}
}

// ViewportState represents the persisted state of a chart session.
type ViewportState struct {
	Symbol       string
	Timeframe    Timeframe
	VisibleRange VisibleRange
}

// Validate asserts the viewport state sane inputs.
func (s *ViewportState) Validate() error {
	var errs error

	if s.Symbol == "" {
		errs = errors.Join(errs, fmt.Errorf("symbol cannot be an empty string"))
	}
	if _, err := s.Timeframe.Index(); err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}
