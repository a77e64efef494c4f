package market

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dnldd/chartview/shared"
)

// Series holds the bar snapshot of a chart session. Snapshots handed out are never
// mutated, every update replaces the snapshot.
type Series struct {
	bars    []shared.Bar
	barsMtx sync.RWMutex
}

// NewSeries initializes an empty series.
func NewSeries() *Series {
	return &Series{}
}

// Bars returns the current snapshot. Callers must not modify it.
func (s *Series) Bars() []shared.Bar {
	s.barsMtx.RLock()
	defer s.barsMtx.RUnlock()

	return s.bars
}

// Len returns the number of bars in the current snapshot.
func (s *Series) Len() int {
	s.barsMtx.RLock()
	defer s.barsMtx.RUnlock()

	return len(s.bars)
}

// Last returns the most recent bar of the snapshot.
func (s *Series) Last() (shared.Bar, bool) {
	s.barsMtx.RLock()
	defer s.barsMtx.RUnlock()

	if len(s.bars) == 0 {
		return shared.Bar{}, false
	}

	return s.bars[len(s.bars)-1], true
}

// Replace sets the provided bars as the current snapshot.
func (s *Series) Replace(bars []shared.Bar) {
	s.barsMtx.Lock()
	s.bars = bars
	s.barsMtx.Unlock()
}

// Splice merges the provided fresh bars over the snapshot and returns the new snapshot.
// Snapshot bars newer than the last fresh bar, such as live bars applied after the fresh
// bars were fetched, are kept.
func (s *Series) Splice(fresh []shared.Bar) []shared.Bar {
	s.barsMtx.Lock()
	defer s.barsMtx.Unlock()

	if len(fresh) == 0 {
		return s.bars
	}

	last := fresh[len(fresh)-1].Time
	tail, _ := slices.BinarySearchFunc(s.bars, last+1, func(bar shared.Bar, t int64) int {
		return cmp.Compare(bar.Time, t)
	})

	merged := Merge(s.bars, fresh)
	s.bars = append(merged, s.bars[tail:]...)
	return s.bars
}

// Backfill merges the snapshot over the provided older bars and returns the new snapshot.
// Snapshot bars win over history at equal times.
func (s *Series) Backfill(history []shared.Bar) []shared.Bar {
	s.barsMtx.Lock()
	defer s.barsMtx.Unlock()

	if len(s.bars) == 0 {
		s.bars = history
		return s.bars
	}

	s.bars = Merge(history, s.bars)
	return s.bars
}

// Update applies a single live bar. A bar for the current last time replaces it, a newer
// bar is appended and an older bar is rejected since splicing it would drop newer bars.
func (s *Series) Update(bar shared.Bar) ([]shared.Bar, bool) {
	s.barsMtx.Lock()
	defer s.barsMtx.Unlock()

	if len(s.bars) > 0 && bar.Time < s.bars[len(s.bars)-1].Time {
		return s.bars, false
	}

	s.bars = Merge(s.bars, []shared.Bar{bar})
	return s.bars, true
}

// Reset clears the snapshot.
func (s *Series) Reset() {
	s.barsMtx.Lock()
	s.bars = nil
	s.barsMtx.Unlock()
}
