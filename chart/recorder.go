package chart

import (
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/dnldd/chartview/shared"
)

// Recorder is an in-memory chart that keeps the latest payload pushed to each declared
// series and answers viewport queries against the rendered candles.
type Recorder struct {
	series     map[SeriesID]Series
	bars       map[SeriesID][]shared.Bar
	indicators map[SeriesID][]shared.IndicatorPoint
	lines      map[SeriesID][]Line
	pushes     map[SeriesID]int
	visible    shared.VisibleRange
	total      uint64
	rejected   uint64
	mtx        sync.RWMutex
}

var _ Renderer = (*Recorder)(nil)
var _ Viewport = (*Recorder)(nil)

// NewRecorder initializes a recorder for the provided series.
func NewRecorder(series []Series) *Recorder {
	rec := &Recorder{
		series:     make(map[SeriesID]Series, len(series)),
		bars:       make(map[SeriesID][]shared.Bar),
		indicators: make(map[SeriesID][]shared.IndicatorPoint),
		lines:      make(map[SeriesID][]Line),
		pushes:     make(map[SeriesID]int),
	}

	for _, s := range series {
		rec.series[s.ID] = s
	}

	return rec
}

// accepts asserts the provided series is declared with one of the provided kinds.
// The caller must hold the lock.
func (r *Recorder) accepts(id SeriesID, kinds ...Kind) bool {
	s, ok := r.series[id]
	if !ok || !slices.Contains(kinds, s.Kind) {
		r.rejected++
		return false
	}

	return true
}

// record tracks a push to the provided series. The caller must hold the lock.
func (r *Recorder) record(id SeriesID) {
	r.pushes[id]++
	r.total++
}

// prependOffset returns the number of bars prepended ahead of the previously rendered
// first bar.
func prependOffset(prev []shared.Bar, next []shared.Bar) int {
	if len(prev) == 0 || len(next) == 0 {
		return 0
	}

	first := prev[0].Time
	idx := sort.Search(len(next), func(i int) bool { return next[i].Time >= first })
	if idx == len(next) || next[idx].Time != first {
		return 0
	}

	return idx
}

// RenderBars replaces the bars of a candlestick series. Bars prepended ahead of the
// rendered candles shift the visible range so the same bars stay in view.
func (r *Recorder) RenderBars(id SeriesID, bars []shared.Bar) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if !r.accepts(id, CandlestickKind) {
		return
	}

	if id == CandlesSeries {
		offset := prependOffset(r.bars[id], bars)
		if offset > 0 {
			r.visible = r.visible.Shift(offset)
		}
	}

	r.bars[id] = slices.Clone(bars)
	r.record(id)
}

// RenderIndicator replaces the points of a line or histogram series.
func (r *Recorder) RenderIndicator(id SeriesID, points []shared.IndicatorPoint) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if !r.accepts(id, LineKind, HistogramKind) {
		return
	}

	r.indicators[id] = slices.Clone(points)
	r.record(id)
}

// RenderLines replaces the lines drawn by a line series.
func (r *Recorder) RenderLines(id SeriesID, lines []Line) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if !r.accepts(id, LineKind) {
		return
	}

	r.lines[id] = slices.Clone(lines)
	r.record(id)
}

// SetVisibleRange sets the visible logical range.
func (r *Recorder) SetVisibleRange(rng shared.VisibleRange) {
	r.mtx.Lock()
	r.visible = rng
	r.mtx.Unlock()
}

// VisibleBarRange returns the visible logical range.
func (r *Recorder) VisibleBarRange() shared.VisibleRange {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.visible
}

// BarsBeforeLeftEdge returns the number of rendered candles before the left edge of the
// provided range.
func (r *Recorder) BarsBeforeLeftEdge(rng shared.VisibleRange) (int, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	count := len(r.bars[CandlesSeries])
	if count == 0 {
		return 0, false
	}

	before := math.Floor(rng.From)
	if math.IsNaN(before) || before < 0 {
		return 0, true
	}

	return min(int(before), count), true
}

// VisibleTimeRange returns the times of the first and last visible candles.
func (r *Recorder) VisibleTimeRange() (int64, int64, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	bars := r.bars[CandlesSeries]
	if len(bars) == 0 {
		return 0, 0, false
	}

	clamp := func(v float64) int {
		if math.IsNaN(v) || v < 0 {
			return 0
		}
		return min(int(v), len(bars)-1)
	}

	first := clamp(math.Floor(r.visible.From))
	last := clamp(math.Ceil(r.visible.To))

	return bars[first].Time, bars[last].Time, true
}

// Bars returns the bars last rendered to the provided series.
func (r *Recorder) Bars(id SeriesID) []shared.Bar {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return slices.Clone(r.bars[id])
}

// Indicator returns the points last rendered to the provided series.
func (r *Recorder) Indicator(id SeriesID) []shared.IndicatorPoint {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return slices.Clone(r.indicators[id])
}

// Lines returns the lines last rendered to the provided series.
func (r *Recorder) Lines(id SeriesID) []Line {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return slices.Clone(r.lines[id])
}

// Pushes returns the number of renders pushed to the provided series.
func (r *Recorder) Pushes(id SeriesID) int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.pushes[id]
}

// TotalPushes returns the number of renders pushed across all series.
func (r *Recorder) TotalPushes() uint64 {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.total
}

// Rejected returns the number of pushes to undeclared or mismatched series.
func (r *Recorder) Rejected() uint64 {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.rejected
}

// Reset clears every rendered payload, push count and rejection count.
func (r *Recorder) Reset() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	clear(r.bars)
	clear(r.indicators)
	clear(r.lines)
	clear(r.pushes)
	r.total = 0
	r.rejected = 0
}
