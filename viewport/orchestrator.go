package viewport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/chartview/chart"
	"github.com/dnldd/chartview/indicator"
	"github.com/dnldd/chartview/market"
	"github.com/dnldd/chartview/metrics"
	"github.com/dnldd/chartview/scheduler"
	"github.com/dnldd/chartview/shared"
	"github.com/dnldd/chartview/zoom"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// historyThreshold is the number of bars left of the visible range below which more
	// history is loaded.
	historyThreshold = 50
	// slowVolumeWindow is the window of the slow volume moving average.
	slowVolumeWindow = 200
	// fastVolumeWindow is the window of the fast volume moving average.
	fastVolumeWindow = 5

	opFetchHistory    = "fetch_history"
	opFetchBars       = "fetch_bars"
	opFetchOverlays   = "fetch_overlays"
	opPreloadHistory  = "preload_history"
	opPreloadOverlays = "preload_overlays"
)

// OrchestratorConfig represents the configuration of the viewport orchestrator.
type OrchestratorConfig struct {
	// State is the viewport state the session starts from.
	State shared.ViewportState
	// Fetcher is the chart data backend.
	Fetcher shared.DataFetcher
	// Renderer is the render boundary of the chart.
	Renderer chart.Renderer
	// Viewport answers visible range queries of the chart.
	Viewport chart.Viewport
	// OnTimeframeChange is called with the new state whenever the timeframe changes.
	OnTimeframeChange func(state shared.ViewportState) error
	// CoolDown is the minimum spacing between starts of the same fetch.
	CoolDown time.Duration
	// CycleTimeout bounds the duration of an update cycle.
	CycleTimeout time.Duration
	// Metrics records cycle metrics, optional.
	Metrics *metrics.Collectors
	Logger  *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *OrchestratorConfig) Validate() error {
	var errs error

	if err := cfg.State.Validate(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("invalid state: %w", err))
	}
	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("no data fetcher provided"))
	}
	if cfg.Renderer == nil {
		errs = errors.Join(errs, fmt.Errorf("no renderer provided"))
	}
	if cfg.Viewport == nil {
		errs = errors.Join(errs, fmt.Errorf("no viewport provided"))
	}
	if cfg.CoolDown < 0 {
		errs = errors.Join(errs, fmt.Errorf("cool-down cannot be negative"))
	}
	if cfg.CycleTimeout <= 0 {
		errs = errors.Join(errs, fmt.Errorf("cycle timeout must be positive"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("no logger provided"))
	}

	return errs
}

// fetchArgs represents the arguments of a coalesced fetch.
type fetchArgs struct {
	Symbol    string
	Timeframe shared.Timeframe
	Start     time.Time
}

// operations represents the coalesced fetches of one timeframe.
type operations struct {
	fetchHistory    *scheduler.Coalescer[fetchArgs, []shared.Bar]
	fetchBars       *scheduler.Coalescer[fetchArgs, []shared.Bar]
	fetchOverlays   *scheduler.Coalescer[fetchArgs, *shared.Overlays]
	preloadHistory  *scheduler.Coalescer[fetchArgs, struct{}]
	preloadOverlays *scheduler.Coalescer[fetchArgs, struct{}]
}

// Orchestrator runs viewport update cycles of a chart session. At most one cycle runs at
// a time, viewport changes arriving while a cycle runs are dropped.
type Orchestrator struct {
	cfg      *OrchestratorConfig
	updating atomic.Bool
	state    shared.ViewportState
	ops      *operations
	series   *market.Series
	stateMtx sync.RWMutex
}

// NewOrchestrator initializes a new viewport orchestrator.
func NewOrchestrator(cfg *OrchestratorConfig) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:    cfg,
		state:  cfg.State,
		series: market.NewSeries(),
	}
	o.ops = o.newOperations()

	return o, nil
}

// coalescerConfig creates the coalescer config of the provided operation.
func (o *Orchestrator) coalescerConfig(name string) *scheduler.CoalescerConfig {
	return &scheduler.CoalescerConfig{
		Name:        name,
		CoolDown:    o.cfg.CoolDown,
		OnCoalesced: o.cfg.Metrics.Coalesced,
	}
}

// newOperations wraps the fetches of the backend with coalescers.
func (o *Orchestrator) newOperations() *operations {
	fetcher := o.cfg.Fetcher

	fetchHistory := func(ctx context.Context, args fetchArgs) ([]shared.Bar, error) {
		bars, err := fetcher.FetchHistoryBars(ctx, args.Symbol, args.Timeframe, args.Start)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("%w: no history bars for %s %s", shared.ErrFetchFailure,
				args.Symbol, args.Timeframe)
		}
		return bars, nil
	}

	fetchBars := func(ctx context.Context, args fetchArgs) ([]shared.Bar, error) {
		bars, err := fetcher.FetchBars(ctx, args.Symbol, args.Timeframe)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("%w: no bars for %s %s", shared.ErrFetchFailure,
				args.Symbol, args.Timeframe)
		}
		return bars, nil
	}

	fetchOverlays := func(ctx context.Context, args fetchArgs) (*shared.Overlays, error) {
		overlays, err := fetcher.FetchOverlays(ctx, args.Symbol, args.Timeframe)
		if err != nil {
			return nil, err
		}
		if overlays == nil {
			return nil, fmt.Errorf("%w: no overlays for %s %s", shared.ErrFetchFailure,
				args.Symbol, args.Timeframe)
		}
		return overlays, nil
	}

	preloadHistory := func(ctx context.Context, args fetchArgs) (struct{}, error) {
		return struct{}{}, fetcher.PreloadHistoryBars(ctx, args.Symbol, args.Timeframe, args.Start)
	}

	preloadOverlays := func(ctx context.Context, args fetchArgs) (struct{}, error) {
		return struct{}{}, fetcher.PreloadOverlays(ctx, args.Symbol, args.Timeframe)
	}

	return &operations{
		fetchHistory:    scheduler.NewCoalescer(fetchHistory, o.coalescerConfig(opFetchHistory)),
		fetchBars:       scheduler.NewCoalescer(fetchBars, o.coalescerConfig(opFetchBars)),
		fetchOverlays:   scheduler.NewCoalescer(fetchOverlays, o.coalescerConfig(opFetchOverlays)),
		preloadHistory:  scheduler.NewCoalescer(preloadHistory, o.coalescerConfig(opPreloadHistory)),
		preloadOverlays: scheduler.NewCoalescer(preloadOverlays, o.coalescerConfig(opPreloadOverlays)),
	}
}

// State returns the current viewport state.
func (o *Orchestrator) State() shared.ViewportState {
	o.stateMtx.RLock()
	defer o.stateMtx.RUnlock()

	return o.state
}

// Bars returns the bar snapshot of the session.
func (o *Orchestrator) Bars() []shared.Bar {
	return o.series.Bars()
}

// session returns the current state and coalesced operations.
func (o *Orchestrator) session() (shared.ViewportState, *operations) {
	o.stateMtx.RLock()
	defer o.stateMtx.RUnlock()

	return o.state, o.ops
}

// fetchFailed logs and records a failed fetch.
func (o *Orchestrator) fetchFailed(op string, err error) {
	o.cfg.Metrics.FetchFailed(op)
	o.cfg.Logger.Error().Err(err).Str("op", op).Msg("fetch failed")
}

// Initialize loads the latest bars and overlays of the session and asks the backend to
// preload history. It returns ErrUpdateInProgress when a cycle is running.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if !o.updating.CompareAndSwap(false, true) {
		return shared.ErrUpdateInProgress
	}
	defer o.updating.Store(false)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.CycleTimeout)
	defer cancel()

	return o.load(ctx)
}

// load renders the latest bars and overlays as a fresh baseline and preloads history.
func (o *Orchestrator) load(ctx context.Context) error {
	state, ops := o.session()
	args := fetchArgs{Symbol: state.Symbol, Timeframe: state.Timeframe}

	bars, err := ops.fetchBars.Call(ctx, args)
	if err != nil {
		o.fetchFailed(opFetchBars, err)
		return fmt.Errorf("loading %s %s bars: %w", state.Symbol, state.Timeframe, err)
	}

	o.series.Replace(bars)
	o.renderBars(bars)

	overlays, err := ops.fetchOverlays.Call(ctx, args)
	if err != nil {
		o.fetchFailed(opFetchOverlays, err)
	} else {
		o.renderOverlays(overlays, bars)
	}

	o.preload(ctx, ops, args)

	return nil
}

// preload asks the backend to prepare the next page of history.
func (o *Orchestrator) preload(ctx context.Context, ops *operations, args fetchArgs) {
	if _, err := ops.preloadHistory.Call(ctx, args); err != nil {
		o.fetchFailed(opPreloadHistory, err)
	}
	if _, err := ops.preloadOverlays.Call(ctx, args); err != nil {
		o.fetchFailed(opPreloadOverlays, err)
	}
}

// renderBars pushes the provided bars, their volumes and volume moving averages.
func (o *Orchestrator) renderBars(bars []shared.Bar) {
	o.cfg.Renderer.RenderBars(chart.CandlesSeries, bars)

	volumes := indicator.Volumes(bars)
	o.cfg.Renderer.RenderIndicator(chart.VolumeSeries, volumes)

	for _, vma := range []struct {
		id     chart.SeriesID
		window int
	}{
		{id: chart.VMA200Series, window: slowVolumeWindow},
		{id: chart.VMA5Series, window: fastVolumeWindow},
	} {
		points, err := indicator.MovingAverage(volumes, vma.window)
		if err != nil {
			o.cfg.Logger.Error().Err(err).Msgf("computing %s", vma.id)
			continue
		}
		o.cfg.Renderer.RenderIndicator(vma.id, points)
	}
}

// renderOverlays pushes the provided overlays. Absent overlay sets are not rendered.
func (o *Orchestrator) renderOverlays(overlays *shared.Overlays, bars []shared.Bar) {
	if len(overlays.Extrema) > 0 {
		line, err := chart.ExtremaLine(overlays.Extrema)
		if err != nil {
			o.cfg.Logger.Error().Err(err).Msg("invalid extrema")
		} else {
			o.cfg.Renderer.RenderLines(chart.ExtremaSeries, []chart.Line{line})
		}
	}

	if len(overlays.Waves) > 0 {
		o.cfg.Renderer.RenderLines(chart.WaveSeries, []chart.Line{chart.WaveLine(overlays.Waves)})
	}

	if len(overlays.Trends) > 0 {
		var lastBarTime int64
		if len(bars) > 0 {
			lastBarTime = bars[len(bars)-1].Time
		}

		lines, skipped := chart.TrendLines(overlays.Trends, lastBarTime)
		if skipped > 0 {
			o.cfg.Logger.Warn().Msgf("skipped %d invalid trends", skipped)
		}
		o.cfg.Renderer.RenderLines(chart.TrendSeries, lines)
	}
}

// HandleViewportChange runs an update cycle for the provided visible range. It reports
// false when the event was dropped because a cycle is already running. Failures within
// the cycle are logged and never returned.
func (o *Orchestrator) HandleViewportChange(ctx context.Context, rng shared.VisibleRange) bool {
	if !o.updating.CompareAndSwap(false, true) {
		o.cfg.Metrics.EventDropped()
		o.cfg.Logger.Debug().Msg("viewport update in progress, dropping event")
		return false
	}
	defer o.updating.Store(false)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.CycleTimeout)
	defer cancel()

	start := time.Now()
	o.cycle(ctx, rng)

	outcome := "ok"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		outcome = "timeout"
		o.cfg.Logger.Warn().Msgf("viewport update exceeded %s", o.cfg.CycleTimeout)
	}
	o.cfg.Metrics.CycleCompleted(outcome, time.Since(start))

	return true
}

// cycle runs one viewport update.
func (o *Orchestrator) cycle(ctx context.Context, rng shared.VisibleRange) {
	o.stateMtx.Lock()
	o.state.VisibleRange = rng
	o.stateMtx.Unlock()

	before, ok := o.cfg.Viewport.BarsBeforeLeftEdge(rng)
	if ok && before < historyThreshold {
		o.loadHistory(ctx)
	}

	o.adjustTimeframe(ctx)
}

// loadHistory merges older bars into the session and renders the result and overlays,
// then prefetches history anchored at the earliest visible bar.
func (o *Orchestrator) loadHistory(ctx context.Context) {
	state, ops := o.session()
	args := fetchArgs{Symbol: state.Symbol, Timeframe: state.Timeframe}

	history, err := ops.fetchHistory.Call(ctx, args)
	if err != nil {
		o.fetchFailed(opFetchHistory, err)
	}

	latest, err := ops.fetchBars.Call(ctx, args)
	if err != nil {
		o.fetchFailed(opFetchBars, err)
	}

	overlays, err := ops.fetchOverlays.Call(ctx, args)
	if err != nil {
		o.fetchFailed(opFetchOverlays, err)
	}

	if ctx.Err() != nil {
		return
	}

	o.series.Backfill(history)
	bars := o.series.Splice(latest)

	if len(bars) > 0 {
		o.renderBars(bars)
	}
	if overlays != nil {
		o.renderOverlays(overlays, bars)
	}

	if from, _, ok := o.cfg.Viewport.VisibleTimeRange(); ok {
		args.Start = time.Unix(from, 0).UTC()
	}
	o.preload(ctx, ops, args)
}

// adjustTimeframe switches timeframes when the visible bar count crosses the current
// timeframe's thresholds, reloading the session on the new timeframe.
func (o *Orchestrator) adjustTimeframe(ctx context.Context) {
	visible := o.cfg.Viewport.VisibleBarRange().BarCount()
	state, _ := o.session()

	decision, err := zoom.Evaluate(state.Timeframe, visible)
	if err != nil {
		o.cfg.Logger.Error().Err(err).Msg("evaluating zoom")
		return
	}
	if !decision.Changed() {
		return
	}

	o.cfg.Logger.Info().Msgf("switching %s from %s to %s (%d bars visible)",
		state.Symbol, decision.From, decision.To, visible)

	o.stateMtx.Lock()
	o.state.Timeframe = decision.To
	state = o.state
	o.ops = o.newOperations()
	o.stateMtx.Unlock()

	o.series.Reset()
	o.cfg.Metrics.TimeframeChanged(decision.Direction.String())

	if o.cfg.OnTimeframeChange != nil {
		if err := o.cfg.OnTimeframeChange(state); err != nil {
			o.cfg.Logger.Error().Err(err).Msg("persisting timeframe change")
		}
	}

	if err := o.load(ctx); err != nil {
		o.cfg.Logger.Error().Err(err).Msg("reloading after timeframe change")
	}
}

// ApplyLiveBar merges a streamed bar into the session and renders the updated bars. Bars
// of a timeframe other than the session's and bars older than the last bar are ignored.
func (o *Orchestrator) ApplyLiveBar(timeframe shared.Timeframe, bar shared.Bar) bool {
	state, _ := o.session()
	if timeframe != state.Timeframe {
		return false
	}

	bars, ok := o.series.Update(bar)
	if !ok {
		o.cfg.Logger.Debug().Msgf("ignoring stale live bar at %d", bar.Time)
		return false
	}

	o.cfg.Metrics.LiveBarApplied()
	o.renderBars(bars)

	return true
}
