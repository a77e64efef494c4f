package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dnldd/chartview/chart"
	"github.com/dnldd/chartview/database"
	"github.com/dnldd/chartview/fetch"
	"github.com/dnldd/chartview/metrics"
	"github.com/dnldd/chartview/shared"
	"github.com/dnldd/chartview/viewport"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	shutdownTimeout = time.Second * 5
)

// ChartConfig represents the configuration struct for the chart service.
type ChartConfig struct {
	// Symbol is the charted symbol.
	Symbol string
	// Timeframe is the timeframe the session starts on when none is persisted.
	Timeframe shared.Timeframe
	// APIURL is the chart backend base url.
	APIURL string
	// StreamURL is the live bar websocket url, optional.
	StreamURL string
	// DBEndpoint is the rqlite endpoint viewport state is persisted to, optional.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// MetricsAddr is the address metrics are served on, optional.
	MetricsAddr string
	// CoolDown is the minimum spacing between starts of the same fetch.
	CoolDown time.Duration
	// RefreshInterval is the interval the visible range is periodically refreshed at.
	RefreshInterval time.Duration
	// CycleTimeout bounds the duration of a viewport update cycle.
	CycleTimeout time.Duration
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *ChartConfig) Validate() error {
	var errs error

	state := shared.ViewportState{Symbol: cfg.Symbol, Timeframe: cfg.Timeframe}
	if err := state.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}
	if cfg.APIURL == "" {
		errs = errors.Join(errs, fmt.Errorf("api url cannot be an empty string"))
	}
	if cfg.CoolDown < 0 {
		errs = errors.Join(errs, fmt.Errorf("cool-down cannot be negative"))
	}
	if cfg.RefreshInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("refresh interval must be positive"))
	}
	if cfg.CycleTimeout <= 0 {
		errs = errors.Join(errs, fmt.Errorf("cycle timeout must be positive"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Chart represents a chart session service.
type Chart struct {
	cfg          *ChartConfig
	sessionID    string
	client       *fetch.Client
	db           *database.Database
	recorder     *chart.Recorder
	metrics      *metrics.Collectors
	orchestrator *viewport.Orchestrator
	jobScheduler *gocron.Scheduler
	logger       *zerolog.Logger

	runCtx       context.Context
	streamCancel context.CancelFunc
	streamMtx    sync.Mutex
	wg           sync.WaitGroup
}

// NewChart initializes a new chart session service.
func NewChart(ctx context.Context, cfg *ChartConfig) (*Chart, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	sessionID := uuid.New().String()
	logger := log.With().Str("service", "chart").Str("session", sessionID).Logger()

	c := &Chart{
		cfg:          cfg,
		sessionID:    sessionID,
		recorder:     chart.NewRecorder(chart.DefaultSeries()),
		metrics:      metrics.NewCollectors(prometheus.NewRegistry()),
		jobScheduler: gocron.NewScheduler(time.UTC),
		logger:       &logger,
	}

	clientLogger := logger.With().Str("component", "client").Logger()
	client, err := fetch.NewClient(&fetch.ClientConfig{
		BaseURL: cfg.APIURL,
		Timeout: cfg.CycleTimeout,
		Logger:  &clientLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}
	c.client = client

	state := shared.ViewportState{Symbol: cfg.Symbol, Timeframe: cfg.Timeframe}

	if cfg.DBEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		c.db, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %w", err)
		}

		persisted, err := c.db.FetchViewportState(ctx, cfg.Symbol)
		switch {
		case err == nil:
			state.Timeframe = persisted.Timeframe
		case errors.Is(err, database.ErrStateNotFound):
		default:
			logger.Error().Err(err).Msgf("fetching persisted viewport state for %s", cfg.Symbol)
		}
	}

	orchestratorLogger := logger.With().Str("component", "orchestrator").Logger()
	c.orchestrator, err = viewport.NewOrchestrator(&viewport.OrchestratorConfig{
		State:             state,
		Fetcher:           client,
		Renderer:          c.recorder,
		Viewport:          c.recorder,
		OnTimeframeChange: c.handleTimeframeChange,
		CoolDown:          cfg.CoolDown,
		CycleTimeout:      cfg.CycleTimeout,
		Metrics:           c.metrics,
		Logger:            &orchestratorLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	return c, nil
}

// SessionID returns the id of the chart session.
func (c *Chart) SessionID() string {
	return c.sessionID
}

// State returns the current viewport state of the session.
func (c *Chart) State() shared.ViewportState {
	return c.orchestrator.State()
}

// Recorder returns the rendered chart of the session.
func (c *Chart) Recorder() *chart.Recorder {
	return c.recorder
}

// OnVisibleRangeChange applies a visible range change of the chart. It reports false
// when the change was dropped because an update is in progress.
func (c *Chart) OnVisibleRangeChange(ctx context.Context, rng shared.VisibleRange) bool {
	c.recorder.SetVisibleRange(rng)
	return c.orchestrator.HandleViewportChange(ctx, rng)
}

// handleTimeframeChange persists the new state and restarts the live bar stream on the
// new timeframe.
func (c *Chart) handleTimeframeChange(state shared.ViewportState) error {
	c.streamMtx.Lock()
	runCtx := c.runCtx
	c.streamMtx.Unlock()

	if runCtx != nil {
		c.startStream(runCtx, state.Timeframe)
	}

	if c.db == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CycleTimeout)
	defer cancel()

	return c.db.PersistViewportState(ctx, state)
}

// refresh re-runs a viewport update for the current visible range.
func (c *Chart) refresh(ctx context.Context) {
	if !c.orchestrator.HandleViewportChange(ctx, c.recorder.VisibleBarRange()) {
		c.logger.Debug().Msg("skipping refresh, update in progress")
	}
}

// startStream starts the live bar stream for the provided timeframe, stopping any
// running stream.
func (c *Chart) startStream(ctx context.Context, timeframe shared.Timeframe) {
	if c.cfg.StreamURL == "" {
		return
	}

	c.streamMtx.Lock()
	defer c.streamMtx.Unlock()

	if ctx.Err() != nil {
		return
	}

	if c.streamCancel != nil {
		c.streamCancel()
	}

	streamLogger := c.logger.With().Str("component", "stream").Logger()
	stream, err := fetch.NewStream(&fetch.StreamConfig{
		URL:       c.cfg.StreamURL,
		Symbol:    c.cfg.Symbol,
		Timeframe: timeframe,
		OnBar: func(tf shared.Timeframe, bar shared.Bar) {
			c.orchestrator.ApplyLiveBar(tf, bar)
		},
		Logger: &streamLogger,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("creating live bar stream")
		return
	}

	streamCtx, cancel := context.WithCancel(ctx)
	c.streamCancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		stream.Run(streamCtx)
	}()
}

// serveMetrics serves the session metrics until the provided context is done.
func (c *Chart) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.metrics.Handler())
	srv := &http.Server{Addr: c.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: time.Second * 5}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Error().Err(err).Msg("shutting down metrics server")
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error().Err(err).Msg("serving metrics")
			c.cfg.Cancel()
		}
	}()
}

// Run handles the lifecycle processes of the chart service.
func (c *Chart) Run(ctx context.Context) {
	c.streamMtx.Lock()
	c.runCtx = ctx
	c.streamMtx.Unlock()

	if c.cfg.MetricsAddr != "" {
		c.serveMetrics(ctx)
	}

	if err := c.orchestrator.Initialize(ctx); err != nil {
		c.logger.Error().Err(err).Msg("initializing chart")
	}

	c.startStream(ctx, c.orchestrator.State().Timeframe)

	_, err := c.jobScheduler.Every(c.cfg.RefreshInterval).WaitForSchedule().SingletonMode().Do(c.refresh, ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("scheduling refresh job")
	}
	c.jobScheduler.StartAsync()

	c.logger.Info().Msgf("charting %s on %s", c.cfg.Symbol, c.orchestrator.State().Timeframe)

	<-ctx.Done()

	c.jobScheduler.Stop()
	c.wg.Wait()
}
