package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dnldd/chartview/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	candlesPath         = "/candles"
	historyCandlesPath  = "/history/candles"
	historyLinesPath    = "/history/lines"
	preloadCandlesPath  = "/history/candles/preload"
	preloadLinesPath    = "/history/lines/preload"
	defaultFetchTimeout = time.Second * 10
)

// ClientConfig represents the configuration for the chart backend client.
type ClientConfig struct {
	// BaseURL is the chart backend base url.
	BaseURL string
	// Timeout bounds each request, defaults to ten seconds.
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ClientConfig) Validate() error {
	var errs error

	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("base url cannot be an empty string"))
	} else if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = errors.Join(errs, fmt.Errorf("invalid base url %q", cfg.BaseURL))
	}
	if cfg.Timeout < 0 {
		errs = errors.Join(errs, fmt.Errorf("timeout cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("no logger provided"))
	}

	return errs
}

// Client represents the chart backend client.
type Client struct {
	cfg    *ClientConfig
	httpc  http.Client
	buf    *bytes.Buffer
	bufMtx sync.Mutex
}

// Ensure the client implements the DataFetcher interface.
var _ shared.DataFetcher = (*Client)(nil)

// NewClient instantiates a new chart backend client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}

	return &Client{
		cfg:   cfg,
		httpc: http.Client{Timeout: timeout},
		buf:   bytes.NewBuffer(make([]byte, 0, 256)),
	}, nil
}

// formURL creates full urls including parameters for the backend.
func (c *Client) formURL(path string, params url.Values) string {
	c.bufMtx.Lock()
	defer c.bufMtx.Unlock()

	c.buf.WriteString(strings.TrimSuffix(c.cfg.BaseURL, "/"))
	c.buf.WriteString(path)
	if len(params) > 0 {
		c.buf.WriteString("?")
		c.buf.WriteString(params.Encode())
	}
	formed := c.buf.String()
	c.buf.Reset()

	return formed
}

// seriesParams creates the query parameters identifying a series.
func seriesParams(symbol string, timeframe shared.Timeframe, start time.Time) url.Values {
	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("timeframe", timeframe.String())
	if !start.IsZero() {
		params.Add("start", start.Format(shared.StartDateLayout))
	}

	return params
}

// get requests the provided path and returns the response body.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	formedURL := c.formURL(path, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", path, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: requesting %s: %w", shared.ErrFetchFailure, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s responded with %d: %s", shared.ErrFetchFailure,
			path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

// fetchBars requests and parses the bars served at the provided path.
func (c *Client) fetchBars(ctx context.Context, path string, params url.Values) ([]shared.Bar, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	data := gjson.ParseBytes(body)
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: %s did not respond with a bar array", shared.ErrFetchFailure, path)
	}

	bars, err := shared.ParseBars(data.Array())
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", path, err)
	}

	if !shared.IsOrdered(bars) {
		c.cfg.Logger.Warn().Msgf("%s responded with unordered bars", path)
	}

	return bars, nil
}

// FetchBars fetches the latest bars of the provided series.
func (c *Client) FetchBars(ctx context.Context, symbol string, timeframe shared.Timeframe) ([]shared.Bar, error) {
	return c.fetchBars(ctx, candlesPath, seriesParams(symbol, timeframe, time.Time{}))
}

// FetchHistoryBars fetches older bars of the provided series, optionally from a start date.
func (c *Client) FetchHistoryBars(ctx context.Context, symbol string, timeframe shared.Timeframe, start time.Time) ([]shared.Bar, error) {
	return c.fetchBars(ctx, historyCandlesPath, seriesParams(symbol, timeframe, start))
}

// FetchOverlays fetches the extrema, wave and trend overlays of the provided series.
func (c *Client) FetchOverlays(ctx context.Context, symbol string, timeframe shared.Timeframe) (*shared.Overlays, error) {
	body, err := c.get(ctx, historyLinesPath, seriesParams(symbol, timeframe, time.Time{}))
	if err != nil {
		return nil, err
	}

	overlays, err := shared.ParseOverlays(gjson.ParseBytes(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing overlays: %v", shared.ErrFetchFailure, err)
	}

	return overlays, nil
}

// PreloadHistoryBars asks the backend to prepare older bars of the provided series.
func (c *Client) PreloadHistoryBars(ctx context.Context, symbol string, timeframe shared.Timeframe, start time.Time) error {
	_, err := c.get(ctx, preloadCandlesPath, seriesParams(symbol, timeframe, start))
	return err
}

// PreloadOverlays asks the backend to prepare the overlays of the preloaded history.
func (c *Client) PreloadOverlays(ctx context.Context, symbol string, timeframe shared.Timeframe) error {
	_, err := c.get(ctx, preloadLinesPath, seriesParams(symbol, timeframe, time.Time{}))
	return err
}
