package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dnldd/chartview/shared"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
)

const (
	defaultReconnectDelay = time.Second * 5
	handshakeTimeout      = time.Second * 10
)

// StreamConfig represents the configuration of the live bar stream.
type StreamConfig struct {
	// URL is the websocket url of the live bar stream.
	URL       string
	Symbol    string
	Timeframe shared.Timeframe
	// OnBar is called for every bar received.
	OnBar func(timeframe shared.Timeframe, bar shared.Bar)
	// ReconnectDelay is the wait before reconnecting a dropped stream, defaults to five seconds.
	ReconnectDelay time.Duration
	Logger         *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *StreamConfig) Validate() error {
	var errs error

	if cfg.URL == "" {
		errs = errors.Join(errs, fmt.Errorf("stream url cannot be an empty string"))
	} else if u, err := url.Parse(cfg.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		errs = errors.Join(errs, fmt.Errorf("invalid stream url %q", cfg.URL))
	}
	if cfg.Symbol == "" {
		errs = errors.Join(errs, fmt.Errorf("symbol cannot be an empty string"))
	}
	if _, err := cfg.Timeframe.Index(); err != nil {
		errs = errors.Join(errs, err)
	}
	if cfg.OnBar == nil {
		errs = errors.Join(errs, fmt.Errorf("no bar handler provided"))
	}
	if cfg.ReconnectDelay < 0 {
		errs = errors.Join(errs, fmt.Errorf("reconnect delay cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("no logger provided"))
	}

	return errs
}

// subscription represents the frame subscribing to a series' live bars.
type subscription struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

// Stream receives live bars of a series over a websocket.
type Stream struct {
	cfg    *StreamConfig
	dialer websocket.Dialer
	bars   atomic.Uint64
}

// NewStream initializes a new live bar stream.
func NewStream(cfg *StreamConfig) (*Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}

	return &Stream{
		cfg:    cfg,
		dialer: websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}, nil
}

// Received returns the number of bars received.
func (s *Stream) Received() uint64 {
	return s.bars.Load()
}

// handleFrame parses a stream frame holding a bar object or an array of bars.
func (s *Stream) handleFrame(frame []byte) error {
	data := gjson.ParseBytes(frame)

	var set []gjson.Result
	switch {
	case data.IsArray():
		set = data.Array()
	case data.IsObject():
		set = []gjson.Result{data}
	default:
		return fmt.Errorf("unexpected frame: %s", string(frame))
	}

	bars, err := shared.ParseBars(set)
	if err != nil {
		return err
	}

	for idx := range bars {
		s.bars.Inc()
		s.cfg.OnBar(s.cfg.Timeframe, bars[idx])
	}

	return nil
}

// consume subscribes to the series and relays bars until the connection drops or the
// context is done.
func (s *Stream) consume(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", s.cfg.URL, err)
	}
	defer conn.Close()

	// Unblock reads on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	sub, err := json.Marshal(subscription{
		Type:      "subscribe",
		Symbol:    s.cfg.Symbol,
		Timeframe: s.cfg.Timeframe.String(),
	})
	if err != nil {
		return fmt.Errorf("encoding subscription: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return fmt.Errorf("subscribing to %s %s: %w", s.cfg.Symbol, s.cfg.Timeframe, err)
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}

		if err := s.handleFrame(frame); err != nil {
			s.cfg.Logger.Error().Err(err).Msg("handling stream frame")
		}
	}
}

// Run relays live bars until the provided context is done, reconnecting dropped streams.
//
// It should be run as a goroutine.
func (s *Stream) Run(ctx context.Context) {
	for {
		err := s.consume(ctx)
		if err != nil {
			s.cfg.Logger.Error().Err(err).Msgf("%s %s stream dropped", s.cfg.Symbol, s.cfg.Timeframe)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}
