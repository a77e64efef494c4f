package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/chartview/shared"
	"github.com/gorilla/websocket"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

func TestStreamConfigValidate(t *testing.T) {
	logger := zerolog.Nop()
	onBar := func(shared.Timeframe, shared.Bar) {}

	cfg := &StreamConfig{URL: "ws://localhost/stream", Symbol: "BTC/USDT", Timeframe: shared.OneHour,
		OnBar: onBar, Logger: &logger}
	assert.NoError(t, cfg.Validate())

	cfg.URL = "http://localhost/stream"
	assert.Error(t, cfg.Validate())

	cfg = &StreamConfig{Timeframe: shared.Timeframe(99)}
	err := cfg.Validate()
	assert.Error(t, err)
	for _, want := range []string{"stream url", "symbol", "timeframe", "bar handler", "logger"} {
		assert.True(t, strings.Contains(err.Error(), want))
	}
}

func TestStream(t *testing.T) {
	subscriptions := make(chan gjson.Result, 1)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		subscriptions <- gjson.ParseBytes(msg)

		frames := []string{
			`{"time": 3600, "open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 3}`,
			`not json`,
			`[{"time": 7200, "close": 2}, {"time": 10800, "close": 3}]`,
		}
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}

		// Hold the connection until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	received := make(chan shared.Bar, 3)
	logger := zerolog.Nop()
	stream, err := NewStream(&StreamConfig{
		URL:       "ws" + strings.TrimPrefix(srv.URL, "http"),
		Symbol:    "BTC/USDT",
		Timeframe: shared.OneHour,
		OnBar: func(tf shared.Timeframe, bar shared.Bar) {
			if tf == shared.OneHour {
				received <- bar
			}
		},
		Logger: &logger,
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		stream.Run(ctx)
		close(done)
	}()

	// Ensure the stream subscribes to its series.
	sub := <-subscriptions
	assert.Equal(t, sub.Get("type").String(), "subscribe")
	assert.Equal(t, sub.Get("symbol").String(), "BTC/USDT")
	assert.Equal(t, sub.Get("timeframe").String(), "1h")

	// Ensure bar objects and arrays are relayed, malformed frames skipped.
	var times []int64
	for range 3 {
		select {
		case bar := <-received:
			times = append(times, bar.Time)
		case <-time.After(time.Second * 5):
			t.Fatalf("timed out waiting for bars, got %v", times)
		}
	}
	assert.Equal(t, times, []int64{3600, 7200, 10800})
	assert.Equal(t, stream.Received(), uint64(3))

	// Ensure the stream stops when its context is done.
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second * 5):
		t.Fatal("stream did not stop")
	}
}
