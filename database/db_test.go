package database

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dnldd/chartview/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

func TestDatabaseConfigValidate(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name    string
		cfg     *DatabaseConfig
		wantErr bool
	}{
		{name: "valid", cfg: &DatabaseConfig{Endpoint: "http://localhost:4001", Logger: &logger}},
		{name: "valid with auth", cfg: &DatabaseConfig{Endpoint: "http://localhost:4001", User: "u", Pass: "p", Logger: &logger}},
		{name: "no endpoint", cfg: &DatabaseConfig{Logger: &logger}, wantErr: true},
		{name: "user without pass", cfg: &DatabaseConfig{Endpoint: "http://localhost:4001", User: "u", Logger: &logger}, wantErr: true},
		{name: "no logger", cfg: &DatabaseConfig{Endpoint: "http://localhost:4001"}, wantErr: true},
	}

	for _, test := range tests {
		err := test.cfg.Validate()
		if (err != nil) != test.wantErr {
			t.Errorf("%s: expected error %v, got %v", test.name, test.wantErr, err)
		}
	}
}

func TestViewportStateFromRow(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		row     []any
		want    *shared.ViewportState
		wantErr bool
	}{
		{
			name:    "valid row",
			columns: []string{"symbol", "timeframe", "updatedon"},
			row:     []any{"BTC/USDT", "4h", float64(1700000000)},
			want:    &shared.ViewportState{Symbol: "BTC/USDT", Timeframe: shared.FourHour},
		},
		{
			name:    "unknown timeframe",
			columns: []string{"symbol", "timeframe", "updatedon"},
			row:     []any{"BTC/USDT", "2h", float64(1700000000)},
			wantErr: true,
		},
		{
			name:    "mistyped symbol",
			columns: []string{"symbol", "timeframe"},
			row:     []any{float64(1), "1h"},
			wantErr: true,
		},
		{
			name:    "missing column",
			columns: []string{"symbol"},
			row:     []any{"BTC/USDT"},
			wantErr: true,
		},
		{
			name:    "short row",
			columns: []string{"symbol", "timeframe"},
			row:     []any{"BTC/USDT"},
			wantErr: true,
		},
	}

	for _, test := range tests {
		state, err := viewportStateFromRow(test.columns, test.row)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: expected error %v, got %v", test.name, test.wantErr, err)
			continue
		}

		if test.want != nil && *state != *test.want {
			t.Errorf("%s: expected %+v, got %+v", test.name, *test.want, *state)
		}
	}
}

// testRqlite is a minimal rqlite endpoint recording execute requests.
type testRqlite struct {
	executed []string
	rows     string
	mtx      sync.Mutex
}

func (s *testRqlite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if strings.Contains(r.URL.Path, "execute") {
		body, _ := io.ReadAll(r.Body)
		s.mtx.Lock()
		s.executed = append(s.executed, string(body))
		s.mtx.Unlock()

		w.Write([]byte(`{"results": [{"rows_affected": 1, "last_insert_id": 1}]}`))
		return
	}

	s.mtx.Lock()
	rows := s.rows
	s.mtx.Unlock()
	w.Write([]byte(rows))
}

func TestDatabase(t *testing.T) {
	backend := &testRqlite{
		rows: `{"results": [{"columns": ["symbol", "timeframe", "updatedon"], "types": ["text", "text", "integer"], "values": [["BTC/USDT", "15m", 1700000000]]}]}`,
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	logger := zerolog.Nop()
	db, err := NewDatabase(context.Background(), &DatabaseConfig{
		Endpoint: srv.URL,
		Now:      func() time.Time { return time.Unix(1700000000, 0) },
		Logger:   &logger,
	})
	assert.NoError(t, err)

	// Ensure bootstrapping creates the viewport table.
	backend.mtx.Lock()
	assert.Equal(t, len(backend.executed), 1)
	assert.True(t, strings.Contains(backend.executed[0], "CREATE TABLE IF NOT EXISTS viewport"))
	backend.mtx.Unlock()

	// Ensure states are upserted.
	err = db.PersistViewportState(context.Background(), shared.ViewportState{Symbol: "BTC/USDT", Timeframe: shared.FifteenMinute})
	assert.NoError(t, err)
	backend.mtx.Lock()
	assert.Equal(t, len(backend.executed), 2)
	assert.True(t, strings.Contains(backend.executed[1], "ON CONFLICT(symbol)"))
	assert.True(t, strings.Contains(backend.executed[1], "15m"))
	backend.mtx.Unlock()

	// Ensure invalid states are not persisted.
	err = db.PersistViewportState(context.Background(), shared.ViewportState{Timeframe: shared.OneHour})
	assert.Error(t, err)

	// Ensure stored states are fetched.
	state, err := db.FetchViewportState(context.Background(), "BTC/USDT")
	assert.NoError(t, err)
	assert.Equal(t, state.Symbol, "BTC/USDT")
	assert.Equal(t, state.Timeframe, shared.FifteenMinute)

	// Ensure absent states are reported.
	backend.mtx.Lock()
	backend.rows = `{"results": [{"columns": ["symbol", "timeframe", "updatedon"], "types": ["text", "text", "integer"]}]}`
	backend.mtx.Unlock()
	_, err = db.FetchViewportState(context.Background(), "ETH/USDT")
	assert.True(t, errors.Is(err, ErrStateNotFound))
}
